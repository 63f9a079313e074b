package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSRF(t *testing.T) {
	key := []byte(strings.Repeat("k", 32))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := CSRF(key, false, "/apis/")(ok)

	t.Run("safe method passes and sets cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("page post without token is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("subject=hi")))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("exempt prefix skips the check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/apis/contact", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
