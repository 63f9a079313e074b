package handlers

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/findosh/contactdesk/internal/config"
	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/middleware"
	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/services/auth"
	"github.com/findosh/contactdesk/internal/services/ledger"
	"github.com/findosh/contactdesk/internal/services/remote"
	"github.com/findosh/contactdesk/internal/services/session"
	"github.com/findosh/contactdesk/internal/services/workflow"
	"github.com/findosh/contactdesk/internal/storage"
	"github.com/findosh/contactdesk/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv     *httptest.Server
	client  *http.Client
	session *session.Store
	ledger  *ledger.Ledger
}

type envOptions struct {
	pending   bool
	submitter workflow.Submitter
}

func newEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logging.Nop()

	cfg := &config.Config{
		Environment:   "development",
		SecretKey:     "test-secret",
		FormTokenTTL:  time.Hour,
		RemoteTimeout: 5 * time.Second,
	}

	mem := storage.NewMemoryStore()
	sess := session.NewStore(mem.Blob(storage.SessionKey), log)
	if !opts.pending {
		sess.Restore(ctx)
	}
	led := ledger.New(mem.Blob(storage.LedgerKey), log)
	led.Restore(ctx)

	roster, err := auth.NewRoster(auth.DefaultCredentials, bcrypt.MinCost)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(nil)
	client := remote.NewClient("http://"+srv.Listener.Addr().String(), cfg.RemoteTimeout)

	var submitter workflow.Submitter = client
	if opts.submitter != nil {
		submitter = opts.submitter
	}

	h, err := New(cfg, web.FS, sess, led,
		workflow.NewLogin(client, sess, log, cfg.RemoteTimeout),
		workflow.NewContact(submitter, led, log, cfg.RemoteTimeout),
		auth.NewFormTokens(cfg.SecretKey, cfg.FormTokenTTL),
		roster, log)
	require.NoError(t, err)

	static, err := fs.Sub(web.FS, "static")
	require.NoError(t, err)
	guard := middleware.NewGuard(sess, "/login", http.HandlerFunc(h.Pending))
	srv.Config.Handler = h.Routes(guard, static)
	srv.Start()
	t.Cleanup(srv.Close)

	hc := srv.Client()
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testEnv{srv: srv, client: hc, session: sess, ledger: led}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) postJSON(t *testing.T, path, body string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	e.session.Login(context.Background(), models.User{ID: "1", Email: "test@example.com", Name: "Test User"})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

var tokenPattern = regexp.MustCompile(`name="form_token" value="([^"]+)"`)

func formToken(t *testing.T, body string) string {
	t.Helper()
	m := tokenPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "form token not found in page")
	return m[1]
}

func contactValues(token string) url.Values {
	return url.Values{
		"form_token":  {token},
		"fullName":    {"Jane Doe"},
		"email":       {"jane@example.com"},
		"phoneNumber": {"(555) 123-4567"},
		"subject":     {"Question about pricing"},
		"message":     {"Hello there,\nplease call me back."},
	}
}

func TestHome(t *testing.T) {
	env := newEnv(t, envOptions{})

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome to ContactApp")
	assert.Contains(t, body, "Login Now")

	resp, _ = env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatic(t *testing.T) {
	env := newEnv(t, envOptions{})

	resp, body := env.get(t, "/static/css/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".navbar")
}

func TestGuard_RedirectsWhenLoggedOut(t *testing.T) {
	env := newEnv(t, envOptions{})

	for _, path := range []string{"/contact", "/submissions"} {
		resp, _ := env.get(t, path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
}

func TestGuard_PlaceholderBeforeRestore(t *testing.T) {
	env := newEnv(t, envOptions{pending: true})

	resp, body := env.get(t, "/contact")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Contains(t, body, "Loading...")
	assert.NotContains(t, body, "Contact Form")
}

func TestLogin_Success(t *testing.T) {
	env := newEnv(t, envOptions{})

	resp, _ := env.postForm(t, "/login", url.Values{"email": {"test@example.com"}, "password": {"password123"}})

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/contact", resp.Header.Get("Location"))
	require.True(t, env.session.IsAuthenticated())
	assert.Equal(t, "Test User", env.session.CurrentUser().Name)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newEnv(t, envOptions{})

	resp, body := env.postForm(t, "/login", url.Values{"email": {"test@example.com"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="test@example.com"`)
	assert.NotContains(t, body, "wrong")
	assert.False(t, env.session.IsAuthenticated())
}

func TestLogin_InvalidForm(t *testing.T) {
	env := newEnv(t, envOptions{})

	resp, body := env.postForm(t, "/login", url.Values{"email": {"not-an-email"}, "password": {""}})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please enter a valid email address")
	assert.Contains(t, body, "Password is required")
	assert.False(t, env.session.IsAuthenticated())
}

func TestLoginPage_RedirectsWhenAuthenticated(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	resp, _ := env.get(t, "/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/contact", resp.Header.Get("Location"))
}

func TestLogout(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	resp, _ := env.get(t, "/logout")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.True(t, env.session.IsAuthenticated())

	resp, _ = env.postForm(t, "/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.False(t, env.session.IsAuthenticated())
}

func TestContactPage(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	resp, body := env.get(t, "/contact")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Get In Touch")
	assert.Contains(t, body, `value="test@example.com"`)
	assert.NotEmpty(t, formToken(t, body))
	assert.Contains(t, body, "Test User")
	assert.NotContains(t, body, "previous submission")
}

func TestSubmitContact_Success(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	_, page := env.get(t, "/contact")
	resp, body := env.postForm(t, "/contact", contactValues(formToken(t, page)))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Thank You!")
	assert.Contains(t, body, "You have sent <strong>1</strong> message total")
	require.Equal(t, 1, env.ledger.Count())
	assert.True(t, env.ledger.HasSubmitted())

	stored := env.ledger.ListSubmissions()[0]
	assert.Equal(t, "Question about pricing", stored.Subject)
	assert.Equal(t, "jane@example.com", stored.Email)

	// a new form instance shows the count and is reset to the user's email
	_, page = env.get(t, "/contact")
	assert.Contains(t, page, "You have 1 previous submission")
	assert.Contains(t, page, `value="test@example.com"`)
	assert.NotContains(t, page, "Jane Doe")
}

func TestSubmitContact_Invalid(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	_, page := env.get(t, "/contact")
	values := contactValues(formToken(t, page))
	values.Set("phoneNumber", "12345")
	values.Set("message", "short")

	resp, body := env.postForm(t, "/contact", values)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Phone number must contain at least 10 digits")
	assert.Contains(t, body, "Message must be at least 10 characters")
	assert.Contains(t, body, `value="Jane Doe"`, "input is kept")
	assert.Equal(t, 0, env.ledger.Count())
}

func TestSubmitContact_BadToken(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	resp, body := env.postForm(t, "/contact", contactValues("garbage"))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "This form has expired, please try again.")
	assert.NotEmpty(t, formToken(t, body))
	assert.Equal(t, 0, env.ledger.Count())
}

type failingSubmitter struct{}

func (failingSubmitter) SubmitContact(ctx context.Context, input models.SubmissionInput) (*remote.Ack, error) {
	return nil, &remote.TransportError{Op: "submit contact", Status: http.StatusInternalServerError}
}

func TestSubmitContact_TransportFailure(t *testing.T) {
	env := newEnv(t, envOptions{submitter: failingSubmitter{}})
	env.login(t)

	_, page := env.get(t, "/contact")
	token := formToken(t, page)
	resp, body := env.postForm(t, "/contact", contactValues(token))

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Failed to send message. Please try again.")
	assert.Equal(t, token, formToken(t, body), "the same form may be resubmitted")
	assert.Equal(t, 0, env.ledger.Count())
	assert.False(t, env.ledger.HasSubmitted())
}

func TestSubmissions(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	resp, body := env.get(t, "/submissions")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No Submissions Yet")

	ctx := context.Background()
	first := env.ledger.AddSubmission(ctx, models.SubmissionInput{
		FullName: "Jane Doe", Email: "jane@example.com", PhoneNumber: "5551234567",
		Subject: "Older", Message: "line one\nline two",
	})
	second := env.ledger.AddSubmission(ctx, models.SubmissionInput{
		FullName: "John Roe", Email: "john@example.com", PhoneNumber: "5557654321",
		Subject: "Newer", Message: "<script>alert(1)</script>",
	})

	resp, body = env.get(t, "/submissions")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "You have 2 submissions")
	assert.Contains(t, body, first.ID)
	assert.Contains(t, body, second.ID)
	assert.Contains(t, body, "line one<br>")
	assert.NotContains(t, body, "<script>alert")
	assert.Contains(t, body, "Submitted less than a minute ago")
	assert.Contains(t, body, `<span class="badge">2</span>`)
	assert.Contains(t, body, "#1")
	assert.Contains(t, body, "#2")
}

func TestAPILogin(t *testing.T) {
	env := newEnv(t, envOptions{})

	resp, body := env.postJSON(t, "/apis/login", `{"email":"admin@example.com","password":"admin123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"user":{"id":"2","email":"admin@example.com","name":"Admin User"}}`, body)

	resp, body = env.postJSON(t, "/apis/login", `{"email":"admin@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, body)

	resp, body = env.postJSON(t, "/apis/login", `{not json`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Something went wrong"}`, body)
}

func TestAPIContact(t *testing.T) {
	env := newEnv(t, envOptions{})

	payload := `{"fullName":"Jane Doe","email":"jane@example.com","phoneNumber":"5551234567","subject":"Hi","message":"Hello world!"}`
	resp, body := env.postJSON(t, "/apis/contact", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"message":"Your message has been sent successfully!","data":`+payload+`}`, body)

	resp, body = env.postJSON(t, "/apis/contact", `[`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to process your request"}`, body)

	resp, _ = env.get(t, "/apis/contact")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPIContact_Delay(t *testing.T) {
	h := &Handler{cfg: &config.Config{SubmitDelay: 50 * time.Millisecond}, log: logging.Nop()}

	req := httptest.NewRequest(http.MethodPost, "/apis/contact", strings.NewReader(`{"subject":"x"}`))
	rec := httptest.NewRecorder()
	start := time.Now()
	h.APIContact(rec, req)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec = httptest.NewRecorder()
	h.APIContact(rec, httptest.NewRequest(http.MethodPost, "/apis/contact", strings.NewReader(`{}`)).WithContext(ctx))
	assert.Empty(t, rec.Body.String(), "cancelled request gets no answer")
}

func TestSubmissions_MessageShownAsTyped(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.login(t)

	env.ledger.AddSubmission(context.Background(), models.SubmissionInput{
		FullName: "Jane Doe", Email: "jane@example.com", PhoneNumber: "5551234567",
		Subject: "Layout",
		Message: "Please fix the <div> layout on the page\n# 1 priority: call back\nMy id is A&amp;B, *urgent* and _soon_ \\o/",
	})

	resp, body := env.get(t, "/submissions")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, body, "Please fix the &lt;div&gt; layout on the page<br>")
	assert.Contains(t, body, "# 1 priority: call back<br>")
	assert.Contains(t, body, "*urgent*")
	assert.Contains(t, body, "_soon_")
	assert.Contains(t, body, `\o/`)
	assert.Contains(t, body, "A&amp;amp;B", "typed entities are not resolved")
	assert.NotContains(t, body, "<em>")
	assert.NotContains(t, body, "<h1>")
	assert.NotContains(t, body, "raw HTML omitted")
}

func TestRenderMessage(t *testing.T) {
	h := &Handler{markdown: newMessageRenderer()}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello there", "<p>hello there</p>\n"},
		{"line breaks", "line one\nline two", "<p>line one<br>\nline two</p>\n"},
		{"tag", "fix the <div> layout", "<p>fix the &lt;div&gt; layout</p>\n"},
		{"emphasis", "*urgent*", "<p>*urgent*</p>\n"},
		{"heading", "# 1 priority", "<p># 1 priority</p>\n"},
		{"list", "- one\n- two", "<p>- one<br>\n- two</p>\n"},
		{"backslash", `C:\temp\*`, `<p>C:\temp\*</p>` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(h.renderMessage(tt.in)))
		})
	}
}
