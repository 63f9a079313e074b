// Package handlers provides HTTP request handlers
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/findosh/contactdesk/internal/config"
	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/middleware"
	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/services/auth"
	"github.com/findosh/contactdesk/internal/services/ledger"
	"github.com/findosh/contactdesk/internal/services/session"
	"github.com/findosh/contactdesk/internal/services/workflow"
	"github.com/findosh/contactdesk/internal/validation"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Handler contains all HTTP handlers and dependencies
type Handler struct {
	cfg       *config.Config
	templates *template.Template
	session   *session.Store
	ledger    *ledger.Ledger
	login     *workflow.Login
	contact   *workflow.Contact
	forms     *auth.FormTokens
	roster    *auth.Roster
	log       logging.Logger

	markdown goldmark.Markdown
	now      func() time.Time
}

// New creates a new handler with all dependencies.
// templates must contain templates/{layouts,components,pages}/*.html.
func New(
	cfg *config.Config,
	templates fs.FS,
	sessionStore *session.Store,
	submissions *ledger.Ledger,
	login *workflow.Login,
	contact *workflow.Contact,
	forms *auth.FormTokens,
	roster *auth.Roster,
	log logging.Logger,
) (*Handler, error) {
	h := &Handler{
		cfg:      cfg,
		session:  sessionStore,
		ledger:   submissions,
		login:    login,
		contact:  contact,
		forms:    forms,
		roster:   roster,
		log:      log.With("component", "handlers"),
		markdown: newMessageRenderer(),
		now:      time.Now,
	}

	tmpl, err := parseTemplates(templates, h.templateFuncs())
	if err != nil {
		return nil, err
	}
	h.templates = tmpl

	return h, nil
}

func parseTemplates(fsys fs.FS, funcs template.FuncMap) (*template.Template, error) {
	tmpl := template.New("").Funcs(funcs)

	// Layouts and components first so pages can reference them
	for _, pattern := range []string{
		"templates/layouts/*.html",
		"templates/components/*.html",
		"templates/pages/*.html",
	} {
		if _, err := tmpl.ParseFS(fsys, pattern); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", pattern, err)
		}
	}

	return tmpl, nil
}

// fieldData is the input of the "field" component
type fieldData struct {
	Name        string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Help        string
	Error       string
}

func (h *Handler) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"plural": func(n int) string {
			if n == 1 {
				return ""
			}
			return "s"
		},
		"badge": func(n int) string {
			if n > 99 {
				return "99+"
			}
			return strconv.Itoa(n)
		},
		"field": func(name, label, typ, value, placeholder string, errs validation.FieldErrors) fieldData {
			return fieldData{Name: name, Label: label, Type: typ, Value: value, Placeholder: placeholder, Error: errs[name]}
		},
		"fieldHelp": func(name, label, typ, value, placeholder, help string, errs validation.FieldErrors) fieldData {
			return fieldData{Name: name, Label: label, Type: typ, Value: value, Placeholder: placeholder, Help: help, Error: errs[name]}
		},
		"timeAgo": func(ts string) string {
			at, err := models.ParseTimestamp(ts)
			if err != nil {
				return ts
			}
			return timeAgo(h.now(), at)
		},
		"formatTime": func(ts string) string {
			at, err := models.ParseTimestamp(ts)
			if err != nil {
				return ts
			}
			return at.Local().Format("Jan 2, 2006 3:04:05 PM")
		},
		"message": h.renderMessage,
	}
}

// newMessageRenderer builds a goldmark instance that only knows paragraphs.
// Without inline parsers or other block parsers, markdown syntax and raw
// HTML in a message stay literal text; line breaks become <br>.
func newMessageRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithParser(parser.NewParser(
			parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
		)),
		goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
	)
}

// renderMessage renders a stored message as typed, keeping its line breaks
func (h *Handler) renderMessage(src string) template.HTML {
	// goldmark resolves backslash escapes and entity references in text,
	// so both are escaped first to come out unchanged.
	escaped := html.EscapeString(strings.ReplaceAll(src, `\`, `\\`))

	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(escaped), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

// page returns the data every page template expects
func (h *Handler) page(r *http.Request, title string) map[string]interface{} {
	var user *models.User
	if h.session.Hydrated() {
		user = h.session.CurrentUser()
	}

	return map[string]interface{}{
		"Title":           title + " - ContactApp",
		"Path":            r.URL.Path,
		"User":            user,
		"SubmissionCount": h.ledger.Count(),
		"CSRFField":       csrf.TemplateField(r),
		"Notice":          "",
		"Refresh":         "",
		"Errors":          validation.FieldErrors(nil),
	}
}

// render renders a template with the given data
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error(r.Context(), "template error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// redirect performs an HTTP redirect
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// writeJSON writes v as a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response
func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Pending renders the placeholder shown while the session is restored
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Loading")
	data["Refresh"] = "1"
	h.render(w, r, http.StatusOK, "pending.html", data)
}

// NotFound renders a plain 404
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// userFrom returns the guarded user of the request
func userFrom(r *http.Request) models.User {
	if u := middleware.GetUser(r); u != nil {
		return *u
	}
	return models.User{}
}
