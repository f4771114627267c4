// Package handlers renders the moderation console: server-side HTML pages
// over the comment and thread stores.
package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/filmhive/internal/platform/analytics"
	"github.com/example/filmhive/internal/platform/httpserver"
	"github.com/example/filmhive/internal/platform/signing"
	"github.com/example/filmhive/services/console/internal/comments"
	"github.com/example/filmhive/services/console/internal/credentials"
	"github.com/example/filmhive/services/console/internal/filmhive"
	"github.com/example/filmhive/services/console/internal/thread"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	maxFormBytes = 64 << 10
	confirmTTL   = 5 * time.Minute
)

// API is everything the console asks of FilmHive. *filmhive.Client
// implements it.
type API interface {
	comments.API
	thread.API
}

// Deps are the console's collaborators. Viewers, Events and Limiter may be
// nil.
type Deps struct {
	API     API
	Viewers thread.ViewerSource
	Signer  *signing.Signer
	Events  *analytics.Publisher
	Limiter *httpserver.RateLimiter
	Logger  *zap.Logger
}

// Console serves the pages. Every request gets its own stores, so one page
// view never sees another's state.
type Console struct {
	Deps
	tmpl *template.Template
	now  func() time.Time
}

func New(d Deps) (*Console, error) {
	if d.API == nil || d.Signer == nil {
		return nil, errors.New("handlers: api and signer are required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	tmpl, err := template.New("console").Funcs(template.FuncMap{
		"date":   formatDate,
		"rating": formatRating,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Console{Deps: d, tmpl: tmpl, now: time.Now}, nil
}

// Routes registers every console page on r.
func (c *Console) Routes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/comments", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		r.Use(c.staffOnly)
		r.Get("/comments", c.listComments)
		r.Get("/comments/{id}", c.commentDetails)
		r.Get("/comments/{id}/edit", c.editCommentForm)
		r.Get("/comments/{id}/delete", c.confirmDeleteComment)
		r.Get("/stats", c.statistics)
		r.With(c.Limiter.Middleware).Post("/comments/{id}/edit", c.editComment)
		r.With(c.Limiter.Middleware).Post("/comments/{id}/delete", c.deleteComment)
	})

	r.Get("/movies/{movieID}/comments", c.movieComments)
	r.Get("/threads/{id}", c.showThread)
	r.Get("/threads/{id}/replies/{replyID}/edit", c.editReplyForm)
	r.Get("/threads/{id}/replies/{replyID}/delete", c.confirmDeleteReply)

	r.Group(func(r chi.Router) {
		r.Use(c.Limiter.Middleware)
		r.Post("/movies/{movieID}/comments", c.addMovieComment)
		r.Post("/threads/{id}/replies", c.addReply)
		r.Post("/threads/{id}/replies/{replyID}/edit", c.editReply)
		r.Post("/threads/{id}/replies/{replyID}/delete", c.deleteReply)
	})
}

func (c *Console) commentStore() *comments.Store {
	return comments.NewStore(c.API, c.Logger.Named("comments"))
}

func (c *Console) movieStore() *comments.MovieStore {
	return comments.NewMovieStore(c.API, c.Logger.Named("movies"))
}

func (c *Console) threadStore() *thread.Store {
	return thread.NewStore(c.API, c.Viewers, c.Logger.Named("thread"))
}

// page is what every template receives.
type page struct {
	Title  string
	Viewer credentials.Viewer
	Flash  *flash
	Error  string
	Data   any
}

func (c *Console) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Viewer = c.viewer(r)
	if p.Flash == nil {
		p.Flash = takeFlash(w, r)
	}
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		c.Logger.Error("render template", zap.String("template", name),
			zap.String("request_id", httpserver.RequestIDFromContext(r.Context())), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (c *Console) renderError(w http.ResponseWriter, r *http.Request, err error, fallback filmhive.Op) {
	c.render(w, r, statusFor(err), "error", page{Title: "Error", Error: filmhive.UserMessage(err, fallback)})
}

// viewer resolves who is looking. A token that cannot be decoded is treated
// as anonymous.
func (c *Console) viewer(r *http.Request) credentials.Viewer {
	if c.Viewers == nil {
		return credentials.Viewer{}
	}
	v, err := c.Viewers.Viewer(r.Context())
	if err != nil {
		c.Logger.Warn("resolve viewer", zap.Error(err))
		return credentials.Viewer{}
	}
	return v
}

func (c *Console) staffOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := c.viewer(r)
		switch {
		case !v.SignedIn():
			c.render(w, r, http.StatusUnauthorized, "error", page{Title: "Sign in", Error: "Please sign in to continue"})
		case !v.IsStaff():
			c.render(w, r, http.StatusForbidden, "error", page{Title: "Forbidden", Error: "Staff access required"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (c *Console) publish(r *http.Request, subject, event string, props map[string]any) {
	uid := ""
	if v := c.viewer(r); v.SignedIn() {
		uid = strconv.FormatInt(v.UserID, 10)
	}
	c.Events.Publish(subject, event, uid, props)
}

func (c *Console) confirmToken(action string, id int64) string {
	return c.Signer.Sign(action, strconv.FormatInt(id, 10), c.now().Add(confirmTTL))
}

func (c *Console) checkConfirm(action string, id int64, token string) error {
	return c.Signer.Verify(action, strconv.FormatInt(id, 10), token)
}

// statusFor maps a client error to the status of the page reporting it.
func statusFor(err error) int {
	var (
		ve *filmhive.ValidationError
		he *filmhive.HTTPError
		ne *filmhive.NetworkError
	)
	switch {
	case errors.Is(err, filmhive.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &he):
		if he.Status >= 400 && he.Status < 500 {
			return he.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &ne), errors.Is(err, filmhive.ErrUnexpectedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	return id, err == nil && id > 0
}

func formValue(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return "", false
	}
	return r.PostFormValue(key), true
}

func (c *Console) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	c.render(w, r, http.StatusBadRequest, "error", page{Title: "Bad request", Error: msg})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatRating(r *int) string {
	if r == nil {
		return "not rated"
	}
	return strconv.Itoa(*r) + "/10"
}
