package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/example/filmhive/internal/platform/api"
	"github.com/example/filmhive/internal/platform/auth"
)

const (
	maxCommentLength = 1000
	maxReplyLength   = 500
	defaultPerPage   = 20
	moviePerPage     = 10
	maxRequestBody   = 1 << 20
)

// API is the fake FilmHive backend. All methods are safe for concurrent use.
type API struct {
	d        *data
	verifier auth.JWTVerifier
	requests atomic.Int64
}

func New(secret []byte) *API {
	return &API{d: newData(), verifier: auth.JWTVerifier{Secret: secret}}
}

// SetClock replaces the time source used for new entities and statistics.
func (a *API) SetClock(now func() time.Time) {
	a.d.mu.Lock()
	a.d.now = now
	a.d.mu.Unlock()
}

func (a *API) AddUser(id int64, username, role string) {
	a.d.mu.Lock()
	a.d.users[id] = user{ID: id, Username: username, Role: role}
	a.d.mu.Unlock()
}

func (a *API) AddMovie(id int64, title string) {
	a.d.mu.Lock()
	a.d.movies[id] = title
	a.d.mu.Unlock()
}

// Rate records userID's score for movieID; later comments and replies carry it.
func (a *API) Rate(userID, movieID int64, score int) {
	a.d.mu.Lock()
	a.d.ratings[ratingKey{userID, movieID}] = score
	a.d.mu.Unlock()
}

// SeedComment inserts a comment directly and returns its id.
func (a *API) SeedComment(userID, movieID int64, text string, at time.Time) int64 {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	return a.d.insertComment(userID, movieID, text, at).ID
}

// SeedReply inserts a reply directly and returns its id, or 0 when the
// parent does not exist.
func (a *API) SeedReply(commentID, userID int64, text string) int64 {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	parent, ok := a.d.comments[commentID]
	if !ok {
		return 0
	}
	return a.d.insertReply(parent, userID, text, a.d.now()).ID
}

// Token issues a valid access token for a known user.
func (a *API) Token(userID int64) string {
	a.d.mu.RLock()
	u := a.d.users[userID]
	a.d.mu.RUnlock()
	tok, _ := a.verifier.Issue(strconv.FormatInt(userID, 10), u.Role, time.Hour)
	return tok
}

// CommentText returns the stored text of a comment.
func (a *API) CommentText(id int64) (string, bool) {
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	c, ok := a.d.comments[id]
	return c.Text, ok
}

// Requests is the number of HTTP requests served so far.
func (a *API) Requests() int64 { return a.requests.Load() }

// Handler serves the API under /api.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(a.count)
	r.Route("/api", func(r chi.Router) {
		r.Get("/comments/all", a.listAll)
		r.Get("/comments/movie/{movieID}", a.listMovie)
		r.Get("/comments/{id}/thread", a.thread)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(a.verifier))
			r.Post("/comments/add", a.addComment)
			r.Put("/comments/update/{id}", a.updateOwnComment)
			r.Delete("/comments/delete/{id}", a.deleteOwnComment)
			r.Post("/comments/{id}/replies", a.addReply)
			r.Put("/replies/{id}", a.updateReply)
			r.Delete("/replies/{id}", a.deleteReply)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireStaff)
				r.Put("/comments/staff/update/{id}", a.staffUpdateComment)
				r.Delete("/comments/staff/delete/{id}", a.staffDeleteComment)
				r.Get("/comments/staff/details/{id}", a.details)
				r.Get("/comments/staff/statistics", a.statistics)
			})
		})
	})
	return r
}

func (a *API) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	api.WriteJSON(w, status, map[string]string{"error": msg})
}

func callerID(r *http.Request) int64 {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, _ := parseID(uid)
	return id
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func checkText(w http.ResponseWriter, text string, max int) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		writeErr(w, http.StatusBadRequest, "Text is required")
		return "", false
	}
	if utf8.RuneCountInString(t) > max {
		writeErr(w, http.StatusBadRequest, "Text must be at most "+strconv.Itoa(max)+" characters")
		return "", false
	}
	return t, true
}

func (a *API) parseList(w http.ResponseWriter, r *http.Request, perPage int) (listQuery, bool) {
	q := r.URL.Query()
	lq := listQuery{page: 1, perPage: perPage, search: strings.TrimSpace(q.Get("search")),
		sortBy: q.Get("sort_by"), sortOrder: q.Get("sort_order")}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErr(w, http.StatusBadRequest, "Invalid page")
			return lq, false
		}
		lq.page = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeErr(w, http.StatusBadRequest, "Invalid per_page")
			return lq, false
		}
		lq.perPage = n
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"date_from", &lq.dateFrom}, {"date_to", &lq.dateTo}} {
		if v := q.Get(p.key); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeErr(w, http.StatusBadRequest, "Invalid "+p.key)
				return lq, false
			}
			*p.dst = t
		}
	}
	return lq, true
}

// GET /comments/all
func (a *API) listAll(w http.ResponseWriter, r *http.Request) {
	lq, ok := a.parseList(w, r, defaultPerPage)
	if !ok {
		return
	}
	a.d.mu.RLock()
	rows, p := a.d.list(lq)
	a.d.mu.RUnlock()
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"comments":   rows,
		"pagination": p,
		"filters": map[string]any{
			"search":     lq.search,
			"sort_by":    lq.sortBy,
			"sort_order": lq.sortOrder,
			"date_from":  r.URL.Query().Get("date_from"),
			"date_to":    r.URL.Query().Get("date_to"),
		},
	})
}

// GET /comments/movie/{movieID}
func (a *API) listMovie(w http.ResponseWriter, r *http.Request) {
	movieID, ok := parseID(chi.URLParam(r, "movieID"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid movie id")
		return
	}
	lq, ok := a.parseList(w, r, moviePerPage)
	if !ok {
		return
	}
	lq.movieID = movieID
	a.d.mu.RLock()
	rows, p := a.d.list(lq)
	a.d.mu.RUnlock()
	api.WriteJSON(w, http.StatusOK, map[string]any{"comments": rows, "pagination": p})
}

// POST /comments/add
func (a *API) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID int64  `json:"movie_id"`
		Text    string `json:"comment_text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	text, ok := checkText(w, req.Text, maxCommentLength)
	if !ok {
		return
	}
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	if _, ok := a.d.movies[req.MovieID]; !ok {
		writeErr(w, http.StatusNotFound, "Movie not found")
		return
	}
	c := a.d.insertComment(callerID(r), req.MovieID, text, a.d.now())
	api.WriteJSON(w, http.StatusCreated, c)
}

// PUT /comments/update/{id}
func (a *API) updateOwnComment(w http.ResponseWriter, r *http.Request) {
	a.updateComment(w, r, false)
}

// PUT /comments/staff/update/{id}
func (a *API) staffUpdateComment(w http.ResponseWriter, r *http.Request) {
	a.updateComment(w, r, true)
}

func (a *API) updateComment(w http.ResponseWriter, r *http.Request, staff bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid comment id")
		return
	}
	var req struct {
		Text string `json:"comment_text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	text, ok := checkText(w, req.Text, maxCommentLength)
	if !ok {
		return
	}
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	c, ok := a.d.comments[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "Comment not found")
		return
	}
	if !staff && c.UserID != callerID(r) {
		writeErr(w, http.StatusForbidden, "You can only edit your own comments")
		return
	}
	c.Text = text
	a.d.comments[id] = c
	api.WriteJSON(w, http.StatusOK, c)
}

// DELETE /comments/delete/{id}
func (a *API) deleteOwnComment(w http.ResponseWriter, r *http.Request) {
	a.removeComment(w, r, false)
}

// DELETE /comments/staff/delete/{id}
func (a *API) staffDeleteComment(w http.ResponseWriter, r *http.Request) {
	a.removeComment(w, r, true)
}

func (a *API) removeComment(w http.ResponseWriter, r *http.Request, staff bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid comment id")
		return
	}
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	c, ok := a.d.comments[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "Comment not found")
		return
	}
	if !staff && c.UserID != callerID(r) {
		writeErr(w, http.StatusForbidden, "You can only delete your own comments")
		return
	}
	a.d.deleteComment(id)
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

// GET /comments/staff/details/{id}
func (a *API) details(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid comment id")
		return
	}
	a.d.mu.RLock()
	c, ok := a.d.comments[id]
	a.d.mu.RUnlock()
	if !ok {
		writeErr(w, http.StatusNotFound, "Comment not found")
		return
	}
	api.WriteJSON(w, http.StatusOK, c)
}

// GET /comments/staff/statistics
func (a *API) statistics(w http.ResponseWriter, _ *http.Request) {
	a.d.mu.RLock()
	s := a.d.stats()
	a.d.mu.RUnlock()
	api.WriteJSON(w, http.StatusOK, s)
}

// GET /comments/{id}/thread
func (a *API) thread(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid comment id")
		return
	}
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	c, ok := a.d.comments[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "Comment not found")
		return
	}
	replies := a.d.repliesOf(id)
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"main_comment":  c,
			"replies":       replies,
			"replies_count": len(replies),
		},
	})
}

// POST /comments/{id}/replies
func (a *API) addReply(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid comment id")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	text, ok := checkText(w, req.Text, maxReplyLength)
	if !ok {
		return
	}
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	parent, ok := a.d.comments[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "Comment not found")
		return
	}
	reply := a.d.insertReply(parent, callerID(r), text, a.d.now())
	api.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "reply": reply})
}

// PUT /replies/{id}
func (a *API) updateReply(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid reply id")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	text, ok := checkText(w, req.Text, maxReplyLength)
	if !ok {
		return
	}
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	reply, ok := a.d.replies[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "Reply not found")
		return
	}
	if reply.UserID != callerID(r) {
		writeErr(w, http.StatusForbidden, "You can only edit your own replies")
		return
	}
	reply.Text = text
	a.d.replies[id] = reply
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "reply": reply})
}

// DELETE /replies/{id}
func (a *API) deleteReply(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid reply id")
		return
	}
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	reply, ok := a.d.replies[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "Reply not found")
		return
	}
	if reply.UserID != callerID(r) {
		writeErr(w, http.StatusForbidden, "You can only delete your own replies")
		return
	}
	delete(a.d.replies, id)
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
