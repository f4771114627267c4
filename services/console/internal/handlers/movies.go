package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/filmhive/internal/platform/analytics"
	"github.com/example/filmhive/services/console/internal/comments"
	"github.com/example/filmhive/services/console/internal/filmhive"
)

type movieView struct {
	comments.MovieState
	Title   string
	PrevURL string
	NextURL string
	Text    string
	Max     int
}

// GET /movies/{movieID}/comments
func (c *Console) movieComments(w http.ResponseWriter, r *http.Request) {
	movieID, ok := idParam(r, "movieID")
	if !ok {
		c.badRequest(w, r, "Invalid movie id")
		return
	}
	f := filmhive.ParseListFilters(r.URL.Query(), filmhive.MoviePageSize)
	store := c.movieStore()
	err := store.Fetch(r.Context(), movieID, f)
	status := http.StatusOK
	p := page{Title: "Movie comments"}
	if err != nil {
		status = statusFor(err)
		p.Error = filmhive.UserMessage(err, filmhive.OpMovieComments)
	}
	p.Data = newMovieView(store.Snapshot(), movieID, f, "")
	c.render(w, r, status, "movie", p)
}

// POST /movies/{movieID}/comments
func (c *Console) addMovieComment(w http.ResponseWriter, r *http.Request) {
	movieID, ok := idParam(r, "movieID")
	if !ok {
		c.badRequest(w, r, "Invalid movie id")
		return
	}
	text, ok := formValue(w, r, "text")
	if !ok {
		c.badRequest(w, r, "Invalid form")
		return
	}
	store := c.movieStore()
	cm, err := store.Add(r.Context(), movieID, text)
	if err != nil {
		f := filmhive.ListFilters{PerPage: filmhive.MoviePageSize}
		if ferr := store.Fetch(r.Context(), movieID, f); ferr != nil {
			c.Logger.Debug("reload movie page", zap.Int64("movie_id", movieID), zap.Error(ferr))
		}
		c.render(w, r, statusFor(err), "movie", page{
			Title: "Movie comments",
			Error: filmhive.UserMessage(err, filmhive.OpAddComment),
			Data:  newMovieView(store.Snapshot(), movieID, f, text),
		})
		return
	}
	c.publish(r, analytics.SubjectCommentAdded, "comment_added", map[string]any{"comment_id": cm.ID, "movie_id": movieID})
	redirectWithFlash(w, r, fmt.Sprintf("/movies/%d/comments", movieID), "ok", "Comment posted")
}

func newMovieView(st comments.MovieState, movieID int64, f filmhive.ListFilters, text string) movieView {
	path := fmt.Sprintf("/movies/%d/comments", movieID)
	v := movieView{
		MovieState: st,
		Title:      fmt.Sprintf("Movie #%d", movieID),
		PrevURL:    pageURL(path, f, st.Pagination.Page-1, st.Pagination.HasPrev()),
		NextURL:    pageURL(path, f, st.Pagination.Page+1, st.Pagination.HasNext()),
		Text:       text,
		Max:        filmhive.MaxCommentLength,
	}
	if len(st.Comments) > 0 && st.Comments[0].MovieTitle != "" {
		v.Title = st.Comments[0].MovieTitle
	}
	return v
}
