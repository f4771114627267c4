package handlers

import (
	"fmt"
	"net/http"

	"github.com/example/filmhive/internal/platform/analytics"
	"github.com/example/filmhive/services/console/internal/comments"
	"github.com/example/filmhive/services/console/internal/filmhive"
)

const actionDeleteComment = "comment.delete"

type listView struct {
	comments.State
	PrevURL string
	NextURL string
	Sorts   []string
}

type commentView struct {
	Comment filmhive.Comment
}

type editView struct {
	Action    string
	CancelURL string
	Text      string
	Max       int
}

type confirmView struct {
	Question  string
	Quote     string
	Action    string
	Token     string
	CancelURL string
}

// GET /comments
func (c *Console) listComments(w http.ResponseWriter, r *http.Request) {
	f := filmhive.ParseListFilters(r.URL.Query(), filmhive.StaffPageSize)
	store := c.commentStore()
	err := store.FetchAll(r.Context(), f)
	st := store.Snapshot()
	p := page{Title: "Comments", Data: listView{
		State:   st,
		PrevURL: pageURL("/comments", f, st.Pagination.Page-1, st.Pagination.HasPrev()),
		NextURL: pageURL("/comments", f, st.Pagination.Page+1, st.Pagination.HasNext()),
		Sorts:   []string{filmhive.SortByCreatedAt, filmhive.SortByMovieTitle, filmhive.SortByUsername},
	}}
	status := http.StatusOK
	if err != nil {
		p.Error = filmhive.UserMessage(err, filmhive.OpListComments)
		status = statusFor(err)
	}
	c.render(w, r, status, "comments", p)
}

// GET /comments/{id}
func (c *Console) commentDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return
	}
	cm, err := c.commentStore().Details(r.Context(), id)
	if err != nil {
		c.renderError(w, r, err, filmhive.OpCommentDetails)
		return
	}
	c.render(w, r, http.StatusOK, "comment", page{Title: "Comment", Data: commentView{Comment: cm}})
}

// GET /comments/{id}/edit
func (c *Console) editCommentForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return
	}
	cm, err := c.commentStore().Details(r.Context(), id)
	if err != nil {
		c.renderError(w, r, err, filmhive.OpCommentDetails)
		return
	}
	c.render(w, r, http.StatusOK, "edit", page{Title: "Edit comment", Data: editView{
		Action:    fmt.Sprintf("/comments/%d/edit", id),
		CancelURL: fmt.Sprintf("/comments/%d", id),
		Text:      cm.Text,
		Max:       filmhive.MaxCommentLength,
	}})
}

// POST /comments/{id}/edit
func (c *Console) editComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return
	}
	text, ok := formValue(w, r, "text")
	if !ok {
		c.badRequest(w, r, "Invalid form")
		return
	}
	view := editView{
		Action:    fmt.Sprintf("/comments/%d/edit", id),
		CancelURL: fmt.Sprintf("/comments/%d", id),
		Text:      text,
		Max:       filmhive.MaxCommentLength,
	}
	if _, err := c.commentStore().UpdateByStaff(r.Context(), id, text); err != nil {
		c.render(w, r, statusFor(err), "edit", page{
			Title: "Edit comment",
			Error: filmhive.UserMessage(err, filmhive.OpStaffUpdateComment),
			Data:  view,
		})
		return
	}
	c.publish(r, analytics.SubjectCommentStaffUpdated, "comment_staff_updated", map[string]any{"comment_id": id})
	redirectWithFlash(w, r, view.CancelURL, "ok", "Comment updated")
}

// GET /comments/{id}/delete
func (c *Console) confirmDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return
	}
	cm, err := c.commentStore().Details(r.Context(), id)
	if err != nil {
		c.renderError(w, r, err, filmhive.OpCommentDetails)
		return
	}
	c.render(w, r, http.StatusOK, "confirm", page{Title: "Delete comment", Data: confirmView{
		Question:  fmt.Sprintf("Delete %s's comment on %s?", cm.Username, cm.MovieTitle),
		Quote:     cm.Text,
		Action:    fmt.Sprintf("/comments/%d/delete", id),
		Token:     c.confirmToken(actionDeleteComment, id),
		CancelURL: fmt.Sprintf("/comments/%d", id),
	}})
}

// POST /comments/{id}/delete
func (c *Console) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return
	}
	token, ok := formValue(w, r, "token")
	if !ok {
		c.badRequest(w, r, "Invalid form")
		return
	}
	if err := c.checkConfirm(actionDeleteComment, id, token); err != nil {
		redirectWithFlash(w, r, fmt.Sprintf("/comments/%d/delete", id), "error", "Confirmation expired, please confirm again")
		return
	}
	if err := c.commentStore().DeleteByStaff(r.Context(), id); err != nil {
		redirectWithFlash(w, r, "/comments", "error", filmhive.UserMessage(err, filmhive.OpStaffDeleteComment))
		return
	}
	c.publish(r, analytics.SubjectCommentStaffDeleted, "comment_staff_deleted", map[string]any{"comment_id": id})
	redirectWithFlash(w, r, "/comments", "ok", "Comment deleted")
}

// GET /stats
func (c *Console) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := c.commentStore().Statistics(r.Context())
	if err != nil {
		c.renderError(w, r, err, filmhive.OpCommentStatistics)
		return
	}
	c.render(w, r, http.StatusOK, "stats", page{Title: "Statistics", Data: stats})
}

// pageURL links to another page of the same listing, or "" when there is
// none.
func pageURL(path string, f filmhive.ListFilters, n int, exists bool) string {
	if !exists {
		return ""
	}
	f.Page = n
	q := f.Query()
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
