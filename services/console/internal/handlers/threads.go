package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/filmhive/internal/platform/analytics"
	"github.com/example/filmhive/services/console/internal/filmhive"
	"github.com/example/filmhive/services/console/internal/thread"
)

const actionDeleteReply = "reply.delete"

type threadView struct {
	Thread    *filmhive.Thread
	Guard     thread.Decision
	FormState thread.FormState
	Text      string
	Max       int
}

func (v threadView) Blocked() bool { return v.Guard == thread.Blocked }

func threadPath(id int64) string { return fmt.Sprintf("/threads/%d", id) }

// GET /threads/{id}
func (c *Console) showThread(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return
	}
	store := c.threadStore()
	if err := store.Load(r.Context(), id); err != nil {
		c.renderError(w, r, err, filmhive.OpThread)
		return
	}
	c.renderThread(w, r, store, nil, http.StatusOK, "", "")
}

// POST /threads/{id}/replies
func (c *Console) addReply(w http.ResponseWriter, r *http.Request) {
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
	store := c.threadStore()
	if err := store.Load(r.Context(), id); err != nil {
		c.renderError(w, r, err, filmhive.OpThread)
		return
	}
	form := thread.NewReplyForm(store)
	reply, err := form.Submit(r.Context(), id, text)
	if err != nil {
		c.renderThread(w, r, store, form, statusFor(err), filmhive.UserMessage(err, filmhive.OpAddReply), text)
		return
	}
	c.publish(r, analytics.SubjectReplyAdded, "reply_added", map[string]any{"comment_id": id, "reply_id": reply.ID})
	redirectWithFlash(w, r, threadPath(id), "ok", "Reply posted")
}

// GET /threads/{id}/replies/{replyID}/edit
func (c *Console) editReplyForm(w http.ResponseWriter, r *http.Request) {
	id, replyID, ok := c.replyParams(w, r)
	if !ok {
		return
	}
	_, reply, ok := c.loadReply(w, r, id, replyID)
	if !ok {
		return
	}
	c.render(w, r, http.StatusOK, "edit", page{Title: "Edit reply", Data: editView{
		Action:    fmt.Sprintf("/threads/%d/replies/%d/edit", id, replyID),
		CancelURL: threadPath(id),
		Text:      reply.Text,
		Max:       filmhive.MaxReplyLength,
	}})
}

// POST /threads/{id}/replies/{replyID}/edit
func (c *Console) editReply(w http.ResponseWriter, r *http.Request) {
	id, replyID, ok := c.replyParams(w, r)
	if !ok {
		return
	}
	text, ok := formValue(w, r, "text")
	if !ok {
		c.badRequest(w, r, "Invalid form")
		return
	}
	store, _, ok := c.loadReply(w, r, id, replyID)
	if !ok {
		return
	}
	if _, err := store.EditReply(r.Context(), replyID, text); err != nil {
		c.render(w, r, statusFor(err), "edit", page{
			Title: "Edit reply",
			Error: filmhive.UserMessage(err, filmhive.OpUpdateReply),
			Data: editView{
				Action:    fmt.Sprintf("/threads/%d/replies/%d/edit", id, replyID),
				CancelURL: threadPath(id),
				Text:      text,
				Max:       filmhive.MaxReplyLength,
			},
		})
		return
	}
	redirectWithFlash(w, r, threadPath(id), "ok", "Reply updated")
}

// GET /threads/{id}/replies/{replyID}/delete
func (c *Console) confirmDeleteReply(w http.ResponseWriter, r *http.Request) {
	id, replyID, ok := c.replyParams(w, r)
	if !ok {
		return
	}
	_, reply, ok := c.loadReply(w, r, id, replyID)
	if !ok {
		return
	}
	c.render(w, r, http.StatusOK, "confirm", page{Title: "Delete reply", Data: confirmView{
		Question:  "Delete this reply?",
		Quote:     reply.Text,
		Action:    fmt.Sprintf("/threads/%d/replies/%d/delete", id, replyID),
		Token:     c.confirmToken(actionDeleteReply, replyID),
		CancelURL: threadPath(id),
	}})
}

// POST /threads/{id}/replies/{replyID}/delete
func (c *Console) deleteReply(w http.ResponseWriter, r *http.Request) {
	id, replyID, ok := c.replyParams(w, r)
	if !ok {
		return
	}
	token, ok := formValue(w, r, "token")
	if !ok {
		c.badRequest(w, r, "Invalid form")
		return
	}
	if err := c.checkConfirm(actionDeleteReply, replyID, token); err != nil {
		redirectWithFlash(w, r, fmt.Sprintf("/threads/%d/replies/%d/delete", id, replyID), "error", "Confirmation expired, please confirm again")
		return
	}
	store, _, ok := c.loadReply(w, r, id, replyID)
	if !ok {
		return
	}
	if err := store.DeleteReply(r.Context(), replyID); err != nil {
		redirectWithFlash(w, r, threadPath(id), "error", filmhive.UserMessage(err, filmhive.OpDeleteReply))
		return
	}
	c.publish(r, analytics.SubjectReplyDeleted, "reply_deleted", map[string]any{"comment_id": id, "reply_id": replyID})
	redirectWithFlash(w, r, threadPath(id), "ok", "Reply deleted")
}

func (c *Console) replyParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		c.badRequest(w, r, "Invalid comment id")
		return 0, 0, false
	}
	replyID, ok := idParam(r, "replyID")
	if !ok {
		c.badRequest(w, r, "Invalid reply id")
		return 0, 0, false
	}
	return id, replyID, true
}

// loadReply loads thread id into a fresh store and finds replyID in it,
// rendering the failure page itself when it cannot.
func (c *Console) loadReply(w http.ResponseWriter, r *http.Request, id, replyID int64) (*thread.Store, filmhive.Reply, bool) {
	store := c.threadStore()
	if err := store.Load(r.Context(), id); err != nil {
		c.renderError(w, r, err, filmhive.OpThread)
		return nil, filmhive.Reply{}, false
	}
	reply, ok := store.Reply(replyID)
	if !ok {
		c.render(w, r, http.StatusNotFound, "error", page{Title: "Not found", Error: "Reply not found"})
		return nil, filmhive.Reply{}, false
	}
	return store, reply, true
}

// renderThread shows the thread held by store. form is nil when nothing was
// submitted.
func (c *Console) renderThread(w http.ResponseWriter, r *http.Request, store *thread.Store, form *thread.ReplyForm, status int, errMsg, text string) {
	guard, err := store.Guard(r.Context())
	if err != nil {
		c.Logger.Debug("evaluate reply guard", zap.Error(err))
	}
	state := thread.Idle
	if form != nil {
		state = form.State()
	}
	st := store.Snapshot()
	c.render(w, r, status, "thread", page{
		Title: "Thread",
		Error: errMsg,
		Data: threadView{
			Thread:    st.Thread,
			Guard:     guard,
			FormState: state,
			Text:      text,
			Max:       filmhive.MaxReplyLength,
		},
	})
}
