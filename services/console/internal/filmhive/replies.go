package filmhive

import (
	"context"
	"fmt"
	"net/http"
)

type replyTextBody struct {
	Text string `json:"text"`
}

// Thread loads a comment with all of its replies.
func (c *Client) Thread(ctx context.Context, commentID int64) (Thread, error) {
	if commentID <= 0 {
		return Thread{}, invalidID("comment_id")
	}
	var env threadEnvelope
	if err := c.do(ctx, call{op: OpThread, method: http.MethodGet, path: idPath("/comments/%d/thread", commentID), out: &env}); err != nil {
		return Thread{}, err
	}
	if !env.Success || env.Data == nil {
		return Thread{}, envelopeErr(OpThread, env.Error, "missing data")
	}
	t := *env.Data
	if t.Replies == nil {
		t.Replies = []Reply{}
	}
	if t.MainComment.ID == 0 {
		return Thread{}, envelopeErr(OpThread, "", "missing main_comment")
	}
	return t, nil
}

// AddReply posts a reply under commentID as the signed-in user.
func (c *Client) AddReply(ctx context.Context, commentID int64, text string) (Reply, error) {
	t, err := CleanReplyText(text)
	if err != nil {
		return Reply{}, err
	}
	if commentID <= 0 {
		return Reply{}, invalidID("comment_id")
	}
	return c.replyCall(ctx, OpAddReply, http.MethodPost, idPath("/comments/%d/replies", commentID), t)
}

// UpdateReply edits a reply owned by the signed-in user.
func (c *Client) UpdateReply(ctx context.Context, replyID int64, text string) (Reply, error) {
	t, err := CleanReplyText(text)
	if err != nil {
		return Reply{}, err
	}
	if replyID <= 0 {
		return Reply{}, invalidID("reply_id")
	}
	return c.replyCall(ctx, OpUpdateReply, http.MethodPut, idPath("/replies/%d", replyID), t)
}

// DeleteReply deletes a reply owned by the signed-in user.
func (c *Client) DeleteReply(ctx context.Context, replyID int64) error {
	if replyID <= 0 {
		return invalidID("reply_id")
	}
	var env successEnvelope
	if err := c.do(ctx, call{op: OpDeleteReply, method: http.MethodDelete, path: idPath("/replies/%d", replyID), auth: true, out: &env}); err != nil {
		return err
	}
	if !env.Success {
		return envelopeErr(OpDeleteReply, env.Error, "success=false")
	}
	return nil
}

func (c *Client) replyCall(ctx context.Context, op Op, method, path, text string) (Reply, error) {
	var env replyEnvelope
	if err := c.do(ctx, call{op: op, method: method, path: path, auth: true, body: replyTextBody{Text: text}, out: &env}); err != nil {
		return Reply{}, err
	}
	if !env.Success || env.Reply == nil {
		return Reply{}, envelopeErr(op, env.Error, "missing reply")
	}
	return *env.Reply, nil
}

func envelopeErr(op Op, serverMsg, detail string) error {
	if serverMsg != "" {
		detail = serverMsg
	}
	return fmt.Errorf("%s: %w: %s", op, ErrUnexpectedResponse, detail)
}
