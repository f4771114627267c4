package filmhive

import (
	"context"
	"fmt"
	"net/http"
)

type commentTextBody struct {
	Text string `json:"comment_text"`
}

type addCommentBody struct {
	MovieID int64  `json:"movie_id"`
	Text    string `json:"comment_text"`
}

// ListComments returns one page of all comments (moderation view).
func (c *Client) ListComments(ctx context.Context, f ListFilters) (CommentPage, error) {
	if err := f.Validate(); err != nil {
		return CommentPage{}, err
	}
	var out CommentPage
	err := c.do(ctx, call{op: OpListComments, method: http.MethodGet, path: "/comments/all", query: f.Query(), out: &out})
	if err != nil {
		return CommentPage{}, err
	}
	return normalizePage(out), nil
}

// MovieComments returns one page of comments on movieID.
func (c *Client) MovieComments(ctx context.Context, movieID int64, f ListFilters) (CommentPage, error) {
	if err := f.Validate(); err != nil {
		return CommentPage{}, err
	}
	if movieID <= 0 {
		return CommentPage{}, invalidID("movie_id")
	}
	var out CommentPage
	err := c.do(ctx, call{op: OpMovieComments, method: http.MethodGet, path: idPath("/comments/movie/%d", movieID), query: f.Query(), out: &out})
	if err != nil {
		return CommentPage{}, err
	}
	return normalizePage(out), nil
}

// AddComment posts a comment on movieID as the signed-in user.
func (c *Client) AddComment(ctx context.Context, movieID int64, text string) (Comment, error) {
	t, err := CleanCommentText(text)
	if err != nil {
		return Comment{}, err
	}
	if movieID <= 0 {
		return Comment{}, invalidID("movie_id")
	}
	var out Comment
	err = c.do(ctx, call{op: OpAddComment, method: http.MethodPost, path: "/comments/add", auth: true,
		body: addCommentBody{MovieID: movieID, Text: t}, out: &out})
	return out, err
}

// UpdateComment edits a comment owned by the signed-in user.
func (c *Client) UpdateComment(ctx context.Context, commentID int64, text string) (Comment, error) {
	return c.updateComment(ctx, OpUpdateComment, "/comments/update/%d", commentID, text)
}

// DeleteComment deletes a comment owned by the signed-in user.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.deleteComment(ctx, OpDeleteComment, "/comments/delete/%d", commentID)
}

// UpdateCommentAsStaff edits any comment. The server enforces the role.
func (c *Client) UpdateCommentAsStaff(ctx context.Context, commentID int64, text string) (Comment, error) {
	return c.updateComment(ctx, OpStaffUpdateComment, "/comments/staff/update/%d", commentID, text)
}

// DeleteCommentAsStaff deletes any comment. The server enforces the role.
func (c *Client) DeleteCommentAsStaff(ctx context.Context, commentID int64) error {
	return c.deleteComment(ctx, OpStaffDeleteComment, "/comments/staff/delete/%d", commentID)
}

// CommentDetails fetches a single comment through the staff endpoint.
func (c *Client) CommentDetails(ctx context.Context, commentID int64) (Comment, error) {
	if commentID <= 0 {
		return Comment{}, invalidID("comment_id")
	}
	var out Comment
	err := c.do(ctx, call{op: OpCommentDetails, method: http.MethodGet, path: idPath("/comments/staff/details/%d", commentID), auth: true, out: &out})
	return out, err
}

// CommentStatistics fetches the numbers shown on the statistics page.
func (c *Client) CommentStatistics(ctx context.Context) (CommentStats, error) {
	var out CommentStats
	err := c.do(ctx, call{op: OpCommentStatistics, method: http.MethodGet, path: "/comments/staff/statistics", auth: true, out: &out})
	return out, err
}

func (c *Client) updateComment(ctx context.Context, op Op, format string, commentID int64, text string) (Comment, error) {
	t, err := CleanCommentText(text)
	if err != nil {
		return Comment{}, err
	}
	if commentID <= 0 {
		return Comment{}, invalidID("comment_id")
	}
	var out Comment
	err = c.do(ctx, call{op: op, method: http.MethodPut, path: idPath(format, commentID), auth: true,
		body: commentTextBody{Text: t}, out: &out})
	return out, err
}

func (c *Client) deleteComment(ctx context.Context, op Op, format string, commentID int64) error {
	if commentID <= 0 {
		return invalidID("comment_id")
	}
	return c.do(ctx, call{op: op, method: http.MethodDelete, path: idPath(format, commentID), auth: true})
}

func normalizePage(p CommentPage) CommentPage {
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	return p
}

func invalidID(field string) error {
	return &ValidationError{Field: field, Err: fmt.Errorf("%w: id must be positive", ErrInvalidFilter)}
}
