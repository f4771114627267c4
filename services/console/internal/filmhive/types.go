package filmhive

import "time"

// Comment is a top-level comment on a movie.
type Comment struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	MovieID    int64     `json:"movie_id"`
	MovieTitle string    `json:"movie_title,omitempty"`
	Text       string    `json:"comment_text"`
	CreatedAt  time.Time `json:"created_at"`
	// Rating is the author's score for the movie when the comment was written.
	Rating *int `json:"rating,omitempty"`
}

// Reply belongs to exactly one Comment. MainUserID is the comment's author.
type Reply struct {
	ID         int64     `json:"id"`
	CommentID  int64     `json:"comment_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	MainUserID int64     `json:"main_user_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Rating     *int      `json:"rating,omitempty"`
}

// Thread is a comment with its replies, oldest first, exactly as the server
// returned them.
type Thread struct {
	MainComment  Comment `json:"main_comment"`
	Replies      []Reply `json:"replies"`
	RepliesCount int     `json:"replies_count"`
}

// LastReply returns the most recent reply, if any.
func (t *Thread) LastReply() (Reply, bool) {
	if t == nil || len(t.Replies) == 0 {
		return Reply{}, false
	}
	return t.Replies[len(t.Replies)-1], true
}

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// HasNext reports whether a page after the current one exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// HasPrev reports whether a page before the current one exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// CommentPage is one page of a comment listing.
type CommentPage struct {
	Comments   []Comment    `json:"comments"`
	Pagination Pagination   `json:"pagination"`
	Filters    *ListFilters `json:"filters,omitempty"`
}

type UserCount struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

type MovieCount struct {
	MovieID    int64  `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	Count      int    `json:"count"`
}

// CommentStats is computed by the server; the console only displays it.
type CommentStats struct {
	TotalComments     int          `json:"total_comments"`
	TotalReplies      int          `json:"total_replies"`
	CommentsToday     int          `json:"comments_today"`
	CommentsThisWeek  int          `json:"comments_this_week"`
	CommentsThisMonth int          `json:"comments_this_month"`
	TopCommenters     []UserCount  `json:"top_commenters"`
	TopMovies         []MovieCount `json:"top_movies"`
}

type threadEnvelope struct {
	Success bool    `json:"success"`
	Data    *Thread `json:"data"`
	Error   string  `json:"error,omitempty"`
}

type replyEnvelope struct {
	Success bool   `json:"success"`
	Reply   *Reply `json:"reply"`
	Error   string `json:"error,omitempty"`
}

type successEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
