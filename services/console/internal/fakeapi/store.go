// Package fakeapi is an in-memory stand-in for the FilmHive REST API. It
// backs the console's tests and its dev mode; it is not production-grade.
package fakeapi

import (
	"cmp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type user struct {
	ID       int64
	Username string
	Role     string
}

type commentRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	MovieID    int64     `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	Text       string    `json:"comment_text"`
	CreatedAt  time.Time `json:"created_at"`
	Rating     *int      `json:"rating,omitempty"`
}

type replyRecord struct {
	ID         int64     `json:"id"`
	CommentID  int64     `json:"comment_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	MainUserID int64     `json:"main_user_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Rating     *int      `json:"rating,omitempty"`
}

type ratingKey struct{ userID, movieID int64 }

// data holds every entity. Comment and reply ids are separate sequences.
type data struct {
	mu          sync.RWMutex
	users       map[int64]user
	movies      map[int64]string
	ratings     map[ratingKey]int
	comments    map[int64]commentRecord
	replies     map[int64]replyRecord
	nextComment int64
	nextReply   int64
	now         func() time.Time
}

func newData() *data {
	return &data{
		users:    make(map[int64]user),
		movies:   make(map[int64]string),
		ratings:  make(map[ratingKey]int),
		comments: make(map[int64]commentRecord),
		replies:  make(map[int64]replyRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *data) rating(userID, movieID int64) *int {
	r, ok := d.ratings[ratingKey{userID, movieID}]
	if !ok {
		return nil
	}
	return &r
}

// insertComment assumes d.mu is held for writing.
func (d *data) insertComment(userID, movieID int64, text string, at time.Time) commentRecord {
	d.nextComment++
	c := commentRecord{
		ID:         d.nextComment,
		UserID:     userID,
		Username:   d.users[userID].Username,
		MovieID:    movieID,
		MovieTitle: d.movies[movieID],
		Text:       text,
		CreatedAt:  at.UTC(),
		Rating:     d.rating(userID, movieID),
	}
	d.comments[c.ID] = c
	return c
}

// insertReply assumes d.mu is held for writing.
func (d *data) insertReply(parent commentRecord, userID int64, text string, at time.Time) replyRecord {
	d.nextReply++
	r := replyRecord{
		ID:         d.nextReply,
		CommentID:  parent.ID,
		UserID:     userID,
		Username:   d.users[userID].Username,
		MainUserID: parent.UserID,
		Text:       text,
		CreatedAt:  at.UTC(),
		Rating:     d.rating(userID, parent.MovieID),
	}
	d.replies[r.ID] = r
	return r
}

// deleteComment removes the comment and cascades to its replies.
func (d *data) deleteComment(id int64) {
	delete(d.comments, id)
	for rid, r := range d.replies {
		if r.CommentID == id {
			delete(d.replies, rid)
		}
	}
}

func (d *data) repliesOf(commentID int64) []replyRecord {
	out := []replyRecord{}
	for _, r := range d.replies {
		if r.CommentID == commentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type listQuery struct {
	movieID   int64
	page      int
	perPage   int
	search    string
	dateFrom  time.Time
	dateTo    time.Time
	sortBy    string
	sortOrder string
}

type pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func (d *data) list(q listQuery) ([]commentRecord, pagination) {
	var rows []commentRecord
	needle := strings.ToLower(q.search)
	for _, c := range d.comments {
		if q.movieID != 0 && c.MovieID != q.movieID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Text), needle) &&
			!strings.Contains(strings.ToLower(c.Username), needle) &&
			!strings.Contains(strings.ToLower(c.MovieTitle), needle) {
			continue
		}
		day := truncateDay(c.CreatedAt)
		if !q.dateFrom.IsZero() && day.Before(q.dateFrom) {
			continue
		}
		if !q.dateTo.IsZero() && day.After(q.dateTo) {
			continue
		}
		rows = append(rows, c)
	}

	asc := q.sortOrder == "asc"
	slices.SortFunc(rows, func(a, b commentRecord) int {
		var c int
		switch q.sortBy {
		case "username":
			c = strings.Compare(a.Username, b.Username)
		case "movie_title":
			c = strings.Compare(a.MovieTitle, b.MovieTitle)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !asc {
			c = -c
		}
		return c
	})

	total := len(rows)
	p := pagination{Page: q.page, PerPage: q.perPage, Total: total, TotalPages: (total + q.perPage - 1) / q.perPage}
	start := (q.page - 1) * q.perPage
	if start >= total {
		return []commentRecord{}, p
	}
	end := min(start+q.perPage, total)
	return rows[start:end], p
}

type stats struct {
	TotalComments     int          `json:"total_comments"`
	TotalReplies      int          `json:"total_replies"`
	CommentsToday     int          `json:"comments_today"`
	CommentsThisWeek  int          `json:"comments_this_week"`
	CommentsThisMonth int          `json:"comments_this_month"`
	TopCommenters     []userCount  `json:"top_commenters"`
	TopMovies         []movieCount `json:"top_movies"`
}

type userCount struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

type movieCount struct {
	MovieID    int64  `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	Count      int    `json:"count"`
}

const topN = 5

func (d *data) stats() stats {
	now := d.now()
	today := truncateDay(now)
	s := stats{TotalComments: len(d.comments), TotalReplies: len(d.replies)}
	byUser := map[int64]int{}
	byMovie := map[int64]int{}
	for _, c := range d.comments {
		day := truncateDay(c.CreatedAt)
		if !day.Before(today) {
			s.CommentsToday++
		}
		if !day.Before(today.AddDate(0, 0, -6)) {
			s.CommentsThisWeek++
		}
		if day.Year() == now.Year() && day.Month() == now.Month() {
			s.CommentsThisMonth++
		}
		byUser[c.UserID]++
		byMovie[c.MovieID]++
	}
	for id, n := range byUser {
		s.TopCommenters = append(s.TopCommenters, userCount{UserID: id, Username: d.users[id].Username, Count: n})
	}
	sort.Slice(s.TopCommenters, func(i, j int) bool {
		if s.TopCommenters[i].Count != s.TopCommenters[j].Count {
			return s.TopCommenters[i].Count > s.TopCommenters[j].Count
		}
		return s.TopCommenters[i].UserID < s.TopCommenters[j].UserID
	})
	for id, n := range byMovie {
		s.TopMovies = append(s.TopMovies, movieCount{MovieID: id, MovieTitle: d.movies[id], Count: n})
	}
	sort.Slice(s.TopMovies, func(i, j int) bool {
		if s.TopMovies[i].Count != s.TopMovies[j].Count {
			return s.TopMovies[i].Count > s.TopMovies[j].Count
		}
		return s.TopMovies[i].MovieID < s.TopMovies[j].MovieID
	})
	if len(s.TopCommenters) > topN {
		s.TopCommenters = s.TopCommenters[:topN]
	}
	if len(s.TopMovies) > topN {
		s.TopMovies = s.TopMovies[:topN]
	}
	return s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil && id > 0
}
