// Package comments holds the console's comment list state: the staff
// moderation list and the per-movie list.
package comments

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/example/filmhive/services/console/internal/filmhive"
)

// API is the slice of the FilmHive client the stores use.
type API interface {
	ListComments(ctx context.Context, f filmhive.ListFilters) (filmhive.CommentPage, error)
	MovieComments(ctx context.Context, movieID int64, f filmhive.ListFilters) (filmhive.CommentPage, error)
	AddComment(ctx context.Context, movieID int64, text string) (filmhive.Comment, error)
	UpdateComment(ctx context.Context, commentID int64, text string) (filmhive.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
	UpdateCommentAsStaff(ctx context.Context, commentID int64, text string) (filmhive.Comment, error)
	DeleteCommentAsStaff(ctx context.Context, commentID int64) error
	CommentDetails(ctx context.Context, commentID int64) (filmhive.Comment, error)
	CommentStatistics(ctx context.Context) (filmhive.CommentStats, error)
}

// State is a point-in-time copy of a store.
type State struct {
	Comments   []filmhive.Comment
	Pagination filmhive.Pagination
	Filters    filmhive.ListFilters
	Loading    bool
	Err        error
}

// Store is the moderation list. Edits patch the loaded page in place and
// deletes remove the entry; nothing is re-fetched. Concurrent mutations of
// the same comment are not serialized: the last response wins.
type Store struct {
	api API
	log *zap.Logger

	mu    sync.RWMutex
	state State
}

func NewStore(api API, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{api: api, log: log}
}

// Snapshot returns a copy safe to read without the lock.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// FetchAll replaces the list with one page matching f.
func (s *Store) FetchAll(ctx context.Context, f filmhive.ListFilters) error {
	s.begin()
	defer s.end()

	page, err := s.api.ListComments(ctx, f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Err = err
		s.log.Warn("fetch comments failed", zap.Error(err))
		return err
	}
	s.state.Comments = page.Comments
	s.state.Pagination = page.Pagination
	s.state.Filters = f
	s.state.Err = nil
	return nil
}

// UpdateByStaff edits any comment and patches the loaded copy.
func (s *Store) UpdateByStaff(ctx context.Context, id int64, text string) (filmhive.Comment, error) {
	c, err := s.api.UpdateCommentAsStaff(ctx, id, text)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Err = err
		return filmhive.Comment{}, err
	}
	s.state.Err = nil
	s.state.patch(id, c)
	return c, nil
}

// DeleteByStaff deletes any comment and drops it from the loaded page. A
// failed call leaves the page untouched.
func (s *Store) DeleteByStaff(ctx context.Context, id int64) error {
	err := s.api.DeleteCommentAsStaff(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Err = err
		return err
	}
	s.state.Err = nil
	s.state.remove(id)
	return nil
}

// Details fetches one comment without touching the list.
func (s *Store) Details(ctx context.Context, id int64) (filmhive.Comment, error) {
	return s.api.CommentDetails(ctx, id)
}

// Statistics fetches the aggregate counters without touching the list.
func (s *Store) Statistics(ctx context.Context) (filmhive.CommentStats, error) {
	return s.api.CommentStatistics(ctx)
}

func (s *Store) begin() {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.state.Loading = false
	s.mu.Unlock()
}

func (st State) clone() State {
	st.Comments = slices.Clone(st.Comments)
	return st
}

// patch overwrites the entry with the server's copy, keeping fields the
// response left empty.
func (st *State) patch(id int64, c filmhive.Comment) {
	i := slices.IndexFunc(st.Comments, func(x filmhive.Comment) bool { return x.ID == id })
	if i < 0 {
		return
	}
	cur := &st.Comments[i]
	cur.Text = c.Text
	if c.Username != "" {
		cur.Username = c.Username
	}
	if c.MovieTitle != "" {
		cur.MovieTitle = c.MovieTitle
	}
	if c.Rating != nil {
		cur.Rating = c.Rating
	}
}

// remove drops id and reports whether it was present.
func (st *State) remove(id int64) bool {
	n := len(st.Comments)
	st.Comments = slices.DeleteFunc(st.Comments, func(x filmhive.Comment) bool { return x.ID == id })
	return len(st.Comments) < n
}
