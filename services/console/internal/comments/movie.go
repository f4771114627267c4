package comments

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/filmhive/services/console/internal/filmhive"
)

// ErrNoMovie is returned when a comment is added without a movie id.
var ErrNoMovie = errors.New("comments: no movie given")

// MovieState is a point-in-time copy of a MovieStore.
type MovieState struct {
	State
	MovieID int64
}

// MovieStore is the comment list of a single movie. Adds are prepended and
// deletes decrement the total without reloading.
type MovieStore struct {
	api API
	log *zap.Logger

	mu    sync.RWMutex
	state MovieState
}

func NewMovieStore(api API, log *zap.Logger) *MovieStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MovieStore{api: api, log: log}
}

func (s *MovieStore) Snapshot() MovieState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.State = st.State.clone()
	return st
}

// Fetch loads one page of movieID's comments and makes it the current movie.
func (s *MovieStore) Fetch(ctx context.Context, movieID int64, f filmhive.ListFilters) error {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.state.Loading = false
		s.mu.Unlock()
	}()

	page, err := s.api.MovieComments(ctx, movieID, f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("fetch movie comments failed", zap.Int64("movie_id", movieID), zap.Error(err))
		if s.state.MovieID != movieID {
			s.state = MovieState{MovieID: movieID, State: State{Filters: f}}
		}
		s.state.Err = err
		return err
	}
	s.state = MovieState{
		MovieID: movieID,
		State: State{
			Comments:   page.Comments,
			Pagination: page.Pagination,
			Filters:    f,
		},
	}
	return nil
}

// Add posts a comment on movieID as the signed-in user. The comment is
// prepended only when movieID is the movie on show.
func (s *MovieStore) Add(ctx context.Context, movieID int64, text string) (filmhive.Comment, error) {
	if movieID <= 0 {
		return filmhive.Comment{}, ErrNoMovie
	}
	c, err := s.api.AddComment(ctx, movieID, text)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Err = err
		return filmhive.Comment{}, err
	}
	s.state.Err = nil
	if s.state.MovieID == movieID {
		s.state.Comments = append([]filmhive.Comment{c}, s.state.Comments...)
		s.state.Pagination.Total++
	}
	return c, nil
}

// Update edits one of the signed-in user's comments.
func (s *MovieStore) Update(ctx context.Context, id int64, text string) (filmhive.Comment, error) {
	c, err := s.api.UpdateComment(ctx, id, text)
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

// Delete removes one of the signed-in user's comments.
func (s *MovieStore) Delete(ctx context.Context, id int64) error {
	err := s.api.DeleteComment(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Err = err
		return err
	}
	s.state.Err = nil
	if s.state.remove(id) && s.state.Pagination.Total > 0 {
		s.state.Pagination.Total--
	}
	return nil
}
