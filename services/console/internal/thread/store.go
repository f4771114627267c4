// Package thread holds the state of one comment thread and the rules for
// replying to it.
package thread

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/example/filmhive/services/console/internal/credentials"
	"github.com/example/filmhive/services/console/internal/filmhive"
)

var ErrNotLoaded = errors.New("thread: nothing loaded")

// API is the slice of the FilmHive client the store uses.
type API interface {
	Thread(ctx context.Context, commentID int64) (filmhive.Thread, error)
	AddReply(ctx context.Context, commentID int64, text string) (filmhive.Reply, error)
	UpdateReply(ctx context.Context, replyID int64, text string) (filmhive.Reply, error)
	DeleteReply(ctx context.Context, replyID int64) error
}

// ViewerSource tells the store who is looking. credentials.Resolver
// implements it.
type ViewerSource interface {
	Viewer(ctx context.Context) (credentials.Viewer, error)
}

// State is a point-in-time copy of a Store.
type State struct {
	CommentID int64
	Thread    *filmhive.Thread
	Loading   bool
	Err       error
}

// Store keeps one thread. Every mutation reloads the whole thread from the
// server; nothing is inserted optimistically.
type Store struct {
	api     API
	viewers ViewerSource
	log     *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewStore returns an empty store. viewers may be nil, in which case the
// viewer is always anonymous and the guard never blocks.
func NewStore(api API, viewers ViewerSource, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{api: api, viewers: viewers, log: log}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.Thread != nil {
		t := *st.Thread
		t.Replies = slices.Clone(t.Replies)
		st.Thread = &t
	}
	return st
}

// Load fetches commentID's thread and replaces whatever was loaded. The
// previous thread is dropped as soon as another id is requested, so a failed
// load never leaves one thread filed under another comment.
func (s *Store) Load(ctx context.Context, commentID int64) error {
	s.mu.Lock()
	s.state.Loading = true
	if s.state.CommentID != commentID {
		s.state.CommentID = commentID
		s.state.Thread = nil
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.state.Loading = false
		s.mu.Unlock()
	}()

	t, err := s.api.Thread(ctx, commentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CommentID != commentID {
		// A newer Load for another thread started meanwhile.
		return err
	}
	if err != nil {
		s.state.Err = err
		s.log.Warn("load thread failed", zap.Int64("comment_id", commentID), zap.Error(err))
		return err
	}
	s.state.Thread = &t
	s.state.Err = nil
	return nil
}

// Refresh reloads the current thread.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	id := s.state.CommentID
	s.mu.RUnlock()
	if id == 0 {
		return ErrNotLoaded
	}
	return s.Load(ctx, id)
}

// Guard evaluates the reply guard for the current viewer against the
// current thread. It is recomputed on every call.
func (s *Store) Guard(ctx context.Context) (Decision, error) {
	v, err := s.viewer(ctx)
	if err != nil {
		return Allowed, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GuardThread(s.state.Thread, v.UserID), nil
}

// GuardFor is Guard pinned to commentID. It fails with ErrNotLoaded unless
// that thread is the one loaded.
func (s *Store) GuardFor(ctx context.Context, commentID int64) (Decision, error) {
	v, err := s.viewer(ctx)
	if err != nil {
		return Allowed, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if commentID <= 0 || s.state.CommentID != commentID || s.state.Thread == nil {
		return Allowed, ErrNotLoaded
	}
	return GuardThread(s.state.Thread, v.UserID), nil
}

// AddReply posts a reply to commentID's thread, which must be loaded, and
// reloads it.
func (s *Store) AddReply(ctx context.Context, commentID int64, text string) (filmhive.Reply, error) {
	clean, err := checkReply(ctx, s, commentID, text)
	if err != nil {
		if errors.Is(err, ErrNotLoaded) {
			return filmhive.Reply{}, err
		}
		return filmhive.Reply{}, s.fail(err)
	}

	r, err := s.api.AddReply(ctx, commentID, clean)
	if err != nil {
		return filmhive.Reply{}, s.fail(err)
	}
	if err := s.Load(ctx, commentID); err != nil {
		return r, fmt.Errorf("reload thread: %w", err)
	}
	return r, nil
}

// checkReply runs every check that must pass before a reply goes out and
// returns the cleaned text.
func checkReply(ctx context.Context, s *Store, commentID int64, text string) (string, error) {
	clean, err := filmhive.CleanReplyText(text)
	if err != nil {
		return "", err
	}
	d, err := s.GuardFor(ctx, commentID)
	if err != nil {
		return "", err
	}
	if d == Blocked {
		return "", &filmhive.ValidationError{Field: "text", Err: filmhive.ErrConsecutiveReply}
	}
	return clean, nil
}

// EditReply changes the text of one of the viewer's replies and reloads.
func (s *Store) EditReply(ctx context.Context, replyID int64, text string) (filmhive.Reply, error) {
	clean, err := filmhive.CleanReplyText(text)
	if err != nil {
		return filmhive.Reply{}, s.fail(err)
	}
	if err := s.checkAuthor(ctx, replyID); err != nil {
		return filmhive.Reply{}, s.fail(err)
	}
	r, err := s.api.UpdateReply(ctx, replyID, clean)
	if err != nil {
		return filmhive.Reply{}, s.fail(err)
	}
	if err := s.Refresh(ctx); err != nil {
		return r, fmt.Errorf("reload thread: %w", err)
	}
	return r, nil
}

// DeleteReply removes one of the viewer's replies and reloads.
func (s *Store) DeleteReply(ctx context.Context, replyID int64) error {
	if err := s.checkAuthor(ctx, replyID); err != nil {
		return s.fail(err)
	}
	if err := s.api.DeleteReply(ctx, replyID); err != nil {
		return s.fail(err)
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("reload thread: %w", err)
	}
	return nil
}

// Reply looks up a reply in the loaded thread.
func (s *Store) Reply(replyID int64) (filmhive.Reply, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Thread == nil {
		return filmhive.Reply{}, false
	}
	i := slices.IndexFunc(s.state.Thread.Replies, func(r filmhive.Reply) bool { return r.ID == replyID })
	if i < 0 {
		return filmhive.Reply{}, false
	}
	return s.state.Thread.Replies[i], true
}

// checkAuthor refuses when both the viewer and the reply's author are known
// and differ. The server checks again.
func (s *Store) checkAuthor(ctx context.Context, replyID int64) error {
	v, err := s.viewer(ctx)
	if err != nil {
		return err
	}
	r, ok := s.Reply(replyID)
	if !ok || !v.SignedIn() {
		return nil
	}
	if r.UserID != v.UserID {
		return &filmhive.ValidationError{Field: "reply_id", Err: filmhive.ErrNotAuthor}
	}
	return nil
}

func (s *Store) viewer(ctx context.Context) (credentials.Viewer, error) {
	if s.viewers == nil {
		return credentials.Viewer{}, nil
	}
	return s.viewers.Viewer(ctx)
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.state.Err = err
	s.mu.Unlock()
	return err
}
