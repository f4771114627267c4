package thread

import (
	"context"
	"errors"
	"sync"

	"github.com/example/filmhive/services/console/internal/filmhive"
)

var ErrSubmitInProgress = errors.New("thread: reply already being submitted")

type FormState int

const (
	Idle FormState = iota
	Submitting
)

func (s FormState) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// ReplyForm is the reply composer: Idle, then Submitting while a reply is
// in flight, then Idle again with the outcome in LastError.
type ReplyForm struct {
	store *Store

	mu      sync.Mutex
	state   FormState
	lastErr error
}

func NewReplyForm(store *Store) *ReplyForm {
	return &ReplyForm{store: store}
}

// Submit sends text as a reply to commentID's thread. A guard block or
// invalid text returns without touching the network and leaves the form
// Idle. The checks run outside the form lock, so State never waits on a
// viewer lookup.
func (f *ReplyForm) Submit(ctx context.Context, commentID int64, text string) (filmhive.Reply, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return filmhive.Reply{}, ErrSubmitInProgress
	}
	f.state = Submitting
	f.mu.Unlock()

	if _, err := checkReply(ctx, f.store, commentID, text); err != nil {
		f.finish(err)
		return filmhive.Reply{}, err
	}
	r, err := f.store.AddReply(ctx, commentID, text)
	f.finish(err)
	return r, err
}

func (f *ReplyForm) finish(err error) {
	f.mu.Lock()
	f.state = Idle
	f.lastErr = err
	f.mu.Unlock()
}

func (f *ReplyForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError is the outcome of the latest Submit, nil after a success.
func (f *ReplyForm) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}
