package thread

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/filmhive/internal/platform/auth"
	"github.com/example/filmhive/services/console/internal/credentials"
	"github.com/example/filmhive/services/console/internal/fakeapi"
	"github.com/example/filmhive/services/console/internal/filmhive"
)

var secret = []byte("thread-store-test-secret-32bytes")

const (
	annID   int64 = 42
	bobID   int64 = 7
	movieID int64 = 10
)

// ─── guard ───────────────────────────────────────────────────────────────────

func TestCheckReply(t *testing.T) {
	cases := []struct {
		last, viewer int64
		want         Decision
	}{
		{42, 42, Blocked},
		{42, 7, Allowed},
		{0, 42, Allowed},
		{42, 0, Allowed},
		{0, 0, Allowed},
	}
	for _, c := range cases {
		if got := CheckReply(c.last, c.viewer); got != c.want {
			t.Fatalf("CheckReply(%d, %d) = %s, want %s", c.last, c.viewer, got, c.want)
		}
	}
}

func TestGuardThread(t *testing.T) {
	if got := GuardThread(nil, annID); got != Allowed {
		t.Fatalf("nil thread: got %s", got)
	}
	th := &filmhive.Thread{}
	if got := GuardThread(th, annID); got != Allowed {
		t.Fatalf("empty thread: got %s", got)
	}
	th.Replies = []filmhive.Reply{{ID: 1, UserID: annID}, {ID: 2, UserID: bobID}}
	if got := GuardThread(th, annID); got != Allowed {
		t.Fatalf("one intervening reply: got %s", got)
	}
	if got := GuardThread(th, bobID); got != Blocked {
		t.Fatalf("own last reply: got %s", got)
	}
}

// ─── store ───────────────────────────────────────────────────────────────────

type fixture struct {
	api *fakeapi.API
	url string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := fakeapi.New(secret)
	a.AddUser(annID, "ann", "user")
	a.AddUser(bobID, "bob", "user")
	a.AddMovie(movieID, "Heat")
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return &fixture{api: a, url: srv.URL + "/api"}
}

func (f *fixture) storeAs(userID int64) *Store {
	tok := credentials.Static(f.api.Token(userID))
	viewers := credentials.Resolver{Provider: tok, Verifier: auth.JWTVerifier{Secret: secret}}
	return NewStore(filmhive.New(f.url, tok), viewers, nil)
}

func TestAddReply_BlockedWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	f.api.SeedReply(root, annID, "me first")

	s := f.storeAs(annID)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, root))

	d, err := s.Guard(ctx)
	require.NoError(t, err)
	require.Equal(t, Blocked, d)

	before := f.api.Requests()
	_, err = s.AddReply(ctx, root, "me again")
	require.ErrorIs(t, err, filmhive.ErrConsecutiveReply)
	var ve *filmhive.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, before, f.api.Requests())
}

func TestAddReply_AppendsAndReloads(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	f.api.SeedReply(root, annID, "hello")

	s := f.storeAs(bobID)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, root))
	prev := s.Snapshot().Thread.RepliesCount

	d, err := s.Guard(ctx)
	require.NoError(t, err)
	require.Equal(t, Allowed, d)

	r, err := s.AddReply(ctx, root, "hi ann")
	require.NoError(t, err)

	th := s.Snapshot().Thread
	require.Equal(t, prev+1, th.RepliesCount)
	last, ok := th.LastReply()
	require.True(t, ok)
	require.Equal(t, r.ID, last.ID)
	require.Equal(t, bobID, last.UserID)

	d, err = s.Guard(ctx)
	require.NoError(t, err)
	require.Equal(t, Blocked, d, "guard is recomputed after reload")
}

func TestAddReply_TextRejectedWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	s := f.storeAs(annID)
	require.NoError(t, s.Load(context.Background(), root))

	before := f.api.Requests()
	_, err := s.AddReply(context.Background(), root, strings.Repeat("x", filmhive.MaxReplyLength+1))
	require.ErrorIs(t, err, filmhive.ErrTextTooLong)
	_, err = s.AddReply(context.Background(), root, "")
	require.ErrorIs(t, err, filmhive.ErrEmptyText)
	require.Equal(t, before, f.api.Requests())
	require.ErrorIs(t, s.Snapshot().Err, filmhive.ErrEmptyText)
}

func TestAddReply_NotLoaded(t *testing.T) {
	f := newFixture(t)
	_, err := f.storeAs(annID).AddReply(context.Background(), 1, "hi")
	require.ErrorIs(t, err, ErrNotLoaded)
	require.ErrorIs(t, f.storeAs(annID).Refresh(context.Background()), ErrNotLoaded)
}

func TestAddReply_OtherThreadLoaded(t *testing.T) {
	f := newFixture(t)
	first := f.api.SeedComment(bobID, movieID, "first", time.Now())
	second := f.api.SeedComment(bobID, movieID, "second", time.Now())
	s := f.storeAs(annID)
	require.NoError(t, s.Load(context.Background(), second))

	before := f.api.Requests()
	_, err := s.AddReply(context.Background(), first, "meant for the first")
	require.ErrorIs(t, err, ErrNotLoaded)
	require.Equal(t, before, f.api.Requests())
	require.Zero(t, s.Snapshot().Thread.RepliesCount)
}

func TestEditAndDeleteReply_AuthorScoped(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	annReply := f.api.SeedReply(root, annID, "ann's")
	ctx := context.Background()

	bob := f.storeAs(bobID)
	require.NoError(t, bob.Load(ctx, root))
	before := f.api.Requests()
	_, err := bob.EditReply(ctx, annReply, "hijacked")
	require.ErrorIs(t, err, filmhive.ErrNotAuthor)
	require.ErrorIs(t, bob.DeleteReply(ctx, annReply), filmhive.ErrNotAuthor)
	require.Equal(t, before, f.api.Requests())

	ann := f.storeAs(annID)
	require.NoError(t, ann.Load(ctx, root))
	_, err = ann.EditReply(ctx, annReply, "ann's, edited")
	require.NoError(t, err)
	r, ok := ann.Reply(annReply)
	require.True(t, ok)
	require.Equal(t, "ann's, edited", r.Text)

	require.NoError(t, ann.DeleteReply(ctx, annReply))
	require.Zero(t, ann.Snapshot().Thread.RepliesCount)
	_, ok = ann.Reply(annReply)
	require.False(t, ok)
}

func TestLoad_MissingThread(t *testing.T) {
	f := newFixture(t)
	s := f.storeAs(annID)
	err := s.Load(context.Background(), 999)
	require.True(t, filmhive.IsNotFound(err))
	st := s.Snapshot()
	require.False(t, st.Loading)
	require.Nil(t, st.Thread)
	require.Error(t, st.Err)
}

func TestLoad_SwitchDropsPreviousThread(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	s := f.storeAs(annID)
	require.NoError(t, s.Load(context.Background(), root))

	require.Error(t, s.Load(context.Background(), 999))
	st := s.Snapshot()
	require.Equal(t, int64(999), st.CommentID)
	require.Nil(t, st.Thread)
	_, err := s.GuardFor(context.Background(), root)
	require.ErrorIs(t, err, ErrNotLoaded)
}

func TestAnonymousViewer_GuardAllows(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	f.api.SeedReply(root, annID, "hi")
	s := NewStore(filmhive.New(f.url, nil), nil, nil)
	require.NoError(t, s.Load(context.Background(), root))

	d, err := s.Guard(context.Background())
	require.NoError(t, err)
	require.Equal(t, Allowed, d)

	_, err = s.AddReply(context.Background(), root, "anon")
	require.ErrorIs(t, err, filmhive.ErrAuthRequired)
}

// ─── reply form ──────────────────────────────────────────────────────────────

func TestReplyForm_Lifecycle(t *testing.T) {
	f := newFixture(t)
	root := f.api.SeedComment(bobID, movieID, "root", time.Now())
	s := f.storeAs(annID)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, root))
	form := NewReplyForm(s)

	_, err := form.Submit(ctx, root, "first")
	require.NoError(t, err)
	require.Equal(t, Idle, form.State())
	require.NoError(t, form.LastError())

	before := f.api.Requests()
	_, err = form.Submit(ctx, root, "second")
	require.ErrorIs(t, err, filmhive.ErrConsecutiveReply)
	require.Equal(t, Idle, form.State())
	require.ErrorIs(t, form.LastError(), filmhive.ErrConsecutiveReply)
	require.Equal(t, before, f.api.Requests())
}

func TestReplyForm_RejectsWhileSubmitting(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &slowAPI{entered: entered, release: release}
	s := NewStore(api, nil, nil)
	require.NoError(t, s.Load(context.Background(), 1))
	form := NewReplyForm(s)

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background(), 1, "one")
		done <- err
	}()
	<-entered
	require.Equal(t, Submitting, form.State())
	_, err := form.Submit(context.Background(), 1, "two")
	require.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, Idle, form.State())
}

func TestReplyForm_StateNotHeldByViewerLookup(t *testing.T) {
	viewers := &slowViewers{entered: make(chan struct{}), release: make(chan struct{})}
	released := make(chan struct{})
	close(released)
	s := NewStore(&slowAPI{entered: make(chan struct{}), release: released}, viewers, nil)
	require.NoError(t, s.Load(context.Background(), 1))
	form := NewReplyForm(s)

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background(), 1, "hello")
		done <- err
	}()
	<-viewers.entered

	states := make(chan FormState, 1)
	go func() { states <- form.State() }()
	select {
	case st := <-states:
		require.Equal(t, Submitting, st)
	case <-time.After(2 * time.Second):
		t.Fatal("State blocked behind the viewer lookup")
	}

	close(viewers.release)
	require.NoError(t, <-done)
	require.Equal(t, Idle, form.State())
}

// slowViewers blocks the first Viewer call until released.
type slowViewers struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (v *slowViewers) Viewer(context.Context) (credentials.Viewer, error) {
	first := false
	v.once.Do(func() { first = true })
	if first {
		close(v.entered)
		<-v.release
	}
	return credentials.Viewer{UserID: annID}, nil
}

// slowAPI blocks in AddReply until released.
type slowAPI struct {
	entered chan struct{}
	release chan struct{}
}

func (s *slowAPI) Thread(_ context.Context, id int64) (filmhive.Thread, error) {
	return filmhive.Thread{MainComment: filmhive.Comment{ID: id}, Replies: []filmhive.Reply{}}, nil
}

func (s *slowAPI) AddReply(_ context.Context, commentID int64, text string) (filmhive.Reply, error) {
	close(s.entered)
	<-s.release
	return filmhive.Reply{ID: 1, CommentID: commentID, Text: text}, nil
}

func (s *slowAPI) UpdateReply(context.Context, int64, string) (filmhive.Reply, error) {
	return filmhive.Reply{}, nil
}

func (s *slowAPI) DeleteReply(context.Context, int64) error { return nil }
