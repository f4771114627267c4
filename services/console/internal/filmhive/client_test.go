package filmhive_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/example/filmhive/internal/platform/httpserver"
	"github.com/example/filmhive/internal/platform/metrics"
	"github.com/example/filmhive/services/console/internal/credentials"
	"github.com/example/filmhive/services/console/internal/fakeapi"
	"github.com/example/filmhive/services/console/internal/filmhive"
)

const (
	staffID int64 = 1
	annID   int64 = 42
	bobID   int64 = 7
	movieID int64 = 10
)

type fixture struct {
	api *fakeapi.API
	srv *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := fakeapi.New([]byte("client-test-secret-32-bytes-long"))
	a.AddUser(staffID, "mod", "staff")
	a.AddUser(annID, "ann", "user")
	a.AddUser(bobID, "bob", "user")
	a.AddMovie(movieID, "Heat")
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return &fixture{api: a, srv: srv}
}

func (f *fixture) client(as int64) *filmhive.Client {
	var tok credentials.Provider = credentials.Static("")
	if as != 0 {
		tok = credentials.Static(f.api.Token(as))
	}
	return filmhive.New(f.srv.URL+"/api", tok)
}

// ─── comments ────────────────────────────────────────────────────────────────

func TestAddComment_TrimsText(t *testing.T) {
	f := newFixture(t)
	c, err := f.client(annID).AddComment(context.Background(), movieID, "   great movie \n")
	require.NoError(t, err)
	require.Equal(t, "great movie", c.Text)
	require.Equal(t, annID, c.UserID)
	require.Equal(t, "Heat", c.MovieTitle)
}

func TestAddComment_LengthBounds(t *testing.T) {
	f := newFixture(t)
	cl := f.client(annID)
	ctx := context.Background()

	_, err := cl.AddComment(ctx, movieID, strings.Repeat("é", filmhive.MaxCommentLength))
	require.NoError(t, err, "exactly the limit in runes is accepted")

	before := f.api.Requests()
	for _, text := range []string{"", "   \t\n", strings.Repeat("x", filmhive.MaxCommentLength+1)} {
		_, err := cl.AddComment(ctx, movieID, text)
		var ve *filmhive.ValidationError
		require.ErrorAs(t, err, &ve)
	}
	require.Equal(t, before, f.api.Requests(), "rejected text must not reach the network")
}

func TestAddComment_AuthRequired(t *testing.T) {
	f := newFixture(t)
	_, err := f.client(0).AddComment(context.Background(), movieID, "hello")
	require.ErrorIs(t, err, filmhive.ErrAuthRequired)
	require.Zero(t, f.api.Requests())
	require.Equal(t, "Please sign in to continue", filmhive.UserMessage(err, filmhive.OpAddComment))
}

func TestNilTokenSource_AuthRequired(t *testing.T) {
	f := newFixture(t)
	err := filmhive.New(f.srv.URL+"/api", nil).DeleteReply(context.Background(), 1)
	require.ErrorIs(t, err, filmhive.ErrAuthRequired)
	require.Zero(t, f.api.Requests())
}

func TestUpdateComment_RoundTripThroughDetails(t *testing.T) {
	f := newFixture(t)
	id := f.api.SeedComment(annID, movieID, "old text", time.Now())

	_, err := f.client(annID).UpdateComment(context.Background(), id, "new text")
	require.NoError(t, err)

	got, err := f.client(staffID).CommentDetails(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "new text", got.Text)
}

func TestUpdateComment_NotAuthor(t *testing.T) {
	f := newFixture(t)
	id := f.api.SeedComment(annID, movieID, "mine", time.Now())

	_, err := f.client(bobID).UpdateComment(context.Background(), id, "yours now")
	var he *filmhive.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Status)
	require.Equal(t, "You can only edit your own comments", he.Message)
	require.True(t, filmhive.IsForbidden(err))
}

func TestDeleteComment_Twice(t *testing.T) {
	f := newFixture(t)
	id := f.api.SeedComment(annID, movieID, "bye", time.Now())
	cl := f.client(annID)

	require.NoError(t, cl.DeleteComment(context.Background(), id))
	err := cl.DeleteComment(context.Background(), id)
	require.True(t, filmhive.IsNotFound(err))
	require.Equal(t, "Comment not found", filmhive.UserMessage(err, filmhive.OpDeleteComment))
}

func TestStaffEndpoints(t *testing.T) {
	f := newFixture(t)
	id := f.api.SeedComment(annID, movieID, "rude", time.Now())
	ctx := context.Background()

	_, err := f.client(annID).UpdateCommentAsStaff(ctx, id, "censored")
	require.True(t, filmhive.IsForbidden(err))

	c, err := f.client(staffID).UpdateCommentAsStaff(ctx, id, "censored")
	require.NoError(t, err)
	require.Equal(t, "censored", c.Text)

	require.NoError(t, f.client(staffID).DeleteCommentAsStaff(ctx, id))
	_, ok := f.api.CommentText(id)
	require.False(t, ok)
}

func TestListComments_ScenarioPageTwo(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		author := annID
		if i%3 == 0 {
			author = bobID
		}
		f.api.SeedComment(author, movieID, "c", base.Add(time.Duration(i)*time.Hour))
	}

	page, err := f.client(0).ListComments(context.Background(), filmhive.ListFilters{
		Page: 2, PerPage: 20, SortBy: filmhive.SortByUsername, SortOrder: filmhive.SortAsc,
	})
	require.NoError(t, err)
	require.Equal(t, 3, page.Pagination.TotalPages)
	require.Equal(t, 2, page.Pagination.Page)
	require.Equal(t, 45, page.Pagination.Total)
	require.Len(t, page.Comments, 20)
	require.True(t, page.Pagination.HasNext())
	require.True(t, page.Pagination.HasPrev())
	require.NotNil(t, page.Filters)
	require.Equal(t, "username", page.Filters.SortBy)
}

func TestListComments_InvalidFilters(t *testing.T) {
	f := newFixture(t)
	cl := f.client(0)
	for _, lf := range []filmhive.ListFilters{
		{SortBy: "rating"},
		{SortOrder: "up"},
		{DateFrom: "01/05/2024"},
		{DateFrom: "2024-05-02", DateTo: "2024-05-01"},
		{PerPage: 500},
		{Page: -1},
	} {
		_, err := cl.ListComments(context.Background(), lf)
		require.ErrorIs(t, err, filmhive.ErrInvalidFilter, "%+v", lf)
	}
	require.Zero(t, f.api.Requests())
}

func TestListFilters_PageBounds(t *testing.T) {
	require.NoError(t, filmhive.ListFilters{}.Validate(), "zero page and per_page use server defaults")
	require.NoError(t, filmhive.ListFilters{Page: 1, PerPage: filmhive.MaxPageSize}.Validate())

	err := filmhive.ListFilters{Page: -1}.Validate()
	require.ErrorIs(t, err, filmhive.ErrInvalidFilter)
	require.Contains(t, err.Error(), "must not be negative")

	err = filmhive.ListFilters{PerPage: filmhive.MaxPageSize + 1}.Validate()
	require.ErrorIs(t, err, filmhive.ErrInvalidFilter)
	require.Contains(t, err.Error(), "between 0 and 100")
}

func TestMovieComments(t *testing.T) {
	f := newFixture(t)
	f.api.AddMovie(11, "Ran")
	for i := 0; i < 12; i++ {
		f.api.SeedComment(annID, movieID, "heat", time.Now())
	}
	f.api.SeedComment(annID, 11, "ran", time.Now())

	page, err := f.client(0).MovieComments(context.Background(), movieID, filmhive.ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Comments, filmhive.MoviePageSize)
	require.Equal(t, 12, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
}

func TestCommentStatistics(t *testing.T) {
	f := newFixture(t)
	f.api.SeedComment(annID, movieID, "a", time.Now())
	stats, err := f.client(staffID).CommentStatistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalComments)
	require.Equal(t, "ann", stats.TopCommenters[0].Username)
	require.Equal(t, "Heat", stats.TopMovies[0].MovieTitle)
}

// ─── replies and threads ─────────────────────────────────────────────────────

func TestThreadAndReplies(t *testing.T) {
	f := newFixture(t)
	id := f.api.SeedComment(annID, movieID, "root", time.Now())
	ctx := context.Background()

	th, err := f.client(0).Thread(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, th.MainComment.ID)
	require.NotNil(t, th.Replies)
	require.Empty(t, th.Replies)

	r, err := f.client(bobID).AddReply(ctx, id, " first! ")
	require.NoError(t, err)
	require.Equal(t, "first!", r.Text)
	require.Equal(t, annID, r.MainUserID)

	r, err = f.client(bobID).UpdateReply(ctx, r.ID, "second thoughts")
	require.NoError(t, err)
	require.Equal(t, "second thoughts", r.Text)

	th, err = f.client(0).Thread(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, th.RepliesCount)
	last, ok := th.LastReply()
	require.True(t, ok)
	require.Equal(t, "second thoughts", last.Text)

	require.NoError(t, f.client(bobID).DeleteReply(ctx, r.ID))
	require.True(t, filmhive.IsNotFound(f.client(bobID).DeleteReply(ctx, r.ID)))
}

func TestAddReply_LengthBounds(t *testing.T) {
	f := newFixture(t)
	id := f.api.SeedComment(annID, movieID, "root", time.Now())
	cl := f.client(bobID)

	_, err := cl.AddReply(context.Background(), id, strings.Repeat("a", filmhive.MaxReplyLength))
	require.NoError(t, err)

	before := f.api.Requests()
	_, err = cl.AddReply(context.Background(), id, strings.Repeat("a", filmhive.MaxReplyLength+1))
	require.ErrorIs(t, err, filmhive.ErrTextTooLong)
	_, err = cl.AddReply(context.Background(), id, "  ")
	require.ErrorIs(t, err, filmhive.ErrEmptyText)
	require.Equal(t, before, f.api.Requests())
}

func TestThread_EnvelopeWithoutData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"thread hidden"}`))
	}))
	defer srv.Close()

	_, err := filmhive.New(srv.URL, nil).Thread(context.Background(), 1)
	require.ErrorIs(t, err, filmhive.ErrUnexpectedResponse)
	require.Contains(t, err.Error(), "thread hidden")
}

func TestThread_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := filmhive.New(srv.URL, nil).Thread(context.Background(), 1)
	require.ErrorIs(t, err, filmhive.ErrUnexpectedResponse)
}

// ─── transport behaviour ─────────────────────────────────────────────────────

func TestHTTPError_GenericFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := filmhive.New(srv.URL, nil).ListComments(context.Background(), filmhive.ListFilters{})
	var he *filmhive.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadGateway, he.Status)
	require.Equal(t, "Failed to load comments", he.Message)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := filmhive.New(url, nil).ListComments(context.Background(), filmhive.ListFilters{})
	var ne *filmhive.NetworkError
	require.ErrorAs(t, err, &ne)
	require.Equal(t, filmhive.OpListComments, ne.Op)
	require.Equal(t, "Failed to load comments", filmhive.UserMessage(err, filmhive.OpListComments))
}

func TestTokenSourceError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("keychain locked")
	cl := filmhive.New(f.srv.URL+"/api", tokenFunc(func(context.Context) (string, error) { return "", boom }))
	_, err := cl.AddComment(context.Background(), movieID, "hi")
	require.ErrorIs(t, err, boom)
	require.Zero(t, f.api.Requests())
}

func TestTokenReadPerCall(t *testing.T) {
	f := newFixture(t)
	calls := 0
	cl := filmhive.New(f.srv.URL+"/api", tokenFunc(func(context.Context) (string, error) {
		calls++
		return f.api.Token(annID), nil
	}))
	ctx := context.Background()
	_, _ = cl.AddComment(ctx, movieID, "one")
	_, _ = cl.AddComment(ctx, movieID, "two")
	require.Equal(t, 2, calls)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"id":5,"comment_text":"x"}`))
	}))
	defer srv.Close()

	ctx := httpserver.WithRequestID(context.Background(), "rid-77")
	_, err := filmhive.New(srv.URL, credentials.Static("tok")).UpdateComment(ctx, 5, "x")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", got.Get("Authorization"))
	require.Equal(t, "rid-77", got.Get("X-Request-Id"))
	require.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	cl := filmhive.New(f.srv.URL+"/api", nil, filmhive.WithMetrics(metrics.NewAPI(reg)))
	_, err := cl.ListComments(context.Background(), filmhive.ListFilters{})
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

type tokenFunc func(context.Context) (string, error)

func (f tokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }
