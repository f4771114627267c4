// Package filmhive is the HTTP client for the FilmHive REST API: comments,
// replies and threads. Every call issues exactly one request; nothing is
// retried, cached or de-duplicated.
package filmhive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/filmhive/internal/platform/httpserver"
	"github.com/example/filmhive/internal/platform/metrics"
)

const (
	maxResponseBytes = 4 << 20
	userAgent        = "filmhive-console/1.0"
)

// TokenSource yields the bearer token for authenticated calls. It is asked
// on every call, so a rotated or revoked token takes effect immediately.
// An empty token means nobody is signed in.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger
	metrics *metrics.API
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics(m *metrics.API) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client for baseURL, e.g. "https://filmhive.example/api".
// tokens may be nil, in which case every authenticated call fails with
// ErrAuthRequired.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type call struct {
	op     Op
	method string
	path   string
	query  url.Values
	auth   bool
	body   any
	out    any
}

func (c *Client) token(ctx context.Context, op Op) (string, error) {
	if c.tokens == nil {
		return "", fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: read token: %w", op, err)
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}
	return tok, nil
}

func (c *Client) do(ctx context.Context, cl call) error {
	var bearer string
	if cl.auth {
		tok, err := c.token(ctx, cl.op)
		if err != nil {
			return err
		}
		bearer = tok
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rid := httpserver.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", rid)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Observe(string(cl.op), 0, time.Since(start))
		c.log.Warn("filmhive request failed",
			zap.String("op", string(cl.op)), zap.String("request_id", rid), zap.Error(err))
		return &NetworkError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	took := time.Since(start)
	c.metrics.Observe(string(cl.op), resp.StatusCode, took)
	if err != nil {
		return &NetworkError{Op: cl.op, Err: fmt.Errorf("read body: %w", err)}
	}
	c.log.Debug("filmhive request",
		zap.String("op", string(cl.op)),
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", took),
		zap.String("request_id", rid))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Op: cl.op, Status: resp.StatusCode, Message: errorMessage(b, cl.op)}
	}
	if cl.out == nil || len(bytes.TrimSpace(b)) == 0 {
		if cl.out != nil {
			return fmt.Errorf("%s: %w: empty body", cl.op, ErrUnexpectedResponse)
		}
		return nil
	}
	if err := json.Unmarshal(b, cl.out); err != nil {
		return fmt.Errorf("%s: %w: %v body=%q", cl.op, ErrUnexpectedResponse, err, string(b[:min(len(b), 200)]))
	}
	return nil
}

// errorMessage pulls the "error" string out of an error body.
func errorMessage(b []byte, op Op) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
	}
	return op.GenericMessage()
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
