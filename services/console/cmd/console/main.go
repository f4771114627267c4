package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/filmhive/internal/platform/analytics"
	"github.com/example/filmhive/internal/platform/auth"
	"github.com/example/filmhive/internal/platform/config"
	"github.com/example/filmhive/internal/platform/httpserver"
	"github.com/example/filmhive/internal/platform/logging"
	"github.com/example/filmhive/internal/platform/metrics"
	"github.com/example/filmhive/internal/platform/natsconn"
	"github.com/example/filmhive/internal/platform/run"
	"github.com/example/filmhive/internal/platform/signing"
	"github.com/example/filmhive/services/console/internal/credentials"
	"github.com/example/filmhive/services/console/internal/fakeapi"
	"github.com/example/filmhive/services/console/internal/filmhive"
	"github.com/example/filmhive/services/console/internal/handlers"
)

// devJWTSecret signs tokens of the in-process fake API when JWT_SECRET is unset.
const devJWTSecret = "filmhive-dev-only-secret-change-me"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	var closers []func(context.Context) error
	closeAll := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				log.Warn("cleanup", zap.Error(err))
			}
		}
	}

	reg := metrics.NewRegistry()

	var chain credentials.Chain
	if cfg.Credentials.Token != "" {
		chain = append(chain, credentials.Static(cfg.Credentials.Token))
	}
	if cfg.Credentials.TokenFile != "" {
		chain = append(chain, credentials.File{Path: cfg.Credentials.TokenFile})
	}
	var redisTokens *credentials.Redis
	if cfg.Credentials.RedisURL != "" {
		redisTokens, err = credentials.NewRedis(cfg.Credentials.RedisURL, cfg.Credentials.TokenKey)
		if err != nil {
			log.Error("connect token store", zap.Error(err))
			run.Exit(1)
		}
		closers = append(closers, func(context.Context) error { return redisTokens.Close() })
		chain = append(chain, redisTokens)
	}

	baseURL := cfg.API.BaseURL
	jwtSecret := cfg.Credentials.JWTSecret
	if cfg.DevFakeAPI {
		if jwtSecret == "" {
			jwtSecret = devJWTSecret
		}
		url, devToken, stop, err := startFakeAPI(jwtSecret, redisTokens)
		if err != nil {
			log.Error("start fake api", zap.Error(err))
			run.Exit(1)
		}
		closers = append(closers, stop)
		baseURL = url
		if devToken != "" {
			chain = append(chain, credentials.Static(devToken))
		}
		log.Warn("dev mode: serving the in-memory FilmHive API", zap.String("base_url", baseURL))
	}

	client := filmhive.New(baseURL, chain,
		filmhive.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		filmhive.WithLogger(logging.Named(log, "filmhive")),
		filmhive.WithMetrics(metrics.NewAPI(reg)),
	)
	viewers := credentials.Resolver{Provider: chain, Verifier: auth.JWTVerifier{Secret: []byte(jwtSecret)}}

	var (
		events *analytics.Publisher
		nc     *nats.Conn
	)
	if natsconn.Enabled(cfg.NATS) {
		nc, err = natsconn.Connect(cfg.ServiceName, cfg.NATS, logging.Named(log, "nats"))
		if err != nil {
			log.Error("connect nats", zap.Error(err))
			run.Exit(1)
		}
		closers = append(closers, func(context.Context) error { return nc.Drain() })
		js, err := nc.JetStream()
		if err != nil {
			log.Error("init jetstream", zap.Error(err))
			run.Exit(1)
		}
		if err := analytics.EnsureStream(js, log); err != nil {
			log.Warn("ensure NATS stream", zap.Error(err))
		}
		events = analytics.New(js, logging.Named(log, "analytics"))
	}

	console, err := handlers.New(handlers.Deps{
		API:     client,
		Viewers: viewers,
		Signer:  signing.New(cfg.ConfirmSecret),
		Events:  events,
		Limiter: httpserver.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
		Logger:  logging.Named(log, "console"),
	})
	if err != nil {
		log.Error("init console", zap.Error(err))
		run.Exit(1)
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc:      ready(redisTokens, nc),
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Logger:         log,
		Metrics:        metrics.Handler(reg),
	})
	console.Routes(r)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(
		func(context.Context) error { return srv.Start() },
		srv.Shutdown,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	closeAll(ctx)
	cancel()

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// ready fails while a configured dependency is unreachable.
func ready(tokens *credentials.Redis, nc *nats.Conn) func() error {
	return func() error {
		if tokens != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := tokens.Ping(ctx); err != nil {
				return err
			}
		}
		if nc != nil && !nc.IsConnected() {
			return errors.New("nats not connected")
		}
		return nil
	}
}

// startFakeAPI serves a seeded in-memory API on a loopback port. The demo
// staff token goes to Redis when a token store is configured, otherwise it
// is returned for a static provider.
func startFakeAPI(secret string, tokens *credentials.Redis) (string, string, func(context.Context) error, error) {
	fake := fakeapi.New([]byte(secret))
	fake.SeedDemo()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", "", nil, err
	}
	srv := &http.Server{Handler: fake.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	tok := fake.Token(fakeapi.DemoStaffID)
	if tokens != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := tokens.Store(ctx, tok, 24*time.Hour); err != nil {
			_ = srv.Close()
			return "", "", nil, err
		}
		tok = ""
	}
	return "http://" + ln.Addr().String() + "/api", tok, srv.Shutdown, nil
}
