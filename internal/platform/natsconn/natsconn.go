// Package natsconn dials the optional NATS server that receives moderation
// events.
package natsconn

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/filmhive/internal/platform/config"
)

const defaultReconnectWait = 2 * time.Second

// Enabled reports whether a NATS URL is configured. The console runs
// without NATS; moderation events are then dropped.
func Enabled(cfg config.NATSConfig) bool {
	return strings.TrimSpace(cfg.URL) != ""
}

// Options turns the config into dial options. Connection state changes are
// logged on log.
func Options(name string, cfg config.NATSConfig, log *zap.Logger) []nats.Option {
	if log == nil {
		log = zap.NewNop()
	}
	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = defaultReconnectWait
	}
	return []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(wait),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	}
}

// Connect dials once. Failure is returned so the caller can fail fast
// instead of starting with a half-configured event pipeline.
func Connect(name string, cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, Options(name, cfg, log)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}
