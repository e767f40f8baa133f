package pgnotify

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5"
)

// Handler is invoked for each notification received on the channel.
type Handler func(ctx context.Context, payload string)

// Listener maintains a LISTEN subscription on a PostgreSQL channel and
// dispatches notifications to a handler. Lost connections are
// re-established with exponential backoff.
type Listener struct {
	dsn     string
	channel string
	handler Handler
	log     hclog.Logger
}

// Config holds configuration for the listener.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Channel is the NOTIFY channel to subscribe to.
	Channel string

	// Handler receives each notification payload.
	Handler Handler

	// Logger
	Logger hclog.Logger
}

// New creates a listener.
func New(cfg Config) (*Listener, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Listener{
		dsn:     cfg.DSN,
		channel: cfg.Channel,
		handler: cfg.Handler,
		log:     cfg.Logger.Named("pgnotify"),
	}, nil
}

// Start runs the listen loop. It blocks until the context is cancelled
// and returns the context's error; connection failures are retried
// indefinitely.
func (l *Listener) Start(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for {
		started := time.Now()
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("listener stopped")
			return ctx.Err()
		}

		// A connection that survived a while earns a fresh backoff.
		if time.Since(started) > time.Minute {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		l.log.Warn("listen connection lost, reconnecting",
			"channel", l.channel,
			"retry_in", wait,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// listen holds one connection for its lifetime: connect, LISTEN, then
// block on notifications until the connection or the context dies.
func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close(context.Background())

	quoted := pgx.Identifier{l.channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+quoted); err != nil {
		return fmt.Errorf("subscribing to %s: %w", l.channel, err)
	}
	l.log.Info("listening for registry changes", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		l.log.Debug("notification received",
			"channel", n.Channel,
			"payload", n.Payload,
		)
		l.handler(ctx, n.Payload)
	}
}
