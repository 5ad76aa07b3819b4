// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/PromptForge/internal/logger"
	"github.com/Strob0t/PromptForge/internal/port/messagequeue"
)

const (
	// StreamName is the JetStream stream capturing all prompt events.
	StreamName = "PROMPTFORGE"

	headerRequestID = "X-Request-ID"
	dlqSuffix       = ".dlq"
	maxDeliver      = 3
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// capturing "<prefix>.>" exists.
func Connect(ctx context.Context, url, prefix string) (*Queue, error) {
	if prefix == "" {
		return nil, errors.New("nats: subject prefix is required")
	}
	nc, err := nats.Connect(url,
		nats.Name("promptforge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{prefix + ".>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", StreamName, "prefix", prefix)
	return &Queue{nc: nc, js: js, prefix: prefix}, nil
}

// Publish sends a message to the given subject. The request id in ctx, if
// any, travels in the message header.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Header.Set(headerRequestID, reqID)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Messages
// that fail schema validation, or whose handler fails on the last allowed
// delivery, are moved to "<subject>.dlq".
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

func (q *Queue) handle(msg jetstream.Msg, handler messagequeue.Handler) {
	subject := msg.Subject()
	if strings.HasSuffix(subject, dlqSuffix) {
		_ = msg.Ack()
		return
	}

	ctx := context.Background()
	if h := msg.Headers(); h != nil {
		if reqID := h.Get(headerRequestID); reqID != "" {
			ctx = logger.WithRequestID(ctx, reqID)
		}
	}

	if err := messagequeue.Validate(subject, msg.Data()); err != nil {
		slog.Warn("invalid message, moving to dlq", "subject", subject, "error", err)
		q.deadLetter(ctx, msg)
		return
	}

	if err := handler(ctx, subject, msg.Data()); err != nil {
		slog.Error("message handler failed", "subject", subject, "error", err)
		if md, mdErr := msg.Metadata(); mdErr == nil && md.NumDelivered >= maxDeliver {
			q.deadLetter(ctx, msg)
			return
		}
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "error", ackErr)
	}
}

func (q *Queue) deadLetter(ctx context.Context, msg jetstream.Msg) {
	if err := q.Publish(ctx, msg.Subject()+dlqSuffix, msg.Data()); err != nil {
		slog.Error("dlq publish failed", "subject", msg.Subject(), "error", err)
		_ = msg.Nak()
		return
	}
	if err := msg.Term(); err != nil {
		slog.Error("nats term failed", "error", err)
	}
}

// Prefix returns the subject prefix the stream captures.
func (q *Queue) Prefix() string { return q.prefix }

// JetStream returns the JetStream context, used to open the shared
// key-value cache bucket.
func (q *Queue) JetStream() jetstream.JetStream { return q.js }

// IsConnected reports whether the underlying connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}

// Drain gracefully drains subscriptions and closes the connection.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}
