package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// ErrPoison marks a message that can never be processed. The consumer
// terminates it instead of asking for redelivery.
var ErrPoison = errors.New("poison message")

// Config holds NATS client configuration
type Config struct {
	URL           string
	Name          string // connection name shown in server monitoring
	StreamName    string
	RetryAttempts int
	RetryDelay    time.Duration
	// DuplicateWindow bounds JetStream msg-id deduplication
	DuplicateWindow time.Duration
	MaxAge          time.Duration
}

// DefaultConfig returns the settings used by the saliency tools
func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		Name:            "saliency",
		StreamName:      "saliency",
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		DuplicateWindow: 10 * time.Minute,
		MaxAge:          7 * 24 * time.Hour,
	}
}

// Client publishes and consumes artifact announcements over JetStream
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
	logger *zap.Logger
}

// NewClient connects to the server. Connection state changes are logged.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("nats", cfg.URL))

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{
		nc:     nc,
		js:     js,
		config: cfg,
		logger: logger,
	}, nil
}

// EnsureStream creates or updates the stream holding the given subjects.
// Messages are kept until a consumer acknowledges them.
func (c *Client) EnsureStream(ctx context.Context, subjects ...string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       c.config.StreamName,
		Subjects:   subjects,
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     c.config.MaxAge,
		Duplicates: c.config.DuplicateWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", c.config.StreamName, err)
	}
	return nil
}

// Publish sends data to subject. A non-empty msgID lets the stream drop
// duplicates within its duplicate window.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, msgID string) error {
	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}

	ack, err := c.js.Publish(ctx, subject, data, opts...)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if ack.Duplicate {
		c.logger.Debug("Duplicate publish dropped by stream", zap.String("msg_id", msgID))
	}
	return nil
}

// MessageHandler processes one delivered message
type MessageHandler func(msg jetstream.Msg) error

// Consume attaches a durable consumer to subject. A nil handler error acks
// the message, ErrPoison terminates it, any other error naks it for
// redelivery up to three attempts.
func (c *Client) Consume(ctx context.Context, subject string, durable string, handler MessageHandler) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer %s: %w", durable, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		settle(msg, handler(msg), c.logger)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", subject, err)
	}

	return consumeCtx, nil
}

// Acker is the acknowledgement side of a delivered message
type Acker interface {
	Ack() error
	Nak() error
	Term() error
}

func settle(msg Acker, handlerErr error, logger *zap.Logger) {
	var err error
	switch {
	case handlerErr == nil:
		err = msg.Ack()
	case errors.Is(handlerErr, ErrPoison):
		err = msg.Term()
	default:
		err = msg.Nak()
	}
	if err != nil {
		logger.Warn("Failed to settle message", zap.Error(err))
	}
}

// Close drains pending publishes and closes the connection
func (c *Client) Close() {
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			c.logger.Warn("NATS drain failed", zap.Error(err))
		}
	}
}
