// Package redisstream carries migration receipts over a Redis stream.
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/transport"
)

const (
	fieldReceipt     = "receipt"
	fieldDestination = "destination"
)

var _ transport.Transport = (*Producer)(nil)

// Producer appends receipts to a stream.
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// WithMaxLen caps the stream length approximately.
func WithMaxLen(n int64) ProducerOption {
	return func(p *Producer) { p.maxLen = n }
}

func NewProducer(client *redis.Client, stream string, opts ...ProducerOption) *Producer {
	p := &Producer{client: client, stream: stream}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send implements transport.Transport.
func (p *Producer) Send(ctx context.Context, r *migration.Receipt) error {
	values, err := EncodeValues(r)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redisstream: append receipt %s: %w", r.ID, err)
	}
	return nil
}

// EncodeValues builds the stream entry fields for a receipt.
func EncodeValues(r *migration.Receipt) (map[string]any, error) {
	payload, err := migration.Encode(r)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		fieldReceipt:     string(payload),
		fieldDestination: r.DestinationDomain,
	}, nil
}

// DecodeMessage parses a stream entry written by EncodeValues.
func DecodeMessage(msg redis.XMessage) (*migration.Receipt, error) {
	raw, ok := msg.Values[fieldReceipt].(string)
	if !ok {
		return nil, fmt.Errorf("%w: entry %s has no receipt field", migration.ErrMalformedReceipt, msg.ID)
	}
	return migration.Decode([]byte(raw))
}

// Consumer reads the stream as a member of a consumer group and hands
// receipts addressed to its domain to a sink. An entry is acknowledged only
// once settled: delivered, rejected by the sink, or not meant for this
// domain. Unsettled entries stay pending and are retried on the next Run.
type Consumer struct {
	client *redis.Client
	stream string
	domain string
	group  string
	name   string
	sink   transport.Sink
	logger *slog.Logger
	retry  []backoff.RetryOption
	block  time.Duration
	count  int64
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

// WithGroup sets the consumer group. Defaults to "paywall-" plus the domain.
func WithGroup(group string) ConsumerOption {
	return func(c *Consumer) { c.group = group }
}

// WithConsumerName names this member of the group. Replicas sharing a group
// need distinct names.
func WithConsumerName(name string) ConsumerOption {
	return func(c *Consumer) { c.name = name }
}

func WithBlock(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.block = d }
}

// WithRetry sets the policy for transient delivery failures.
func WithRetry(opts ...backoff.RetryOption) ConsumerOption {
	return func(c *Consumer) { c.retry = opts }
}

func NewConsumer(client *redis.Client, stream, domain string, sink transport.Sink, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client: client,
		stream: stream,
		domain: domain,
		group:  "paywall-" + domain,
		name:   "paywalld",
		sink:   sink,
		logger: slog.Default(),
		retry:  transport.DefaultRetry(),
		block:  5 * time.Second,
		count:  16,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Group returns the consumer group name.
func (c *Consumer) Group() string { return c.group }

// Run creates the group if needed, redelivers entries left pending by an
// earlier run, then reads new entries until ctx is canceled. A group created
// here starts at the beginning of the stream, so receipts appended before
// the first run are not skipped.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redisstream: create group %s: %w", c.group, err)
	}

	for {
		n, err := c.read(ctx, "0", -1)
		if err != nil || n == 0 {
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return err
			}
			break
		}
	}

	for {
		if _, err := c.read(ctx, ">", c.block); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// read fetches one batch starting at id ("0" for this consumer's pending
// entries, ">" for new ones) and settles it in order.
func (c *Consumer) read(ctx context.Context, id string, block time.Duration) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, id},
		Count:    c.count,
		Block:    block,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("redisstream: read %s: %w", c.stream, err)
	}

	n := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			n++
			if err := c.Handle(ctx, msg); err != nil {
				return n, err
			}
			if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
				return n, fmt.Errorf("redisstream: ack %s: %w", msg.ID, err)
			}
		}
	}
	return n, nil
}

// Handle settles one entry. A nil error means the entry may be
// acknowledged; an error means it must stay pending.
func (c *Consumer) Handle(ctx context.Context, msg redis.XMessage) error {
	if dest, _ := msg.Values[fieldDestination].(string); dest != c.domain {
		return nil
	}

	r, err := DecodeMessage(msg)
	if err != nil {
		c.logger.Warn("dropping malformed receipt",
			"stream", c.stream,
			"entry", msg.ID,
			"error", err,
		)
		return nil
	}

	err = transport.DeliverWithRetry(ctx, c.sink, r, c.retry...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrRejected):
		c.logger.Warn("receipt rejected, reclaim on source",
			"receipt_id", r.ID.String(),
			"content_id", r.ContentID,
			"source", r.SourceDomain,
			"error", err,
		)
		return nil
	default:
		return fmt.Errorf("redisstream: deliver receipt %s: %w", r.ID, err)
	}
}
