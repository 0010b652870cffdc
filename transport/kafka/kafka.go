// Package kafka carries migration receipts over a Kafka topic using franz-go.
// Records are keyed by destination domain so receipts for one domain stay
// ordered within a partition.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/transport"
)

const (
	headerReceiptID = "receipt-id"
	headerSource    = "source-domain"
)

var _ transport.Transport = (*Producer)(nil)

// Producer publishes receipts to a topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

func NewProducer(client *kgo.Client, topic string) *Producer {
	return &Producer{client: client, topic: topic}
}

// Send implements transport.Transport. It blocks until the broker
// acknowledges the record.
func (p *Producer) Send(ctx context.Context, r *migration.Receipt) error {
	rec, err := EncodeRecord(p.topic, r)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce receipt %s: %w", r.ID, err)
	}
	return nil
}

// EncodeRecord builds the Kafka record for a receipt.
func EncodeRecord(topic string, r *migration.Receipt) (*kgo.Record, error) {
	payload, err := migration.Encode(r)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(r.DestinationDomain),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: headerReceiptID, Value: []byte(r.ID.String())},
			{Key: headerSource, Value: []byte(r.SourceDomain)},
		},
	}, nil
}

// DecodeRecord parses a record written by EncodeRecord.
func DecodeRecord(rec *kgo.Record) (*migration.Receipt, error) {
	return migration.Decode(rec.Value)
}

// Consumer reads receipts from the topic and hands those addressed to its
// domain to a sink. Offsets are committed only once a record is settled:
// delivered, rejected by the sink, or not meant for this domain.
type Consumer struct {
	client *kgo.Client
	domain string
	sink   transport.Sink
	logger *slog.Logger
	retry  []backoff.RetryOption
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

// WithRetry sets the policy for transient delivery failures.
func WithRetry(opts ...backoff.RetryOption) ConsumerOption {
	return func(c *Consumer) { c.retry = opts }
}

// NewConsumer wraps a client configured with the receipt topic
// (kgo.ConsumeTopics), a consumer group, and kgo.DisableAutoCommit.
// Auto-commit would mark records consumed before they are delivered.
func NewConsumer(client *kgo.Client, domain string, sink transport.Sink, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client: client,
		domain: domain,
		sink:   sink,
		logger: slog.Default(),
		retry:  transport.DefaultRetry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is canceled or the client is closed. It returns an
// error, leaving the offset uncommitted, when a receipt cannot be delivered
// within the retry policy; the group redelivers it after a restart.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("kafka fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var settled []*kgo.Record
		var stop error
		fetches.EachRecord(func(rec *kgo.Record) {
			if stop != nil {
				return
			}
			if err := c.Handle(ctx, rec); err != nil {
				stop = err
				return
			}
			settled = append(settled, rec)
		})

		if len(settled) > 0 {
			if err := c.client.CommitRecords(ctx, settled...); err != nil && ctx.Err() == nil {
				return fmt.Errorf("kafka: commit offsets: %w", err)
			}
		}
		if stop != nil {
			if ctx.Err() != nil {
				return nil
			}
			return stop
		}
	}
}

// Handle settles one record. A nil error means the offset may be committed;
// an error means the record must be redelivered.
func (c *Consumer) Handle(ctx context.Context, rec *kgo.Record) error {
	if string(rec.Key) != c.domain {
		return nil
	}

	r, err := DecodeRecord(rec)
	if err != nil {
		c.logger.Warn("dropping malformed receipt",
			"topic", rec.Topic,
			"offset", rec.Offset,
			"error", err,
		)
		return nil
	}
	if r.DestinationDomain != c.domain {
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
		return fmt.Errorf("kafka: deliver receipt %s: %w", r.ID, err)
	}
}
