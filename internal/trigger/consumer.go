// Package trigger consumes inspection writes and archive requests from Kafka
// and hands them to the lifecycle controller.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"propcheck/internal/deficiency/lifecycle"
	"propcheck/internal/deficiency/models"
	inspection "propcheck/internal/inspection/models"
	"propcheck/internal/platform/config"
	"propcheck/internal/platform/metrics"
	dErrors "propcheck/pkg/domain-errors"
)

var tracer = otel.Tracer("propcheck/internal/trigger")

const (
	outcomeOK           = "ok"
	outcomeRetried      = "retried"
	outcomeDropped      = "dropped"
	outcomeDeadLettered = "dead_lettered"
	outcomeHeld         = "held"
)

// ErrRecordHeld is returned by Run when a record kept failing and could not
// be dead-lettered. Its offset stays uncommitted.
var ErrRecordHeld = errors.New("trigger record held")

// Client is the slice of *kgo.Client the consumer drives.
type Client interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// Producer is the slice of *kgo.Client used for dead-lettering.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Handler interface {
	HandleInspectionWrite(ctx context.Context, event inspection.WriteEvent) (lifecycle.Report, error)
	HandleArchiveRequest(ctx context.Context, req lifecycle.ArchiveRequest) (models.ArchiveResult, error)
}

// Consumer handles one record at a time and commits it once handled, dropped
// as unprocessable or dead-lettered. Handlers are idempotent, so a crash
// before commit only redelivers.
type Consumer struct {
	client      Client
	handler     Handler
	deadLetter  Producer
	topics      config.KafkaConfig
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

// WithDeadLetter sends records that exhaust their attempts to
// cfg.DeadLetterTopic through p. Without it such records stop the consumer.
func WithDeadLetter(p Producer) Option {
	return func(c *Consumer) {
		c.deadLetter = p
	}
}

// WithBackoff sets the base delay between attempts. Attempt n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

func New(client Client, handler Handler, cfg config.KafkaConfig, opts ...Option) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("kafka client is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if cfg.InspectionTopic == "" || cfg.ArchiveTopic == "" {
		return nil, fmt.Errorf("inspection and archive topics are required")
	}
	c := &Consumer{
		client:      client,
		handler:     handler,
		topics:      cfg,
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.deadLetter != nil && cfg.DeadLetterTopic == "" {
		return nil, fmt.Errorf("dead letter topic is required")
	}
	return c, nil
}

// Run polls until ctx is cancelled or the client is closed. A record that
// can be neither handled nor dead-lettered ends the run with ErrRecordHeld
// after the records before it are committed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "kafka fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var (
			handled []*kgo.Record
			stop    error
		)
		for _, rec := range fetches.Records() {
			if ctx.Err() != nil {
				break
			}
			if stop = c.handle(ctx, rec); stop != nil {
				break
			}
			handled = append(handled, rec)
		}
		c.commit(ctx, handled)
		if stop != nil {
			return stop
		}
	}
}

func (c *Consumer) commit(ctx context.Context, handled []*kgo.Record) {
	if len(handled) == 0 {
		return
	}
	if err := c.client.CommitRecords(context.WithoutCancel(ctx), handled...); err != nil {
		c.logger.ErrorContext(ctx, "commit trigger offsets failed",
			"records", len(handled),
			"error", err,
		)
	}
}

// handle retries internal failures up to maxAttempts. Every other failure is
// final on the first attempt. A non-nil return means rec must not be
// committed.
func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) error {
	ctx, span := tracer.Start(ctx, "trigger.handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", rec.Topic),
			attribute.Int64("messaging.kafka.offset", rec.Offset),
		),
	)
	defer span.End()

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.dispatch(ctx, rec); err == nil {
			c.metrics.ObserveTriggerRecord(rec.Topic, outcomeOK)
			return nil
		}
		if dErrors.CodeOf(err) != dErrors.CodeInternal || attempt == c.maxAttempts {
			break
		}
		c.metrics.ObserveTriggerRecord(rec.Topic, outcomeRetried)
		c.logger.WarnContext(ctx, "trigger record failed, retrying",
			"topic", rec.Topic,
			"offset", rec.Offset,
			"attempt", attempt,
			"error", err,
		)
		if !sleep(ctx, time.Duration(attempt)*c.backoff) {
			return ctx.Err()
		}
	}
	span.RecordError(err)
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		span.SetStatus(codes.Error, "trigger record dropped")
		c.giveUp(ctx, rec, outcomeDropped, "trigger record dropped", err)
		return nil
	}
	if dlqErr := c.sendDeadLetter(ctx, rec, err); dlqErr != nil {
		span.SetStatus(codes.Error, "trigger record held")
		c.giveUp(ctx, rec, outcomeHeld, "trigger record held", errors.Join(err, dlqErr))
		return fmt.Errorf("%w: %s/%d@%d: %w", ErrRecordHeld, rec.Topic, rec.Partition, rec.Offset, err)
	}
	span.SetStatus(codes.Error, "trigger record dead-lettered")
	c.giveUp(ctx, rec, outcomeDeadLettered, "trigger record dead-lettered", err)
	return nil
}

func (c *Consumer) giveUp(ctx context.Context, rec *kgo.Record, outcome, msg string, err error) {
	c.metrics.ObserveTriggerRecord(rec.Topic, outcome)
	c.logger.ErrorContext(ctx, msg,
		"topic", rec.Topic,
		"partition", rec.Partition,
		"offset", rec.Offset,
		"key", string(rec.Key),
		"code", dErrors.CodeOf(err),
		"error", err,
	)
}

// sendDeadLetter copies rec to the dead letter topic with its origin and the
// last error as headers.
func (c *Consumer) sendDeadLetter(ctx context.Context, rec *kgo.Record, cause error) error {
	if c.deadLetter == nil {
		return errors.New("no dead letter producer")
	}
	headers := append([]kgo.RecordHeader{}, rec.Headers...)
	headers = append(headers,
		kgo.RecordHeader{Key: "source_topic", Value: []byte(rec.Topic)},
		kgo.RecordHeader{Key: "source_partition", Value: []byte(strconv.Itoa(int(rec.Partition)))},
		kgo.RecordHeader{Key: "source_offset", Value: []byte(strconv.FormatInt(rec.Offset, 10))},
		kgo.RecordHeader{Key: "error", Value: []byte(cause.Error())},
	)
	dlq := &kgo.Record{
		Topic:   c.topics.DeadLetterTopic,
		Key:     rec.Key,
		Value:   rec.Value,
		Headers: headers,
	}
	if err := c.deadLetter.ProduceSync(ctx, dlq).FirstErr(); err != nil {
		return fmt.Errorf("produce dead letter: %w", err)
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, rec *kgo.Record) error {
	switch rec.Topic {
	case c.topics.InspectionTopic:
		var event inspection.WriteEvent
		if err := json.Unmarshal(rec.Value, &event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "decode inspection write")
		}
		if event.InspectionID == "" {
			return dErrors.New(dErrors.CodeValidation, "inspection write without inspection id")
		}
		_, err := c.handler.HandleInspectionWrite(ctx, event)
		return err
	case c.topics.ArchiveTopic:
		var req lifecycle.ArchiveRequest
		if err := json.Unmarshal(rec.Value, &req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "decode archive request")
		}
		_, err := c.handler.HandleArchiveRequest(ctx, req)
		return err
	default:
		return dErrors.New(dErrors.CodeValidation, "unexpected topic "+rec.Topic)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
