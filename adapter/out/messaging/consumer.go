package messaging

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// JobHandler processes one job delivered from a stream. A nil return
// acknowledges the message; a non-nil return leaves it pending for the
// reclaim pass.
type JobHandler interface {
	Handle(ctx context.Context, stream string, data []byte) error
}

// Consumer states.
const (
	StateStopped int32 = iota
	StateRunning
	StateStopping
)

// Consumer is a single sequential job consumer over Redis Streams
// consumer groups. It processes exactly one job at a time; scaling out
// means running more consumer instances against the same group
// (competing consumers). Delivery is at-least-once: crashed consumers
// leave pending entries that the reclaim pass re-dispatches.
type Consumer struct {
	stream   *RedisStream
	consumer string
	streams  []string
	handler  JobHandler
	log      zerolog.Logger

	state int32
	done  chan struct{}

	// blockWait bounds the XREADGROUP block so the stop flag is
	// re-checked periodically even with no traffic.
	blockWait time.Duration
	// transportBackoff is the pause after a queue-transport failure.
	transportBackoff time.Duration

	pendingCheckInterval time.Duration
	pendingIdleTime      time.Duration
	maxDeliveries        int
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Consumer string
	Streams  []string
	Handler  JobHandler
	Logger   zerolog.Logger

	BlockWait            time.Duration
	TransportBackoff     time.Duration
	PendingCheckInterval time.Duration
	PendingIdleTime      time.Duration
	MaxDeliveries        int
}

// NewConsumer creates a consumer over the given streams.
func NewConsumer(stream *RedisStream, cfg *ConsumerConfig) *Consumer {
	blockWait := cfg.BlockWait
	if blockWait == 0 {
		blockWait = 5 * time.Second
	}
	transportBackoff := cfg.TransportBackoff
	if transportBackoff == 0 {
		transportBackoff = time.Second
	}
	pendingCheckInterval := cfg.PendingCheckInterval
	if pendingCheckInterval == 0 {
		pendingCheckInterval = 30 * time.Second
	}
	pendingIdleTime := cfg.PendingIdleTime
	if pendingIdleTime == 0 {
		pendingIdleTime = 2 * time.Minute
	}
	maxDeliveries := cfg.MaxDeliveries
	if maxDeliveries == 0 {
		maxDeliveries = 3
	}

	return &Consumer{
		stream:               stream,
		consumer:             cfg.Consumer,
		streams:              cfg.Streams,
		handler:              cfg.Handler,
		log:                  cfg.Logger,
		done:                 make(chan struct{}),
		blockWait:            blockWait,
		transportBackoff:     transportBackoff,
		pendingCheckInterval: pendingCheckInterval,
		pendingIdleTime:      pendingIdleTime,
		maxDeliveries:        maxDeliveries,
	}
}

// State returns the current consumer state.
func (c *Consumer) State() int32 {
	return atomic.LoadInt32(&c.state)
}

// Start transitions Stopped → Running and launches the consume loop.
// Calling Start on a non-stopped consumer is a no-op.
func (c *Consumer) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&c.state, StateStopped, StateRunning) {
		return
	}
	// done is handed to the goroutines directly: a later restart
	// reassigns the field while a previous reclaim loop may still be
	// draining.
	done := make(chan struct{})
	c.done = done

	for _, stream := range c.streams {
		if err := c.stream.CreateGroup(ctx, stream); err != nil {
			c.log.Warn().Err(err).Str("stream", stream).Msg("error creating consumer group")
		}
	}

	go c.reclaimLoop(ctx, done)
	go c.run(ctx, done)
}

// Stop requests a cooperative shutdown and waits until the in-flight
// job, if any, completes. Outstanding network calls are never canceled.
func (c *Consumer) Stop() {
	if !atomic.CompareAndSwapInt32(&c.state, StateRunning, StateStopping) {
		return
	}
	<-c.done
}

// run is the sequential consume loop. Queue-transport failures log and
// back off; they never crash the process.
func (c *Consumer) run(ctx context.Context, done chan struct{}) {
	defer func() {
		atomic.StoreInt32(&c.state, StateStopped)
		close(done)
	}()

	c.log.Info().
		Str("consumer", c.consumer).
		Strs("streams", c.streams).
		Msg("consumer started")

	for atomic.LoadInt32(&c.state) == StateRunning {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := c.readMessages(ctx)
		if err != nil {
			if err == redis.Nil || err == context.Canceled {
				continue
			}
			c.log.Error().Err(err).Msg("error reading from streams")
			time.Sleep(c.transportBackoff)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				c.dispatch(ctx, stream.Stream, msg)
			}
		}
	}

	c.log.Info().Str("consumer", c.consumer).Msg("consumer stopped")
}

// dispatch runs the handler for one message and acknowledges it on
// success. Handler errors leave the entry pending for redelivery.
func (c *Consumer) dispatch(ctx context.Context, stream string, msg redis.XMessage) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		c.log.Warn().Str("stream", stream).Str("id", msg.ID).Msg("message without data field, acking")
		_ = c.stream.Ack(ctx, stream, msg.ID)
		return
	}

	if err := c.handler.Handle(ctx, stream, []byte(data)); err != nil {
		c.log.Error().Err(err).Str("stream", stream).Str("id", msg.ID).Msg("error processing message")
		return
	}

	if err := c.stream.Ack(ctx, stream, msg.ID); err != nil {
		c.log.Error().Err(err).Str("stream", stream).Str("id", msg.ID).Msg("error acknowledging message")
	}
}

// readMessages blocks on all streams for up to blockWait. Count is 1:
// the consumer is strictly one job at a time.
func (c *Consumer) readMessages(ctx context.Context) ([]redis.XStream, error) {
	args := make([]string, 0, len(c.streams)*2)
	args = append(args, c.streams...)
	for range c.streams {
		args = append(args, ">")
	}

	return c.stream.Client().XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.stream.Group(),
		Consumer: c.consumer,
		Streams:  args,
		Count:    1,
		Block:    c.blockWait,
	}).Result()
}

// reclaimLoop periodically claims messages stuck pending on a dead
// consumer and republishes them, preserving the one-job-at-a-time
// contract of the main loop. Entries past maxDeliveries move to the
// dead-letter stream instead.
func (c *Consumer) reclaimLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.pendingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			c.reclaimStuck(ctx)
		}
	}
}

func (c *Consumer) reclaimStuck(ctx context.Context) {
	for _, stream := range c.streams {
		pending, err := c.stream.Client().XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  c.stream.Group(),
			Start:  "-",
			End:    "+",
			Count:  100,
		}).Result()
		if err != nil {
			if err != redis.Nil {
				c.log.Error().Err(err).Str("stream", stream).Msg("error listing pending messages")
			}
			continue
		}

		for _, p := range pending {
			if p.Idle < c.pendingIdleTime {
				continue
			}

			claimed, err := c.stream.Client().XClaim(ctx, &redis.XClaimArgs{
				Stream:   stream,
				Group:    c.stream.Group(),
				Consumer: c.consumer,
				MinIdle:  c.pendingIdleTime,
				Messages: []string{p.ID},
			}).Result()
			if err != nil {
				c.log.Error().Err(err).Str("id", p.ID).Msg("error claiming message")
				continue
			}

			for _, msg := range claimed {
				target, values := c.reclaimPlan(stream, p.RetryCount, msg.Values)
				if target == StreamDLQ {
					c.log.Warn().
						Str("stream", stream).
						Str("id", msg.ID).
						Str("deliveries", values["deliveries"].(string)).
						Msg("message exceeded max deliveries, moving to DLQ")
				}

				if _, err := c.stream.Client().XAdd(ctx, &redis.XAddArgs{
					Stream: target,
					Values: values,
				}).Result(); err != nil {
					c.log.Error().Err(err).Str("id", msg.ID).Msg("error republishing claimed message")
					continue
				}
				_ = c.stream.Ack(ctx, stream, msg.ID)
			}
		}
	}
}

// reclaimPlan decides where a claimed entry goes and what it carries.
// XADD restarts the entry's delivery counter, so the running total
// rides along in a deliveries field; the DLQ cap compares against the
// total, not the reset counter.
func (c *Consumer) reclaimPlan(stream string, retryCount int64, values map[string]any) (string, map[string]any) {
	deliveries := retryCount + priorDeliveries(values)

	out := make(map[string]any, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out["deliveries"] = strconv.FormatInt(deliveries, 10)

	if int(deliveries) >= c.maxDeliveries {
		return StreamDLQ, out
	}
	return stream, out
}

// priorDeliveries reads the delivery total carried by an earlier
// republish. Absent or garbled fields count as zero.
func priorDeliveries(values map[string]any) int64 {
	raw, ok := values["deliveries"].(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
