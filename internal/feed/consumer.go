package feed

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
)

// ConsumerState is the lifecycle state of a consumer goroutine.
type ConsumerState int32

const (
	ConsumerRunning ConsumerState = iota
	ConsumerStopped
)

func (s ConsumerState) String() string {
	switch s {
	case ConsumerRunning:
		return "running"
	case ConsumerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConsumerFunc handles one delivered bar. It runs on the consumer's own
// goroutine and must not be shared with other consumers unless it is
// safe for concurrent use.
type ConsumerFunc func(sub *Subscription, bar model.Bar)

// Consumer drains one subscription's bar queue on a dedicated goroutine.
// A callback panic detaches the consumer from its subscription and stops
// it, leaving sibling consumers and the orchestrator untouched.
type Consumer struct {
	id     uuid.UUID
	sub    *Subscription
	handle ConsumerFunc
	queue  *barQueue
	logger *slog.Logger

	state atomic.Int32
	done  chan struct{}
}

func newConsumer(sub *Subscription, fn ConsumerFunc, logger *slog.Logger) *Consumer {
	return &Consumer{
		id:     uuid.New(),
		sub:    sub,
		handle: fn,
		queue:  newBarQueue(),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// ID returns the consumer's unique identity.
func (c *Consumer) ID() uuid.UUID { return c.id }

// Subscription returns the stream this consumer is attached to.
func (c *Consumer) Subscription() *Subscription { return c.sub }

// State reports whether the consumer goroutine is still running.
func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// Done is closed once the consumer goroutine has exited.
func (c *Consumer) Done() <-chan struct{} { return c.done }

// Pending returns the number of undelivered bars in the queue.
func (c *Consumer) Pending() int { return c.queue.Len() }

// enqueue hands a bar to the consumer without blocking.
func (c *Consumer) enqueue(b model.Bar) bool {
	return c.queue.Send(b)
}

// stop closes the queue; the goroutine drains what is left and exits.
func (c *Consumer) stop() {
	c.queue.Close()
}

func (c *Consumer) run() {
	defer close(c.done)
	defer c.state.Store(int32(ConsumerStopped))

	for {
		bar, ok := c.queue.Receive()
		if !ok {
			return
		}
		if !c.deliver(bar) {
			// Failing consumers are removed after the one bad delivery.
			c.queue.Close()
			_ = c.sub.removeConsumer(c)
			return
		}
	}
}

func (c *Consumer) deliver(bar model.Bar) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("consumer callback panicked, detaching",
				"consumer", c.id,
				"stream", c.sub.String(),
				"panic", r,
			)
			ok = false
		}
	}()

	c.handle(c.sub, bar)
	return true
}
