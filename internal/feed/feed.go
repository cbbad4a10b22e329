package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
	"github.com/developerxnoxs/xnoxs-feed/internal/scheduler"
)

// Errors
var (
	ErrShuttingDown  = errors.New("feed is shutting down")
	ErrNotSubscribed = errors.New("subscription not registered with this feed")
	ErrNotAttached   = errors.New("consumer not attached")
	ErrNoData        = errors.New("no bars returned")
	ErrAlreadyOwned  = errors.New("subscription already owned by another feed")
)

// BarSource is the one-shot fetch the feed refreshes streams with.
// Satisfied by *fetch.Client.
type BarSource interface {
	GetBars(symbol, exchange string, tf model.Timeframe, n int) ([]model.Bar, error)
}

// Config tunes the live feed.
type Config struct {
	// RetryLimit bounds consecutive stale or failed refreshes for one
	// stream before the whole feed is shut down.
	RetryLimit int
	// RetryDelay is the fixed pause between refresh attempts.
	RetryDelay time.Duration
	// SeedBars is how many bars each fetch requests. The newest closed
	// bar is the first of them.
	SeedBars int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RetryLimit: 50,
		RetryDelay: 100 * time.Millisecond,
		SeedBars:   2,
	}
}

// LiveFeed owns the subscription registry and the refresh orchestrator.
//
// All registry mutations are serialized with refresh servicing behind one
// lock, so a subscribe or unsubscribe observed mid-cycle takes effect on
// the next cycle.
type LiveFeed struct {
	cfg    Config
	source BarSource
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)

	mu       sync.Mutex
	sched    *scheduler.Schedule
	subs     map[streamKey]*Subscription
	running  bool
	loopDone chan struct{}
}

// New creates a live feed over the given bar source.
func New(cfg Config, source BarSource, logger *slog.Logger) *LiveFeed {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = DefaultConfig().RetryLimit
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.SeedBars <= 0 {
		cfg.SeedBars = DefaultConfig().SeedBars
	}
	return &LiveFeed{
		cfg:    cfg,
		source: source,
		logger: logger,
		sleep:  time.Sleep,
		sched:  scheduler.New(logger),
		subs:   make(map[streamKey]*Subscription),
	}
}

// Subscribe registers a stream. Subscribing an already registered stream
// returns the existing subscription unchanged. The stream is seeded with
// an immediate fetch so the first scheduled refresh only delivers bars
// newer than the seed.
func (f *LiveFeed) Subscribe(symbol, exchange string, tf model.Timeframe) (*Subscription, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("invalid timeframe %q", tf)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running && f.sched.IsShutdown() {
		return nil, ErrShuttingDown
	}

	k := streamKey{symbol: symbol, exchange: exchange, tf: tf}
	if sub, ok := f.subs[k]; ok {
		f.logger.Debug("already subscribed", "stream", sub.String())
		return sub, nil
	}

	bars, err := f.source.GetBars(symbol, exchange, tf, f.cfg.SeedBars)
	if err != nil {
		return nil, fmt.Errorf("seed %s:%s: %w", exchange, symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s:%s", ErrNoData, exchange, symbol)
	}

	sub := newSubscription(symbol, exchange, tf)
	if err := sub.attach(f); err != nil {
		return nil, err
	}
	sub.markSeen(bars[0].Time)

	// The trailing bar is still forming; its open time marks the current
	// interval boundary, so the first trigger lands on the next boundary,
	// where a newly completed bar exists.
	referenceTime := bars[len(bars)-1].Time

	if !f.running && f.sched.IsShutdown() {
		// The previous run ended; start over with a fresh schedule.
		f.sched = scheduler.New(f.logger)
	}
	f.sched.Add(sub, referenceTime)
	f.subs[k] = sub
	f.ensureLoopLocked()

	f.logger.Info("subscribed",
		"stream", sub.String(),
		"seed_time", bars[0].Time,
	)
	return sub, nil
}

// Unsubscribe removes a stream, stopping its consumers. Their queued bars
// still drain before the consumer goroutines exit. Removing the last
// stream shuts the feed down.
func (f *LiveFeed) Unsubscribe(sub *Subscription) error {
	f.mu.Lock()
	k := sub.key()
	if f.subs[k] != sub {
		f.mu.Unlock()
		return ErrNotSubscribed
	}

	for _, c := range sub.Consumers() {
		_ = sub.removeConsumer(c)
		c.stop()
	}
	_ = f.sched.Remove(sub)
	sub.detach()
	delete(f.subs, k)

	empty := len(f.subs) == 0
	sched := f.sched
	f.mu.Unlock()

	f.logger.Info("unsubscribed", "stream", sub.String())
	if empty {
		sched.RequestShutdown()
	}
	return nil
}

// AttachConsumer registers a callback for a subscribed stream and starts
// its delivery goroutine.
func (f *LiveFeed) AttachConsumer(sub *Subscription, fn ConsumerFunc) (*Consumer, error) {
	if fn == nil {
		return nil, errors.New("nil consumer callback")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs[sub.key()] != sub {
		return nil, ErrNotSubscribed
	}

	c := newConsumer(sub, fn, f.logger)
	sub.addConsumer(c)
	go c.run()

	f.logger.Debug("consumer attached",
		"stream", sub.String(),
		"consumer", c.ID(),
	)
	return c, nil
}

// DetachConsumer removes a consumer from its stream. The consumer drains
// bars already queued, then stops.
func (f *LiveFeed) DetachConsumer(c *Consumer) error {
	f.mu.Lock()
	err := c.sub.removeConsumer(c)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	c.stop()
	f.logger.Debug("consumer detached",
		"stream", c.sub.String(),
		"consumer", c.ID(),
	)
	return nil
}

// Subscriptions returns a snapshot of the registered streams.
func (f *LiveFeed) Subscriptions() []*Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		out = append(out, sub)
	}
	return out
}

// Len returns the number of registered streams.
func (f *LiveFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Shutdown stops the feed and blocks until the orchestrator has exited
// and every consumer has drained. Idempotent.
func (f *LiveFeed) Shutdown() {
	f.mu.Lock()
	done := f.loopDone
	sched := f.sched
	f.mu.Unlock()

	if done == nil {
		return
	}

	f.logger.Info("feed shutdown requested")
	sched.RequestShutdown()
	<-done
}

// Wait blocks until the feed stops, whether by Shutdown, by unsubscribing
// the last stream, or by the staleness ceiling.
func (f *LiveFeed) Wait() {
	f.mu.Lock()
	done := f.loopDone
	f.mu.Unlock()

	if done != nil {
		<-done
	}
}

// ensureLoopLocked starts the orchestrator if it is not already running.
func (f *LiveFeed) ensureLoopLocked() {
	if f.running {
		return
	}
	f.running = true
	f.loopDone = make(chan struct{})
	go f.run(f.sched, f.loopDone)
}

// run is the orchestrator loop: wait for a due bucket, refresh its
// members, fan fresh bars out, repeat until shutdown, then tear down.
func (f *LiveFeed) run(sched *scheduler.Schedule, done chan struct{}) {
	defer close(done)
	f.logger.Info("live feed started")

	for sched.WaitForDue() {
		f.mu.Lock()
		for _, group := range sched.DrainDue() {
			for _, e := range group.Entries {
				sub, ok := e.(*Subscription)
				if !ok {
					continue
				}
				f.refreshLocked(sched, sub)
				if sched.IsShutdown() {
					break
				}
			}
			if sched.IsShutdown() {
				break
			}
		}
		f.mu.Unlock()
	}

	f.teardown(sched)
	f.logger.Info("live feed stopped")
}

// refreshLocked fetches the latest bars for one stream until a bar newer
// than the last delivery arrives, then fans it out. Exhausting the retry
// budget on stale data is fatal for the whole feed.
func (f *LiveFeed) refreshLocked(sched *scheduler.Schedule, sub *Subscription) {
	for attempt := 1; attempt <= f.cfg.RetryLimit; attempt++ {
		bars, err := f.source.GetBars(sub.Symbol(), sub.Exchange(), sub.Timeframe(), f.cfg.SeedBars)
		switch {
		case err != nil:
			f.logger.Warn("refresh failed",
				"stream", sub.String(),
				"attempt", attempt,
				"error", err,
			)
		case len(bars) == 0:
			f.logger.Warn("refresh returned no bars",
				"stream", sub.String(),
				"attempt", attempt,
			)
		case sub.markSeen(bars[0].Time):
			bar := bars[0]
			for _, c := range sub.Consumers() {
				c.enqueue(bar)
			}
			f.logger.Debug("bar delivered",
				"stream", sub.String(),
				"bar_time", bar.Time,
				"consumers", sub.ConsumerCount(),
			)
			return
		}
		f.sleep(f.cfg.RetryDelay)
	}

	f.logger.Error("no fresh data within retry limit, shutting down",
		"stream", sub.String(),
		"attempts", f.cfg.RetryLimit,
	)
	sched.RequestShutdown()
}

// teardown stops every consumer, clears the registry, and waits for the
// consumer goroutines to drain.
func (f *LiveFeed) teardown(sched *scheduler.Schedule) {
	f.mu.Lock()
	var stopped []*Consumer
	for k, sub := range f.subs {
		for _, c := range sub.Consumers() {
			_ = sub.removeConsumer(c)
			c.stop()
			stopped = append(stopped, c)
		}
		_ = sched.Remove(sub)
		sub.detach()
		delete(f.subs, k)
	}
	f.running = false
	f.mu.Unlock()

	for _, c := range stopped {
		<-c.Done()
	}
}
