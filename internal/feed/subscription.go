package feed

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
)

// streamKey identifies one subscribed stream.
type streamKey struct {
	symbol   string
	exchange string
	tf       model.Timeframe
}

// Subscription is one registered (symbol, exchange, timeframe) stream.
// It tracks the timestamp of the last bar delivered and the consumers
// fanned out to on each fresh bar. A subscription belongs to at most one
// feed at a time.
type Subscription struct {
	symbol   string
	exchange string
	tf       model.Timeframe

	mu        sync.Mutex
	feed      *LiveFeed
	consumers []*Consumer
	lastSeen  time.Time
	hasSeen   bool
}

func newSubscription(symbol, exchange string, tf model.Timeframe) *Subscription {
	return &Subscription{symbol: symbol, exchange: exchange, tf: tf}
}

// Symbol returns the bare symbol, without the exchange prefix.
func (s *Subscription) Symbol() string { return s.symbol }

// Exchange returns the exchange the symbol trades on.
func (s *Subscription) Exchange() string { return s.exchange }

// Timeframe returns the bar interval of this stream.
func (s *Subscription) Timeframe() model.Timeframe { return s.tf }

func (s *Subscription) String() string {
	return fmt.Sprintf("%s:%s@%s", s.exchange, s.symbol, s.tf)
}

func (s *Subscription) key() streamKey {
	return streamKey{symbol: s.symbol, exchange: s.exchange, tf: s.tf}
}

// LastSeen returns the timestamp of the newest bar observed, if any.
func (s *Subscription) LastSeen() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.hasSeen
}

// markSeen records t as the newest observed bar time. Returns false when t
// matches the previous observation, meaning the fetch returned stale data.
func (s *Subscription) markSeen(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasSeen && s.lastSeen.Equal(t) {
		return false
	}
	s.lastSeen = t
	s.hasSeen = true
	return true
}

// attach binds the subscription to its owning feed.
func (s *Subscription) attach(f *LiveFeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feed != nil && s.feed != f {
		return ErrAlreadyOwned
	}
	s.feed = f
	return nil
}

func (s *Subscription) detach() {
	s.mu.Lock()
	s.feed = nil
	s.mu.Unlock()
}

func (s *Subscription) addConsumer(c *Consumer) {
	s.mu.Lock()
	s.consumers = append(s.consumers, c)
	s.mu.Unlock()
}

func (s *Subscription) removeConsumer(c *Consumer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.consumers, c)
	if idx < 0 {
		return ErrNotAttached
	}
	s.consumers = slices.Delete(s.consumers, idx, idx+1)
	return nil
}

// Consumers returns a snapshot of the attached consumers.
func (s *Subscription) Consumers() []*Consumer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.consumers)
}

// ConsumerCount returns the number of attached consumers.
func (s *Subscription) ConsumerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.consumers)
}
