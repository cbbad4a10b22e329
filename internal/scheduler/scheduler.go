package scheduler

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
)

// Errors
var (
	ErrNotTracked = errors.New("entry not tracked by scheduler")
)

// Entry is one schedulable stream registration.
type Entry interface {
	Timeframe() model.Timeframe
}

// DueGroup is one fired bucket: the timeframe and its members.
type DueGroup struct {
	Timeframe model.Timeframe
	Entries   []Entry
}

// wakeCause tells a blocked WaitForDue why it was woken.
type wakeCause int

const (
	wakeScheduleChanged wakeCause = iota
	wakeShutdown
)

// bucket groups all entries sharing one timeframe behind a single trigger.
type bucket struct {
	members     []Entry
	nextTrigger time.Time
}

// Schedule tracks interval buckets and the global wake time.
type Schedule struct {
	logger *slog.Logger

	// now is swapped out in tests for virtual time.
	now func() time.Time

	mu       sync.Mutex
	buckets  map[model.Timeframe]*bucket
	shutdown bool

	wake chan wakeCause
}

// New creates an empty schedule.
func New(logger *slog.Logger) *Schedule {
	if logger == nil {
		logger = slog.Default()
	}
	return &Schedule{
		logger:  logger,
		now:     time.Now,
		buckets: make(map[model.Timeframe]*bucket),
		wake:    make(chan wakeCause, 1),
	}
}

// Add registers an entry. The first entry of a timeframe creates its bucket
// with nextTrigger = referenceTime + interval; later entries join without
// touching the trigger. A changed global wake time interrupts any waiter.
func (s *Schedule) Add(e Entry, referenceTime time.Time) {
	tf := e.Timeframe()

	s.mu.Lock()
	oldWake, hadWake := s.nextWakeLocked()

	b, ok := s.buckets[tf]
	if ok {
		b.members = append(b.members, e)
		s.mu.Unlock()
		return
	}

	b = &bucket{
		members:     []Entry{e},
		nextTrigger: tf.NextAfter(referenceTime),
	}
	s.buckets[tf] = b

	newWake, _ := s.nextWakeLocked()
	changed := !hadWake || !newWake.Equal(oldWake)
	s.mu.Unlock()

	s.logger.Debug("bucket created",
		"timeframe", tf,
		"next_trigger", b.nextTrigger,
	)

	if changed {
		s.signal(wakeScheduleChanged)
	}
}

// Remove drops an entry from its bucket; an emptied bucket is discarded
// immediately. A changed global wake time interrupts any waiter unless a
// shutdown is in progress.
func (s *Schedule) Remove(e Entry) error {
	tf := e.Timeframe()

	s.mu.Lock()
	b, ok := s.buckets[tf]
	if !ok {
		s.mu.Unlock()
		return ErrNotTracked
	}
	idx := slices.Index(b.members, e)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotTracked
	}

	oldWake, _ := s.nextWakeLocked()

	b.members = slices.Delete(b.members, idx, idx+1)
	if len(b.members) == 0 {
		delete(s.buckets, tf)
	}

	newWake, hasWake := s.nextWakeLocked()
	changed := !hasWake || !newWake.Equal(oldWake)
	shuttingDown := s.shutdown
	s.mu.Unlock()

	if changed && !shuttingDown {
		s.signal(wakeScheduleChanged)
	}
	return nil
}

// WaitForDue blocks until the global wake time elapses. A schedule-changed
// wake re-evaluates the new wake time and keeps waiting. Returns false once
// a shutdown was requested, without blocking on later calls.
func (s *Schedule) WaitForDue() bool {
	for {
		s.mu.Lock()
		if s.shutdown {
			s.mu.Unlock()
			return false
		}
		next, ok := s.nextWakeLocked()
		now := s.now()
		s.mu.Unlock()

		if !ok {
			// Nothing scheduled: sleep until the schedule changes.
			if <-s.wake == wakeShutdown {
				return false
			}
			continue
		}

		wait := next.Sub(now)
		if wait <= 0 {
			return true
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			return true
		case cause := <-s.wake:
			timer.Stop()
			if cause == wakeShutdown {
				return false
			}
			// Schedule changed: loop and re-evaluate.
		}
	}
}

// DrainDue advances every elapsed bucket by its interval and returns the
// fired groups, ordered by timeframe for determinism.
func (s *Schedule) DrainDue() []DueGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	keys := make([]model.Timeframe, 0, len(s.buckets))
	for tf := range s.buckets {
		keys = append(keys, tf)
	}
	slices.Sort(keys)

	var due []DueGroup
	for _, tf := range keys {
		b := s.buckets[tf]
		if now.Before(b.nextTrigger) {
			continue
		}
		b.nextTrigger = tf.NextAfter(b.nextTrigger)
		due = append(due, DueGroup{
			Timeframe: tf,
			Entries:   slices.Clone(b.members),
		})
	}
	return due
}

// RequestShutdown marks the schedule shut down and wakes any waiter.
// Idempotent.
func (s *Schedule) RequestShutdown() {
	s.mu.Lock()
	already := s.shutdown
	s.shutdown = true
	s.mu.Unlock()

	if !already {
		s.logger.Debug("scheduler shutdown requested")
	}
	s.signal(wakeShutdown)
}

// IsShutdown reports whether a shutdown has been requested.
func (s *Schedule) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// NextWake returns the global wake time, or false when no buckets exist.
func (s *Schedule) NextWake() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextWakeLocked()
}

// Entries returns the flat view over all tracked entries.
func (s *Schedule) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []Entry
	for _, b := range s.buckets {
		all = append(all, b.members...)
	}
	return all
}

// Len returns the number of tracked entries.
func (s *Schedule) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, b := range s.buckets {
		n += len(b.members)
	}
	return n
}

// Timeframes returns the set of bucketed intervals.
func (s *Schedule) Timeframes() []model.Timeframe {
	s.mu.Lock()
	defer s.mu.Unlock()

	tfs := make([]model.Timeframe, 0, len(s.buckets))
	for tf := range s.buckets {
		tfs = append(tfs, tf)
	}
	slices.Sort(tfs)
	return tfs
}

// nextWakeLocked computes the minimum trigger over non-empty buckets.
func (s *Schedule) nextWakeLocked() (time.Time, bool) {
	var minTrigger time.Time
	found := false
	for _, b := range s.buckets {
		if !found || b.nextTrigger.Before(minTrigger) {
			minTrigger = b.nextTrigger
			found = true
		}
	}
	return minTrigger, found
}

// signal delivers a wake cause without blocking. A shutdown signal displaces
// a pending schedule-changed signal so it is never lost behind one.
func (s *Schedule) signal(cause wakeCause) {
	select {
	case s.wake <- cause:
		return
	default:
	}
	if cause == wakeShutdown {
		select {
		case <-s.wake:
		default:
		}
		select {
		case s.wake <- cause:
		default:
		}
	}
}
