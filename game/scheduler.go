package game

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrReentrant is returned when Tick is called from inside a tick callback.
	ErrReentrant = errors.New("reentrant tick")
	// ErrClosed is returned by operations on a closed simulation.
	ErrClosed = errors.New("simulation closed")
)

// Pipeline priorities. Lower runs first.
const (
	PriorityPointer = -2
	PriorityPhysics = -1
	PriorityField   = 0
)

// TickFunc is a per-frame callback.
type TickFunc func(dt float64) error

type tickEntry struct {
	name     string
	priority int
	seq      int
	fn       TickFunc
	removed  bool
}

// Scheduler runs named callbacks once per tick in priority order. Callbacks
// with equal priority run in registration order. Invocation is single
// threaded and never reentrant.
type Scheduler struct {
	entries []*tickEntry
	seq     int
	running bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Register adds fn under name and returns the func that removes it.
// Removing a callback during a tick takes effect before it would next run.
func (s *Scheduler) Register(name string, priority int, fn TickFunc) func() {
	s.seq++
	e := &tickEntry{name: name, priority: priority, seq: s.seq, fn: fn}
	s.entries = append(s.entries, e)
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].priority != s.entries[j].priority {
			return s.entries[i].priority < s.entries[j].priority
		}
		return s.entries[i].seq < s.entries[j].seq
	})
	return func() { s.remove(e) }
}

func (s *Scheduler) remove(e *tickEntry) {
	if e.removed {
		return
	}
	e.removed = true
	for i, other := range s.entries {
		if other == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// Tick runs every registered callback. It stops at the first error.
func (s *Scheduler) Tick(dt float64) error {
	if s.running {
		return ErrReentrant
	}
	s.running = true
	defer func() { s.running = false }()

	entries := append([]*tickEntry(nil), s.entries...)
	for _, e := range entries {
		if e.removed {
			continue
		}
		if err := e.fn(dt); err != nil {
			return fmt.Errorf("tick %s: %w", e.name, err)
		}
	}
	return nil
}

// Names returns the callback names in execution order.
func (s *Scheduler) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of registered callbacks.
func (s *Scheduler) Len() int {
	return len(s.entries)
}
