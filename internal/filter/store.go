// Package filter holds the dashboard's committed and draft date ranges.
package filter

import (
	"sync"

	"github.com/newthinker/gridlens/internal/core"
)

// DefaultRange is the range every dashboard starts with unless configured otherwise.
var DefaultRange = core.DateRange{Start: "2010-06-01", End: "2011-01-01"}

// Listener is called with the newly committed range.
type Listener func(core.DateRange)

// Store holds the committed range, which drives fetches, and the draft
// range being edited. Only Commit notifies listeners.
type Store struct {
	mu        sync.RWMutex
	committed core.DateRange
	draft     core.DateRange
	listeners map[int]Listener
	nextID    int
	commits   int
}

// NewStore seeds both ranges with initial.
func NewStore(initial core.DateRange) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		committed: initial,
		draft:     initial,
		listeners: make(map[int]Listener),
	}, nil
}

// Committed returns the range currently driving fetches.
func (s *Store) Committed() core.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// Draft returns the range being edited.
func (s *Store) Draft() core.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// SetDraft replaces the draft range. The committed range is untouched.
func (s *Store) SetDraft(r core.DateRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.draft = r
	s.mu.Unlock()
	return nil
}

// EditDraft replaces whichever bounds are non-empty in one step. The draft
// is left untouched when either bound is malformed.
func (s *Store) EditDraft(start, end string) (core.DateRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.draft
	if start != "" {
		r.Start = start
	}
	if end != "" {
		r.End = end
	}
	if err := r.Validate(); err != nil {
		return s.draft, err
	}
	s.draft = r
	return r, nil
}

// SetDraftStart edits only the draft start date.
func (s *Store) SetDraftStart(start string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := core.DateRange{Start: start, End: s.draft.End}
	if err := r.Validate(); err != nil {
		return err
	}
	s.draft = r
	return nil
}

// SetDraftEnd edits only the draft end date.
func (s *Store) SetDraftEnd(end string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := core.DateRange{Start: s.draft.Start, End: end}
	if err := r.Validate(); err != nil {
		return err
	}
	s.draft = r
	return nil
}

// Commit copies draft into committed and notifies every listener. Listeners
// run synchronously, outside the lock, in subscription order.
func (s *Store) Commit() core.DateRange {
	s.mu.Lock()
	s.committed = s.draft
	s.commits++
	committed := s.committed
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(committed)
	}
	return committed
}

// Commits returns how many times Commit has run.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Subscribe registers l for future commits. The returned func unsubscribes.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
