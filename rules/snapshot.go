package rules

import (
	"sort"
	"sync"
	"sync/atomic"
)

// snapshotStore holds a generically-typed, priority-sorted rule list
// behind an atomically swapped pointer. Writers take mu to serialize
// updates; readers load the current snapshot without blocking, so
// matching never contends with a concurrent update.
type snapshotStore[T any] struct {
	mu       sync.Mutex
	v        atomic.Value
	priority func(T) int
	id       func(T) string
}

func newSnapshotStore[T any](priority func(T) int, id func(T) string) *snapshotStore[T] {
	s := &snapshotStore[T]{priority: priority, id: id}
	s.v.Store([]T{})
	return s
}

// sorted returns a freshly sorted copy of list, ties broken by input order
// (sort.SliceStable).
func (s *snapshotStore[T]) sorted(list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return s.priority(out[i]) > s.priority(out[j])
	})
	return out
}

// update replaces the entire list with a freshly sorted snapshot.
func (s *snapshotStore[T]) update(list []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Store(s.sorted(list))
}

// add appends or replaces a rule by id, then re-sorts.
func (s *snapshotStore[T]) add(rule T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	next := make([]T, 0, len(cur)+1)
	replaced := false
	for _, r := range cur {
		if s.id(r) == s.id(rule) {
			next = append(next, rule)
			replaced = true
			continue
		}
		next = append(next, r)
	}
	if !replaced {
		next = append(next, rule)
	}
	s.v.Store(s.sorted(next))
}

// remove drops the rule with the given id, if present.
func (s *snapshotStore[T]) remove(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	next := make([]T, 0, len(cur))
	for _, r := range cur {
		if s.id(r) != ruleID {
			next = append(next, r)
		}
	}
	s.v.Store(next)
}

// clear empties the list.
func (s *snapshotStore[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Store([]T{})
}

// load returns the current snapshot without locking; callers must not
// mutate the returned slice in place.
func (s *snapshotStore[T]) load() []T {
	return s.v.Load().([]T)
}

// get returns a defensive copy of the current snapshot.
func (s *snapshotStore[T]) get() []T {
	cur := s.load()
	out := make([]T, len(cur))
	copy(out, cur)
	return out
}
