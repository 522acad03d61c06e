package spillqueue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/debughub/probe/event"
)

// envelope wraps a spilled event with the time it was written, so that
// retention can be enforced without trusting the event's own timestamp.
type envelope struct {
	SpilledAt time.Time        `json:"spilledAt"`
	Event     event.DebugEvent `json:"event"`
}

func decodeEnvelope(b []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(b, &env)
	return env, err
}

// Config governs a Queue's on-disk limits.
type Config struct {
	Path            string
	MaxSize         int
	RetentionPeriod time.Duration
}

// Queue is a durable, append-only FIFO of spilled events. All operations
// are serialized by mu; the backing file is reopened (truncated and
// rewritten) whenever eviction or dequeue rewrites the segment.
type Queue struct {
	mu   sync.Mutex
	cfg  Config
	file *os.File
	// items mirrors the on-disk record order in memory so reads never hit
	// the filesystem; appends write through to disk before being visible.
	items []envelope
}

// Open opens or creates the segment file at cfg.Path, replays it, evicts
// anything older than cfg.RetentionPeriod, and truncates a trailing
// partial record left by a crash mid-append.
func Open(cfg Config) (*Queue, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, err
	}

	items, err := scanSegment(cfg.Path, decodeEnvelope)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}

	q := &Queue{cfg: cfg, file: f, items: items}
	if err := q.evictExpiredLocked(time.Now()); err != nil {
		f.Close()
		return nil, err
	}
	if err := q.rewriteLocked(); err != nil {
		f.Close()
		return nil, err
	}
	return q, nil
}

// Close releases the underlying file handle.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.file.Close()
}

// Enqueue appends a batch of events to the segment file, then evicts the
// oldest records past cfg.RetentionPeriod or cfg.MaxSize.
func (q *Queue) Enqueue(batch []event.DebugEvent) error {
	if len(batch) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for _, ev := range batch {
		q.items = append(q.items, envelope{SpilledAt: now, Event: ev})
		if err := writeRecord(q.file, q.items[len(q.items)-1]); err != nil {
			return err
		}
	}
	if err := q.evictExpiredLocked(now); err != nil {
		return err
	}
	return q.enforceMaxSizeLocked()
}

// DequeueBatch removes and returns up to maxCount of the oldest records.
func (q *Queue) DequeueBatch(maxCount int) ([]event.DebugEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if maxCount <= 0 || len(q.items) == 0 {
		return nil, nil
	}
	if maxCount > len(q.items) {
		maxCount = len(q.items)
	}
	out := make([]event.DebugEvent, maxCount)
	for i := 0; i < maxCount; i++ {
		out[i] = q.items[i].Event
	}
	q.items = append(q.items[:0:0], q.items[maxCount:]...)
	return out, q.rewriteLocked()
}

// QueueCount returns the number of records currently held.
func (q *Queue) QueueCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) evictExpiredLocked(now time.Time) error {
	if q.cfg.RetentionPeriod <= 0 {
		return nil
	}
	cutoff := now.Add(-q.cfg.RetentionPeriod)
	i := 0
	for i < len(q.items) && q.items[i].SpilledAt.Before(cutoff) {
		i++
	}
	if i == 0 {
		return nil
	}
	q.items = append(q.items[:0:0], q.items[i:]...)
	return nil
}

func (q *Queue) enforceMaxSizeLocked() error {
	if len(q.items) <= q.cfg.MaxSize {
		return nil
	}
	overflow := len(q.items) - q.cfg.MaxSize
	q.items = append(q.items[:0:0], q.items[overflow:]...)
	return q.rewriteLocked()
}

// rewriteLocked rewrites the segment file from the in-memory item list.
// It is the simplest way to keep on-disk state consistent with eviction
// and dequeue without tracking per-record byte offsets; segments are
// capped by cfg.MaxSize, so the rewrite cost stays bounded.
func (q *Queue) rewriteLocked() error {
	if err := q.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(q.cfg.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	for _, env := range q.items {
		if err := writeRecord(f, env); err != nil {
			f.Close()
			return err
		}
	}
	q.file = f
	return nil
}
