// Package session keeps in-progress admin drafts for the lifetime of the
// process. Nothing survives a restart.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/broshop/broshop/internal/bot/workflow"
)

// Store holds at most one draft per administrator identity. Operations for
// one administrator are serialized through Do; different administrators
// never contend with each other beyond the brief map access.
type Store struct {
	mu     sync.Mutex
	drafts map[int64]*workflow.Draft
	locks  map[int64]*sync.Mutex

	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		drafts: make(map[int64]*workflow.Draft),
		locks:  make(map[int64]*sync.Mutex),
		logger: logger,
	}
}

// Get returns the administrator's draft, if any.
func (s *Store) Get(adminID int64) (*workflow.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[adminID]
	return d, ok
}

// Put stores the draft, replacing any previous one, and refreshes its
// activity timestamp.
func (s *Store) Put(adminID int64, d *workflow.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.LastActive = time.Now()
	s.drafts[adminID] = d
}

// Clear removes the administrator's draft.
func (s *Store) Clear(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, adminID)
}

// Do runs fn while holding the administrator's private lock, serializing
// concurrent messages from the same administrator.
func (s *Store) Do(adminID int64, fn func()) {
	s.mu.Lock()
	lock, ok := s.locks[adminID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[adminID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}

// Janitor evicts drafts idle longer than maxIdle, checking every interval.
// It blocks until ctx is cancelled and does nothing when maxIdle is zero.
func (s *Store) Janitor(ctx context.Context, interval, maxIdle time.Duration) error {
	if maxIdle <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.evictIdle(maxIdle)
		}
	}
}

// evictIdle removes drafts idle beyond the cutoff. LastActive is only ever
// written under s.mu (by Put), so the scan may run without the per-admin
// locks; the eviction itself goes through Do so it cannot interleave with a
// conversation step that is mutating the same draft.
func (s *Store) evictIdle(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var stale []int64
	for adminID, d := range s.drafts {
		if d.LastActive.Before(cutoff) {
			stale = append(stale, adminID)
		}
	}
	s.mu.Unlock()

	for _, adminID := range stale {
		s.Do(adminID, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			d, ok := s.drafts[adminID]
			if !ok || !d.LastActive.Before(cutoff) {
				return
			}
			delete(s.drafts, adminID)
			if s.logger != nil {
				s.logger.Info("evicted idle draft", slog.Int64("admin_id", adminID), slog.String("state", d.State.String()))
			}
		})
	}
}
