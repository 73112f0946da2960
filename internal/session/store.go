// Package session keeps the last known coordinate of every session in memory.
package session

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/observability"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]*atomic.Pointer[domain.SessionLocation]
}

// Store is an in-memory domain.SessionStore. Each session owns one record that
// is replaced whole on every write, so readers never see half an update.
type Store struct {
	shards  [shardCount]shard
	clock   clockwork.Clock
	metrics *observability.Metrics
	size    atomic.Int64
}

// NewStore creates an empty store. A nil clock means the wall clock; metrics may be nil.
func NewStore(clock clockwork.Clock, metrics *observability.Metrics) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Store{clock: clock, metrics: metrics}
	for i := range s.shards {
		s.shards[i].records = make(map[string]*atomic.Pointer[domain.SessionLocation])
	}
	return s
}

// SetLocation overwrites the session's coordinate and stamps it with the store clock.
func (s *Store) SetLocation(_ context.Context, sessionID string, c domain.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	loc := &domain.SessionLocation{
		SessionID:  sessionID,
		Coordinate: c,
		UpdatedAt:  s.clock.Now(),
	}
	s.record(sessionID).Store(loc)
	return nil
}

// GetLocation returns the stored location and whether one exists.
func (s *Store) GetLocation(_ context.Context, sessionID string) (domain.SessionLocation, bool, error) {
	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	rec, ok := sh.records[sessionID]
	sh.mu.RUnlock()
	if !ok {
		return domain.SessionLocation{}, false, nil
	}
	loc := rec.Load()
	if loc == nil {
		return domain.SessionLocation{}, false, nil
	}
	return *loc, true, nil
}

// Len returns the number of sessions with a stored location.
func (s *Store) Len() int {
	return int(s.size.Load())
}

// record returns the session's slot, creating it on first use.
func (s *Store) record(sessionID string) *atomic.Pointer[domain.SessionLocation] {
	sh := s.shardFor(sessionID)

	sh.mu.RLock()
	rec, ok := sh.records[sessionID]
	sh.mu.RUnlock()
	if ok {
		return rec
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if rec, ok = sh.records[sessionID]; ok {
		return rec
	}
	rec = &atomic.Pointer[domain.SessionLocation]{}
	sh.records[sessionID] = rec
	n := s.size.Add(1)
	if s.metrics != nil {
		s.metrics.SessionsTracked.Set(float64(n))
	}
	return rec
}

func (s *Store) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(sessionID)) //nolint:errcheck // hash writes never fail
	return &s.shards[h.Sum32()%shardCount]
}
