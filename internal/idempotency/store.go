// Package idempotency guarantees at-most-one settlement per transaction id.
// The store is an atomic get-or-create keyed by the id: the first caller
// claims the key and computes the result, concurrent callers with the same
// id block until it is stored, later callers replay it without side effects.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "settlement"

type entry struct {
	done      chan struct{}
	result    domain.TransactionResult
	completed bool
	expiresAt time.Time
}

// Store holds settlement results for the retention window. Redis, when
// configured, caches finalized results under the same TTL so replays
// survive a process restart; the in-memory map is the authority for
// in-flight claims within the process.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	redis   redis.Cmdable
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates a store with the given retention TTL. rdb may be nil.
func NewStore(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries: make(map[string]*entry),
		redis:   rdb,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Do returns the stored result for transactionID, or claims the id and
// runs fn exactly once to produce it. replayed reports whether the result
// came from a previous submission. An fn error releases the claim without
// storing anything, so the id stays usable for a retry.
func (s *Store) Do(ctx context.Context, transactionID string, fn func(context.Context) (domain.TransactionResult, error)) (domain.TransactionResult, bool, error) {
	if cached, ok := s.lookupRedis(ctx, transactionID); ok {
		s.storeCompleted(transactionID, cached)
		return cached, true, nil
	}

	for {
		s.mu.Lock()
		e, ok := s.entries[transactionID]
		if ok && e.completed && s.now().After(e.expiresAt) {
			// Retention window elapsed: treat as a fresh transaction.
			delete(s.entries, transactionID)
			ok = false
		}
		if !ok {
			e = &entry{done: make(chan struct{})}
			s.entries[transactionID] = e
			s.mu.Unlock()
			return s.run(ctx, transactionID, e, fn)
		}
		if e.completed {
			s.mu.Unlock()
			return e.result, true, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.TransactionResult{}, false, ctx.Err()
		case <-e.done:
			s.mu.Lock()
			completed, result := e.completed, e.result
			s.mu.Unlock()
			if completed {
				return result, true, nil
			}
			// The claimant failed without storing; race to claim again.
		}
	}
}

func (s *Store) run(ctx context.Context, transactionID string, e *entry, fn func(context.Context) (domain.TransactionResult, error)) (domain.TransactionResult, bool, error) {
	result, err := fn(ctx)

	s.mu.Lock()
	if err != nil {
		delete(s.entries, transactionID)
	} else {
		e.result = result
		e.completed = true
		e.expiresAt = s.now().Add(s.ttl)
	}
	close(e.done)
	s.mu.Unlock()

	if err != nil {
		return domain.TransactionResult{}, false, err
	}
	s.cacheRedis(ctx, transactionID, result)
	return result, false, nil
}

// Sweep drops completed records past their retention window and returns
// how many were removed. In-flight claims are never touched.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if e.completed && now.After(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports how many records are currently retained.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) storeCompleted(transactionID string, result domain.TransactionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[transactionID]; exists {
		return
	}
	e := &entry{done: make(chan struct{}), result: result, completed: true, expiresAt: s.now().Add(s.ttl)}
	close(e.done)
	s.entries[transactionID] = e
}

func (s *Store) lookupRedis(ctx context.Context, transactionID string) (domain.TransactionResult, bool) {
	if s.redis == nil {
		return domain.TransactionResult{}, false
	}
	val, err := s.redis.Get(ctx, redisKey(transactionID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("idempotency redis lookup failed", zap.Error(err))
		}
		return domain.TransactionResult{}, false
	}
	var result domain.TransactionResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		s.logger.Warn("idempotency redis envelope corrupt", zap.Error(err))
		return domain.TransactionResult{}, false
	}
	return result, true
}

func (s *Store) cacheRedis(ctx context.Context, transactionID string, result domain.TransactionResult) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("idempotency redis marshal failed", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(transactionID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn("idempotency redis cache set failed", zap.Error(err))
	}
}

func redisKey(transactionID string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, transactionID)
}
