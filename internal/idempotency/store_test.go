package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedFn(counter *int32) func(context.Context) (domain.TransactionResult, error) {
	return func(context.Context) (domain.TransactionResult, error) {
		atomic.AddInt32(counter, 1)
		return domain.Approved("tx-1"), nil
	}
}

func TestDo_RunsOnceAndReplays(t *testing.T) {
	s := NewStore(nil, time.Hour, nil)
	var calls int32

	result, replayed, err := s.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, domain.StatusApproved, result.Status)

	result, replayed, err = s.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, domain.StatusApproved, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ConcurrentSameID(t *testing.T) {
	s := NewStore(nil, time.Hour, nil)
	var calls int32

	fn := func(ctx context.Context) (domain.TransactionResult, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return domain.Approved("tx-1"), nil
	}

	const racers = 16
	var wg sync.WaitGroup
	results := make([]domain.TransactionResult, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, _, err := s.Do(context.Background(), "tx-1", fn)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, result := range results {
		assert.Equal(t, domain.StatusApproved, result.Status)
	}
}

func TestDo_ErrorReleasesClaim(t *testing.T) {
	s := NewStore(nil, time.Hour, nil)

	_, _, err := s.Do(context.Background(), "tx-1", func(context.Context) (domain.TransactionResult, error) {
		return domain.TransactionResult{}, errors.New("store down")
	})
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())

	// The id is immediately reusable.
	result, replayed, err := s.Do(context.Background(), "tx-1", func(context.Context) (domain.TransactionResult, error) {
		return domain.Approved("tx-1"), nil
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, domain.StatusApproved, result.Status)
}

func TestDo_StoresDeclines(t *testing.T) {
	s := NewStore(nil, time.Hour, nil)
	var calls int32

	fn := func(context.Context) (domain.TransactionResult, error) {
		atomic.AddInt32(&calls, 1)
		return domain.Declined("tx-1", domain.CodeInsufficientFunds, "balance does not cover the amount"), nil
	}

	first, _, err := s.Do(context.Background(), "tx-1", fn)
	require.NoError(t, err)
	second, replayed, err := s.Do(context.Background(), "tx-1", fn)
	require.NoError(t, err)

	assert.True(t, replayed)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSweep(t *testing.T) {
	s := NewStore(nil, time.Hour, nil)
	now := time.Now()
	s.now = func() time.Time { return now }

	var calls int32
	_, _, err := s.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	_, _, err = s.Do(context.Background(), "tx-2", approvedFn(&calls))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	assert.Equal(t, 0, s.Sweep())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 0, s.Len())

	// After the window the id is a fresh transaction again.
	_, replayed, err := s.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestDo_RedisReplaySurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	var calls int32
	first := NewStore(rdb, time.Hour, nil)
	result, replayed, err := first.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	assert.False(t, replayed)

	// A new store over the same redis stands in for a restarted process.
	second := NewStore(rdb, time.Hour, nil)
	replayedResult, replayed, err := second.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, result, replayedResult)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_RedisTTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s := NewStore(rdb, time.Minute, nil)
	var calls int32
	_, _, err := s.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	fresh := NewStore(rdb, time.Minute, nil)
	_, replayed, err := fresh.Do(context.Background(), "tx-1", approvedFn(&calls))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
