package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/cache"

	"github.com/stretchr/testify/require"
)

func TestLoaderCachesWithinTTL(t *testing.T) {
	loader := cache.NewLoader[string](time.Minute)
	ctx := context.Background()

	var calls int
	load := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 5; i++ {
		got, err := loader.Get(ctx, "k", load)
		require.NoError(t, err)
		require.Equal(t, "value", got)
	}
	require.Equal(t, 1, calls)
}

func TestLoaderConcurrentMissesShareOneLoad(t *testing.T) {
	loader := cache.NewLoader[int](time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := loader.Get(ctx, "k", load)
			require.NoError(t, err)
			results[i] = got
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, got := range results {
		require.Equal(t, 42, got)
	}
}

func TestLoaderConcurrentRefreshOfExpiredEntrySharesOneLoad(t *testing.T) {
	loader := cache.NewLoader[int](10 * time.Millisecond)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		if calls.Load() > 1 {
			<-release
		}
		return int(calls.Load()), nil
	}

	_, err := loader.Get(ctx, "k", load)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	// 条目已过期：并发重建只允许一次加载，其余调用等待同一结果。
	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := loader.Get(ctx, "k", load)
			require.NoError(t, err)
			require.Equal(t, 2, got)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	require.Equal(t, int32(2), calls.Load())
}

func TestLoaderDoesNotCacheFailures(t *testing.T) {
	loader := cache.NewLoader[string](time.Minute)
	ctx := context.Background()

	sentinel := errors.New("load failed")
	calls := 0
	_, err := loader.Get(ctx, "k", func(context.Context) (string, error) {
		calls++
		return "", sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := loader.Get(ctx, "k", func(context.Context) (string, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", got)
	require.Equal(t, 2, calls)
}

func TestLoaderInvalidateForcesReload(t *testing.T) {
	loader := cache.NewLoader[string](time.Minute)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	_, err := loader.Get(ctx, "k", load)
	require.NoError(t, err)
	loader.Invalidate("k")
	_, err = loader.Get(ctx, "k", load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestLoaderWaiterHonorsContextCancel(t *testing.T) {
	loader := cache.NewLoader[int](time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = loader.Get(context.Background(), "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := loader.Get(ctx, "k", func(context.Context) (int, error) { return 2, nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
