package redisflags

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test:flags:"), mr
}

func TestMarkAttempted_FirstCallerWins(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	first, err := s.MarkAttempted(ctx, "sub_1", 7)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkAttempted(ctx, "sub_1", 7)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := s.MarkAttempted(ctx, "sub_2", 7)
	require.NoError(t, err)
	assert.True(t, other)

	got, err := mr.Get("test:flags:sub_1")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
	assert.Equal(t, defaultTTL, mr.TTL("test:flags:sub_1"))
}

func TestMarkAttempted_Concurrent(t *testing.T) {
	s, _ := newTestStore(t)
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkAttempted(context.Background(), "sub_race", 1)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestAttempted(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seen, err := s.Attempted(ctx, "sub_1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = s.MarkAttempted(ctx, "sub_1", 1)
	require.NoError(t, err)

	seen, err = s.Attempted(ctx, "sub_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMarkAttempted_ServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.MarkAttempted(context.Background(), "sub_1", 1)
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
