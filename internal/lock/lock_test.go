package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "user-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)

	// A held key times out waiters but leaves other keys free.
	unlock, err := l.Lock(ctx, "user-2")
	require.NoError(t, err)
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "user-2")
	assert.Error(t, err)

	other, err := l.Lock(ctx, "user-3")
	require.NoError(t, err)
	other()
	unlock()

	again, err := l.Lock(ctx, "user-2")
	require.NoError(t, err)
	again()
}

func TestKeyedMutex(t *testing.T) {
	m := NewKeyedMutex()
	exerciseLocker(t, m)
	assert.Empty(t, m.entries)
}

func TestKeyedMutex_UnlockIsIdempotent(t *testing.T) {
	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Empty(t, m.entries)
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseLocker(t, NewRedisLocker(client, "lock:cart:", 5*time.Second))
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, "lock:", 5*time.Second)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry followed by another holder.
	require.NoError(t, mr.Set("lock:k", "someone-else"))
	unlock()

	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
