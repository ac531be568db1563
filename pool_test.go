package akita

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, maxSize int, timeout time.Duration) *Pool {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	p := NewPool(db, &Config{
		MaxSize:           maxSize,
		ConnectionTimeout: timeout,
		IdleTimeout:       time.Minute,
		MaxLifetime:       time.Minute,
	})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPoolCheckoutAndRelease(t *testing.T) {
	p := newTestPool(t, 2, time.Second)

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)
	assert.False(t, conn.CheckedOutAt().IsZero())
	conn.Release()
}

func TestPoolCheckoutTimesOutWhenExhausted(t *testing.T) {
	p := newTestPool(t, 1, 100*time.Millisecond)

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrPoolTimeout)
	assert.ErrorIs(t, err, ErrConnection)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	conn.Release()
	conn2, err := p.Checkout(context.Background())
	require.NoError(t, err)
	conn2.Release()
}

func TestPoolNeverExceedsMaxSize(t *testing.T) {
	const maxSize, borrowers = 2, 8
	p := newTestPool(t, maxSize, time.Second)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := p.Checkout(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			conn.Release()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(maxSize))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestPoolCallerCancelIsNotTimeout(t *testing.T) {
	p := newTestPool(t, 1, time.Second)

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = p.Checkout(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPoolTimeout)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestPoolReleaseIsIdempotent(t *testing.T) {
	p := newTestPool(t, 1, time.Second)

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)
	conn.Release()
	conn.Release()

	conn2, err := p.Checkout(context.Background())
	require.NoError(t, err)
	conn2.Release()
}

func TestPoolClosedCheckout(t *testing.T) {
	p := newTestPool(t, 1, time.Second)
	require.NoError(t, p.Close())

	_, err := p.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestPoolStatus(t *testing.T) {
	p := newTestPool(t, 3, time.Second)

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)
	status := p.Status()
	assert.Equal(t, 3, status.MaxSize)
	assert.Equal(t, 1, status.InUse)
	conn.Release()
}

func TestPoolWarmup(t *testing.T) {
	p := newTestPool(t, 4, time.Second)
	require.NoError(t, p.Warmup(context.Background(), 2))

	status := p.Status()
	assert.Equal(t, 0, status.InUse)
	assert.GreaterOrEqual(t, status.Open, 1)
}
