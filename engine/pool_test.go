package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_OrderAndBound(t *testing.T) {
	var running, peak int32
	jobs := make([]Job, 20)
	for i := range jobs {
		i := i
		jobs[i] = Job{Key: fmt.Sprintf("%06d", i), Do: func(ctx context.Context) (interface{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			if i%5 == 0 {
				return nil, errors.New("detail failed")
			}
			return i * 10, nil
		}}
	}

	results := NewPool(WithWorkCount(3)).Run(context.Background(), jobs)
	require.Len(t, results, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	for i, r := range results {
		assert.Equal(t, jobs[i].Key, r.Key)
		if i%5 == 0 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, i*10, r.Value)
	}
}

func TestPool_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{Key: fmt.Sprint(i), Do: func(ctx context.Context) (interface{}, error) {
			select {
			case <-time.After(10 * time.Millisecond):
				return "ok", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}}
	}
	results := NewPool(WithWorkCount(1), WithDelay(5*time.Millisecond)).Run(ctx, jobs)
	require.Len(t, results, 10)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[9].Err, context.DeadlineExceeded)
	assert.Equal(t, "9", results[9].Key)
}

func TestPool_Panic(t *testing.T) {
	results := NewPool(WithWorkCount(2)).Run(context.Background(), []Job{
		{Key: "a", Do: func(context.Context) (interface{}, error) { panic("boom") }},
		{Key: "b", Do: func(context.Context) (interface{}, error) { return 1, nil }},
	})
	assert.ErrorContains(t, results[0].Err, "boom")
	assert.Equal(t, 1, results[1].Value)
	assert.Empty(t, NewPool().Run(context.Background(), nil))
}
