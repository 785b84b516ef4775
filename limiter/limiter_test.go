package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestMulti_SortsByLimit(t *testing.T) {
	fast := rate.NewLimiter(Per(10, time.Second), 1)
	slow := rate.NewLimiter(Per(1, time.Second), 1)
	m := Multi(fast, slow)
	assert.Equal(t, slow.Limit(), m.Limit())
}

func TestFromConfig(t *testing.T) {
	l, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, rate.Inf, l.Limit())

	l, err = FromConfig([]Config{{EventCount: 20, EventDur: 60}, {EventCount: 1, EventDur: 2}})
	require.NoError(t, err)
	assert.Equal(t, Per(1, 2*time.Second), l.Limit())

	_, err = FromConfig([]Config{{EventCount: 0, EventDur: 1}})
	assert.Error(t, err)
}

func TestWait_Cancelled(t *testing.T) {
	l, err := FromConfig([]Config{{EventCount: 1, EventDur: 3600}})
	require.NoError(t, err)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}
