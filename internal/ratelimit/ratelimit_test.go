package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{"burst allows initial requests", 3, 3, 3},
		{"exceeding burst blocks", 2, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			krl := New(0.001, tt.burst)
			defer krl.Stop()

			passed := 0
			for range tt.calls {
				if krl.Allow("user-1") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysIndependent(t *testing.T) {
	krl := PerMinute(1)
	defer krl.Stop()

	assert.True(t, krl.Allow("user-a"))
	assert.False(t, krl.Allow("user-a"))
	assert.True(t, krl.Allow("user-b"))
	assert.Equal(t, 2, krl.Len())
}

func TestKeyedRateLimiter_WaitCanceled(t *testing.T) {
	krl := New(0.001, 1)
	defer krl.Stop()

	require.True(t, krl.Allow("k"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, krl.Wait(ctx, "k"))
}

func TestKeyedRateLimiter_SweepDropsIdle(t *testing.T) {
	krl := New(1, 1)
	defer krl.Stop()

	now := time.Now()
	krl.now = func() time.Time { return now }
	krl.Allow("stale")

	now = now.Add(time.Hour)
	krl.Allow("fresh")
	krl.sweep()

	assert.Equal(t, 1, krl.Len())
}
