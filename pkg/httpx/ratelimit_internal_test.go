package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucketSet_RefillAndSweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	set := newBucketSet(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}, func() time.Time { return now })

	ok, _ := set.allow("a")
	require.True(t, ok)
	ok, _ = set.allow("a")
	require.True(t, ok)

	ok, delay := set.allow("a")
	require.False(t, ok)
	require.Equal(t, 30*time.Second, delay)

	now = now.Add(30 * time.Second)
	ok, _ = set.allow("a")
	require.True(t, ok, "one token refills every half minute")

	ok, _ = set.allow("b")
	require.True(t, ok)
	require.Equal(t, 2, set.len())

	// Both buckets go idle for a window, the next call sweeps them.
	now = now.Add(2 * time.Minute)
	ok, _ = set.allow("c")
	require.True(t, ok)
	require.Equal(t, 1, set.len())
}
