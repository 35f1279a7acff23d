package counter

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolveTestRedis returns a client on a scratch database or skips the test.
func resolveTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addrs := []string{}
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		addrs = append(addrs, addr)
	}
	addrs = append(addrs, "cache:6379", "localhost:6379")

	for _, addr := range addrs {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		if err := client.Ping(context.Background()).Err(); err == nil {
			require.NoError(t, client.FlushDB(context.Background()).Err())
			t.Cleanup(func() {
				client.FlushDB(context.Background())
				client.Close()
			})
			return client
		}
		client.Close()
	}
	t.Skipf("redis not reachable on %v", addrs)
	return nil
}

func TestTracker_NilIsNoop(t *testing.T) {
	var tr *Tracker
	ctx := context.Background()

	assert.NoError(t, tr.AddOutcome(ctx, "updated"))
	assert.NoError(t, tr.PushUnmatched(ctx, UnmatchedEvent{SubscriptionID: "SUB-1"}))

	outcomes, err := tr.Outcomes(ctx)
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	events, err := NewTracker(nil).RecentUnmatched(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTracker_Outcomes(t *testing.T) {
	tr := NewTracker(resolveTestRedis(t))
	ctx := context.Background()

	require.NoError(t, tr.AddOutcome(ctx, "updated"))
	require.NoError(t, tr.AddOutcome(ctx, "updated"))
	require.NoError(t, tr.AddOutcome(ctx, "unmatched"))

	outcomes, err := tr.Outcomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"updated": 2, "unmatched": 1}, outcomes)
}

func TestTracker_UnmatchedInbox(t *testing.T) {
	tr := NewTracker(resolveTestRedis(t))
	ctx := context.Background()

	for i := 0; i < maxUnmatched+5; i++ {
		require.NoError(t, tr.PushUnmatched(ctx, UnmatchedEvent{SubscriptionID: fmt.Sprintf("SUB-%d", i), Reason: "no_card"}))
	}

	events, err := tr.RecentUnmatched(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, fmt.Sprintf("SUB-%d", maxUnmatched+4), events[0].SubscriptionID)
	assert.False(t, events[0].ReceivedAt.IsZero())

	all, err := tr.RecentUnmatched(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, maxUnmatched)
}
