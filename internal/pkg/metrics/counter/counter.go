package counter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	outcomesKey   = "webhook:counters:outcomes"
	unmatchedKey  = "webhook:unmatched"
	maxUnmatched  = 500
	redisDeadline = 2 * time.Second
)

// UnmatchedEvent is one inbox entry an operator reconciles by hand.
type UnmatchedEvent struct {
	TransmissionID string    `json:"transmission_id"`
	EventType      string    `json:"event_type"`
	SubscriptionID string    `json:"subscription_id"`
	Reason         string    `json:"reason"`
	Payload        string    `json:"payload"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Tracker keeps webhook outcome counters and the unmatched inbox in Redis.
// A nil Tracker or nil client turns every call into a no-op.
type Tracker struct {
	client *redis.Client
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func (t *Tracker) enabled() bool {
	return t != nil && t.client != nil
}

// AddOutcome increments the counter for outcome.
func (t *Tracker) AddOutcome(ctx context.Context, outcome string) error {
	if !t.enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisDeadline)
	defer cancel()
	return t.client.HIncrBy(ctx, outcomesKey, outcome, 1).Err()
}

// Outcomes returns all outcome counters.
func (t *Tracker) Outcomes(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	if !t.enabled() {
		return out, nil
	}
	data, err := t.client.HGetAll(ctx, outcomesKey).Result()
	if err != nil {
		return nil, err
	}
	for k, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

// PushUnmatched prepends ev to the inbox and trims it to the newest entries.
func (t *Tracker) PushUnmatched(ctx context.Context, ev UnmatchedEvent) error {
	if !t.enabled() {
		return nil
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, redisDeadline)
	defer cancel()
	pipe := t.client.TxPipeline()
	pipe.LPush(ctx, unmatchedKey, b)
	pipe.LTrim(ctx, unmatchedKey, 0, maxUnmatched-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentUnmatched returns up to limit inbox entries, newest first.
func (t *Tracker) RecentUnmatched(ctx context.Context, limit int) ([]UnmatchedEvent, error) {
	if !t.enabled() {
		return []UnmatchedEvent{}, nil
	}
	if limit <= 0 || limit > maxUnmatched {
		limit = maxUnmatched
	}
	raw, err := t.client.LRange(ctx, unmatchedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	events := make([]UnmatchedEvent, 0, len(raw))
	for _, item := range raw {
		var ev UnmatchedEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
