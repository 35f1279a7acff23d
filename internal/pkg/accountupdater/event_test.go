package accountupdater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_Variants(t *testing.T) {
	t.Run("card updated", func(t *testing.T) {
		ev, err := DecodeEvent([]byte(`{
			"id":"WH-1",
			"event_type":"CARD.UPDATED",
			"resource":{
				"subscription_id":"SUB-1",
				"user_id":"42",
				"last_four":"1111",
				"updated_details":{"expiry_date":"2030-12","status":"UPDATED"}
			}
		}`))
		require.NoError(t, err)
		e, ok := ev.(*CardUpdated)
		require.True(t, ok)
		assert.Equal(t, KindCardUpdated, e.Kind())
		assert.Equal(t, "WH-1", e.EventID())
		assert.Equal(t, "SUB-1", e.SubscriptionID)
		assert.Equal(t, uint(42), e.UserID)
		assert.Equal(t, "1111", e.LastFour)
		assert.Equal(t, "2030-12", e.ExpiryDate)
		assert.Equal(t, "UPDATED", e.Status)
	})

	t.Run("card updated with dash and resource id", func(t *testing.T) {
		ev, err := DecodeEvent([]byte(`{"event_type":"card-updated","resource":{"id":"SUB-2"}}`))
		require.NoError(t, err)
		e, ok := ev.(*CardUpdated)
		require.True(t, ok)
		assert.Equal(t, "SUB-2", e.SubscriptionID)
	})

	t.Run("account status updated", func(t *testing.T) {
		ev, err := DecodeEvent([]byte(`{
			"event_type":"ACCOUNT.STATUS.UPDATED",
			"resource":{"id":"SUB-3","account_status":{"expiry":"2031-01","status":"ACTIVE"}}
		}`))
		require.NoError(t, err)
		e, ok := ev.(*AccountStatusUpdated)
		require.True(t, ok)
		assert.Equal(t, "SUB-3", e.SubscriptionID)
		assert.Equal(t, "2031-01", e.Expiry)
		assert.Equal(t, "ACTIVE", e.Status)
	})

	t.Run("payment account status updated", func(t *testing.T) {
		ev, err := DecodeEvent([]byte(`{
			"event_type":"PAYMENT.ACCOUNT-STATUS.UPDATED",
			"resource":{"id":"SUB-4","expiry":{"month":"7","year":2032},"status":"CLOSED"}
		}`))
		require.NoError(t, err)
		e, ok := ev.(*PaymentAccountStatusUpdated)
		require.True(t, ok)
		assert.Equal(t, "SUB-4", e.SubscriptionID)
		assert.Equal(t, 7, e.ExpiryMonth)
		assert.Equal(t, 2032, e.ExpiryYear)
		assert.Equal(t, "CLOSED", e.Status)
	})
}

func TestDecodeEvent_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{"event_type":`},
		{name: "missing event type", payload: `{"resource":{"id":"SUB-1"}}`},
		{name: "unknown event type", payload: `{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"SUB-1"}}`},
		{name: "missing resource", payload: `{"event_type":"CARD.UPDATED"}`},
		{name: "null resource", payload: `{"event_type":"CARD.UPDATED","resource":null}`},
		{name: "resource not an object", payload: `{"event_type":"CARD.UPDATED","resource":"SUB-1"}`},
		{name: "bad expiry month", payload: `{"event_type":"PAYMENT.ACCOUNT-STATUS.UPDATED","resource":{"id":"SUB-1","expiry":{"month":"july","year":2030}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.payload))
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParseKind(t *testing.T) {
	kind, ok := ParseKind(" card.updated ")
	assert.True(t, ok)
	assert.Equal(t, KindCardUpdated, kind)

	_, ok = ParseKind("BILLING.SUBSCRIPTION.CREATED")
	assert.False(t, ok)
}

func TestPeekEventType(t *testing.T) {
	assert.Equal(t, "CARD.UPDATED", PeekEventType([]byte(`{"event_type":" CARD.UPDATED "}`)))
	assert.Equal(t, "", PeekEventType([]byte(`not json`)))
}
