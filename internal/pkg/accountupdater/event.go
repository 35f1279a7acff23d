package accountupdater

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the PayPal payload variant.
type Kind string

const (
	KindCardUpdated                 Kind = "CARD.UPDATED"
	KindAccountStatusUpdated        Kind = "ACCOUNT.STATUS.UPDATED"
	KindPaymentAccountStatusUpdated Kind = "PAYMENT.ACCOUNT-STATUS.UPDATED"
)

// Event is one decoded account updater notification. The concrete type is
// always one of *CardUpdated, *AccountStatusUpdated or
// *PaymentAccountStatusUpdated.
type Event interface {
	Kind() Kind
	EventID() string
	isEvent()
}

// CardUpdated carries resource.subscription_id and resource.updated_details.
type CardUpdated struct {
	ID             string
	SubscriptionID string
	UserID         uint
	LastFour       string
	ExpiryDate     string
	Status         string
}

// AccountStatusUpdated carries resource.id and resource.account_status with
// a "YYYY-MM" expiry.
type AccountStatusUpdated struct {
	ID             string
	SubscriptionID string
	UserID         uint
	Expiry         string
	Status         string
}

// PaymentAccountStatusUpdated carries resource.id and a split
// resource.expiry.{month,year}.
type PaymentAccountStatusUpdated struct {
	ID             string
	SubscriptionID string
	UserID         uint
	ExpiryMonth    int
	ExpiryYear     int
	Status         string
}

func (e *CardUpdated) Kind() Kind      { return KindCardUpdated }
func (e *CardUpdated) EventID() string { return e.ID }
func (e *CardUpdated) isEvent()        {}

func (e *AccountStatusUpdated) Kind() Kind      { return KindAccountStatusUpdated }
func (e *AccountStatusUpdated) EventID() string { return e.ID }
func (e *AccountStatusUpdated) isEvent()        {}

func (e *PaymentAccountStatusUpdated) Kind() Kind      { return KindPaymentAccountStatusUpdated }
func (e *PaymentAccountStatusUpdated) EventID() string { return e.ID }
func (e *PaymentAccountStatusUpdated) isEvent()        {}

type envelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

// flexInt accepts both JSON numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %s", string(b))
	}
	*f = flexInt(n)
	return nil
}

// ParseKind maps an event_type header or body field to a known Kind.
func ParseKind(eventType string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(eventType)) {
	case "CARD.UPDATED", "CARD-UPDATED":
		return KindCardUpdated, true
	case "ACCOUNT.STATUS.UPDATED":
		return KindAccountStatusUpdated, true
	case "PAYMENT.ACCOUNT-STATUS.UPDATED":
		return KindPaymentAccountStatusUpdated, true
	default:
		return "", false
	}
}

// PeekEventType returns the raw event_type of a payload without validating
// the rest of it. Used for audit rows of rejected deliveries.
func PeekEventType(payload []byte) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.EventType)
}

// DecodeEvent decodes a webhook body into its payload variant. Every failure
// wraps ErrMalformedPayload.
func DecodeEvent(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	kind, ok := ParseKind(env.EventType)
	if !ok {
		if strings.TrimSpace(env.EventType) == "" {
			return nil, fmt.Errorf("%w: missing event_type", ErrMalformedPayload)
		}
		return nil, fmt.Errorf("%w: unsupported event_type %q", ErrMalformedPayload, env.EventType)
	}

	resource := bytes.TrimSpace(env.Resource)
	if len(resource) == 0 || resource[0] != '{' {
		return nil, fmt.Errorf("%w: missing resource object", ErrMalformedPayload)
	}

	var (
		ev  Event
		err error
	)
	switch kind {
	case KindCardUpdated:
		ev, err = decodeCardUpdated(env.ID, resource)
	case KindAccountStatusUpdated:
		ev, err = decodeAccountStatusUpdated(env.ID, resource)
	case KindPaymentAccountStatusUpdated:
		ev, err = decodePaymentAccountStatusUpdated(env.ID, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return ev, nil
}

func decodeCardUpdated(id string, resource []byte) (Event, error) {
	var raw struct {
		SubscriptionID string  `json:"subscription_id"`
		ID             string  `json:"id"`
		UserID         flexInt `json:"user_id"`
		LastFour       string  `json:"last_four"`
		UpdatedDetails struct {
			ExpiryDate string `json:"expiry_date"`
			Status     string `json:"status"`
		} `json:"updated_details"`
	}
	if err := json.Unmarshal(resource, &raw); err != nil {
		return nil, err
	}
	return &CardUpdated{
		ID:             strings.TrimSpace(id),
		SubscriptionID: firstNonEmpty(raw.SubscriptionID, raw.ID),
		UserID:         toUserID(raw.UserID),
		LastFour:       strings.TrimSpace(raw.LastFour),
		ExpiryDate:     strings.TrimSpace(raw.UpdatedDetails.ExpiryDate),
		Status:         strings.TrimSpace(raw.UpdatedDetails.Status),
	}, nil
}

func decodeAccountStatusUpdated(id string, resource []byte) (Event, error) {
	var raw struct {
		ID             string  `json:"id"`
		SubscriptionID string  `json:"subscription_id"`
		UserID         flexInt `json:"user_id"`
		AccountStatus  struct {
			Expiry string `json:"expiry"`
			Status string `json:"status"`
		} `json:"account_status"`
	}
	if err := json.Unmarshal(resource, &raw); err != nil {
		return nil, err
	}
	return &AccountStatusUpdated{
		ID:             strings.TrimSpace(id),
		SubscriptionID: firstNonEmpty(raw.SubscriptionID, raw.ID),
		UserID:         toUserID(raw.UserID),
		Expiry:         strings.TrimSpace(raw.AccountStatus.Expiry),
		Status:         strings.TrimSpace(raw.AccountStatus.Status),
	}, nil
}

func decodePaymentAccountStatusUpdated(id string, resource []byte) (Event, error) {
	var raw struct {
		ID             string  `json:"id"`
		SubscriptionID string  `json:"subscription_id"`
		UserID         flexInt `json:"user_id"`
		Status         string  `json:"status"`
		Expiry         *struct {
			Month flexInt `json:"month"`
			Year  flexInt `json:"year"`
		} `json:"expiry"`
	}
	if err := json.Unmarshal(resource, &raw); err != nil {
		return nil, err
	}
	ev := &PaymentAccountStatusUpdated{
		ID:             strings.TrimSpace(id),
		SubscriptionID: firstNonEmpty(raw.SubscriptionID, raw.ID),
		UserID:         toUserID(raw.UserID),
		Status:         strings.TrimSpace(raw.Status),
	}
	if raw.Expiry != nil {
		ev.ExpiryMonth = int(raw.Expiry.Month)
		ev.ExpiryYear = int(raw.Expiry.Year)
	}
	return ev, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func toUserID(v flexInt) uint {
	if v <= 0 {
		return 0
	}
	return uint(v)
}
