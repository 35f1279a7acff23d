package accountupdater

import (
	"errors"
	"time"
)

var (
	// ErrMalformedPayload marks events that cannot be decoded into a known variant.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrUnauthorized marks deliveries whose signature is missing or wrong.
	ErrUnauthorized = errors.New("invalid webhook signature")
	// ErrStoreUnavailable wraps card store failures. PayPal retries these.
	ErrStoreUnavailable = errors.New("card store unavailable")
)

// Outcome is the terminal state of one reconciled delivery.
type Outcome string

const (
	OutcomeUpdated         Outcome = "updated"
	OutcomeMatchedNoChange Outcome = "matched_no_change"
	OutcomeUnmatched       Outcome = "unmatched"
	OutcomeRejected        Outcome = "rejected"
	OutcomeError           Outcome = "error"
)

// Reason explains an Outcome for operators and for the webhook response body.
type Reason string

const (
	ReasonApplied           Reason = "applied"
	ReasonAlreadyCurrent    Reason = "already_current"
	ReasonNothingToApply    Reason = "nothing_to_apply"
	ReasonNoCard            Reason = "no_card"
	ReasonFallbackAmbiguous Reason = "fallback_ambiguous"
	ReasonMalformedPayload  Reason = "malformed_payload"
	ReasonUnauthorized      Reason = "invalid_signature"
	ReasonStoreUnavailable  Reason = "store_unavailable"
)

// Result is returned for every reconciled event.
type Result struct {
	Outcome        Outcome
	Reason         Reason
	Match          string
	CardID         uint
	SubscriptionID string
}

// Change is the normalized, variant-independent content of an event.
// Empty ExpiryDate or Status means the event carries no value for it.
type Change struct {
	SubscriptionID string
	UserID         uint
	LastFour       string
	ExpiryDate     string
	Status         string
	// ImpliedStatus applies only when Status is empty and the card is not closed.
	ImpliedStatus string
}

// IsEmpty reports whether the change carries nothing to write.
func (c Change) IsEmpty() bool {
	return c.ExpiryDate == "" && c.Status == ""
}

// CardUpdate lists the columns a reconciliation may write. Nil fields are
// left untouched. Display fields and is_default are deliberately absent.
type CardUpdate struct {
	ExpiryDate     *string
	Status         *string
	SubscriptionID *string
	UpdatedAt      time.Time
}

// IsEmpty reports whether the update would not change any column.
func (u CardUpdate) IsEmpty() bool {
	return u.ExpiryDate == nil && u.Status == nil && u.SubscriptionID == nil
}

// DeliveryInput is the normalized input for delivery audit persistence.
type DeliveryInput struct {
	TransmissionID  string
	EventType       string
	SignatureValid  bool
	Result          Result
	ProcessingError error
	PayloadJSON     string
}
