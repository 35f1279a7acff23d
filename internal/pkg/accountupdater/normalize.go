package accountupdater

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ecomdemo/cardsync/app/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

var (
	errInvalidExpiry = errors.New("invalid expiry")

	yearMonthPattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	monthLongYearPattern  = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	monthShortYearPattern = regexp.MustCompile(`^(\d{1,2})/(\d{2})$`)
)

const (
	minExpiryYear = 2000
	maxExpiryYear = 2099
)

// Expiry is an incoming expiry in any of the supported shapes: a raw string
// ("YYYY-MM", "MM/YYYY", "MM/YY") or split month and year fields.
type Expiry struct {
	Raw   string
	Month int
	Year  int
}

// IsZero reports whether no expiry was supplied at all.
func (e Expiry) IsZero() bool {
	return strings.TrimSpace(e.Raw) == "" && e.Month == 0 && e.Year == 0
}

// NormalizeExpiry returns the canonical "MM/YYYY" form stored in cards.expiry_date.
func NormalizeExpiry(e Expiry) (string, error) {
	month, year := e.Month, e.Year
	if raw := strings.TrimSpace(e.Raw); raw != "" {
		var err error
		month, year, err = parseExpiryString(raw)
		if err != nil {
			return "", err
		}
	}
	if year > 0 && year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: month %d out of range", errInvalidExpiry, month)
	}
	if year < minExpiryYear || year > maxExpiryYear {
		return "", fmt.Errorf("%w: year %d out of range", errInvalidExpiry, year)
	}
	return fmt.Sprintf("%02d/%04d", month, year), nil
}

// NormalizeExpiryString is NormalizeExpiry for a single raw string.
func NormalizeExpiryString(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty", errInvalidExpiry)
	}
	return NormalizeExpiry(Expiry{Raw: raw})
}

func parseExpiryString(raw string) (int, int, error) {
	if m := yearMonthPattern.FindStringSubmatch(raw); m != nil {
		return atoi(m[2]), atoi(m[1]), nil
	}
	if m := monthLongYearPattern.FindStringSubmatch(raw); m != nil {
		return atoi(m[1]), atoi(m[2]), nil
	}
	if m := monthShortYearPattern.FindStringSubmatch(raw); m != nil {
		return atoi(m[1]), 2000 + atoi(m[2]), nil
	}
	return 0, 0, fmt.Errorf("%w: unsupported format %q", errInvalidExpiry, raw)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// NormalizeStatus maps provider account states onto card statuses.
func NormalizeStatus(raw string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE", "OPEN", "VALID":
		return models.CardStatusActive, true
	case "UPDATED", "CARD_UPDATED", "EXPIRY_UPDATED", "NEW_ACCOUNT_NUMBER":
		return models.CardStatusUpdated, true
	case "CLOSED", "ACCOUNT_CLOSED", "CANCELLED", "CANCELED", "EXPIRED":
		return models.CardStatusClosed, true
	default:
		return "", false
	}
}

// Normalize turns any event variant into a Change. A bad expiry is dropped
// with a warning as long as something else in the event is usable.
func Normalize(ev Event) (Change, error) {
	var (
		ch            Change
		expiry        Expiry
		status        string
		impliedStatus string
	)

	switch e := ev.(type) {
	case *CardUpdated:
		ch = Change{SubscriptionID: e.SubscriptionID, UserID: e.UserID, LastFour: e.LastFour}
		expiry = Expiry{Raw: e.ExpiryDate}
		status = e.Status
		impliedStatus = models.CardStatusUpdated
	case *AccountStatusUpdated:
		ch = Change{SubscriptionID: e.SubscriptionID, UserID: e.UserID}
		expiry = Expiry{Raw: e.Expiry}
		status = e.Status
	case *PaymentAccountStatusUpdated:
		ch = Change{SubscriptionID: e.SubscriptionID, UserID: e.UserID}
		status = e.Status
		// a split expiry missing one half carries no expiry
		if e.ExpiryMonth != 0 && e.ExpiryYear != 0 {
			expiry = Expiry{Month: e.ExpiryMonth, Year: e.ExpiryYear}
		} else if e.ExpiryMonth != 0 || e.ExpiryYear != 0 {
			fiberlog.Warnf("[AccountUpdater] subscription %s: ignoring partial expiry month=%d year=%d",
				e.SubscriptionID, e.ExpiryMonth, e.ExpiryYear)
		}
	default:
		return Change{}, fmt.Errorf("%w: unsupported event %T", ErrMalformedPayload, ev)
	}

	if ch.SubscriptionID == "" {
		return Change{}, fmt.Errorf("%w: missing subscription id", ErrMalformedPayload)
	}

	var problems []error
	if !expiry.IsZero() {
		normalized, err := NormalizeExpiry(expiry)
		if err != nil {
			problems = append(problems, err)
		} else {
			ch.ExpiryDate = normalized
		}
	}
	if status != "" {
		if s, ok := NormalizeStatus(status); ok {
			ch.Status = s
		} else {
			problems = append(problems, fmt.Errorf("unknown status %q", status))
		}
	}
	if ch.Status == "" && ch.ExpiryDate != "" {
		ch.ImpliedStatus = impliedStatus
	}

	if len(problems) > 0 {
		if ch.IsEmpty() {
			return Change{}, fmt.Errorf("%w: %v", ErrMalformedPayload, errors.Join(problems...))
		}
		fiberlog.Warnf("[AccountUpdater] subscription %s: ignoring unusable fields: %v", ch.SubscriptionID, errors.Join(problems...))
	}
	return ch, nil
}
