package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidExpiry     = errors.New("invalid expiry date format (MM/YY or MM/YYYY)")

	cardNumberPattern  = regexp.MustCompile(`^\d{13,19}$`)
	cardExpiryPattern  = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2}|\d{4})$`)
	cardNumberStripper = strings.NewReplacer(" ", "", "-", "")
)

const (
	BrandVisa       = "Visa"
	BrandMastercard = "Mastercard"
	BrandAmex       = "American Express"
	BrandDiscover   = "Discover"
	BrandUnknown    = "Unknown"
)

// CardNumber is what remains of a card number once it has been inspected.
// The full number is never kept.
type CardNumber struct {
	Brand    string
	LastFour string
}

// ParseCardNumber validates a 13 to 19 digit card number, ignoring spaces
// and dashes, and returns its brand and last four digits.
func ParseCardNumber(raw string) (CardNumber, error) {
	digits := cardNumberStripper.Replace(strings.TrimSpace(raw))
	if !cardNumberPattern.MatchString(digits) {
		return CardNumber{}, ErrInvalidCardNumber
	}
	return CardNumber{
		Brand:    DetectCardBrand(digits),
		LastFour: digits[len(digits)-4:],
	}, nil
}

// DetectCardBrand maps the issuer prefix to a display brand.
func DetectCardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return BrandVisa
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return BrandAmex
	case strings.HasPrefix(digits, "5"), hasPrefixInRange(digits, 2221, 2720):
		return BrandMastercard
	case strings.HasPrefix(digits, "6"):
		return BrandDiscover
	default:
		return BrandUnknown
	}
}

func hasPrefixInRange(digits string, lo, hi int) bool {
	if len(digits) < 4 {
		return false
	}
	n := 0
	for _, r := range digits[:4] {
		n = n*10 + int(r-'0')
	}
	return n >= lo && n <= hi
}

// ValidateCardExpiry checks the storefront input format. Canonicalisation
// to MM/YYYY happens in the account updater normaliser.
func ValidateCardExpiry(raw string) error {
	if !cardExpiryPattern.MatchString(strings.TrimSpace(raw)) {
		return ErrInvalidExpiry
	}
	return nil
}
