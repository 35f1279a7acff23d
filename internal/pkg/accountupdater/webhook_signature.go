package accountupdater

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	HeaderTransmissionSig  = "PAYPAL-TRANSMISSION-SIG"
	HeaderTransmissionID   = "PAYPAL-TRANSMISSION-ID"
	HeaderTransmissionTime = "PAYPAL-TRANSMISSION-TIME"
	HeaderPayPalSignature  = "PayPal-Signature"
)

// SignatureHeaders holds the transmission metadata of one delivery. Both the
// split PAYPAL-TRANSMISSION-* headers and the combined PayPal-Signature header
// resolve into it.
type SignatureHeaders struct {
	Algorithm        string
	Signature        string
	TransmissionID   string
	TransmissionTime string
}

// ParseSignatureHeaders reads signature metadata through a header getter such
// as fiber's Ctx.Get. The split headers win when both forms are present.
func ParseSignatureHeaders(get func(key string) string) SignatureHeaders {
	h := SignatureHeaders{
		Algorithm:        "sha256",
		Signature:        strings.TrimSpace(get(HeaderTransmissionSig)),
		TransmissionID:   strings.TrimSpace(get(HeaderTransmissionID)),
		TransmissionTime: strings.TrimSpace(get(HeaderTransmissionTime)),
	}
	if h.Signature != "" {
		return h
	}

	combined := strings.TrimSpace(get(HeaderPayPalSignature))
	if combined == "" {
		return h
	}
	h.Algorithm = ""
	for _, part := range strings.Split(combined, ",") {
		// base64 signatures end in '=' padding, so only split on the first one
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "algorithm":
			h.Algorithm = strings.TrimSpace(value)
		case "signature":
			h.Signature = strings.TrimSpace(value)
		case "transmission_id":
			h.TransmissionID = strings.TrimSpace(value)
		case "transmission_time":
			h.TransmissionTime = strings.TrimSpace(value)
		}
	}
	return h
}

// SignatureVerifier gates deliveries before they reach the reconciler.
type SignatureVerifier struct {
	secret string
	skip   bool
}

// NewSignatureVerifier builds a verifier. skip must only be true in
// development; the config layer enforces that.
func NewSignatureVerifier(secret string, skip bool) *SignatureVerifier {
	return &SignatureVerifier{secret: strings.TrimSpace(secret), skip: skip}
}

// Skipping reports whether verification is disabled.
func (v *SignatureVerifier) Skipping() bool {
	return v.skip
}

// Verify returns ErrUnauthorized unless the headers carry a valid signature
// for payload.
func (v *SignatureVerifier) Verify(h SignatureHeaders, payload []byte) error {
	if v.skip {
		fiberlog.Warn("[AccountUpdater] SKIPPING WEBHOOK SIGNATURE VERIFICATION (development mode)")
		return nil
	}
	if !isSupportedAlgorithm(h.Algorithm) {
		return ErrUnauthorized
	}
	if !VerifyWebhookSignature(payload, h.TransmissionID, h.TransmissionTime, h.Signature, v.secret) {
		return ErrUnauthorized
	}
	return nil
}

// VerifyWebhookSignature checks an HMAC-SHA256 signature over
// "transmission_id|transmission_time|body". The signature may be base64 or hex.
func VerifyWebhookSignature(payload []byte, transmissionID, transmissionTime, signature, secret string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	if strings.TrimSpace(transmissionID) == "" || strings.TrimSpace(transmissionTime) == "" {
		return false
	}

	expected := computeMAC(payload, transmissionID, transmissionTime, secret)
	if decoded, err := base64.StdEncoding.DecodeString(sig); err == nil && hmac.Equal(decoded, expected) {
		return true
	}
	// Some relays forward the digest hex encoded.
	if decoded, err := hex.DecodeString(strings.ToLower(sig)); err == nil && hmac.Equal(decoded, expected) {
		return true
	}
	return false
}

// SignPayload returns the base64 signature PayPal would send for payload.
func SignPayload(payload []byte, transmissionID, transmissionTime, secret string) string {
	return base64.StdEncoding.EncodeToString(computeMAC(payload, transmissionID, transmissionTime, secret))
}

func computeMAC(payload []byte, transmissionID, transmissionTime, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	mac.Write([]byte(strings.TrimSpace(transmissionID)))
	mac.Write([]byte("|"))
	mac.Write([]byte(strings.TrimSpace(transmissionTime)))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}

func isSupportedAlgorithm(algorithm string) bool {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "sha256", "hmac-sha256", "hmacsha256":
		return true
	default:
		return false
	}
}
