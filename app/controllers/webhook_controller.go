package controllers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ecomdemo/cardsync/app/models"
	"github.com/ecomdemo/cardsync/internal/pkg/accountupdater"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics/counter"
)

const (
	webhookTimeout = 15 * time.Second
	// header-derived values of unverified deliveries are cut to this length
	maxUnverifiedField = 64
)

// WebhookReconciler is the part of accountupdater.Service the handler needs.
type WebhookReconciler interface {
	Reconcile(ctx context.Context, ev accountupdater.Event) (accountupdater.Result, error)
	RecordDelivery(ctx context.Context, in accountupdater.DeliveryInput) (*models.WebhookDelivery, error)
}

// WebhookController receives PayPal account updater deliveries.
type WebhookController struct {
	reconciler WebhookReconciler
	verifier   *accountupdater.SignatureVerifier
	tracker    *counter.Tracker
	metrics    *metrics.Webhook
}

// NewWebhookController wires the handler. tracker and m may be nil.
func NewWebhookController(reconciler WebhookReconciler, verifier *accountupdater.SignatureVerifier, tracker *counter.Tracker, m *metrics.Webhook) *WebhookController {
	return &WebhookController{
		reconciler: reconciler,
		verifier:   verifier,
		tracker:    tracker,
		metrics:    m,
	}
}

type delivery struct {
	start          time.Time
	transmissionID string
	eventType      string
	signatureValid bool
	// verified is set once the signature gate passed or was skipped
	verified bool
	payload  []byte
}

// auditPayload is what goes into payload_json. Bodies that failed the
// signature gate are reduced to their digest and size.
func (d delivery) auditPayload() string {
	if d.verified {
		return string(d.payload)
	}
	return fmt.Sprintf(`{"unverified":true,"sha256":"%x","bytes":%d}`, sha256.Sum256(d.payload), len(d.payload))
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// HandleAccountUpdaterWebhook runs signature gate, decoding and
// reconciliation for one delivery and answers with {status, detail}.
func (w *WebhookController) HandleAccountUpdaterWebhook(c *fiber.Ctx) error {
	d := delivery{
		start:   time.Now(),
		payload: append([]byte(nil), c.BodyRaw()...),
	}
	headers := accountupdater.ParseSignatureHeaders(func(key string) string { return c.Get(key) })
	d.transmissionID = headers.TransmissionID
	if d.transmissionID == "" {
		d.transmissionID = "generated:" + uuid.NewString()
	}
	d.eventType = accountupdater.PeekEventType(d.payload)

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	if err := w.verifier.Verify(headers, d.payload); err != nil {
		d.transmissionID = clip(d.transmissionID, maxUnverifiedField)
		d.eventType = clip(d.eventType, maxUnverifiedField)
		fiberlog.Warnf("[Webhook] delivery %s from %s rejected: %v", d.transmissionID, GetClientIP(c), err)
		res := accountupdater.Result{Outcome: accountupdater.OutcomeRejected, Reason: accountupdater.ReasonUnauthorized}
		return w.respond(ctx, c, fiber.StatusUnauthorized, d, res, err)
	}
	d.verified = true
	d.signatureValid = !w.verifier.Skipping()

	ev, err := accountupdater.DecodeEvent(d.payload)
	if err != nil {
		fiberlog.Warnf("[Webhook] delivery %s rejected: %v", d.transmissionID, err)
		res := accountupdater.Result{Outcome: accountupdater.OutcomeRejected, Reason: accountupdater.ReasonMalformedPayload}
		return w.respond(ctx, c, fiber.StatusBadRequest, d, res, err)
	}
	d.eventType = string(ev.Kind())

	res, err := w.reconciler.Reconcile(ctx, ev)
	switch {
	case errors.Is(err, accountupdater.ErrMalformedPayload):
		fiberlog.Warnf("[Webhook] delivery %s rejected: %v", d.transmissionID, err)
		return w.respond(ctx, c, fiber.StatusBadRequest, d, res, err)
	case err != nil:
		return w.respond(ctx, c, fiber.StatusInternalServerError, d, res, err)
	}

	if res.Outcome == accountupdater.OutcomeUnmatched {
		if perr := w.tracker.PushUnmatched(ctx, counter.UnmatchedEvent{
			TransmissionID: d.transmissionID,
			EventType:      d.eventType,
			SubscriptionID: res.SubscriptionID,
			Reason:         string(res.Reason),
			Payload:        string(d.payload),
		}); perr != nil {
			fiberlog.Errorf("[Webhook] could not queue unmatched delivery %s: %v", d.transmissionID, perr)
		}
	}
	return w.respond(ctx, c, fiber.StatusOK, d, res, nil)
}

// respond records the delivery, updates the counters and writes the body.
// Bookkeeping failures are logged and never change the status code.
func (w *WebhookController) respond(ctx context.Context, c *fiber.Ctx, status int, d delivery, res accountupdater.Result, procErr error) error {
	if _, err := w.reconciler.RecordDelivery(ctx, accountupdater.DeliveryInput{
		TransmissionID:  d.transmissionID,
		EventType:       d.eventType,
		SignatureValid:  d.signatureValid,
		Result:          res,
		ProcessingError: procErr,
		PayloadJSON:     d.auditPayload(),
	}); err != nil {
		fiberlog.Errorf("[Webhook] could not record delivery %s: %v", d.transmissionID, err)
	}
	if err := w.tracker.AddOutcome(ctx, string(res.Outcome)); err != nil {
		fiberlog.Warnf("[Webhook] could not count outcome for %s: %v", d.transmissionID, err)
	}
	w.metrics.ObserveDelivery(string(res.Outcome), string(res.Reason), time.Since(d.start))

	return c.Status(status).JSON(fiber.Map{
		"status": res.Outcome,
		"detail": webhookDetail(res),
	})
}

func webhookDetail(res accountupdater.Result) string {
	detail := string(res.Reason)
	if res.CardID != 0 && res.Match != "" {
		detail += " (match=" + res.Match + ")"
	}
	return strings.TrimSpace(detail)
}
