package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecomdemo/cardsync/app/models"
	"github.com/ecomdemo/cardsync/internal/pkg/accountupdater"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics"
	"github.com/ecomdemo/cardsync/internal/pkg/testutil"
)

const webhookSecret = "whsec_test"

func newWebhookApp(t *testing.T, reconciler WebhookReconciler, verifier *accountupdater.SignatureVerifier) (*fiber.App, *metrics.Webhook) {
	t.Helper()
	m := metrics.NewWebhook()
	ctrl := NewWebhookController(reconciler, verifier, nil, m)
	app := fiber.New()
	app.Post("/webhooks/card-updated", ctrl.HandleAccountUpdaterWebhook)
	return app, m
}

func signedRequest(t *testing.T, body, transmissionID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/card-updated", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accountupdater.HeaderTransmissionID, transmissionID)
	req.Header.Set(accountupdater.HeaderTransmissionTime, "2025-06-01T12:00:00Z")
	req.Header.Set(accountupdater.HeaderTransmissionSig, accountupdater.SignPayload([]byte(body), transmissionID, "2025-06-01T12:00:00Z", webhookSecret))
	return req
}

func decodeWebhookBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func deliveries(t *testing.T, db *gorm.DB) []models.WebhookDelivery {
	t.Helper()
	var rows []models.WebhookDelivery
	require.NoError(t, db.Order("id ASC").Find(&rows).Error)
	return rows
}

func TestWebhook_UpdatesCardAndReplayIsNoChange(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "jane@example.com")
	card := testutil.CreateCard(t, db, user.ID, testutil.WithSubscription("SUB-1"))
	app, _ := newWebhookApp(t, accountupdater.NewServiceFromDB(db), accountupdater.NewSignatureVerifier(webhookSecret, false))

	body := `{"id":"WH-1","event_type":"CARD.UPDATED","resource":{"subscription_id":"SUB-1","updated_details":{"expiry_date":"2030-12"}}}`

	resp, err := app.Test(signedRequest(t, body, "tx-1"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decodeWebhookBody(t, resp)
	assert.Equal(t, "updated", got["status"])
	assert.Contains(t, got["detail"], "applied")

	stored := testutil.ReloadCard(t, db, card.ID)
	assert.Equal(t, "12/2030", stored.ExpiryDate)
	assert.Equal(t, models.CardStatusUpdated, stored.Status)

	resp, err = app.Test(signedRequest(t, body, "tx-1"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "matched_no_change", decodeWebhookBody(t, resp)["status"])
	assert.Equal(t, stored, testutil.ReloadCard(t, db, card.ID))

	rows := deliveries(t, db)
	require.Len(t, rows, 2)
	assert.Equal(t, "tx-1", rows[0].TransmissionID)
	assert.Equal(t, "CARD.UPDATED", rows[0].EventType)
	assert.True(t, rows[0].SignatureValid)
	assert.Equal(t, "updated", rows[0].Outcome)
	assert.Equal(t, "matched_no_change", rows[1].Outcome)
}

func TestWebhook_InvalidSignature(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "jane@example.com")
	testutil.CreateCard(t, db, user.ID, testutil.WithSubscription("SUB-1"))
	before := testutil.AllCards(t, db)
	app, m := newWebhookApp(t, accountupdater.NewServiceFromDB(db), accountupdater.NewSignatureVerifier(webhookSecret, false))

	body := `{"event_type":"CARD.UPDATED","resource":{"subscription_id":"SUB-1","updated_details":{"expiry_date":"2030-12"}}}`
	req := signedRequest(t, body, "tx-1")
	req.Header.Set(accountupdater.HeaderTransmissionSig, "bm90LWEtc2lnbmF0dXJl")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	got := decodeWebhookBody(t, resp)
	assert.Equal(t, "rejected", got["status"])
	assert.Equal(t, "invalid_signature", got["detail"])
	assert.Equal(t, before, testutil.AllCards(t, db))

	unsigned := httptest.NewRequest(http.MethodPost, "/webhooks/card-updated", strings.NewReader(body))
	resp, err = app.Test(unsigned)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	rows := deliveries(t, db)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].SignatureValid)
	assert.Equal(t, "invalid_signature", rows[0].Reason)
	assert.True(t, strings.HasPrefix(rows[1].TransmissionID, "generated:"))
	for _, row := range rows {
		assert.NotContains(t, row.PayloadJSON, "SUB-1")
		assert.Contains(t, row.PayloadJSON, `"unverified":true`)
	}

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("rejected", "invalid_signature")))
}

func TestWebhook_UnverifiedBodyIsNotStored(t *testing.T) {
	db := testutil.NewDB(t)
	app, _ := newWebhookApp(t, accountupdater.NewServiceFromDB(db), accountupdater.NewSignatureVerifier(webhookSecret, false))

	body := `{"event_type":"` + strings.Repeat("X", 500) + `","resource":{"padding":"` + strings.Repeat("a", 64*1024) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/card-updated", strings.NewReader(body))
	req.Header.Set(accountupdater.HeaderTransmissionID, strings.Repeat("t", 300))
	req.Header.Set(accountupdater.HeaderTransmissionSig, "bm90LWEtc2lnbmF0dXJl")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	rows := deliveries(t, db)
	require.Len(t, rows, 1)
	assert.Less(t, len(rows[0].PayloadJSON), 200)
	assert.Contains(t, rows[0].PayloadJSON, fmt.Sprintf(`"bytes":%d`, len(body)))
	assert.LessOrEqual(t, len(rows[0].TransmissionID), maxUnverifiedField)
	assert.LessOrEqual(t, len(rows[0].EventType), maxUnverifiedField)
}

func TestWebhook_Malformed(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "jane@example.com")
	testutil.CreateCard(t, db, user.ID, testutil.WithSubscription("SUB-1"))
	before := testutil.AllCards(t, db)
	app, _ := newWebhookApp(t, accountupdater.NewServiceFromDB(db), accountupdater.NewSignatureVerifier(webhookSecret, false))

	bodies := []string{
		`{"event_type":"CARD.UPDATED"`,
		`{"event_type":"CARD.UPDATED"}`,
		`{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"SUB-1"}}`,
		`{"event_type":"CARD.UPDATED","resource":{"subscription_id":"SUB-1","updated_details":{"expiry_date":"someday"}}}`,
	}
	for i, body := range bodies {
		resp, err := app.Test(signedRequest(t, body, "tx-bad"))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "body %d", i)
		got := decodeWebhookBody(t, resp)
		assert.Equal(t, "rejected", got["status"])
		assert.Equal(t, "malformed_payload", got["detail"])
	}
	assert.Equal(t, before, testutil.AllCards(t, db))
	assert.Len(t, deliveries(t, db), len(bodies))
}

func TestWebhook_UnmatchedIsAcknowledged(t *testing.T) {
	db := testutil.NewDB(t)
	app, _ := newWebhookApp(t, accountupdater.NewServiceFromDB(db), accountupdater.NewSignatureVerifier(webhookSecret, false))

	body := `{"event_type":"ACCOUNT.STATUS.UPDATED","resource":{"id":"SUB-404","account_status":{"status":"CLOSED"}}}`
	resp, err := app.Test(signedRequest(t, body, "tx-2"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decodeWebhookBody(t, resp)
	assert.Equal(t, "unmatched", got["status"])
	assert.Equal(t, "no_card", got["detail"])
}

func TestWebhook_SkipVerification(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "jane@example.com")
	card := testutil.CreateCard(t, db, user.ID, testutil.WithSubscription("SUB-1"))
	app, _ := newWebhookApp(t, accountupdater.NewServiceFromDB(db), accountupdater.NewSignatureVerifier("", true))

	body := `{"event_type":"PAYMENT.ACCOUNT-STATUS.UPDATED","resource":{"id":"SUB-1","expiry":{"month":3,"year":2031}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/card-updated", strings.NewReader(body))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "03/2031", testutil.ReloadCard(t, db, card.ID).ExpiryDate)

	rows := deliveries(t, db)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].SignatureValid)
}

type brokenReconciler struct{}

func (brokenReconciler) Reconcile(ctx context.Context, ev accountupdater.Event) (accountupdater.Result, error) {
	return accountupdater.Result{Outcome: accountupdater.OutcomeError, Reason: accountupdater.ReasonStoreUnavailable},
		errors.Join(accountupdater.ErrStoreUnavailable, errors.New("dial tcp: connection refused"))
}

func (brokenReconciler) RecordDelivery(ctx context.Context, in accountupdater.DeliveryInput) (*models.WebhookDelivery, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestWebhook_StoreFailureAsksForRetry(t *testing.T) {
	app, _ := newWebhookApp(t, brokenReconciler{}, accountupdater.NewSignatureVerifier(webhookSecret, false))

	body := `{"event_type":"CARD.UPDATED","resource":{"subscription_id":"SUB-1","updated_details":{"status":"ACTIVE"}}}`
	resp, err := app.Test(signedRequest(t, body, "tx-3"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	got := decodeWebhookBody(t, resp)
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "store_unavailable", got["detail"])
}
