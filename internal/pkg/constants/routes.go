package constants

// Route constants shared by the router, the OpenAPI document and tests
const (
	WebhookCardUpdatedRoute    = "/webhooks/card-updated"
	WebhookAccountUpdaterRoute = "/api/webhooks/paypal/account-updater"

	APIV1Prefix = "/api/v1"

	AdminPrefix            = "/admin"
	MetricsRoute           = "/metrics"
	PrometheusMetricsRoute = "/metrics/prometheus"
	HealthRoute            = "/healthz"
)
