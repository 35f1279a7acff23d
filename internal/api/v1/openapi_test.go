package apiv1

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPIPath = "../../../public/docs/v1/openapi.yml"

func loadDocument(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIPath)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	loadDocument(t)
}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	doc := loadDocument(t)

	want := map[string][]string{
		"/api/v1/ping":                         {"GET"},
		"/api/v1/user/cards":                   {"GET", "POST"},
		"/api/v1/user/cards/{id}":              {"GET", "PUT", "DELETE"},
		"/api/v1/user/cards/{id}/default":      {"PUT"},
		"/webhooks/card-updated":               {"POST"},
		"/api/webhooks/paypal/account-updater": {"POST"},
	}
	for path, methods := range want {
		item := doc.Paths.Find(path)
		require.NotNil(t, item, path)
		for _, method := range methods {
			assert.NotNil(t, item.GetOperation(method), "%s %s", method, path)
		}
	}
}

func TestOpenAPIWebhookOutcomes(t *testing.T) {
	doc := loadDocument(t)

	schema := doc.Components.Schemas["WebhookResponse"].Value
	require.NotNil(t, schema)
	status := schema.Properties["status"].Value
	assert.ElementsMatch(t, []any{"updated", "matched_no_change", "unmatched", "rejected"}, status.Enum)
}
