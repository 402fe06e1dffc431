package enrichers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/triage/pkg/pipeline"
)

// chatStub answers the OpenAI chat completions route with a fixed message
// content, capturing the request body for assertions.
func chatStub(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		if capture != nil {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, capture))
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4.1-nano",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func classificationTicket(content string) pipeline.TriagedTicket {
	return pipeline.NewTriagedTicket(pipeline.SupportTicket{ID: "t-1", Content: content, CustomerID: "customer1"})
}

func TestClassificationEnricher_Masks(t *testing.T) {
	e, err := NewClassificationEnricher("key", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, pipeline.NoFields, e.RequiredFields())
	assert.Equal(t, pipeline.FieldCategory, e.OutputFields())
}

func TestNewClassificationEnricher_RequiresKey(t *testing.T) {
	_, err := NewClassificationEnricher("", "", "", 0)
	assert.Error(t, err)
}

func TestClassificationEnricher_Success(t *testing.T) {
	var captured map[string]any
	srv := chatStub(t, `{"category":"Billing","confidence":0.95}`, &captured)
	defer srv.Close()

	e, err := NewClassificationEnricher("key", srv.URL+"/v1", "gpt-4.1-nano", 50)
	require.NoError(t, err)

	update := e.Process(context.Background(), classificationTicket("My payment failed and I can't access my account"))

	require.True(t, update.Category.IsSuccess())
	assert.Equal(t, pipeline.CategoryBilling, update.Category.Value)
	assert.Equal(t, pipeline.FieldCategory, update.CompletedFields())

	// The request enforces the strict structured-output contract.
	assert.Equal(t, "gpt-4.1-nano", captured["model"])
	responseFormat, ok := captured["response_format"].(map[string]any)
	require.True(t, ok, "request must carry a response_format")
	assert.Equal(t, "json_schema", responseFormat["type"])

	jsonSchema, ok := responseFormat["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "classification", jsonSchema["name"])
	assert.Equal(t, true, jsonSchema["strict"])

	schema, ok := jsonSchema["schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, schema["additionalProperties"])

	properties := schema["properties"].(map[string]any)
	category := properties["category"].(map[string]any)
	enum := category["enum"].([]any)
	assert.Len(t, enum, 7, "category enum must cover the full label set")
	assert.Contains(t, enum, "Billing")
	assert.Contains(t, enum, "Other")

	// Prompt carries the ticket text.
	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	prompt := messages[0].(map[string]any)["content"].(string)
	assert.Contains(t, prompt, "My payment failed")
}

func TestClassificationEnricher_InvalidCategory(t *testing.T) {
	srv := chatStub(t, `{"category":"Refunds","confidence":0.9}`, nil)
	defer srv.Close()

	e, err := NewClassificationEnricher("key", srv.URL+"/v1", "", 0)
	require.NoError(t, err)

	update := e.Process(context.Background(), classificationTicket("hello"))

	require.Equal(t, pipeline.StateError, update.Category.State)
	assert.Equal(t, pipeline.KindClassification, update.Category.Err.Kind)
}

func TestClassificationEnricher_MalformedContent(t *testing.T) {
	srv := chatStub(t, `not json at all`, nil)
	defer srv.Close()

	e, err := NewClassificationEnricher("key", srv.URL+"/v1", "", 0)
	require.NoError(t, err)

	update := e.Process(context.Background(), classificationTicket("hello"))

	require.Equal(t, pipeline.StateError, update.Category.State)
	assert.Equal(t, pipeline.KindClassification, update.Category.Err.Kind)
	assert.Contains(t, update.Category.Err.Message, "parse classification response")
}

func TestClassificationEnricher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	e, err := NewClassificationEnricher("key", srv.URL+"/v1", "", 0)
	require.NoError(t, err)

	update := e.Process(context.Background(), classificationTicket("hello"))

	require.Equal(t, pipeline.StateError, update.Category.State)
	assert.Equal(t, pipeline.KindClassification, update.Category.Err.Kind)
}
