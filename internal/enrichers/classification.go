package enrichers

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/dyluth/triage/pkg/pipeline"
)

// DefaultClassificationModel is the chat model used for ticket
// classification when the config does not specify one.
const DefaultClassificationModel = "gpt-4.1-nano"

// ClassificationEnricher classifies a ticket into one of the fixed support
// categories via an OpenAI chat completion with a strict JSON-schema response
// contract. Parse and schema failures are terminal errors on the category
// field.
type ClassificationEnricher struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewClassificationEnricher builds the enricher. baseURL is optional and
// exists so tests can point the client at a stub server.
func NewClassificationEnricher(apiKey, baseURL, model string, maxTokens int) (*ClassificationEnricher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("classification: API key is required")
	}
	if model == "" {
		model = DefaultClassificationModel
	}
	if maxTokens <= 0 {
		maxTokens = 50
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &ClassificationEnricher{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name implements pipeline.Enricher.
func (e *ClassificationEnricher) Name() string { return "classification" }

// RequiredFields implements pipeline.Enricher.
func (e *ClassificationEnricher) RequiredFields() pipeline.FieldMask { return pipeline.NoFields }

// OutputFields implements pipeline.Enricher.
func (e *ClassificationEnricher) OutputFields() pipeline.FieldMask { return pipeline.FieldCategory }

// Process implements pipeline.Enricher.
func (e *ClassificationEnricher) Process(ctx context.Context, ticket pipeline.TriagedTicket) pipeline.TriagedTicket {
	update := pipeline.NewTriagedTicket(ticket.Ticket)

	category, fieldErr := e.classify(ctx, ticket.Ticket.Content)
	if fieldErr != nil {
		update.Category = pipeline.Failure[pipeline.Category](fieldErr)
		return update
	}

	update.Category = pipeline.Success(category)
	return update
}

// classificationResponse is the strict output contract enforced on the model.
type classificationResponse struct {
	Category   pipeline.Category `json:"category"`
	Confidence float32           `json:"confidence"`
}

// responseSchema constrains the model to the fixed category label set.
func responseSchema() jsonschema.Definition {
	labels := make([]string, 0, len(pipeline.Categories()))
	for _, c := range pipeline.Categories() {
		labels = append(labels, string(c))
	}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"category":   {Type: jsonschema.String, Enum: labels},
			"confidence": {Type: jsonschema.Number},
		},
		Required:             []string{"category", "confidence"},
		AdditionalProperties: false,
	}
}

func (e *ClassificationEnricher) classify(ctx context.Context, text string) (pipeline.Category, *pipeline.FieldError) {
	schema := responseSchema()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "classification",
				Schema: &schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", pipeline.NewFieldError(pipeline.KindClassification, "%v", err)
	}
	if len(resp.Choices) == 0 {
		return "", pipeline.NewFieldError(pipeline.KindClassification, "empty completion response")
	}

	var parsed classificationResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return "", pipeline.NewFieldError(pipeline.KindClassification, "parse classification response: %v", err)
	}
	if err := parsed.Category.Validate(); err != nil {
		return "", pipeline.NewFieldError(pipeline.KindClassification, "%v", err)
	}

	return parsed.Category, nil
}

func buildPrompt(content string) string {
	return fmt.Sprintf(`Read the customer support message below and classify it into one of the specified categories.
Output the category and your confidence in the classification as a number between 0.0 and 1.0. Format the result as JSON following the given schema.
{"category": "CategoryName", "confidence": 0.95}

Examples:
- "My payment failed and I can't access my account" -> {"category": "Billing", "confidence": 0.95}
- "The app crashes when I try to upload" -> {"category": "Technical", "confidence": 0.90}
- "I forgot my password" -> {"category": "Account", "confidence": 0.85}
- "Do you have a mobile app?" -> {"category": "General", "confidence": 0.80}

Ticket: %q`, content)
}
