package enrichers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dyluth/triage/pkg/pipeline"
)

// DefaultSentimentEndpoint is the HuggingFace inference route for the
// multilingual sentiment model used in production.
const DefaultSentimentEndpoint = "https://router.huggingface.co/hf-inference/models/tabularisai/multilingual-sentiment-analysis"

// SentimentEnricher scores ticket sentiment via a remote inference endpoint.
// Transport failures and malformed responses both become a terminal error on
// the sentiment field; the pipeline never retries.
type SentimentEnricher struct {
	Endpoint string
	APIToken string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// NewSentimentEnricher creates an enricher for the given endpoint and bearer
// token. An empty endpoint falls back to DefaultSentimentEndpoint.
func NewSentimentEnricher(endpoint, apiToken string) (*SentimentEnricher, error) {
	if apiToken == "" {
		return nil, fmt.Errorf("sentiment: API token is required")
	}
	if endpoint == "" {
		endpoint = DefaultSentimentEndpoint
	}
	return &SentimentEnricher{Endpoint: endpoint, APIToken: apiToken}, nil
}

// Name implements pipeline.Enricher.
func (e *SentimentEnricher) Name() string { return "sentiment" }

// RequiredFields implements pipeline.Enricher.
func (e *SentimentEnricher) RequiredFields() pipeline.FieldMask { return pipeline.NoFields }

// OutputFields implements pipeline.Enricher.
func (e *SentimentEnricher) OutputFields() pipeline.FieldMask { return pipeline.FieldSentiment }

// Process implements pipeline.Enricher.
func (e *SentimentEnricher) Process(ctx context.Context, ticket pipeline.TriagedTicket) pipeline.TriagedTicket {
	update := pipeline.NewTriagedTicket(ticket.Ticket)

	score, fieldErr := e.analyze(ctx, ticket.Ticket.Content)
	if fieldErr != nil {
		update.Sentiment = pipeline.Failure[pipeline.SentimentScore](fieldErr)
		return update
	}

	update.Sentiment = pipeline.Success(score)
	return update
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	TopK int `json:"top_k"`
}

type inferencePrediction struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// analyze posts the ticket text and extracts the single top-ranked
// prediction. The endpoint responds with a nested array:
// [[{"label":"Very Positive","score":0.64}]].
func (e *SentimentEnricher) analyze(ctx context.Context, text string) (pipeline.SentimentScore, *pipeline.FieldError) {
	var zero pipeline.SentimentScore

	body, err := json.Marshal(inferenceRequest{
		Inputs:     text,
		Parameters: inferenceParameters{TopK: 1},
	})
	if err != nil {
		return zero, pipeline.NewFieldError(pipeline.KindSentimentAnalysis, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, pipeline.NewFieldError(pipeline.KindSentimentAnalysis, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return zero, pipeline.NewFieldError(pipeline.KindTransport, "%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, pipeline.NewFieldError(pipeline.KindSentimentAnalysis, "HTTP error: %s", resp.Status)
	}

	var predictions [][]inferencePrediction
	if err := json.NewDecoder(resp.Body).Decode(&predictions); err != nil {
		return zero, pipeline.NewFieldError(pipeline.KindSentimentAnalysis, "decode response: %v", err)
	}
	if len(predictions) == 0 || len(predictions[0]) == 0 {
		return zero, pipeline.NewFieldError(pipeline.KindSentimentAnalysis, "invalid response format")
	}

	top := predictions[0][0]
	return pipeline.SentimentScore{
		Label:      pipeline.ParseSentimentLabel(top.Label),
		Confidence: top.Score,
	}, nil
}

func (e *SentimentEnricher) httpClient() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
