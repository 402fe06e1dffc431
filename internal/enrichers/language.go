// Package enrichers contains the concrete enrichment units wired into the
// triage pipeline: offline language detection, remote sentiment inference,
// remote category classification and pure priority derivation.
package enrichers

import (
	"context"

	"github.com/pemistahl/lingua-go"

	"github.com/dyluth/triage/pkg/pipeline"
)

// LanguageEnricher detects the ticket's language with lingua's statistical
// models. Detection is synchronous and fully offline.
type LanguageEnricher struct {
	detector lingua.LanguageDetector
}

// NewLanguageEnricher builds a detector over every language lingua supports.
// Model data is loaded lazily on first use.
func NewLanguageEnricher() *LanguageEnricher {
	return &LanguageEnricher{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// Name implements pipeline.Enricher.
func (e *LanguageEnricher) Name() string { return "language" }

// RequiredFields implements pipeline.Enricher. Language detection needs only
// the raw ticket content.
func (e *LanguageEnricher) RequiredFields() pipeline.FieldMask { return pipeline.NoFields }

// OutputFields implements pipeline.Enricher.
func (e *LanguageEnricher) OutputFields() pipeline.FieldMask { return pipeline.FieldLanguage }

// Process implements pipeline.Enricher.
func (e *LanguageEnricher) Process(_ context.Context, ticket pipeline.TriagedTicket) pipeline.TriagedTicket {
	update := pipeline.NewTriagedTicket(ticket.Ticket)

	language, ok := e.detector.DetectLanguageOf(ticket.Ticket.Content)
	if !ok {
		update.Language = pipeline.Failure[pipeline.Language](
			pipeline.NewFieldError(pipeline.KindLanguageDetection, "unable to detect language"))
		return update
	}

	update.Language = pipeline.Success(pipeline.Language(language.String()))
	return update
}
