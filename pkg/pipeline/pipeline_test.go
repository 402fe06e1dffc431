package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnricher is a scriptable enricher that records every invocation along
// with the completed mask it observed, so tests can assert the gating
// predicate was honoured.
type fakeEnricher struct {
	name     string
	required FieldMask
	output   FieldMask
	apply    func(update *TriagedTicket, snapshot TriagedTicket)
	delay    time.Duration

	mu            sync.Mutex
	calls         map[string]int
	observedMasks []FieldMask
}

func (f *fakeEnricher) Name() string              { return f.name }
func (f *fakeEnricher) RequiredFields() FieldMask { return f.required }
func (f *fakeEnricher) OutputFields() FieldMask   { return f.output }

func (f *fakeEnricher) Process(ctx context.Context, ticket TriagedTicket) TriagedTicket {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[ticket.Ticket.ID]++
	f.observedMasks = append(f.observedMasks, ticket.CompletedFields())
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	update := NewTriagedTicket(ticket.Ticket)
	f.apply(&update, ticket)
	return update
}

func (f *fakeEnricher) callCount(ticketID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ticketID]
}

func fakeLanguage() *fakeEnricher {
	return &fakeEnricher{
		name:   "language",
		output: FieldLanguage,
		apply: func(update *TriagedTicket, _ TriagedTicket) {
			update.Language = Success(Language("English"))
		},
	}
}

func fakeSentiment(label SentimentLabel, confidence float32) *fakeEnricher {
	return &fakeEnricher{
		name:   "sentiment",
		output: FieldSentiment,
		delay:  5 * time.Millisecond,
		apply: func(update *TriagedTicket, _ TriagedTicket) {
			update.Sentiment = Success(SentimentScore{Label: label, Confidence: confidence})
		},
	}
}

func fakeCategory(category Category) *fakeEnricher {
	return &fakeEnricher{
		name:   "classification",
		output: FieldCategory,
		delay:  5 * time.Millisecond,
		apply: func(update *TriagedTicket, _ TriagedTicket) {
			update.Category = Success(category)
		},
	}
}

// fakePriority mirrors the real derivation's dependency rule: both inputs
// must be Success, anything else terminal yields a field error.
func fakePriority() *fakeEnricher {
	return &fakeEnricher{
		name:     "priority",
		required: FieldSentiment | FieldCategory,
		output:   FieldPriority,
		apply: func(update *TriagedTicket, snapshot TriagedTicket) {
			if snapshot.Sentiment.IsSuccess() && snapshot.Category.IsSuccess() {
				update.Priority = Success(PriorityHigh)
				return
			}
			update.Priority = Failure[Priority](NewFieldError(KindPriorityCalculation,
				"sentiment and category are required"))
		},
	}
}

func TestRun_NoEnrichersIsFatal(t *testing.T) {
	p := NewPipeline(0)
	err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoEnrichers)
}

func TestProcessTicket_ConvergesWithAllFields(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	language := fakeLanguage()
	sentiment := fakeSentiment(SentimentNegative, 0.9)
	category := fakeCategory(CategoryBilling)
	priority := fakePriority()

	p := NewPipeline(0).
		WithEnricher(language).
		WithEnricher(sentiment).
		WithEnricher(category).
		WithEnricher(priority)
	require.NoError(t, p.Run(ctx))
	defer p.Close()

	triaged, err := p.ProcessTicket(ctx, testTicket())
	require.NoError(t, err)

	assert.True(t, triaged.Converged())
	assert.Equal(t, Language("English"), triaged.Language.Value)
	assert.Equal(t, SentimentNegative, triaged.Sentiment.Value.Label)
	assert.Equal(t, CategoryBilling, triaged.Category.Value)
	assert.Equal(t, PriorityHigh, triaged.Priority.Value)

	// Each enricher ran exactly once despite the storm of completion events.
	for _, e := range []*fakeEnricher{language, sentiment, category, priority} {
		assert.Equal(t, 1, e.callCount("test-1"), "enricher %s", e.name)
	}
}

func TestGatingPredicate_Honoured(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	enrichers := []*fakeEnricher{
		fakeLanguage(),
		fakeSentiment(SentimentNeutral, 0.7),
		fakeCategory(CategoryAccount),
		fakePriority(),
	}

	p := NewPipeline(0)
	for _, e := range enrichers {
		p.WithEnricher(e)
	}
	require.NoError(t, p.Run(ctx))
	defer p.Close()

	_, err := p.ProcessTicket(ctx, testTicket())
	require.NoError(t, err)

	for _, e := range enrichers {
		e.mu.Lock()
		for _, mask := range e.observedMasks {
			assert.True(t, mask.Contains(e.required),
				"%s invoked before its dependencies were met (mask: %s)", e.name, mask)
			assert.False(t, mask.Intersects(e.output),
				"%s invoked after its output was already terminal (mask: %s)", e.name, mask)
		}
		e.mu.Unlock()
	}
}

// A failed dependency must not hang priority: it resolves to a terminal
// error once its dependencies reach any terminal state, and the ticket still
// converges with mixed outcomes.
func TestProcessTicket_ConvergesWithMixedOutcomes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	failingSentiment := &fakeEnricher{
		name:   "sentiment",
		output: FieldSentiment,
		apply: func(update *TriagedTicket, _ TriagedTicket) {
			update.Sentiment = Failure[SentimentScore](NewFieldError(KindTransport, "connection refused"))
		},
	}

	p := NewPipeline(0).
		WithEnricher(fakeLanguage()).
		WithEnricher(failingSentiment).
		WithEnricher(fakeCategory(CategoryTechnical)).
		WithEnricher(fakePriority())
	require.NoError(t, p.Run(ctx))
	defer p.Close()

	triaged, err := p.ProcessTicket(ctx, testTicket())
	require.NoError(t, err, "a per-field failure must not fail the submission")

	assert.True(t, triaged.Converged())
	assert.True(t, triaged.Language.IsSuccess())
	assert.True(t, triaged.Category.IsSuccess())

	require.Equal(t, StateError, triaged.Sentiment.State)
	assert.Equal(t, KindTransport, triaged.Sentiment.Err.Kind)

	require.Equal(t, StateError, triaged.Priority.State)
	assert.Equal(t, KindPriorityCalculation, triaged.Priority.Err.Kind)
}

func TestProcessTicket_ConcurrentTicketsAreIndependent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	language := fakeLanguage()
	sentiment := fakeSentiment(SentimentPositive, 0.8)
	category := fakeCategory(CategoryFeedback)
	priority := fakePriority()

	p := NewPipeline(64).
		WithEnricher(language).
		WithEnricher(sentiment).
		WithEnricher(category).
		WithEnricher(priority)
	require.NoError(t, p.Run(ctx))
	defer p.Close()

	ids := []string{"ticket-a", "ticket-b", "ticket-c"}
	results := make([]TriagedTicket, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			triaged, err := p.ProcessTicket(ctx, SupportTicket{
				ID:         id,
				Content:    "content for " + id,
				Timestamp:  time.Now(),
				CustomerID: "customer-" + id,
			})
			assert.NoError(t, err)
			results[i] = triaged
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		assert.Equal(t, id, results[i].Ticket.ID)
		assert.Equal(t, "content for "+id, results[i].Ticket.Content)
		assert.True(t, results[i].Converged())

		// An enricher's output for one ID is never applied to another.
		for _, e := range []*fakeEnricher{language, sentiment, category, priority} {
			assert.Equal(t, 1, e.callCount(id), "enricher %s for %s", e.name, id)
		}
	}
}

// With one field never produced, the ticket cannot converge; the caller's
// context is the only way out.
func TestProcessTicket_StalledFieldBlocksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	p := NewPipeline(0).
		WithEnricher(fakeLanguage()).
		WithEnricher(fakeSentiment(SentimentNeutral, 0.5)).
		WithEnricher(fakeCategory(CategoryOther))
	// No priority enricher: FieldPriority stays Pending forever.
	require.NoError(t, p.Run(ctx))
	defer p.Close()

	_, err := p.ProcessTicket(ctx, testTicket())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessTicket_BusClosureIsFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	blocked := make(chan struct{})
	stall := &fakeEnricher{
		name:   "stall",
		output: FieldLanguage,
		apply: func(update *TriagedTicket, _ TriagedTicket) {
			<-blocked
			update.Language = Success(Language("English"))
		},
	}
	defer close(blocked)

	p := NewPipeline(0).WithEnricher(stall)
	require.NoError(t, p.Run(ctx))

	go func() {
		time.Sleep(50 * time.Millisecond)
		p.Close()
	}()

	_, err := p.ProcessTicket(ctx, testTicket())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusClosed)
}
