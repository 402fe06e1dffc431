package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/triage/internal/archive"
	"github.com/dyluth/triage/internal/config"
	"github.com/dyluth/triage/internal/enrichers"
	"github.com/dyluth/triage/internal/printer"
	"github.com/dyluth/triage/pkg/pipeline"
)

var (
	submitContent    string
	submitCustomerID string
	submitTicketID   string
	submitConfigPath string
	submitTimeout    time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a ticket and wait for full enrichment",
	Long: `Submit a support ticket to the enrichment pipeline and wait until every
field (language, sentiment, category, priority) has reached a terminal
result, then print the triage report.

Requires HUGGING_FACE_API_TOKEN and OPENAI_API_KEY in the environment
(a local .env file is also read).

Examples:
  # Submit ticket text directly
  triage submit --content "My payment failed twice" --customer customer1

  # Pipe the ticket text in
  cat ticket.txt | triage submit --customer customer2

  # Use a config file and a tighter deadline
  triage submit -f triage.yml --timeout 15s --content "App crashes on login"`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitContent, "content", "c", "", "Ticket text (read from stdin if omitted)")
	submitCmd.Flags().StringVar(&submitCustomerID, "customer", "", "Customer identifier")
	submitCmd.Flags().StringVar(&submitTicketID, "id", "", "Ticket ID (generated if omitted)")
	submitCmd.Flags().StringVarP(&submitConfigPath, "config", "f", "triage.yml", "Path to triage.yml")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 60*time.Second, "Deadline for full enrichment")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	content := strings.TrimSpace(submitContent)
	if content == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read ticket content from stdin: %w", err)
		}
		content = strings.TrimSpace(string(data))
	}
	if content == "" {
		return printer.Error(
			"no ticket content provided",
			"Usage:\n  triage submit --content \"the ticket text\"\n\nOr pipe the text in:\n  cat ticket.txt | triage submit",
			nil,
		)
	}

	cfg, err := loadConfig(submitConfigPath)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	if err := startArchiver(ctx, cfg, p); err != nil {
		return err
	}

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	ticketID := submitTicketID
	if ticketID == "" {
		ticketID = uuid.New().String()
	}

	ticket := pipeline.SupportTicket{
		ID:         ticketID,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		CustomerID: submitCustomerID,
	}

	printer.Step("Enriching ticket %s...\n", ticketID)
	result, err := p.ProcessTicket(ctx, ticket)
	if err != nil {
		return printer.Error(
			"ticket enrichment did not converge",
			err.Error(),
			[]string{"Increase the deadline:\n  triage submit --timeout 120s ..."},
		)
	}

	printer.Success("Ticket enriched\n\n")
	printer.RenderTicket(os.Stdout, result)
	return nil
}

// loadConfig reads the config file, falling back to defaults when the default
// path does not exist.
func loadConfig(path string) (*config.TriageConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildPipeline wires all four enrichers from config and environment.
func buildPipeline(cfg *config.TriageConfig) (*pipeline.Pipeline, error) {
	hfToken := os.Getenv("HUGGING_FACE_API_TOKEN")
	if hfToken == "" {
		return nil, printer.Error(
			"HUGGING_FACE_API_TOKEN is not set",
			"The sentiment enricher calls the HuggingFace inference API and needs a bearer token.",
			[]string{"Export it:\n  export HUGGING_FACE_API_TOKEN=hf_...", "Or add it to a local .env file"},
		)
	}
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, printer.Error(
			"OPENAI_API_KEY is not set",
			"The classification enricher calls the OpenAI API and needs an API key.",
			[]string{"Export it:\n  export OPENAI_API_KEY=sk-...", "Or add it to a local .env file"},
		)
	}

	sentiment, err := enrichers.NewSentimentEnricher(cfg.Sentiment.Endpoint, hfToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentiment enricher: %w", err)
	}
	classification, err := enrichers.NewClassificationEnricher(
		openAIKey, cfg.Classification.BaseURL, cfg.Classification.Model, cfg.Classification.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification enricher: %w", err)
	}

	return pipeline.NewPipeline(cfg.Pipeline.BusCapacity).
		WithEnricher(enrichers.NewLanguageEnricher()).
		WithEnricher(sentiment).
		WithEnricher(classification).
		WithEnricher(enrichers.NewPriorityEnricher()), nil
}

// startArchiver launches the Redis archive sink if the config enables it.
func startArchiver(ctx context.Context, cfg *config.TriageConfig, p *pipeline.Pipeline) error {
	if cfg.Archive == nil {
		return nil
	}

	opts, err := redis.ParseURL(cfg.Archive.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid archive.redis_url: %w", err)
	}

	// The submit flow reads the converged ticket back from the live store,
	// so eviction stays off here; the store's lifetime is the process.
	archiver := archive.NewArchiver(opts, false)
	if err := archiver.Ping(ctx); err != nil {
		return printer.Error(
			"cannot connect to Redis archive",
			fmt.Sprintf("Ping to %s failed: %v", cfg.Archive.RedisURL, err),
			[]string{"Start Redis:\n  docker run -d -p 6379:6379 redis:7", "Or remove the archive section from triage.yml"},
		)
	}

	go archiver.Run(ctx, p.Subscribe(), p.Store())
	return nil
}
