package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ruvxn/revtriage/internal/detect"
	"github.com/ruvxn/revtriage/internal/ingest"
	"github.com/ruvxn/revtriage/internal/llm"
	"github.com/ruvxn/revtriage/internal/output"
	"github.com/ruvxn/revtriage/internal/pipeline"
)

// previewRows bounds how many enriched errors the run summary prints.
const previewRows = 20

var (
	runLimit    int
	runOffset   int
	runWorkers  int
	runProvider string
	runModel    string
)

var runCmd = &cobra.Command{
	Use:   "run [reviews.csv]",
	Short: "Run the review triage pipeline",
	Long: `Run the full pipeline: ingest reviews from CSV, detect errors per
review (LLM with keyword fallbacks), classify criticality, deduplicate
by content hash, and upsert into the tracking database.

The CSV must contain the columns: review_id, review, username, email,
date, reviewer_name, rating. The file may also be set via data_path in
config. Use --dry-run to preview the upserts without writing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("data_path")
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no reviews file given (pass a path or set data_path in config)")
		}
		return runPipeline(cmd.Context(), path)
	},
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Process at most N reviews (0 = all)")
	runCmd.Flags().IntVar(&runOffset, "offset", 0, "Skip the first N reviews")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent detection workers (default from config)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "Completion provider: ollama, anthropic (default from config)")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model name (default from config per provider)")
	rootCmd.AddCommand(runCmd)
}

// newCompleter builds the completion backend from flags/config. A
// backend that cannot be configured yields nil: the detector then runs
// on its keyword fallback layers alone.
func newCompleter() llm.Completer {
	provider := runProvider
	if provider == "" {
		provider = viper.GetString("provider")
	}

	model := runModel
	if model == "" {
		switch provider {
		case "anthropic":
			model = viper.GetString("anthropic.model")
		default:
			model = viper.GetString("ollama.model")
		}
	}

	switch provider {
	case "anthropic":
		apiKey := viper.GetString("anthropic.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			ui.Warning("ANTHROPIC_API_KEY not set; running on keyword fallbacks only")
			return nil
		}
		return llm.NewAnthropic(apiKey, model)
	case "ollama", "":
		return llm.NewOllama(model, viper.GetString("ollama.host"))
	default:
		ui.Warning("unknown provider %q; running on keyword fallbacks only", provider)
		return nil
	}
}

func runPipeline(ctx context.Context, path string) error {
	reviews, err := ingest.ReadFile(path, ingest.Options{Offset: runOffset, Limit: runLimit})
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		ui.Info("No reviews to process.")
		return nil
	}

	completer := newCompleter()
	if completer != nil {
		ui.VerboseLog("using %s completion backend", completer.Name())
	}

	workers := runWorkers
	if workers == 0 {
		workers = viper.GetInt("workers")
	}

	var sink pipeline.Sink
	var dry *pipeline.DryRunSink
	if dryRun {
		dry = &pipeline.DryRunSink{}
		sink = dry
	} else {
		s, err := getStore()
		if err != nil {
			return err
		}
		sink = pipeline.NewStoreSink(s)
	}

	ui.Info("Processing %d reviews...", len(reviews))
	result, err := pipeline.New(detect.New(completer), sink, workers).Run(ctx, reviews)
	if err != nil {
		return err
	}

	if len(result.Enriched) > 0 {
		table := ui.Table([]string{"Review", "Criticality", "Types", "Summary"})
		for i, e := range result.Enriched {
			if i == previewRows {
				break
			}
			_ = table.Append([]string{
				e.Review.ReviewID,
				output.CriticalityColor(string(e.Criticality)),
				fmt.Sprintf("%v", e.Error.ErrorType),
				e.Error.ErrorSummary,
			})
		}
		_ = table.Render()
		if len(result.Enriched) > previewRows {
			ui.Info("...and %d more", len(result.Enriched)-previewRows)
		}
	}

	for _, f := range result.Failures {
		ui.Warning("skipped %s: %v", f.Hash, f.Err)
	}

	if dry != nil {
		ui.DryRunMsg("Would upsert %d errors from %d reviews", len(dry.Planned), result.ReviewsProcessed)
		return nil
	}

	ui.Success("Processed %d reviews: %d errors upserted, %d skipped",
		result.ReviewsProcessed, result.Upserted, len(result.Failures))
	return nil
}
