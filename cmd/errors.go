package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/output"
	"github.com/ruvxn/revtriage/internal/store"
)

var (
	errorsCriticality string
	errorsCategory    string
	errorsReview      string
)

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Inspect tracked errors",
	Long:  "List and inspect errors recorded by previous pipeline runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return errorsListRun()
	},
}

var errorsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return errorsListRun()
	},
}

var errorsShowCmd = &cobra.Command{
	Use:   "show <hash>",
	Short: "Show a tracked error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errorsShowRun(args[0])
	},
}

var errorsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show error counts by criticality",
	RunE: func(cmd *cobra.Command, args []string) error {
		return errorsStatsRun()
	},
}

func init() {
	for _, c := range []*cobra.Command{errorsCmd, errorsListCmd} {
		c.Flags().StringVar(&errorsCriticality, "criticality", "", "Filter by criticality: Critical, Major, Minor, Suggestion")
		c.Flags().StringVar(&errorsCategory, "category", "", "Filter by category (e.g. Crash, Billing, UI)")
		c.Flags().StringVar(&errorsReview, "review", "", "Filter by review id")
	}

	errorsCmd.AddCommand(errorsListCmd)
	errorsCmd.AddCommand(errorsShowCmd)
	errorsCmd.AddCommand(errorsStatsCmd)
	rootCmd.AddCommand(errorsCmd)
}

func errorsListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.ErrorListFilter{
		ReviewID:    errorsReview,
		Criticality: models.Criticality(errorsCriticality),
		Category:    errorsCategory,
	}

	errs, err := s.ListErrors(ctx, filter)
	if err != nil {
		return err
	}

	if len(errs) == 0 {
		ui.Info("No tracked errors found.")
		return nil
	}

	table := ui.Table([]string{"Hash", "Review", "Criticality", "Types", "Summary"})
	for _, e := range errs {
		_ = table.Append([]string{
			e.ErrorHash,
			e.ReviewID,
			output.CriticalityColor(string(e.Criticality)),
			strings.Join(e.ErrorTypes, ", "),
			e.ErrorSummary,
		})
	}
	_ = table.Render()
	return nil
}

func errorsShowRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	e, err := s.GetErrorByHash(ctx, hash)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(e.ErrorHash), e.ErrorSummary)
	fmt.Fprintf(ui.Out, "  Review:      %s\n", e.ReviewID)
	if e.ReviewerName != "" {
		fmt.Fprintf(ui.Out, "  Reviewer:    %s\n", e.ReviewerName)
	}
	if e.Date != "" {
		fmt.Fprintf(ui.Out, "  Date:        %s\n", e.Date)
	}
	fmt.Fprintf(ui.Out, "  Criticality: %s\n", output.CriticalityColor(string(e.Criticality)))
	fmt.Fprintf(ui.Out, "  Types:       %s\n", strings.Join(e.ErrorTypes, ", "))
	if e.Rationale != "" {
		fmt.Fprintf(ui.Out, "  Rationale:   %s\n", e.Rationale)
	}
	if e.ReviewText != "" {
		fmt.Fprintf(ui.Out, "  Review text: %s\n", e.ReviewText)
	}
	fmt.Fprintf(ui.Out, "  Updated:     %s\n", e.UpdatedAt.Format("2006-01-02 15:04"))
	return nil
}

func errorsStatsRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Criticality", "Count"})
	for _, c := range []models.Criticality{
		models.CriticalityCritical,
		models.CriticalityMajor,
		models.CriticalityMinor,
		models.CriticalitySuggestion,
	} {
		if n := stats.ByCriticality[c]; n > 0 {
			_ = table.Append([]string{output.CriticalityColor(string(c)), fmt.Sprintf("%d", n)})
		}
	}
	_ = table.Render()
	ui.Info("%d tracked errors total", stats.Total)
	return nil
}
