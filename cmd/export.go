package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tracked errors as JSON, CSV, or Markdown",
	Long:  "Export the tracked error set for use in spreadsheets, dashboards, or reports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&errorsCriticality, "criticality", "", "Filter by criticality")
	exportCmd.Flags().StringVar(&errorsCategory, "category", "", "Filter by category")
	rootCmd.AddCommand(exportCmd)
}

type exportedError struct {
	ErrorHash    string   `json:"error_hash"`
	ReviewID     string   `json:"review_id"`
	ReviewerName string   `json:"reviewer_name,omitempty"`
	Date         string   `json:"date,omitempty"`
	ErrorSummary string   `json:"error_summary"`
	ErrorTypes   []string `json:"error_types"`
	Criticality  string   `json:"criticality"`
	Rationale    string   `json:"rationale,omitempty"`
	UpdatedAt    string   `json:"updated_at"`
}

func toExported(e *models.TrackedError) exportedError {
	return exportedError{
		ErrorHash:    e.ErrorHash,
		ReviewID:     e.ReviewID,
		ReviewerName: e.ReviewerName,
		Date:         e.Date,
		ErrorSummary: e.ErrorSummary,
		ErrorTypes:   e.ErrorTypes,
		Criticality:  string(e.Criticality),
		Rationale:    e.Rationale,
		UpdatedAt:    e.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	errs, err := s.ListErrors(context.Background(), store.ErrorListFilter{
		Criticality: models.Criticality(errorsCriticality),
		Category:    errorsCategory,
	})
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		out := make([]exportedError, 0, len(errs))
		for _, e := range errs {
			out = append(out, toExported(e))
		}
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"Hash", "ReviewID", "Reviewer", "Date", "Summary", "Types", "Criticality", "Updated"})
		for _, e := range errs {
			w.Write([]string{
				e.ErrorHash, e.ReviewID, e.ReviewerName, e.Date,
				e.ErrorSummary, strings.Join(e.ErrorTypes, ";"),
				string(e.Criticality), e.UpdatedAt.Format("2006-01-02"),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Tracked Errors")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Hash | Review | Criticality | Types | Summary |")
		fmt.Fprintln(ui.Out, "|------|--------|-------------|-------|---------|")
		for _, e := range errs {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s |\n",
				e.ErrorHash, e.ReviewID, e.Criticality,
				strings.Join(e.ErrorTypes, ", "), e.ErrorSummary)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: json, csv, markdown)", exportFormat)
	}
}
