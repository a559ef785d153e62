package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ruvxn/revtriage/internal/models"
)

// requiredColumns must all be present in the CSV header. A missing
// column is a configuration error reported before any row is processed.
var requiredColumns = []string{
	"review_id", "review", "username", "email", "date", "reviewer_name", "rating",
}

// Options bounds ingestion for staged or development runs.
// Offset skips the first N data rows; Limit caps how many rows are
// returned after the offset (0 = no cap).
type Options struct {
	Offset int
	Limit  int
}

// ReadFile loads reviews from a CSV file at path.
func ReadFile(path string, opts Options) ([]models.RawReview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reviews file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, opts)
}

// Read loads reviews from CSV data. The header row is required and may
// list columns in any order; extra columns are ignored.
func Read(r io.Reader, opts Options) ([]models.RawReview, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reviews file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var reviews []models.RawReview
	rowNum := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNum+1, err)
		}
		rowNum++

		if rowNum <= opts.Offset {
			continue
		}
		if opts.Limit > 0 && len(reviews) >= opts.Limit {
			break
		}

		rating, err := strconv.Atoi(strings.TrimSpace(field(row, "rating")))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid rating %q: %w", rowNum, field(row, "rating"), err)
		}

		reviews = append(reviews, models.RawReview{
			ReviewID:     field(row, "review_id"),
			Review:       field(row, "review"),
			Username:     field(row, "username"),
			Email:        field(row, "email"),
			Date:         field(row, "date"),
			ReviewerName: field(row, "reviewer_name"),
			Rating:       rating,
		})
	}

	return reviews, nil
}
