package models

// RawReview is one customer review row as ingested from CSV.
// Instances are immutable for the duration of a pipeline run.
type RawReview struct {
	ReviewID     string
	Review       string
	Username     string
	Email        string
	Date         string
	ReviewerName string
	Rating       int
}
