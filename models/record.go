// Package models defines data structures for the shelf exporter.
package models

import (
	"sort"
	"time"
)

// ItemRef identifies one collection item before its detail page is fetched.
// Produced by discovery, consumed exactly once by the pipeline.
type ItemRef struct {
	ID    int64  `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Year  *int   `json:"yearOfProduction,omitempty"`
}

// Record is the fully-extracted detail of one collection item. Optional
// fields are pointers; a Record is never partially populated.
type Record struct {
	ID               int64    `csv:"id" json:"id"`
	Title            string   `csv:"title" json:"title"`
	Authors          []string `csv:"authors" json:"author"`
	ISBN             *string  `csv:"isbn" json:"isbn,omitempty"`
	Description      *string  `csv:"description" json:"description,omitempty"`
	Genres           []string `csv:"genres" json:"genres"`
	Rating           *float64 `csv:"rating" json:"rating,omitempty"`
	RatingCount      *int     `csv:"rating_count" json:"rating_count,omitempty"`
	ImageURL         *string  `csv:"image_url" json:"image_url,omitempty"`
	PublicationDate  *string  `csv:"publication_date" json:"publication_date,omitempty"`
	YearOfProduction *int     `csv:"year_of_production" json:"year_of_production,omitempty"`
}

// FailedRef records one reference whose fetch or extraction failed, with
// enough context to retry it manually.
type FailedRef struct {
	ID     int64
	URL    string
	Reason string
}

// Run holds the overall result of one pipeline run. Results are in
// completion order; callers needing a stable order should sort by ID.
type Run struct {
	Results      []*Record
	Failed       []FailedRef
	Absent       int
	StartTime    time.Time
	EndTime      time.Time
	RefCount     int
	ErrorsByType map[string]int
}

// Failures returns the number of failed references.
func (r *Run) Failures() int {
	return len(r.Failed)
}

// SortByID orders records by ascending ID for reproducible output.
func SortByID(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
}
