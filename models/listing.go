package models

import "time"

// Field names shared by the collector and the dashboard.
const (
	FieldTitle     = "title"
	FieldPrice     = "price"
	FieldPage      = "page"
	FieldScrapedAt = "scraped_at"

	ColumnPrix         = "Prix"
	ColumnNombrePieces = "Nombre_pieces"
	ColumnSuperficie   = "Superficie"
)

// PageStatus distinguishes a fetched-but-empty page from a failed fetch.
type PageStatus int

const (
	PageOK PageStatus = iota
	PageEmpty
	PageFailed
)

func (s PageStatus) String() string {
	switch s {
	case PageOK:
		return "ok"
	case PageEmpty:
		return "empty"
	case PageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageResult is the outcome of fetching one listing page.
type PageResult struct {
	Page    int
	URL     string
	Status  PageStatus
	Records []Record
	Err     error
}

// RunReport summarises a sequential scraping run over pages 1..N.
type RunReport struct {
	RunID     string
	BaseURL   string
	StartedAt time.Time
	Duration  time.Duration
	Pages     []PageResult
	Table     *Table
}

// Count returns how many pages ended with status s.
func (r *RunReport) Count(s PageStatus) int {
	n := 0
	for _, p := range r.Pages {
		if p.Status == s {
			n++
		}
	}
	return n
}
