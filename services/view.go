package services

import (
	"web-scraper-app/models"
)

// View is a read-only, lazily evaluated subset of a cleaned table.
// Each range is inclusive; ranges combine with logical AND.
type View struct {
	base   *models.Table
	ranges []models.Range
}

// NewView returns an unfiltered view of t.
func NewView(t *models.Table) *View {
	return &View{base: t}
}

// Where returns a new view further restricted to r. The receiver is unchanged.
func (v *View) Where(r models.Range) (*View, error) {
	if !v.base.HasColumn(r.Column) {
		return nil, &models.MissingColumnError{Column: r.Column}
	}
	ranges := make([]models.Range, len(v.ranges), len(v.ranges)+1)
	copy(ranges, v.ranges)
	return &View{base: v.base, ranges: append(ranges, r)}, nil
}

// Ranges returns the active ranges.
func (v *View) Ranges() []models.Range {
	return append([]models.Range(nil), v.ranges...)
}

// Base returns the underlying table.
func (v *View) Base() *models.Table {
	return v.base
}

// Records evaluates the view.
func (v *View) Records() []models.Record {
	out := make([]models.Record, 0, v.base.Len())
	for _, r := range v.base.Records {
		if v.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Table materialises the view with the base table's header.
func (v *View) Table() *models.Table {
	return v.base.Derive(v.Records())
}

// Len counts matching records without materialising them.
func (v *View) Len() int {
	n := 0
	for _, r := range v.base.Records {
		if v.match(r) {
			n++
		}
	}
	return n
}

func (v *View) match(r models.Record) bool {
	for _, rg := range v.ranges {
		f, ok := r.Get(rg.Column).Float()
		if !ok || !rg.Contains(f) {
			return false
		}
	}
	return true
}
