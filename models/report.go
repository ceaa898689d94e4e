package models

// ColumnSummary holds the metrics for one numeric column.
// Count is the table's row count; the other fields cover non-null values only.
type ColumnSummary struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	NonNull int     `json:"non_null"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Range is an inclusive [Lower, Upper] bound on a numeric column.
type Range struct {
	Column string  `json:"column"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return r.Lower <= v && v <= r.Upper
}

// Bin is one histogram bucket. Buckets are half-open except the last.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Metric is a dashboard tile for one numeric column.
type Metric struct {
	Column string  `json:"column"`
	Label  string  `json:"label"`
	Unit   string  `json:"unit,omitempty"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
}

// FilterState describes a range slider: its bounds and current selection.
type FilterState struct {
	Column string  `json:"column"`
	Label  string  `json:"label"`
	Unit   string  `json:"unit,omitempty"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  Range   `json:"range"`
}

// Chart is a histogram of one column over the filtered view.
type Chart struct {
	Column string `json:"column"`
	Label  string `json:"label"`
	Unit   string `json:"unit,omitempty"`
	Bins   []Bin  `json:"bins"`
}

// DashboardReport is everything the presentation layer needs for a category.
type DashboardReport struct {
	Category      string        `json:"category"`
	Label         string        `json:"label"`
	TotalListings int           `json:"total_listings"`
	FilteredCount int           `json:"filtered_count"`
	Metrics       []Metric      `json:"metrics"`
	Filters       []FilterState `json:"filters"`
	Charts        []Chart       `json:"charts"`
	Filtered      *Table        `json:"-"`
}
