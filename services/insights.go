package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"web-scraper-app/models"
	"web-scraper-app/utils"
)

// Default filter bounds hide the tails of the distribution.
const (
	DefaultLowerQuantile = 0.10
	DefaultUpperQuantile = 0.90
)

// InsightService computes summary metrics and filtered views over cleaned tables.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Summarize computes count, mean, min and max for column. Count is the
// table's row count; the statistics ignore non-numeric cells.
func (s *InsightService) Summarize(t *models.Table, column string) (models.ColumnSummary, error) {
	if !t.HasColumn(column) {
		return models.ColumnSummary{}, &models.MissingColumnError{Column: column}
	}

	sum := models.ColumnSummary{Column: column, Count: t.Len()}
	values := t.Floats(column)
	if len(values) == 0 {
		return sum, nil
	}

	sum.NonNull = len(values)
	sum.Min, sum.Max = values[0], values[0]
	var total float64
	for _, v := range values {
		total += v
		if v < sum.Min {
			sum.Min = v
		}
		if v > sum.Max {
			sum.Max = v
		}
	}
	sum.Mean = total / float64(len(values))
	return sum, nil
}

// FilterRange returns the rows of t where lower <= column <= upper.
func (s *InsightService) FilterRange(t *models.Table, column string, lower, upper float64) (*View, error) {
	return NewView(t).Where(models.Range{Column: column, Lower: lower, Upper: upper})
}

// DefaultRange returns the 10th to 90th percentile span of column.
func (s *InsightService) DefaultRange(t *models.Table, column string) (models.Range, error) {
	if !t.HasColumn(column) {
		return models.Range{}, &models.MissingColumnError{Column: column}
	}
	values := t.Floats(column)
	lo, ok := Percentile(values, DefaultLowerQuantile)
	if !ok {
		return models.Range{}, fmt.Errorf("insights: column %q has no numeric values", column)
	}
	hi, _ := Percentile(values, DefaultUpperQuantile)
	return models.Range{Column: column, Lower: lo, Upper: hi}, nil
}

// Percentile returns the q-quantile (0..1) of values using linear
// interpolation between closest ranks.
func Percentile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 || q < 0 || q > 1 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, true
}

// Histogram buckets values into bins of equal width between their min and
// max. The last bin includes its upper edge.
func Histogram(values []float64, bins int) []models.Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []models.Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]models.Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// Print writes a console rendering of a dashboard report.
func (s *InsightService) Print(w io.Writer, r *models.DashboardReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  📊 %s\n", strings.ToUpper(r.Label))
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings    : %d\n", r.TotalListings)
	fmt.Fprintf(w, "  After filters     : %d\n", r.FilteredCount)
	fmt.Fprintln(w)

	if len(r.Metrics) > 0 {
		fmt.Fprintf(w, "  Metrics\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, m := range r.Metrics {
			fmt.Fprintf(w, "  %-18s: mean %s | max %s\n", m.Label,
				FormatAmount(m.Mean, m.Unit), FormatAmount(m.Max, m.Unit))
		}
		fmt.Fprintln(w)
	}

	if len(r.Filters) > 0 {
		fmt.Fprintf(w, "  Filters\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, f := range r.Filters {
			fmt.Fprintf(w, "  %-18s: %s → %s (bounds %s → %s)\n", f.Label,
				FormatAmount(f.Range.Lower, f.Unit), FormatAmount(f.Range.Upper, f.Unit),
				FormatAmount(f.Min, f.Unit), FormatAmount(f.Max, f.Unit))
		}
		fmt.Fprintln(w)
	}

	for _, c := range r.Charts {
		fmt.Fprintf(w, "  Distribution: %s\n", c.Label)
		fmt.Fprintf(w, "  %s\n", thin)
		peak := 0
		for _, b := range c.Bins {
			if b.Count > peak {
				peak = b.Count
			}
		}
		for _, b := range c.Bins {
			bar := 0
			if peak > 0 {
				bar = b.Count * 30 / peak
			}
			fmt.Fprintf(w, "  %14s %s (%d)\n", FormatAmount(b.Lower, ""), strings.Repeat("█", bar), b.Count)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s\n\n", sep)
}

// FormatAmount renders a value with thousands grouping and its unit.
func FormatAmount(v float64, unit string) string {
	s := groupThousands(math.Round(v))
	if math.Abs(v) < 100 && v != math.Trunc(v) {
		s = fmt.Sprintf("%.1f", v)
	}
	if unit == "" {
		return s
	}
	return s + " " + unit
}

func groupThousands(v float64) string {
	neg := v < 0
	digits := fmt.Sprintf("%.0f", math.Abs(v))
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
