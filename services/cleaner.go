package services

import (
	"math"
	"strconv"
	"strings"

	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/utils"
)

// NumberFormat is the separator convention of a data source.
//
// Coercion keeps only ASCII digits and the decimal separator, so every other
// character (currency, units, spaces, the other separator) is dropped. This
// is ambiguous by nature: with '.' as decimal, "3,400" reads as 3400 and
// "1.234.567" does not parse at all, while with ',' the reverse holds.
// Pick the convention per source; nothing here tries to guess it.
type NumberFormat struct {
	Decimal rune
}

func (f NumberFormat) decimal() rune {
	if f.Decimal == 0 {
		return '.'
	}
	return f.Decimal
}

// Parse extracts a finite number from raw text.
func (f NumberFormat) Parse(raw string) (float64, bool) {
	dec := f.decimal()
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == dec:
			b.WriteByte('.')
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Bound discards values of Column outside the open interval (Lower, Upper).
type Bound struct {
	Column string
	Lower  float64
	Upper  float64
}

// CleanSpec declares the cleaning steps for one dataset.
type CleanSpec struct {
	Numeric   []string
	DedupeKey string
	Bounds    []Bound
}

// SpecFor derives the cleaning steps declared by a catalog category.
func SpecFor(cat config.Category) CleanSpec {
	spec := CleanSpec{Numeric: cat.ColumnNames(), DedupeKey: cat.DedupeKey}
	for _, col := range cat.Columns {
		if lo, hi, ok := col.Bounds(); ok {
			spec.Bounds = append(spec.Bounds, Bound{Column: col.Name, Lower: lo, Upper: hi})
		}
	}
	return spec
}

// CleanStats counts what each step of Clean removed.
type CleanStats struct {
	Input      int
	Output     int
	Coercion   map[string]int
	Duplicates int
	OutOfRange map[string]int
}

// Cleaner turns raw scraped tables into tables with validated numeric columns.
type Cleaner struct {
	logger *utils.Logger
	format NumberFormat
}

// NewCleaner creates a Cleaner using '.' as decimal separator.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// WithFormat returns a Cleaner sharing c's logger but using format.
func (c *Cleaner) WithFormat(format NumberFormat) *Cleaner {
	return &Cleaner{logger: c.logger, format: format}
}

// Clean runs the full pipeline: header trim, text normalisation, numeric
// coercion per declared column, deduplication, then range bounds.
func (c *Cleaner) Clean(t *models.Table, spec CleanSpec) (*models.Table, CleanStats) {
	stats := CleanStats{
		Input:      t.Len(),
		Coercion:   make(map[string]int),
		OutOfRange: make(map[string]int),
	}

	out := c.NormaliseText(c.TrimColumnNames(t))

	for _, col := range spec.Numeric {
		var dropped int
		out, dropped = c.cleanColumn(out, col)
		stats.Coercion[col] = dropped
	}

	if spec.DedupeKey != "" {
		before := out.Len()
		out = c.Deduplicate(out, spec.DedupeKey)
		stats.Duplicates = before - out.Len()
	}

	for _, b := range spec.Bounds {
		before := out.Len()
		out = c.DropOutOfRange(out, b.Column, b.Lower, b.Upper)
		stats.OutOfRange[b.Column] += before - out.Len()
	}

	stats.Output = out.Len()
	c.logger.Info("[cleaner] Cleaned %d → %d rows (dropped %d)",
		stats.Input, stats.Output, stats.Input-stats.Output)
	return out, stats
}

// CleanNumericColumn coerces column to numbers and drops rows where that
// fails. An absent column leaves the table unchanged.
func (c *Cleaner) CleanNumericColumn(t *models.Table, column string) *models.Table {
	out, _ := c.cleanColumn(t, column)
	return out
}

func (c *Cleaner) cleanColumn(t *models.Table, column string) (*models.Table, int) {
	if !t.HasColumn(column) {
		c.logger.Debug("[cleaner] Column %q absent, skipping coercion", column)
		return t, 0
	}

	kept := make([]models.Record, 0, t.Len())
	for _, r := range t.Records {
		v := r.Get(column)
		coerced := c.coerce(v)
		if coerced.IsNull() {
			c.logger.Debug("[cleaner] Dropping row: %s=%q is not numeric", column, v.String())
			continue
		}
		if coerced != v {
			r = r.With(column, coerced)
		}
		kept = append(kept, r)
	}

	dropped := t.Len() - len(kept)
	if dropped > 0 {
		c.logger.Info("[cleaner] %s: dropped %d non-numeric rows", column, dropped)
	}
	return t.Derive(kept), dropped
}

func (c *Cleaner) coerce(v models.Value) models.Value {
	switch v.Kind {
	case models.KindNumber:
		if math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
			return models.Null()
		}
		return v
	case models.KindText:
		if f, ok := c.format.Parse(v.Text); ok {
			return models.Number(f)
		}
	}
	return models.Null()
}

// Deduplicate keeps the first record for each distinct value of key, in
// original order. Null keys count as one value. An absent key column leaves
// the table unchanged.
func (c *Cleaner) Deduplicate(t *models.Table, key string) *models.Table {
	if !t.HasColumn(key) {
		c.logger.Warn("[cleaner] Dedupe key %q absent, skipping", key)
		return t
	}

	type dedupeKey struct {
		kind models.Kind
		text string
	}
	seen := make(map[dedupeKey]struct{}, t.Len())
	kept := make([]models.Record, 0, t.Len())

	for _, r := range t.Records {
		v := r.Get(key)
		k := dedupeKey{kind: v.Kind, text: v.String()}
		if _, dup := seen[k]; dup {
			c.logger.Debug("[cleaner] Duplicate %s skipped: %s", key, k.text)
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return t.Derive(kept)
}

// DropOutOfRange keeps rows whose column value v satisfies lower < v < upper.
// Non-numeric values are dropped. An absent column leaves the table unchanged.
func (c *Cleaner) DropOutOfRange(t *models.Table, column string, lower, upper float64) *models.Table {
	if !t.HasColumn(column) {
		return t
	}

	kept := make([]models.Record, 0, t.Len())
	for _, r := range t.Records {
		v, ok := r.Get(column).Float()
		if !ok || v <= lower || v >= upper {
			continue
		}
		kept = append(kept, r)
	}

	if dropped := t.Len() - len(kept); dropped > 0 {
		c.logger.Info("[cleaner] %s: dropped %d rows outside (%g, %g)", column, dropped, lower, upper)
	}
	return t.Derive(kept)
}

// TrimColumnNames strips surrounding whitespace from header names and
// re-keys records accordingly.
func (c *Cleaner) TrimColumnNames(t *models.Table) *models.Table {
	rename := make(map[string]string)
	cols := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = strings.TrimSpace(col)
		if cols[i] != col {
			rename[col] = cols[i]
		}
	}
	if len(rename) == 0 {
		return t
	}

	records := make([]models.Record, len(t.Records))
	for i, r := range t.Records {
		cp := make(models.Record, len(r))
		for k, v := range r {
			if to, ok := rename[k]; ok {
				k = to
			}
			cp[k] = v
		}
		records[i] = cp
	}
	return &models.Table{Columns: cols, Records: records}
}

// NormaliseText applies utils.NormaliseString to every text cell.
func (c *Cleaner) NormaliseText(t *models.Table) *models.Table {
	records := make([]models.Record, len(t.Records))
	for i, r := range t.Records {
		for k, v := range r {
			if v.Kind != models.KindText {
				continue
			}
			if s := utils.NormaliseString(v.Text); s != v.Text {
				r = r.With(k, models.Text(s))
			}
		}
		records[i] = r
	}
	return t.Derive(records)
}
