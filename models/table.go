package models

import (
	"sort"
	"strconv"
)

// Kind tags the content of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
)

// Value is a single table cell: null, raw text, or a parsed number.
type Value struct {
	Kind Kind
	Text string
	Num  float64
}

// Null returns the absent value.
func Null() Value { return Value{} }

// Text wraps a raw textual value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number wraps a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Float returns the numeric content, if any.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String renders the cell the way it is written to CSV.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// Record is one listing: field name to cell value. Absent keys read as Null.
type Record map[string]Value

// Get returns the value of field, Null when absent.
func (r Record) Get(field string) Value {
	return r[field]
}

// With returns a copy of r with field set to v. r itself is left untouched.
func (r Record) With(field string, v Value) Record {
	cp := make(Record, len(r)+1)
	for k, val := range r {
		cp[k] = val
	}
	cp[field] = v
	return cp
}

// Table is an ordered sequence of records sharing an approximate schema.
// Transformations build new tables; records are treated as immutable.
type Table struct {
	Columns []string
	Records []Record
}

// NewTable creates an empty table with the given header.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether name is part of the header.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds records, extending the header with unseen fields in sorted order.
func (t *Table) Append(records ...Record) {
	for _, r := range records {
		var extra []string
		for k := range r {
			if !t.HasColumn(k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		t.Columns = append(t.Columns, extra...)
		t.Records = append(t.Records, r)
	}
}

// Derive returns a table with t's header and the given records.
func (t *Table) Derive(records []Record) *Table {
	return &Table{
		Columns: append([]string(nil), t.Columns...),
		Records: records,
	}
}

// Floats collects the numeric values of column in record order, skipping
// non-numeric cells.
func (t *Table) Floats(column string) []float64 {
	out := make([]float64, 0, t.Len())
	for _, r := range t.Records {
		if f, ok := r.Get(column).Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Row renders a record as strings in header order.
func (t *Table) Row(r Record) []string {
	row := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = r.Get(c).String()
	}
	return row
}
