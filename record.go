package nexus

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Format is the closed classification InputStage assigns to raw input.
type Format string

// Recognized formats.
const (
	FormatJSON   Format = "JSON"
	FormatCSV    Format = "CSV"
	FormatStream Format = "stream"
)

// Field names reported by Record.Fields.
const (
	FieldFormat   = "format"
	FieldValue    = "value"
	FieldColumns  = "columns"
	FieldRows     = "rows"
	FieldValues   = "values"
	FieldReadings = "readings"
	FieldAvg      = "avg"
)

// Record is the canonical unit that flows between stages. It is a sealed sum
// type with exactly three variants: JSONRecord, CSVRecord and StreamRecord.
// Stages branch on the concrete type, so every per-format switch in this
// package has one case per variant and nothing else.
//
// A record's format is fixed by its variant and cannot change during a run.
type Record interface {
	Format() Format
	// Fields returns a flat view of the record, including the format field.
	// Values are string, int, float64, []float64 or []string.
	Fields() map[string]any
	sealed()
}

// JSONRecord holds the key/value readings parsed from JSON-like text.
// Readings keeps the raw text of every value; once TransformStage coerces the
// "value" reading, Numeric is set and Value holds the parsed number.
type JSONRecord struct {
	Readings map[string]string
	Value    float64
	Numeric  bool
}

// Format implements Record.
func (JSONRecord) Format() Format { return FormatJSON }

// Fields implements Record.
func (r JSONRecord) Fields() map[string]any {
	fields := make(map[string]any, len(r.Readings)+1)
	for k, v := range r.Readings {
		fields[k] = v
	}
	if r.Numeric {
		fields[FieldValue] = r.Value
	}
	fields[FieldFormat] = string(FormatJSON)
	return fields
}

// Reading returns the raw text stored under key.
func (r JSONRecord) Reading(key string) (string, bool) {
	v, ok := r.Readings[key]
	return v, ok
}

// Clone returns a copy that shares no memory with r.
func (r JSONRecord) Clone() JSONRecord {
	r.Readings = maps.Clone(r.Readings)
	return r
}

func (JSONRecord) sealed() {}

// CSVRecord holds a header and raw data lines parsed from CSV-like text.
// After TransformStage the Rows slice is replaced by its length: Rows is nil,
// Counted is set and RowCount holds the number of rows.
type CSVRecord struct {
	Columns  []string
	Rows     []string
	RowCount int
	Counted  bool
}

// Format implements Record.
func (CSVRecord) Format() Format { return FormatCSV }

// Fields implements Record.
func (r CSVRecord) Fields() map[string]any {
	fields := map[string]any{
		FieldColumns: slices.Clone(r.Columns),
		FieldFormat:  string(FormatCSV),
	}
	switch {
	case r.Counted:
		fields[FieldRows] = r.RowCount
	case r.Rows != nil:
		fields[FieldRows] = slices.Clone(r.Rows)
	}
	return fields
}

// Clone returns a copy that shares no memory with r.
func (r CSVRecord) Clone() CSVRecord {
	r.Columns = slices.Clone(r.Columns)
	r.Rows = slices.Clone(r.Rows)
	return r
}

func (CSVRecord) sealed() {}

// StreamRecord holds a sequence of numeric readings. TransformStage fills in
// Readings and Avg and sets Summarized.
type StreamRecord struct {
	Values     []float64
	Readings   int
	Avg        float64
	Summarized bool
}

// Format implements Record.
func (StreamRecord) Format() Format { return FormatStream }

// Fields implements Record.
func (r StreamRecord) Fields() map[string]any {
	fields := map[string]any{FieldFormat: string(FormatStream)}
	if r.Values != nil {
		fields[FieldValues] = slices.Clone(r.Values)
	}
	if r.Summarized {
		fields[FieldReadings] = r.Readings
		fields[FieldAvg] = r.Avg
	}
	return fields
}

// Clone returns a copy that shares no memory with r.
func (r StreamRecord) Clone() StreamRecord {
	r.Values = slices.Clone(r.Values)
	return r
}

func (StreamRecord) sealed() {}

// formatNumber renders a float the way summaries print it: shortest exact
// form, always with a fractional part ("23.5", "30.0").
func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
