package nexus

import (
	"context"
	"fmt"
)

// NormalRangeLimit is the exclusive upper bound of a normal temperature
// reading. Values below it render as "(Normal range)".
const NormalRangeLimit = 30.0

// Range labels appended to JSON summaries.
const (
	NormalRangeLabel = "(Normal range)"
	OutOfRangeLabel  = "(Out of range)"
)

// OutputStage renders a transformed record as a one-line summary:
//
//	Processed temperature reading: 23.5°C (Normal range)
//	User activity logged: 4 actions processed
//	Stream summary: 3 readings, avg: 23.4°C
//
// Every failure, whether the input is not a record, the record was never
// transformed or its format is unknown, is reported as an *OutputError.
type OutputStage struct{}

// Name implements Stage.
func (OutputStage) Name() Name { return OutputStageName }

// Process implements Stage.
func (s OutputStage) Process(_ context.Context, data any) (any, error) {
	record, ok := data.(Record)
	if !ok {
		return data, &OutputError{Err: ErrNotRecord}
	}
	summary, err := s.Render(record)
	if err != nil {
		return data, err
	}
	return summary, nil
}

// Render formats record.
func (OutputStage) Render(record Record) (string, error) {
	switch r := record.(type) {
	case JSONRecord:
		if !r.Numeric {
			return "", &OutputError{Err: fmt.Errorf("%w: %s", ErrNotTransformed, FieldValue)}
		}
		return fmt.Sprintf("Processed temperature reading: %s°C %s", formatNumber(r.Value), rangeLabel(r.Value)), nil
	case CSVRecord:
		if !r.Counted {
			return "", &OutputError{Err: fmt.Errorf("%w: %s", ErrNotTransformed, FieldRows)}
		}
		return fmt.Sprintf("User activity logged: %d actions processed", r.RowCount), nil
	case StreamRecord:
		if !r.Summarized {
			return "", &OutputError{Err: fmt.Errorf("%w: %s", ErrNotTransformed, FieldAvg)}
		}
		avg := "0"
		if r.Readings > 0 {
			avg = formatNumber(r.Avg)
		}
		return fmt.Sprintf("Stream summary: %d readings, avg: %s°C", r.Readings, avg), nil
	default:
		return "", &OutputError{Err: ErrUnknownRecord}
	}
}

func rangeLabel(value float64) string {
	if value < NormalRangeLimit {
		return NormalRangeLabel
	}
	return OutOfRangeLabel
}
