package nexus

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// TransformStage enriches a record according to its format:
//
//   - JSON: the "value" reading is parsed as a number;
//   - CSV: the rows are replaced by their count;
//   - stream: the readings are counted and averaged, the average rounded to
//     one decimal place. An empty stream averages to exactly 0.
//
// A missing or unusable field fails with a *TransformError. The input record
// is never modified; the stage returns an enriched copy.
type TransformStage struct{}

// Name implements Stage.
func (TransformStage) Name() Name { return TransformStageName }

// Process implements Stage.
func (s TransformStage) Process(_ context.Context, data any) (any, error) {
	record, ok := data.(Record)
	if !ok {
		return data, &TransformError{Err: ErrNotRecord}
	}
	enriched, err := s.Enrich(record)
	if err != nil {
		return data, err
	}
	return enriched, nil
}

// Enrich returns the enriched form of record.
func (TransformStage) Enrich(record Record) (Record, error) {
	switch r := record.(type) {
	case JSONRecord:
		return enrichJSON(r)
	case CSVRecord:
		return enrichCSV(r)
	case StreamRecord:
		return enrichStream(r)
	default:
		return nil, &TransformError{Err: ErrUnknownRecord}
	}
}

func enrichJSON(r JSONRecord) (Record, error) {
	if r.Numeric {
		return r, nil
	}
	raw, ok := r.Reading(FieldValue)
	if !ok {
		return nil, &TransformError{Err: ErrMissingField, Format: FormatJSON, Field: FieldValue}
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, &TransformError{Err: ErrNotNumeric, Format: FormatJSON, Field: FieldValue}
	}
	out := r.Clone()
	out.Value = value
	out.Numeric = true
	return out, nil
}

func enrichCSV(r CSVRecord) (Record, error) {
	if r.Counted {
		return r, nil
	}
	if r.Rows == nil {
		return nil, &TransformError{Err: ErrMissingField, Format: FormatCSV, Field: FieldRows}
	}
	out := r.Clone()
	out.RowCount = len(r.Rows)
	out.Rows = nil
	out.Counted = true
	return out, nil
}

func enrichStream(r StreamRecord) (Record, error) {
	if r.Values == nil {
		return nil, &TransformError{Err: ErrMissingField, Format: FormatStream, Field: FieldValues}
	}
	out := r.Clone()
	out.Readings = len(r.Values)
	out.Avg = 0
	if out.Readings > 0 {
		var sum float64
		for _, v := range r.Values {
			sum += v
		}
		out.Avg = roundTenth(sum / float64(out.Readings))
	}
	out.Summarized = true
	return out, nil
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
