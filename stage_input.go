package nexus

import (
	"context"
	"fmt"
	"strings"
)

// Built-in stage names.
const (
	InputStageName     Name = "input"
	TransformStageName Name = "transform"
	OutputStageName    Name = "output"
)

// InputStage classifies raw input and normalizes it into a Record.
//
// Classification is tried in a fixed order and the first match wins:
//
//  1. text starting with '{' is JSON-like: the braces are stripped and the
//     body is split on ',' into key:value readings;
//  2. other text containing ',' is CSV-like: the first non-blank line is the
//     header, the remaining non-blank lines are rows;
//  3. a sequence of floating-point numbers is a stream of readings.
//
// Anything else fails with a *FormatError wrapping ErrUnknownFormat. The
// parsing rules are deliberately minimal; this is not a JSON or CSV decoder.
// Text may be given as a string or a []byte.
type InputStage struct{}

// Name implements Stage.
func (InputStage) Name() Name { return InputStageName }

// Process implements Stage.
func (s InputStage) Process(_ context.Context, data any) (any, error) {
	record, err := s.Parse(data)
	if err != nil {
		return data, err
	}
	return record, nil
}

// Parse classifies raw and builds the matching record.
func (InputStage) Parse(raw any) (Record, error) {
	switch v := raw.(type) {
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	}
	if values, ok := floatSequence(raw); ok {
		return StreamRecord{Values: values}, nil
	}
	return nil, &FormatError{Err: ErrUnknownFormat, Detail: fmt.Sprintf("%T", raw)}
}

func parseText(text string) (Record, error) {
	switch {
	case strings.HasPrefix(text, "{"):
		return parseJSONLike(text)
	case strings.Contains(text, ","):
		return parseCSVLike(text)
	default:
		return nil, &FormatError{Err: ErrUnknownFormat, Detail: "text is neither JSON-like nor CSV-like"}
	}
}

func parseJSONLike(text string) (Record, error) {
	body := strings.TrimPrefix(strings.TrimSpace(text), "{")
	body = strings.TrimSuffix(body, "}")
	if strings.TrimSpace(body) == "" {
		return nil, &FormatError{Err: ErrNoReadings}
	}

	parts := strings.Split(body, ",")
	readings := make(map[string]string, len(parts))
	for i, part := range parts {
		kv := strings.Split(part, ":")
		if len(kv) != 2 {
			return nil, &FormatError{
				Err:    ErrMalformedReading,
				Detail: fmt.Sprintf("reading %d %q", i, strings.TrimSpace(part)),
			}
		}
		readings[unquote(kv[0])] = unquote(kv[1])
	}
	return JSONRecord{Readings: readings}, nil
}

// unquote trims whitespace and then one pair of enclosing double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func parseCSVLike(text string) (Record, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	if len(lines) == 0 {
		return nil, &FormatError{Err: ErrEmptyCSV}
	}

	header := strings.Split(strings.TrimSpace(lines[0]), ",")
	columns := make([]string, len(header))
	for i, c := range header {
		columns[i] = strings.TrimSpace(c)
	}
	rows := make([]string, 0, len(lines)-1)
	rows = append(rows, lines[1:]...)
	return CSVRecord{Columns: columns, Rows: rows}, nil
}

// floatSequence reports whether raw is a sequence made only of floating-point
// numbers and returns a private copy of it. Integers do not qualify.
func floatSequence(raw any) ([]float64, bool) {
	switch v := raw.(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out, true
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, true
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			switch f := e.(type) {
			case float64:
				out[i] = f
			case float32:
				out[i] = float64(f)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
