package nexus

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestInputStage(t *testing.T) {
	stage := InputStage{}

	t.Run("JSON Like Text", func(t *testing.T) {
		rec, err := stage.Parse(`{"sensor":"temp","value":"23.5","unit":"C"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		jr, ok := rec.(JSONRecord)
		if !ok {
			t.Fatalf("expected JSONRecord, got %T", rec)
		}
		want := map[string]string{"sensor": "temp", "value": "23.5", "unit": "C"}
		if !reflect.DeepEqual(jr.Readings, want) {
			t.Errorf("expected readings %v, got %v", want, jr.Readings)
		}
		if rec.Format() != FormatJSON {
			t.Errorf("expected format JSON, got %s", rec.Format())
		}
	})

	t.Run("JSON Field Count Is Readings Plus Format", func(t *testing.T) {
		inputs := map[string]int{
			`{"a":"1"}`:                 1,
			`{"a":"1","b":"2"}`:         2,
			`{ a : 1 , b : 2 , c : 3 }`: 3,
			`{"k1":1,"k2":2,"k3":3,"k4":4,"k5":5}`: 5,
		}
		for raw, n := range inputs {
			rec, err := stage.Parse(raw)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", raw, err)
			}
			if got := len(rec.Fields()); got != n+1 {
				t.Errorf("%s: expected %d fields, got %d", raw, n+1, got)
			}
		}
	})

	t.Run("JSON Strips Whitespace And One Quote Layer", func(t *testing.T) {
		rec, err := stage.Parse(`{ "name" : ""quoted"" ,  plain:  value }`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		jr := rec.(JSONRecord)
		if v, _ := jr.Reading("name"); v != `"quoted"` {
			t.Errorf("expected one quote layer stripped, got %q", v)
		}
		if v, _ := jr.Reading("plain"); v != "value" {
			t.Errorf("expected trimmed value, got %q", v)
		}
	})

	t.Run("JSON Empty Body", func(t *testing.T) {
		for _, raw := range []string{"{}", "{ }", "{"} {
			_, err := stage.Parse(raw)
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("%q: expected FormatError, got %v", raw, err)
			}
			if !errors.Is(err, ErrNoReadings) {
				t.Errorf("%q: expected ErrNoReadings, got %v", raw, err)
			}
		}
	})

	t.Run("JSON Malformed Reading", func(t *testing.T) {
		for _, raw := range []string{`{"a"}`, `{"a":"1","b"}`, `{"time":"12:30"}`, `{"a":"1",}`} {
			_, err := stage.Parse(raw)
			if !errors.Is(err, ErrMalformedReading) {
				t.Errorf("%q: expected ErrMalformedReading, got %v", raw, err)
			}
		}
	})

	t.Run("CSV Like Text", func(t *testing.T) {
		raw := "user,action,timestamp\nalice,login,10:00\n\n  \nbob,logout,11:00\r\n"
		rec, err := stage.Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cr, ok := rec.(CSVRecord)
		if !ok {
			t.Fatalf("expected CSVRecord, got %T", rec)
		}
		if want := []string{"user", "action", "timestamp"}; !reflect.DeepEqual(cr.Columns, want) {
			t.Errorf("expected columns %v, got %v", want, cr.Columns)
		}
		if want := []string{"alice,login,10:00", "bob,logout,11:00"}; !reflect.DeepEqual(cr.Rows, want) {
			t.Errorf("expected rows %v, got %v", want, cr.Rows)
		}
	})

	t.Run("CSV Header Only", func(t *testing.T) {
		rec, err := stage.Parse("user,action")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cr := rec.(CSVRecord)
		if cr.Rows == nil || len(cr.Rows) != 0 {
			t.Errorf("expected empty, present rows, got %#v", cr.Rows)
		}
	})

	t.Run("JSON Takes Precedence Over CSV", func(t *testing.T) {
		rec, err := stage.Parse(`{"a":"1","b":"2"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Format() != FormatJSON {
			t.Errorf("expected JSON, got %s", rec.Format())
		}
	})

	t.Run("Bytes Are Text", func(t *testing.T) {
		rec, err := stage.Parse([]byte("a,b\n1,2"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Format() != FormatCSV {
			t.Errorf("expected CSV, got %s", rec.Format())
		}
	})

	t.Run("Numeric Stream", func(t *testing.T) {
		in := []float64{23.5, 26.6, 20.2}
		rec, err := stage.Parse(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sr, ok := rec.(StreamRecord)
		if !ok {
			t.Fatalf("expected StreamRecord, got %T", rec)
		}
		if !reflect.DeepEqual(sr.Values, in) {
			t.Errorf("expected values %v, got %v", in, sr.Values)
		}
		in[0] = 99
		if sr.Values[0] != 23.5 {
			t.Error("record should not alias the caller's slice")
		}
	})

	t.Run("Mixed Sequence Of Floats", func(t *testing.T) {
		rec, err := stage.Parse([]any{1.5, float32(2.5)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := rec.(StreamRecord).Values; !reflect.DeepEqual(got, []float64{1.5, 2.5}) {
			t.Errorf("unexpected values %v", got)
		}
	})

	t.Run("Empty Sequence Is A Stream", func(t *testing.T) {
		rec, err := stage.Parse([]float64{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Format() != FormatStream {
			t.Errorf("expected stream, got %s", rec.Format())
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		for _, raw := range []any{"plain text", 42, []any{1.0, "two"}, []int{1, 2}, nil, map[string]any{}} {
			_, err := stage.Parse(raw)
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("%v: expected FormatError, got %v", raw, err)
			}
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("%v: expected ErrUnknownFormat, got %v", raw, err)
			}
		}
	})

	t.Run("Process Returns Input On Failure", func(t *testing.T) {
		out, err := stage.Process(context.Background(), "nope")
		if err == nil {
			t.Fatal("expected error")
		}
		if out != "nope" {
			t.Errorf("expected input back, got %v", out)
		}
	})

	t.Run("Name", func(t *testing.T) {
		if stage.Name() != InputStageName {
			t.Errorf("expected %q, got %q", InputStageName, stage.Name())
		}
	})
}
