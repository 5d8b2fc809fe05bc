package nexus

import (
	"context"
	"errors"
	"testing"
)

func TestApply(t *testing.T) {
	t.Run("Apply Success", func(t *testing.T) {
		scale := Apply("scale", func(_ context.Context, r StreamRecord) (StreamRecord, error) {
			out := r.Clone()
			for i := range out.Values {
				out.Values[i] *= 10
			}
			return out, nil
		})

		in := StreamRecord{Values: []float64{1, 2}}
		result, err := scale.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := result.(StreamRecord).Values; got[0] != 10 || got[1] != 20 {
			t.Errorf("expected scaled values, got %v", got)
		}
		if in.Values[0] != 1 {
			t.Error("input should not be modified")
		}
		if scale.Name() != "scale" {
			t.Errorf("expected name scale, got %q", scale.Name())
		}
	})

	t.Run("Apply Error Returns Input", func(t *testing.T) {
		failing := Apply("failing", func(_ context.Context, s string) (int, error) {
			return 0, errors.New("cannot convert")
		})
		result, err := failing.Process(context.Background(), "in")
		if err == nil {
			t.Fatal("expected error")
		}
		if result != "in" {
			t.Errorf("expected input back, got %v", result)
		}
	})

	t.Run("Apply Wrong Input Type", func(t *testing.T) {
		called := false
		typed := Apply("typed", func(_ context.Context, r Record) (Record, error) {
			called = true
			return r, nil
		})
		_, err := typed.Process(context.Background(), 3.14)
		if !errors.Is(err, ErrUnexpectedInput) {
			t.Errorf("expected ErrUnexpectedInput, got %v", err)
		}
		if called {
			t.Error("fn should not run on the wrong input type")
		}
	})

	t.Run("Apply Panic Recovery", func(t *testing.T) {
		panicky := Apply("panicky", func(_ context.Context, _ string) (string, error) {
			panic("bad")
		})
		result, err := panicky.Process(context.Background(), "x")
		var pe *panicError
		if !errors.As(err, &pe) {
			t.Fatalf("expected panicError, got %v", err)
		}
		if result != "x" {
			t.Errorf("expected input back, got %v", result)
		}
	})
}

func TestTransform(t *testing.T) {
	t.Run("Transform Changes Type", func(t *testing.T) {
		count := Transform("count", func(_ context.Context, r CSVRecord) int {
			return len(r.Rows)
		})
		result, err := count.Process(context.Background(), CSVRecord{Rows: []string{"a", "b"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 2 {
			t.Errorf("expected 2, got %v", result)
		}
	})

	t.Run("Transform Wrong Input Type", func(t *testing.T) {
		count := Transform("count", func(_ context.Context, r CSVRecord) int { return len(r.Rows) })
		if _, err := count.Process(context.Background(), "a,b"); !errors.Is(err, ErrUnexpectedInput) {
			t.Errorf("expected ErrUnexpectedInput, got %v", err)
		}
	})
}

func TestEffect(t *testing.T) {
	t.Run("Effect Pass", func(t *testing.T) {
		var seen any
		tap := Effect("tap", func(_ context.Context, v any) error {
			seen = v
			return nil
		})
		result, err := tap.Process(context.Background(), "data")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "data" || seen != "data" {
			t.Errorf("effect should see and pass through the input, got %v / %v", result, seen)
		}
	})

	t.Run("Effect Fail", func(t *testing.T) {
		guard := Effect("guard", func(_ context.Context, _ any) error {
			return errors.New("blocked")
		})
		result, err := guard.Process(context.Background(), 5)
		if err == nil || err.Error() != "blocked" {
			t.Errorf("expected blocked error, got %v", err)
		}
		if result != 5 {
			t.Errorf("expected input back, got %v", result)
		}
	})
}
