package nexus

import (
	"context"
	"fmt"
	"reflect"
)

// Apply wraps a fallible function as a Stage. The stage input must be an In,
// otherwise the stage fails with ErrUnexpectedInput before fn is called.
//
// Use Apply for custom steps that can reject their input:
//
//	scale := nexus.Apply("scale", func(_ context.Context, r nexus.StreamRecord) (nexus.StreamRecord, error) {
//	    if len(r.Values) == 0 {
//	        return r, errors.New("nothing to scale")
//	    }
//	    out := r.Clone()
//	    for i := range out.Values {
//	        out.Values[i] *= 10
//	    }
//	    return out, nil
//	})
func Apply[In, Out any](name Name, fn func(context.Context, In) (Out, error)) Processor {
	return Processor{
		name: name,
		fn: func(ctx context.Context, data any) (result any, err error) {
			defer recoverFromPanic(&result, &err, name, data)
			in, ok := data.(In)
			if !ok {
				return data, unexpectedInput[In](data)
			}
			out, err := fn(ctx, in)
			if err != nil {
				return data, err
			}
			return out, nil
		},
	}
}

// Transform wraps a function that cannot fail.
func Transform[In, Out any](name Name, fn func(context.Context, In) Out) Processor {
	return Processor{
		name: name,
		fn: func(ctx context.Context, data any) (result any, err error) {
			defer recoverFromPanic(&result, &err, name, data)
			in, ok := data.(In)
			if !ok {
				return data, unexpectedInput[In](data)
			}
			return fn(ctx, in), nil
		},
	}
}

// Effect runs fn for its side effect and passes the input through unchanged.
// Effect stages accept any input, which makes them handy for taps:
//
//	tap := nexus.Effect("tap", func(_ context.Context, v any) error {
//	    log.Printf("between stages: %v", v)
//	    return nil
//	})
func Effect(name Name, fn func(context.Context, any) error) Processor {
	return Processor{
		name: name,
		fn: func(ctx context.Context, data any) (result any, err error) {
			defer recoverFromPanic(&result, &err, name, data)
			if err := fn(ctx, data); err != nil {
				return data, err
			}
			return data, nil
		},
	}
}

func unexpectedInput[In any](data any) error {
	return fmt.Errorf("%w: want %v, got %T", ErrUnexpectedInput, reflect.TypeFor[In](), data)
}
