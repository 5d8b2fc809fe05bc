package nexus

import "context"

// Stage is one step of a pipeline. A stage receives the output of the stage
// before it and returns the input of the stage after it.
//
// Stages must not keep per-run state: a single stage value is typically shared
// by several pipelines, and those pipelines may run on different goroutines at
// the same time. InputStage, TransformStage and OutputStage are the built-in
// stages; Apply, Transform and Effect wrap plain functions as stages; a
// *Pipeline is itself a Stage, so pipelines nest.
type Stage interface {
	Process(context.Context, any) (any, error)
	Name() Name
}

// Name identifies stages and pipelines in log lines, error paths, metric tags
// and hook events. Declaring names as constants keeps them consistent:
//
//	const (
//	    SensorPipelineName nexus.Name = "sensor-pipeline"
//	    ScaleStageName     nexus.Name = "scale"
//	)
type Name = string

// Processor is a named function stage created by Apply, Transform or Effect.
// The fn field is private so processors are only built through those adapters,
// which take care of input type checks and panic recovery.
type Processor struct {
	fn   func(context.Context, any) (any, error)
	name Name
}

// Process implements Stage.
func (p Processor) Process(ctx context.Context, data any) (any, error) {
	return p.fn(ctx, data)
}

// Name returns the processor name.
func (p Processor) Name() Name {
	return p.name
}
