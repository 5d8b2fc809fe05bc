package nexus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Pipeline.
const (
	// Metrics.
	PipelineRunsTotal       = metricz.Key("pipeline.runs.total")
	PipelineSuccessesTotal  = metricz.Key("pipeline.successes.total")
	PipelineFailuresTotal   = metricz.Key("pipeline.failures.total")
	PipelineStagesTotal     = metricz.Key("pipeline.stages.total")
	PipelineStagesCompleted = metricz.Key("pipeline.stages.completed")
	PipelineDurationMs      = metricz.Key("pipeline.duration.ms")
	PipelineElapsedMs       = metricz.Key("pipeline.elapsed.ms")

	// Spans.
	PipelineRunSpan   = tracez.Key("pipeline.run")
	PipelineStageSpan = tracez.Key("pipeline.stage")

	// Tags.
	PipelineTagName       = tracez.Tag("pipeline.name")
	PipelineTagKind       = tracez.Tag("pipeline.kind")
	PipelineTagRunID      = tracez.Tag("pipeline.run_id")
	PipelineTagStageCount = tracez.Tag("pipeline.stage_count")
	PipelineTagStageName  = tracez.Tag("pipeline.stage_name")
	PipelineTagStage      = tracez.Tag("pipeline.stage_number")
	PipelineTagSuccess    = tracez.Tag("pipeline.success")
	PipelineTagError      = tracez.Tag("pipeline.error")

	// Hook event keys.
	PipelineEventStageComplete = hookz.Key("pipeline.stage_complete")
	PipelineEventRunComplete   = hookz.Key("pipeline.run_complete")
	PipelineEventRecovered     = hookz.Key("pipeline.recovered")
)

// PipelineEvent is emitted via hookz as stages and runs complete.
type PipelineEvent struct {
	Timestamp   time.Time
	Value       any           // stage or run result; the fallback value on failure
	Error       error         // nil on success
	Name        Name          // pipeline name
	Kind        Kind          // pipeline kind label
	StageName   Name          // empty for run events
	RunID       uuid.UUID     // identifies the run
	StageNumber int           // 1-based, 0 for run events
	TotalStages int           // stages registered at run start
	Completed   int           // stages completed so far
	Duration    time.Duration // stage duration, or run duration for run events
	Elapsed     time.Duration // cumulative pipeline elapsed time after this run
	Success     bool
}

// Pipeline runs an ordered list of stages, feeding each stage's output into
// the next, and keeps run metrics.
//
// A failing stage never aborts the caller: Run stops at that stage, logs a
// recovery notice, leaves the success counter untouched and returns a
// degraded Outcome carrying the fallback value. Elapsed time is accumulated
// for every run, failed or not, because it measures cost, not throughput.
//
// Runs against one Pipeline are serialized. Different pipelines run fully in
// parallel and may share stage values.
//
// # Observability
//
// Metrics:
//   - pipeline.runs.total: Counter of runs
//   - pipeline.successes.total: Counter of runs where every stage succeeded
//   - pipeline.failures.total: Counter of degraded runs
//   - pipeline.stages.total: Gauge of registered stages
//   - pipeline.stages.completed: Gauge of stages completed by the last run
//   - pipeline.duration.ms: Gauge of the last run's duration
//   - pipeline.elapsed.ms: Gauge of cumulative run time
//
// Traces:
//   - pipeline.run: Parent span for each run
//   - pipeline.stage: Child span for each stage
//
// Events (via hooks, delivered asynchronously):
//   - pipeline.stage_complete: Fired as each stage finishes, successful or not
//   - pipeline.run_complete: Fired when a run ends, successful or not
//   - pipeline.recovered: Fired when a run degrades to its fallback value
type Pipeline struct {
	name    Name
	kind    Kind
	stages  []Stage
	mu      sync.RWMutex // guards name, kind, stages, clock and logger
	runMu   sync.Mutex   // serializes runs
	statsMu sync.Mutex
	stats   Stats
	clock   clockz.Clock
	logger  *slog.Logger
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[PipelineEvent]
}

// NewPipeline creates a pipeline with optional initial stages. More stages
// can be appended with Register before the first run.
//
//	p := nexus.NewPipeline("sensors",
//	    nexus.InputStage{},
//	    nexus.TransformStage{},
//	    nexus.OutputStage{},
//	)
//	out := p.Run(ctx, `{"sensor":"temp","value":"23.5"}`)
func NewPipeline(name Name, stages ...Stage) *Pipeline {
	metrics := metricz.New()
	metrics.Counter(PipelineRunsTotal)
	metrics.Counter(PipelineSuccessesTotal)
	metrics.Counter(PipelineFailuresTotal)
	metrics.Gauge(PipelineStagesTotal)
	metrics.Gauge(PipelineStagesCompleted)
	metrics.Gauge(PipelineDurationMs)
	metrics.Gauge(PipelineElapsedMs)

	return &Pipeline{
		name:    name,
		kind:    KindGeneric,
		stages:  slices.Clone(stages),
		clock:   clockz.RealClock,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[PipelineEvent](),
	}
}

// Register appends stages. Stages run in registration order.
func (p *Pipeline) Register(stages ...Stage) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stages...)
	return p
}

// WithClock sets the clock used to time runs.
func (p *Pipeline) WithClock(clock clockz.Clock) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	return p
}

// WithLogger sets the structured logger runs narrate to.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithKind sets the diagnostic kind label.
func (p *Pipeline) WithKind(kind Kind) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kind = kind
	return p
}

// Run feeds input through every stage and reports the outcome. Run never
// panics on stage failure and never returns a Go error; see Outcome.
func (p *Pipeline) Run(ctx context.Context, input any) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	name, kind := p.name, p.kind
	stages := slices.Clone(p.stages)
	clock, logger := p.clock, p.logger
	p.mu.RUnlock()

	p.runMu.Lock()
	defer p.runMu.Unlock()

	runID := uuid.New()
	logger = logger.With("pipeline", name, "kind", string(kind), "run_id", runID.String())

	p.metrics.Counter(PipelineRunsTotal).Inc()
	p.metrics.Gauge(PipelineStagesTotal).Set(float64(len(stages)))
	start := clock.Now()

	ctx, span := p.tracer.StartSpan(ctx, PipelineRunSpan)
	span.SetTag(PipelineTagName, name)
	span.SetTag(PipelineTagKind, string(kind))
	span.SetTag(PipelineTagRunID, runID.String())
	span.SetTag(PipelineTagStageCount, strconv.Itoa(len(stages)))

	value, completed, runErr := p.runStages(ctx, runID, name, kind, stages, input, clock)

	duration := clock.Now().Sub(start)
	stats := p.record(duration, runErr == nil)
	p.metrics.Gauge(PipelineStagesCompleted).Set(float64(completed))
	p.metrics.Gauge(PipelineDurationMs).Set(float64(duration.Milliseconds()))
	p.metrics.Gauge(PipelineElapsedMs).Set(float64(stats.Elapsed.Milliseconds()))

	outcome := Outcome{
		Value:    value,
		Err:      runErr,
		Pipeline: name,
		RunID:    runID,
		Elapsed:  duration,
		Stages:   completed,
	}

	event := PipelineEvent{
		Timestamp:   clock.Now(),
		Value:       value,
		Error:       runErr,
		Name:        name,
		Kind:        kind,
		RunID:       runID,
		TotalStages: len(stages),
		Completed:   completed,
		Duration:    duration,
		Elapsed:     stats.Elapsed,
		Success:     runErr == nil,
	}

	if runErr == nil {
		span.SetTag(PipelineTagSuccess, "true")
		p.metrics.Counter(PipelineSuccessesTotal).Inc()
		logger.Debug("run complete", "stages", completed, "duration", duration)
	} else {
		span.SetTag(PipelineTagSuccess, "false")
		span.SetTag(PipelineTagError, runErr.Error())
		p.metrics.Counter(PipelineFailuresTotal).Inc()
		failed := failedStage(runErr)
		logger.Warn("run failed, continuing with fallback value",
			"stage", failed,
			"completed", completed,
			"error", runErr,
		)
		recovered := event
		recovered.StageName = failed
		_ = p.hooks.Emit(ctx, PipelineEventRecovered, recovered) //nolint:errcheck
	}
	span.Finish()

	_ = p.hooks.Emit(ctx, PipelineEventRunComplete, event) //nolint:errcheck
	return outcome
}

// runStages applies stages in order. On failure it returns the value the
// failing stage received together with an *Error.
func (p *Pipeline) runStages(
	ctx context.Context,
	runID uuid.UUID,
	name Name,
	kind Kind,
	stages []Stage,
	input any,
	clock clockz.Clock,
) (any, int, error) {
	runStart := clock.Now()
	value := input

	for i, stage := range stages {
		stageName := stage.Name()

		if err := ctx.Err(); err != nil {
			return value, i, &Error{
				Err:       err,
				InputData: value,
				Path:      []Name{name, stageName},
				Timeout:   errors.Is(err, context.DeadlineExceeded),
				Canceled:  errors.Is(err, context.Canceled),
				Timestamp: clock.Now(),
				Duration:  clock.Now().Sub(runStart),
			}
		}

		stageCtx, stageSpan := p.tracer.StartSpan(ctx, PipelineStageSpan)
		stageSpan.SetTag(PipelineTagStage, strconv.Itoa(i+1))
		stageSpan.SetTag(PipelineTagStageName, stageName)

		stageStart := clock.Now()
		result, err := callStage(stageCtx, stage, value)
		stageDuration := clock.Now().Sub(stageStart)

		if err != nil {
			stageSpan.SetTag(PipelineTagSuccess, "false")
			stageSpan.SetTag(PipelineTagError, err.Error())
		} else {
			stageSpan.SetTag(PipelineTagSuccess, "true")
		}
		stageSpan.Finish()

		event := PipelineEvent{
			Timestamp:   clock.Now(),
			Error:       err,
			Name:        name,
			Kind:        kind,
			StageName:   stageName,
			RunID:       runID,
			StageNumber: i + 1,
			TotalStages: len(stages),
			Completed:   i,
			Duration:    stageDuration,
			Success:     err == nil,
		}
		if err == nil {
			event.Value = result
			event.Completed = i + 1
		} else {
			event.Value = value
		}
		_ = p.hooks.Emit(ctx, PipelineEventStageComplete, event) //nolint:errcheck

		if err != nil {
			return value, i, wrapStageError(err, name, stageName, value, clock.Now(), clock.Now().Sub(runStart))
		}
		value = result
	}

	return value, len(stages), nil
}

func callStage(ctx context.Context, stage Stage, input any) (result any, err error) {
	defer recoverFromPanic(&result, &err, stage.Name(), input)
	return stage.Process(ctx, input)
}

func wrapStageError(err error, name, stage Name, input any, at time.Time, d time.Duration) *Error {
	var runErr *Error
	if errors.As(err, &runErr) {
		// A nested pipeline failed; extend a copy of its path with ours. The
		// original is shared with the inner pipeline's hook events.
		nested := *runErr
		nested.Path = append([]Name{name}, runErr.Path...)
		return &nested
	}
	var pe *panicError
	return &Error{
		Err:       err,
		InputData: input,
		Path:      []Name{name, stage},
		Timestamp: at,
		Duration:  d,
		Timeout:   errors.Is(err, context.DeadlineExceeded),
		Canceled:  errors.Is(err, context.Canceled),
		Panicked:  errors.As(err, &pe),
	}
}

func failedStage(err error) Name {
	var runErr *Error
	if errors.As(err, &runErr) && len(runErr.Path) > 0 {
		return runErr.Path[len(runErr.Path)-1]
	}
	return ""
}

func (p *Pipeline) record(d time.Duration, success bool) Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.Runs++
	p.stats.Elapsed += d
	if success {
		p.stats.Successes++
	} else {
		p.stats.Failures++
	}
	return p.stats
}

// Process implements Stage so a pipeline can be nested inside another one.
// Unlike Run, Process reports a degraded run as an error, which lets the outer
// pipeline apply its own recovery.
func (p *Pipeline) Process(ctx context.Context, input any) (any, error) {
	out := p.Run(ctx, input)
	if out.Err != nil {
		return out.Value, out.Err
	}
	return out.Value, nil
}

// Stats returns a snapshot of the run metrics.
func (p *Pipeline) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// Len returns the number of registered stages.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stages)
}

// Names returns the stage names in order.
func (p *Pipeline) Names() []Name {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]Name, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Name returns the pipeline name.
func (p *Pipeline) Name() Name {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// Kind returns the diagnostic kind label.
func (p *Pipeline) Kind() Kind {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kind
}

// Metrics returns the metrics registry for this pipeline.
func (p *Pipeline) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer returns the tracer for this pipeline.
func (p *Pipeline) Tracer() *tracez.Tracer {
	return p.tracer
}

// Close shuts down the tracer and hooks.
func (p *Pipeline) Close() error {
	if p.tracer != nil {
		p.tracer.Close()
	}
	p.hooks.Close()
	return nil
}

// OnStageComplete registers a handler called after every stage, whether it
// succeeded or not.
func (p *Pipeline) OnStageComplete(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventStageComplete, handler)
	return err
}

// OnRunComplete registers a handler called after every run.
func (p *Pipeline) OnRunComplete(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventRunComplete, handler)
	return err
}

// OnRecovered registers a handler called when a run degrades to its fallback
// value. The event's StageName is the stage that failed.
func (p *Pipeline) OnRecovered(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventRecovered, handler)
	return err
}
