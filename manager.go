package nexus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Manager.
const (
	// Metrics.
	ManagerChainsTotal   = metricz.Key("manager.chains.total")
	ManagerDegradedTotal = metricz.Key("manager.degraded.total")
	ManagerWorkersMax    = metricz.Key("manager.workers.max")
	ManagerWorkersActive = metricz.Key("manager.workers.active")
	ManagerQueueWaitMs   = metricz.Key("manager.queue_wait.ms")

	// Spans.
	ManagerChainSpan = tracez.Key("manager.chain")
	ManagerBatchSpan = tracez.Key("manager.batch")

	// Tags.
	ManagerTagName          = tracez.Tag("manager.name")
	ManagerTagPipelineCount = tracez.Tag("manager.pipeline_count")
	ManagerTagInputCount    = tracez.Tag("manager.input_count")
	ManagerTagDegraded      = tracez.Tag("manager.degraded")
)

// ErrDuplicatePipeline is returned by Manager.Add for a name already in use.
var ErrDuplicatePipeline = errors.New("duplicate pipeline name")

// ChainResult is the result of feeding one input through a manager's
// pipelines. Links holds one outcome per pipeline, in order.
type ChainResult struct {
	Value any
	Err   error // first degraded link, or the context error for skipped inputs
	Links []Outcome
}

// OK reports whether every pipeline in the chain succeeded.
func (r ChainResult) OK() bool { return r.Err == nil }

// Degraded reports whether any pipeline in the chain fell back.
func (r ChainResult) Degraded() bool { return r.Err != nil }

// Manager holds an ordered list of pipelines and chains them: the result of
// pipeline i is the input of pipeline i+1.
//
// Chaining adds no error isolation of its own. A pipeline that degrades hands
// its fallback value to the next pipeline like any other result, so one bad
// record may produce garbage further down the chain. That is intended.
//
// Batch runs many independent chains concurrently, bounded by the worker
// count. Because each pipeline serializes its own runs, the bound mostly
// limits how many chains are in flight at once.
type Manager struct {
	name      Name
	pipelines []*Pipeline
	mu        sync.RWMutex
	workers   int
	logger    *slog.Logger
	metrics   *metricz.Registry
	tracer    *tracez.Tracer
}

// NewManager creates an empty manager. The default worker count is 1.
func NewManager(name Name) *Manager {
	metrics := metricz.New()
	metrics.Counter(ManagerChainsTotal)
	metrics.Counter(ManagerDegradedTotal)
	metrics.Gauge(ManagerWorkersMax)
	metrics.Gauge(ManagerWorkersActive)
	metrics.Gauge(ManagerQueueWaitMs)
	metrics.Gauge(ManagerWorkersMax).Set(1)

	return &Manager{
		name:    name,
		workers: 1,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics,
		tracer:  tracez.New(),
	}
}

// Add appends a pipeline to the chain. Pipeline names must be unique.
func (m *Manager) Add(p *Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := p.Name()
	for _, existing := range m.pipelines {
		if existing.Name() == name {
			return fmt.Errorf("%w: %q", ErrDuplicatePipeline, name)
		}
	}
	m.pipelines = append(m.pipelines, p)
	return nil
}

// WithWorkers sets how many chains Batch runs at once. Values below 1 are
// treated as 1.
func (m *Manager) WithWorkers(n int) *Manager {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = n
	m.metrics.Gauge(ManagerWorkersMax).Set(float64(n))
	return m
}

// WithLogger sets the structured logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Chain feeds input into the first pipeline and each result into the next,
// returning the last pipeline's result. With no pipelines the input is
// returned unchanged.
func (m *Manager) Chain(ctx context.Context, input any) ChainResult {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.RLock()
	pipelines := slices.Clone(m.pipelines)
	logger := m.logger
	m.mu.RUnlock()

	m.metrics.Counter(ManagerChainsTotal).Inc()
	ctx, span := m.tracer.StartSpan(ctx, ManagerChainSpan)
	span.SetTag(ManagerTagName, m.name)
	span.SetTag(ManagerTagPipelineCount, strconv.Itoa(len(pipelines)))
	defer span.Finish()

	result := ChainResult{Value: input, Links: make([]Outcome, 0, len(pipelines))}
	for _, p := range pipelines {
		out := p.Run(ctx, result.Value)
		result.Links = append(result.Links, out)
		result.Value = out.Value
		if out.Err != nil && result.Err == nil {
			result.Err = out.Err
		}
	}

	if result.Err != nil {
		span.SetTag(ManagerTagDegraded, "true")
		m.metrics.Counter(ManagerDegradedTotal).Inc()
		logger.Warn("chain degraded, forwarded fallback values", "manager", m.name, "error", result.Err)
	} else {
		span.SetTag(ManagerTagDegraded, "false")
	}
	return result
}

// Batch chains every input independently and returns the results in input
// order. Inputs still waiting for a worker when ctx is done are not run; their
// result carries the input as Value and the context error.
func (m *Manager) Batch(ctx context.Context, inputs []any) []ChainResult {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.RLock()
	workers := m.workers
	m.mu.RUnlock()

	ctx, span := m.tracer.StartSpan(ctx, ManagerBatchSpan)
	span.SetTag(ManagerTagName, m.name)
	span.SetTag(ManagerTagInputCount, strconv.Itoa(len(inputs)))
	defer span.Finish()

	results := make([]ChainResult, len(inputs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input any) {
			defer wg.Done()

			queueStart := time.Now()
			select {
			case sem <- struct{}{}:
				m.metrics.Gauge(ManagerQueueWaitMs).Set(float64(time.Since(queueStart).Milliseconds()))
				m.metrics.Gauge(ManagerWorkersActive).Set(float64(len(sem)))
				defer func() {
					<-sem
					m.metrics.Gauge(ManagerWorkersActive).Set(float64(len(sem)))
				}()
			case <-ctx.Done():
				results[i] = ChainResult{Value: input, Err: ctx.Err()}
				return
			}

			results[i] = m.Chain(ctx, input)
		}(i, input)
	}

	wg.Wait()
	return results
}

// Pipelines returns the pipelines in chain order.
func (m *Manager) Pipelines() []*Pipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.pipelines)
}

// Pipeline returns the pipeline called name.
func (m *Manager) Pipeline(name Name) (*Pipeline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pipelines {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Stats returns a snapshot of every pipeline's run metrics, keyed by name.
func (m *Manager) Stats() map[Name]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[Name]Stats, len(m.pipelines))
	for _, p := range m.pipelines {
		stats[p.Name()] = p.Stats()
	}
	return stats
}

// Name returns the manager name.
func (m *Manager) Name() Name {
	return m.name
}

// Metrics returns the metrics registry for this manager.
func (m *Manager) Metrics() *metricz.Registry {
	return m.metrics
}

// Tracer returns the tracer for this manager.
func (m *Manager) Tracer() *tracez.Tracer {
	return m.tracer
}

// Close closes every pipeline and the manager's tracer.
func (m *Manager) Close() error {
	m.mu.RLock()
	pipelines := slices.Clone(m.pipelines)
	m.mu.RUnlock()

	var errs []error
	for _, p := range pipelines {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.tracer != nil {
		m.tracer.Close()
	}
	return errors.Join(errs...)
}
