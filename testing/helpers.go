// Package testing provides test utilities for nexus pipelines.
//
// It includes a mock stage, a chaos stage that injects failures, and
// assertion helpers for run outcomes.
//
// Example usage:
//
//	func TestMyPipeline(t *testing.T) {
//		mock := nxtest.NewMockStage(t, "mock-stage").WithReturn("processed", nil)
//
//		p := nexus.NewPipeline("test-pipeline", mock)
//		out := p.Run(context.Background(), "input")
//
//		nxtest.AssertOK(t, out)
//		nxtest.AssertValue(t, out, "processed")
//		nxtest.AssertProcessed(t, mock, 1)
//	}
package testing

import (
	"context"
	"errors"
	"fmt"
	mathrand "math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/nexus"
)

// MockStage is a configurable nexus.Stage. It records calls and returns the
// configured value, error, delay or panic.
//
// Without WithReturn the mock passes its input through unchanged.
type MockStage struct { //nolint:govet // fieldalignment: test helper
	t           *testing.T
	name        string
	callCount   int64
	lastInput   any
	returnVal   any
	returnErr   error
	configured  bool
	delay       time.Duration
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall
	maxHistory  int
}

// MockCall is a single recorded call.
type MockCall struct {
	Input     any
	Timestamp time.Time
	Context   context.Context
}

// NewMockStage creates a mock stage that keeps the last 100 calls.
func NewMockStage(t *testing.T, name string) *MockStage {
	return &MockStage{
		t:          t,
		name:       name,
		maxHistory: 100,
	}
}

// WithReturn makes every later call return val and err.
func (m *MockStage) WithReturn(val any, err error) *MockStage {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnVal = val
	m.returnErr = err
	m.configured = true
	return m
}

// WithDelay delays every call by d, or until the context is done.
func (m *MockStage) WithDelay(d time.Duration) *MockStage {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithPanic makes every call panic with msg.
func (m *MockStage) WithPanic(msg string) *MockStage {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize sets how many calls to keep. Zero disables history.
func (m *MockStage) WithHistorySize(size int) *MockStage {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Name implements nexus.Stage.
func (m *MockStage) Name() nexus.Name {
	return m.name
}

// Process implements nexus.Stage.
func (m *MockStage) Process(ctx context.Context, data any) (any, error) {
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastInput = data
	if m.maxHistory > 0 {
		m.callHistory = append(m.callHistory, MockCall{Input: data, Timestamp: time.Now(), Context: ctx})
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:]
		}
	}
	delay, panicMsg := m.delay, m.panicMsg
	returnVal, returnErr, configured := m.returnVal, m.returnErr, m.configured
	m.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return data, ctx.Err()
		}
	}

	if !configured {
		return data, nil
	}
	if returnErr != nil {
		return data, returnErr
	}
	return returnVal, nil
}

// CallCount returns the number of calls so far.
func (m *MockStage) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// LastInput returns the input of the most recent call.
func (m *MockStage) LastInput() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInput
}

// CallHistory returns a copy of the recorded calls.
func (m *MockStage) CallHistory() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall, len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears call tracking. Configured behaviour is kept.
func (m *MockStage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.lastInput = nil
	m.callHistory = nil
}

// Assertion Helpers

// AssertProcessed verifies that mock was called exactly n times.
func AssertProcessed(t *testing.T, mock *MockStage, expectedCalls int) {
	t.Helper()
	if actual := mock.CallCount(); actual != expectedCalls {
		t.Errorf("expected mock stage %s to be called %d times, but was called %d times",
			mock.name, expectedCalls, actual)
	}
}

// AssertNotProcessed verifies that mock was never called.
func AssertNotProcessed(t *testing.T, mock *MockStage) {
	t.Helper()
	AssertProcessed(t, mock, 0)
}

// AssertProcessedWith verifies the input of the most recent call.
func AssertProcessedWith(t *testing.T, mock *MockStage, expectedInput any) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock stage %s to be called with input %v, but it was never called",
			mock.name, expectedInput)
		return
	}
	if actual := mock.LastInput(); !reflect.DeepEqual(actual, expectedInput) {
		t.Errorf("expected mock stage %s to be called with input %v, but was called with %v",
			mock.name, expectedInput, actual)
	}
}

// AssertOK verifies that every stage of the run succeeded.
func AssertOK(t *testing.T, out nexus.Outcome) {
	t.Helper()
	if out.Degraded() {
		t.Errorf("expected pipeline %s to succeed, but it degraded: %v", out.Pipeline, out.Err)
	}
}

// AssertDegraded verifies that the run degraded and, when target is not
// nil, that its error matches target.
func AssertDegraded(t *testing.T, out nexus.Outcome, target error) {
	t.Helper()
	if out.OK() {
		t.Errorf("expected pipeline %s to degrade, but it succeeded with %v", out.Pipeline, out.Value)
		return
	}
	if target != nil && !errors.Is(out.Err, target) {
		t.Errorf("expected pipeline %s to fail with %v, got %v", out.Pipeline, target, out.Err)
	}
}

// AssertValue verifies the value a run produced.
func AssertValue(t *testing.T, out nexus.Outcome, expected any) {
	t.Helper()
	if !reflect.DeepEqual(out.Value, expected) {
		t.Errorf("expected pipeline %s to produce %v, got %v", out.Pipeline, expected, out.Value)
	}
}

// ChaosStage wraps a stage and injects failures, latency and panics at
// configured rates.
type ChaosStage struct { //nolint:govet // fieldalignment: test helper
	name        string
	wrapped     nexus.Stage
	failureRate float64
	latencyMin  time.Duration
	latencyMax  time.Duration
	panicRate   float64
	rng         *mathrand.Rand
	mu          sync.Mutex
	totalCalls  int64
	failedCalls int64
	panicCalls  int64
}

// ChaosConfig holds the injection rates, each between 0 and 1.
type ChaosConfig struct {
	FailureRate float64
	LatencyMin  time.Duration
	LatencyMax  time.Duration
	PanicRate   float64
	Seed        int64 // 0 picks a time-based seed
}

// ErrChaos is the error injected by ChaosStage.
var ErrChaos = errors.New("chaos stage induced failure")

// NewChaosStage wraps stage with chaos injection.
func NewChaosStage(name string, wrapped nexus.Stage, config ChaosConfig) *ChaosStage {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ChaosStage{
		name:        name,
		wrapped:     wrapped,
		failureRate: config.FailureRate,
		latencyMin:  config.LatencyMin,
		latencyMax:  config.LatencyMax,
		panicRate:   config.PanicRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // deterministic chaos
	}
}

// Name implements nexus.Stage.
func (c *ChaosStage) Name() nexus.Name {
	return c.name
}

// Process implements nexus.Stage.
func (c *ChaosStage) Process(ctx context.Context, data any) (any, error) {
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	if c.rng.Float64() < c.panicRate {
		c.mu.Unlock()
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos stage induced panic")
	}
	var latency time.Duration
	if c.latencyMax > c.latencyMin {
		latency = c.latencyMin + time.Duration(c.rng.Int63n(int64(c.latencyMax-c.latencyMin)))
	} else if c.latencyMin > 0 {
		latency = c.latencyMin
	}
	injectFailure := c.rng.Float64() < c.failureRate
	c.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return data, ctx.Err()
		}
	}

	if injectFailure {
		atomic.AddInt64(&c.failedCalls, 1)
		return data, ErrChaos
	}
	return c.wrapped.Process(ctx, data)
}

// Stats returns injection counts so far.
func (c *ChaosStage) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:  atomic.LoadInt64(&c.totalCalls),
		FailedCalls: atomic.LoadInt64(&c.failedCalls),
		PanicCalls:  atomic.LoadInt64(&c.panicCalls),
	}
}

// ChaosStats holds injection counts.
type ChaosStats struct {
	TotalCalls  int64
	FailedCalls int64
	PanicCalls  int64
}

// FailureRate returns the observed failure rate.
func (s ChaosStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls) / float64(s.TotalCalls)
}

// PanicRate returns the observed panic rate.
func (s ChaosStats) PanicRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.PanicCalls) / float64(s.TotalCalls)
}

func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Failed: %d (%.1f%%), Panics: %d (%.1f%%)}",
		s.TotalCalls, s.FailedCalls, s.FailureRate()*100, s.PanicCalls, s.PanicRate()*100)
}

// Helper Functions

// WaitForCalls polls until mock has been called at least n times or timeout
// passes. It reports whether the count was reached.
func WaitForCalls(mock *MockStage, expectedCalls int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if mock.CallCount() >= expectedCalls {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return mock.CallCount() >= expectedCalls
}

// ParallelTest runs testFunc on goroutines goroutines and waits for all.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}
	wg.Wait()
}
