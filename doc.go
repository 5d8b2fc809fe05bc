// Package nexus provides a small multi-stage pipeline that ingests
// heterogeneous raw records, normalizes them into a canonical record,
// enriches them and renders a one-line summary, while tracking run metrics
// and tolerating malformed input.
//
// # Overview
//
// Raw input enters a Pipeline and passes through its stages in order:
//
//	raw ──InputStage──▶ Record ──TransformStage──▶ Record ──OutputStage──▶ string
//
// InputStage classifies raw input into one of three formats:
//
//   - JSON-like text: {"sensor":"temp","value":"23.5","unit":"C"}
//   - CSV-like text: a header line followed by data lines
//   - numeric streams: []float64{23.5, 26.6, 20.2}
//
// and produces the matching Record variant (JSONRecord, CSVRecord or
// StreamRecord). TransformStage enriches the record and OutputStage renders it.
//
// # Recovery
//
// Stage failures never escape a run. Pipeline.Run returns an Outcome; a
// failed run is degraded: it carries the failure as an *Error and a
// best-effort fallback value, it is logged, and the pipeline stays available
// for the next run. Success counters only count clean runs; elapsed time
// counts every run.
//
// # Composition
//
// A Manager chains pipelines, feeding each pipeline's result into the next:
//
//	m := nexus.NewManager("nexus")
//	_ = m.Add(nexus.NewPipeline("ingest", nexus.InputStage{}))
//	_ = m.Add(nexus.NewPipeline("enrich", nexus.TransformStage{}))
//	_ = m.Add(nexus.NewPipeline("render", nexus.OutputStage{}))
//	res := m.Chain(ctx, `{"sensor":"temp","value":"23.5"}`)
//	// res.Value: "Processed temperature reading: 23.5°C (Normal range)"
//
// A degraded pipeline's fallback value is still forwarded down the chain.
//
// Custom stages are built from plain functions with Apply, Transform and
// Effect, and a *Pipeline is itself a Stage.
//
// # Concurrency
//
// Stages hold no per-run state and may be shared by many pipelines. Runs
// against a single pipeline are serialized; different pipelines run in
// parallel. Manager.Batch processes independent inputs concurrently.
//
// # Observability
//
// Each Pipeline carries a metricz registry, a tracez tracer and hookz events
// (see Pipeline), uses a clockz clock for timing and narrates to a
// *slog.Logger.
package nexus
