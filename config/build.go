package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zoobzio/nexus"
)

// ErrNoPipelines is returned when a file lists no pipelines.
var ErrNoPipelines = errors.New("no pipelines configured")

// BuildPipeline builds one pipeline from cfg. Stage names must be registered
// in reg. An empty stage list builds the standard three-stage pipeline.
func BuildPipeline(reg *Registry, cfg PipelineConfig, logger *slog.Logger) (*nexus.Pipeline, error) {
	if cfg.Name == "" {
		return nil, errors.New("pipeline name required")
	}
	kind, ok := nexus.ParseKind(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("pipeline %q: unknown kind %q", cfg.Name, cfg.Kind)
	}

	var p *nexus.Pipeline
	if len(cfg.Stages) == 0 {
		p = nexus.NewStandardPipeline(cfg.Name, kind)
	} else {
		stages := make([]nexus.Stage, 0, len(cfg.Stages))
		for i, ref := range cfg.Stages {
			if ref.Name == "" {
				return nil, fmt.Errorf("pipeline %q stage %d: name required", cfg.Name, i)
			}
			s, ok := reg.Get(ref.Name)
			if !ok {
				return nil, fmt.Errorf("pipeline %q stage %d: %q not in registry", cfg.Name, i, ref.Name)
			}
			stages = append(stages, s)
		}
		p = nexus.NewPipeline(cfg.Name, stages...).WithKind(kind)
	}
	if logger != nil {
		p.WithLogger(logger)
	}
	return p, nil
}

// Build creates a Manager chaining every pipeline in f, in file order.
// Pipelines already built are closed if a later one fails.
func Build(reg *Registry, f *File, logger *slog.Logger) (*nexus.Manager, error) {
	if f == nil || len(f.Pipelines) == 0 {
		return nil, ErrNoPipelines
	}
	m := nexus.NewManager("nexus").WithWorkers(f.Workers)
	if logger != nil {
		m.WithLogger(logger)
	}
	for _, cfg := range f.Pipelines {
		p, err := BuildPipeline(reg, cfg, logger)
		if err == nil {
			err = m.Add(p)
			if err != nil {
				p.Close()
			}
		}
		if err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}
