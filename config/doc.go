// Package config builds nexus managers from a human-readable file.
//
// A file names the pipelines to chain, in order, and the stages each one
// runs. Stages are looked up by name in a Registry; DefaultRegistry knows
// the three built-in stages "input", "transform" and "output".
//
//	log_level: info
//	workers: 4
//	pipelines:
//	  - name: sensors
//	    kind: JSON
//	  - name: custom
//	    stages: [input, transform, output]
//
// YAML (.yaml, .yml) and TOML (.toml) files are supported. A pipeline with
// no stages list gets the three built-in stages.
package config
