package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for config files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Encoding names accepted by Parse.
const (
	EncodingYAML = "yaml"
	EncodingTOML = "toml"
)

// File is the root of a nexus configuration file.
type File struct {
	// LogLevel is one of debug, info, warn, error. Default info.
	LogLevel string `yaml:"log_level" toml:"log_level"`
	// LogFormat is text or json. Default text.
	LogFormat string `yaml:"log_format" toml:"log_format"`
	// Workers bounds Manager.Batch concurrency. Values below 1 mean 1.
	Workers int `yaml:"workers" toml:"workers"`
	// Journal is an optional sqlite path where run outcomes are recorded.
	Journal string `yaml:"journal" toml:"journal"`
	// Pipelines are chained in the order listed.
	Pipelines []PipelineConfig `yaml:"pipelines" toml:"pipelines"`
}

// PipelineConfig describes one pipeline.
type PipelineConfig struct {
	Name   string     `yaml:"name" toml:"name"`
	Kind   string     `yaml:"kind" toml:"kind"`
	Stages []StageRef `yaml:"stages" toml:"stages"`
}

// StageRef names a registered stage. In YAML a stage can be written as a
// plain name or as a mapping:
//
//	stages:
//	  - input
//	  - name: transform
type StageRef struct {
	Name string `yaml:"name" toml:"name"`
}

// UnmarshalYAML allows a stage to be a string or a mapping.
func (s *StageRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StageRef
	return value.Decode((*raw)(s))
}

// UnmarshalText lets TOML stage lists be written as plain strings.
func (s *StageRef) UnmarshalText(text []byte) error {
	s.Name = string(text)
	return nil
}

// Default returns the configuration used when no file is given: one
// generic pipeline running the built-in stages.
func Default() *File {
	return &File{
		LogLevel:  "info",
		LogFormat: "text",
		Workers:   1,
		Pipelines: []PipelineConfig{{Name: "nexus"}},
	}
}

// Load reads a config file, choosing the decoder by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var enc string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc = EncodingYAML
	case ".toml":
		enc = EncodingTOML
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	f, err := Parse(data, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data in the given encoding.
func Parse(data []byte, encoding string) (*File, error) {
	var f File
	switch encoding {
	case EncodingYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	case EncodingTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, encoding)
	}
	return &f, nil
}
