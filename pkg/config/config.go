// Package config reads pipeline definitions from YAML and resolves them against a processor registry.
//
// A definition lists the stages in order. A stage is either the name of a registered processor, or a mapping
// naming the stage, its processor and the parameters given to the processor constructor:
//
//	name: shout
//	queue_size: 64
//	restart:
//	  max_restarts: 3
//	  interval: 100ms
//	stages:
//	  - uppercase
//	  - name: exclaim
//	    processor: suffix
//	    params:
//	      value: "!"
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-dframe/pkg/pipeline"
)

// ErrInvalidDefinition is returned for definitions that cannot describe a pipeline.
var ErrInvalidDefinition = errors.New("invalid pipeline definition")

// Definition is a pipeline read from YAML.
type Definition struct {
	Name      string   `yaml:"name"`
	QueueSize int      `yaml:"queue_size"`
	Restart   *Restart `yaml:"restart"`
	Stages    []Stage  `yaml:"stages"`
}

// Restart is the policy applied to a stage worker that failed.
type Restart struct {
	// MaxRestarts is the number of restarts allowed per stage and per run. 0 disables restarts.
	MaxRestarts uint64   `yaml:"max_restarts"`
	Interval    Duration `yaml:"interval"`
}

// Stage is a single stage entry.
type Stage struct {
	Name      string          `yaml:"name"`
	Processor string          `yaml:"processor"`
	Params    pipeline.Params `yaml:"params"`
}

// UnmarshalYAML allows a stage to be a string (processor name only) or a mapping.
func (s *Stage) UnmarshalYAML(value *yaml.Node) error {
	var processor string
	err := value.Decode(&processor)
	if err == nil {
		s.Processor = processor

		return nil
	}
	type raw Stage

	return value.Decode((*raw)(s))
}

// Duration is a time.Duration that unmarshals from YAML strings such as "100ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	err := value.Decode(&s)
	if err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "duration %q", s)
	}
	*d = Duration(parsed)

	return nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Parse parses a YAML definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	err := yaml.Unmarshal(data, &def)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse pipeline definition")
	}
	if def.QueueSize < 0 {
		return nil, errors.Wrapf(ErrInvalidDefinition, "queue_size must not be negative, got %d", def.QueueSize)
	}
	if def.Restart != nil && def.Restart.Interval < 0 {
		return nil, errors.Wrap(ErrInvalidDefinition, "restart interval must not be negative")
	}

	return &def, nil
}

// LoadFile reads and parses the YAML definition at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return def, nil
}

// Build resolves every stage against reg. A stage without a name takes the name of its processor, followed by
// its index when several unnamed stages run the same processor.
func (d *Definition) Build(reg *pipeline.Registry) ([]pipeline.StageConfig, error) {
	unnamed := make(map[string]int)
	for _, s := range d.Stages {
		if s.Name == "" {
			unnamed[s.Processor]++
		}
	}

	stages := make([]pipeline.StageConfig, 0, len(d.Stages))
	for i, s := range d.Stages {
		if s.Processor == "" {
			return nil, errors.Wrapf(ErrInvalidDefinition, "stage %d: processor required", i)
		}
		name := s.Name
		if name == "" {
			name = s.Processor
			if unnamed[s.Processor] > 1 {
				name = fmt.Sprintf("%s-%d", s.Processor, i)
			}
		}
		cfg, err := reg.Stage(name, s.Processor, s.Params)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d (%q)", i, name)
		}
		stages = append(stages, cfg)
	}

	return stages, nil
}

// Options returns the pipeline options set by the definition.
func (d *Definition) Options() []pipeline.Option {
	opts := []pipeline.Option{}
	if d.QueueSize > 0 {
		opts = append(opts, pipeline.WithQueueSize(d.QueueSize))
	}
	if d.Restart != nil && d.Restart.MaxRestarts > 0 {
		maxRestarts, interval := d.Restart.MaxRestarts, d.Restart.Interval.Duration()
		opts = append(opts, pipeline.WithRestart(func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxRestarts)
		}))
	}

	return opts
}
