// Package script describes pipelines in YAML and replays them against a
// display session. It powers the demo and run commands.
package script

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/beout/pkg/errors"
)

//go:embed demo.yaml
var demoScript []byte

// Pipeline is the root of a script
type Pipeline struct {
	Name      string `yaml:"name"`
	AutoClose *bool  `yaml:"auto_close"`
	Parallel  bool   `yaml:"parallel"`
	Substeps  bool   `yaml:"substeps"`
	Steps     []Step `yaml:"steps"`
}

// Step is one activity of a pipeline
type Step struct {
	Name      string        `yaml:"name"`
	Banner    string        `yaml:"banner"`
	Duration  time.Duration `yaml:"duration"`
	Estimate  time.Duration `yaml:"estimate"`
	Detail    string        `yaml:"detail"`
	Logs      []string      `yaml:"logs"`
	Fail      string        `yaml:"fail"`
	Skip      bool          `yaml:"skip"`
	AutoClose *bool         `yaml:"auto_close"`
	Parallel  bool          `yaml:"parallel"`
	Substeps  bool          `yaml:"substeps"`
	Steps     []Step        `yaml:"steps"`
}

// RootAutoClose reports whether the root closes with its last step. Like
// the session root it defaults to false.
func (p *Pipeline) RootAutoClose() bool {
	return p.AutoClose != nil && *p.AutoClose
}

func (s Step) autoClose() bool {
	return s.AutoClose == nil || *s.AutoClose
}

// Load reads a pipeline file from fs
func Load(fs afero.Fs, path string) (*Pipeline, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrScriptParse, "failed to read script %s", path).
			WithDetail("path", path)
	}
	p, err := Parse(data)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.WithDetail("path", path)
		}
		return nil, err
	}
	return p, nil
}

// Parse decodes and validates pipeline YAML. Unknown keys are rejected.
func Parse(data []byte) (*Pipeline, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(err, errors.ErrScriptParse, "failed to parse script")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Demo returns the embedded demonstration pipeline
func Demo() *Pipeline {
	p, err := Parse(demoScript)
	if err != nil {
		panic(fmt.Sprintf("script: embedded demo.yaml is invalid: %v", err))
	}
	return p
}

// Validate checks names, durations and conflicting outcomes
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return errors.New(errors.ErrScriptParse, "pipeline needs a name")
	}
	return validateSteps(p.Steps, p.Name)
}

func validateSteps(steps []Step, path string) error {
	for i, st := range steps {
		where := fmt.Sprintf("%s/steps[%d]", path, i)
		if st.Name == "" {
			return errors.Newf(errors.ErrScriptParse, "%s: step needs a name", where).WithDetail("step", where)
		}
		where = path + "/" + st.Name
		if st.Duration < 0 || st.Estimate < 0 {
			return errors.Newf(errors.ErrScriptParse, "%s: negative duration", where).WithDetail("step", where)
		}
		if st.Skip && st.Fail != "" {
			return errors.Newf(errors.ErrScriptParse, "%s: step cannot both skip and fail", where).WithDetail("step", where)
		}
		if st.Skip && len(st.Steps) > 0 {
			return errors.Newf(errors.ErrScriptParse, "%s: skipped step cannot have steps", where).WithDetail("step", where)
		}
		if err := validateSteps(st.Steps, where); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of steps, nested ones included
func (p *Pipeline) Count() int {
	return countSteps(p.Steps)
}

func countSteps(steps []Step) int {
	n := len(steps)
	for _, st := range steps {
		n += countSteps(st.Steps)
	}
	return n
}
