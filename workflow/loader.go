package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// stepDocument is the YAML form of a Step. Sleeps are in seconds.
type stepDocument struct {
	Action         string         `yaml:"action"`
	Params         map[string]any `yaml:"params,omitempty"`
	NextSteps      []string       `yaml:"next_steps,omitempty"`
	MinSleep       float64        `yaml:"min_sleep,omitempty"`
	MaxSleep       float64        `yaml:"max_sleep,omitempty"`
	RateLimitSleep *bool          `yaml:"rate_limit_sleep,omitempty"`
}

// document is the YAML form of a Workflow.
type document struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description,omitempty"`
	EntryPoint  string                  `yaml:"entry_point"`
	Constants   map[string]any          `yaml:"constants,omitempty"`
	Steps       map[string]stepDocument `yaml:"steps"`
}

// Parse decodes a YAML workflow and checks its graph. rate_limit_sleep
// defaults to true when omitted.
func Parse(data []byte) (*Workflow, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	wf := &Workflow{
		Name:        doc.Name,
		Description: doc.Description,
		EntryPoint:  doc.EntryPoint,
		Constants:   doc.Constants,
		Steps:       make(map[string]Step, len(doc.Steps)),
	}
	if wf.Constants == nil {
		wf.Constants = map[string]any{}
	}
	for id, sd := range doc.Steps {
		rateLimit := true
		if sd.RateLimitSleep != nil {
			rateLimit = *sd.RateLimitSleep
		}
		params := Params(sd.Params)
		if params == nil {
			params = Params{}
		}
		wf.Steps[id] = Step{
			Action:         sd.Action,
			Params:         params,
			NextSteps:      sd.NextSteps,
			MinSleep:       seconds(sd.MinSleep),
			MaxSleep:       seconds(sd.MaxSleep),
			RateLimitSleep: rateLimit,
		}
	}

	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// LoadFile reads and parses a YAML workflow file.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

// Marshal encodes wf as YAML in the form Parse accepts.
func Marshal(wf *Workflow) ([]byte, error) {
	doc := document{
		Name:        wf.Name,
		Description: wf.Description,
		EntryPoint:  wf.EntryPoint,
		Constants:   wf.Constants,
		Steps:       make(map[string]stepDocument, len(wf.Steps)),
	}
	for id, s := range wf.Steps {
		rateLimit := s.RateLimitSleep
		doc.Steps[id] = stepDocument{
			Action:         s.Action,
			Params:         s.Params,
			NextSteps:      s.NextSteps,
			MinSleep:       s.MinSleep.Seconds(),
			MaxSleep:       s.MaxSleep.Seconds(),
			RateLimitSleep: &rateLimit,
		}
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return data, nil
}

// Resolve returns the workflow to run: the file when path is set, otherwise
// the named preset.
func Resolve(preset, path string) (*Workflow, error) {
	if path != "" {
		return LoadFile(path)
	}
	return Preset(preset)
}

