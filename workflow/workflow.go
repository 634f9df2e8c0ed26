package workflow

import (
	"errors"
	"fmt"
	"sort"
)

// Workflow is a directed graph of steps. It is immutable once loaded and
// owned by a single collector.
type Workflow struct {
	Name        string
	Description string
	EntryPoint  string
	Steps       map[string]Step
	// Constants override collector settings for the lifetime of the workflow.
	Constants map[string]any
}

// Step returns the named step.
func (w *Workflow) Step(id string) (Step, bool) {
	s, ok := w.Steps[id]
	return s, ok
}

// StepIDs returns the step ids in sorted order.
func (w *Workflow) StepIDs() []string {
	ids := make([]string, 0, len(w.Steps))
	for id := range w.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the graph shape: the entry point and every next step must
// exist, a step has at most two successors, and sleep bounds are ordered.
// Action registration is checked by Registry.Validate.
func (w *Workflow) Validate() error {
	var errs []error
	if w.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(w.Steps) == 0 {
		errs = append(errs, errors.New("at least one step is required"))
	}
	if _, ok := w.Steps[w.EntryPoint]; !ok {
		errs = append(errs, fmt.Errorf("entry point %q is not a step", w.EntryPoint))
	}

	for _, id := range w.StepIDs() {
		s := w.Steps[id]
		if s.Action == "" {
			errs = append(errs, fmt.Errorf("step %q: action is required", id))
		}
		if len(s.NextSteps) > 2 {
			errs = append(errs, fmt.Errorf("step %q: at most 2 next steps, got %d", id, len(s.NextSteps)))
		}
		for _, next := range s.NextSteps {
			if _, ok := w.Steps[next]; !ok {
				errs = append(errs, fmt.Errorf("step %q: next step %q is not a step", id, next))
			}
		}
		if s.MinSleep < 0 {
			errs = append(errs, fmt.Errorf("step %q: min_sleep must not be negative", id))
		}
		if s.MaxSleep > 0 && s.MaxSleep < s.MinSleep {
			errs = append(errs, fmt.Errorf("step %q: max_sleep %v is below min_sleep %v", id, s.MaxSleep, s.MinSleep))
		}
	}

	if len(errs) > 0 {
		return InvalidWorkflowError(w.Name, errors.Join(errs...))
	}
	return nil
}
