package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// HandlerFunc executes an action with its filtered parameters.
type HandlerFunc func(ctx context.Context, p Params) (Result, error)

// ParamSpec declares one parameter an action accepts.
type ParamSpec struct {
	Name string
	Kind ParamKind
}

// Action binds a name to a handler and its declared parameters.
type Action struct {
	Name    string
	Params  []ParamSpec
	Handler HandlerFunc
}

func (a Action) spec(name string) (ParamSpec, bool) {
	for _, s := range a.Params {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Registry is the static action table a collector builds at startup.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	strict  bool
	logger  *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStrictParams controls whether undeclared parameter names fail
// validation (true, the default) or only log a warning.
func WithStrictParams(strict bool) RegistryOption {
	return func(r *Registry) { r.strict = strict }
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		actions: make(map[string]Action),
		strict:  true,
		logger:  logger.With(zap.String("component", "registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an action. Names must be unique.
func (r *Registry) Register(a Action) error {
	if a.Name == "" {
		return errors.New("action name is required")
	}
	if a.Handler == nil {
		return fmt.Errorf("action %q: handler is required", a.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[a.Name]; exists {
		return fmt.Errorf("action %q already registered", a.Name)
	}
	r.actions[a.Name] = a
	return nil
}

// MustRegister is Register that panics on error. Used when wiring the
// built-in actions.
func (r *Registry) MustRegister(actions ...Action) {
	for _, a := range actions {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the named action.
func (r *Registry) Lookup(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Names lists registered actions in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the step's action with its parameters filtered to the names
// the action declares.
func (r *Registry) Dispatch(ctx context.Context, step Step) (Result, error) {
	a, ok := r.Lookup(step.Action)
	if !ok {
		return None(), UnknownActionError(step.Action)
	}
	return a.Handler(ctx, step.Params.filter(a.Params))
}

// Validate checks wf's graph and that every step names a registered action
// whose declared parameters accept the given values.
func (r *Registry) Validate(wf *Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}

	var errs []error
	for _, id := range wf.StepIDs() {
		step := wf.Steps[id]
		a, ok := r.Lookup(step.Action)
		if !ok {
			errs = append(errs, fmt.Errorf("step %q: %w", id, UnknownActionError(step.Action)))
			continue
		}

		names := make([]string, 0, len(step.Params))
		for name := range step.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			value := step.Params[name]
			spec, declared := a.spec(name)
			if !declared {
				if r.strict {
					errs = append(errs, fmt.Errorf("step %q: action %q has no parameter %q", id, a.Name, name))
				} else {
					r.logger.Warn("unknown step parameter dropped",
						zap.String("workflow", wf.Name),
						zap.String("step", id),
						zap.String("action", a.Name),
						zap.String("param", name),
					)
				}
				continue
			}
			if !Conforms(value, spec.Kind) {
				errs = append(errs, fmt.Errorf("step %q: parameter %q wants %s, got %s", id, name, spec.Kind, describe(value)))
			}
		}
	}

	if len(errs) > 0 {
		return InvalidWorkflowError(wf.Name, errors.Join(errs...))
	}
	return nil
}
