package workflow

import (
	"github.com/247void/twitterScraper/types"
)

// UnknownStepError reports a step id missing from the workflow graph.
func UnknownStepError(step string) error {
	return types.Errorf(types.ErrUnknownStep, "unknown step %q", step)
}

// UnknownActionError reports an action with no registered handler.
func UnknownActionError(action string) error {
	return types.Errorf(types.ErrUnknownAction, "unknown action %q", action)
}

// InvalidWorkflowError reports a malformed workflow definition.
func InvalidWorkflowError(name string, cause error) error {
	return types.Errorf(types.ErrInvalidWorkflow, "invalid workflow %q", name).WithCause(cause)
}

// StepFailedError reports a step that kept failing past the configured limit.
func StepFailedError(step string, attempts int, cause error) error {
	return types.Errorf(types.ErrStepFailed, "step %q failed %d consecutive times", step, attempts).
		WithCause(cause).
		WithRetryable(true)
}
