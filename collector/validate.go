package collector

import (
	"go.uber.org/zap"

	"github.com/247void/twitterScraper/workflow"
)

// ValidateWorkflow checks wf against the collector's actions and resolves
// the constant overrides, without a platform session or store. It reports
// the same errors New would.
func ValidateWorkflow(wf *workflow.Workflow, constants map[string]any, strict bool) error {
	if _, err := ResolveSettings(wf.Constants, constants); err != nil {
		return workflow.InvalidWorkflowError(wf.Name, err)
	}
	c := &Collector{logger: zap.NewNop()}
	c.registry = workflow.NewRegistry(c.logger, workflow.WithStrictParams(strict))
	if err := c.registerActions(); err != nil {
		return err
	}
	return c.registry.Validate(wf)
}
