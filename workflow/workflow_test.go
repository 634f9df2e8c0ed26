package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/247void/twitterScraper/types"
)

func TestWorkflow_Validate(t *testing.T) {
	base := func() *Workflow {
		return &Workflow{
			Name:       "wf",
			EntryPoint: "a",
			Steps: map[string]Step{
				"a": {Action: "x", NextSteps: []string{"b"}},
				"b": {Action: "y"},
			},
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Workflow)
		msg    string
	}{
		{"missing entry", func(w *Workflow) { w.EntryPoint = "zz" }, `entry point "zz"`},
		{"dangling next", func(w *Workflow) {
			w.Steps["b"] = Step{Action: "y", NextSteps: []string{"gone"}}
		}, `next step "gone"`},
		{"too many next", func(w *Workflow) {
			w.Steps["a"] = Step{Action: "x", NextSteps: []string{"a", "b", "a"}}
		}, "at most 2"},
		{"inverted sleeps", func(w *Workflow) {
			w.Steps["a"] = Step{Action: "x", MinSleep: time.Minute, MaxSleep: time.Second}
		}, "below min_sleep"},
		{"missing action", func(w *Workflow) { w.Steps["b"] = Step{} }, "action is required"},
		{"missing name", func(w *Workflow) { w.Name = "" }, "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := base()
			tt.mutate(w)
			err := w.Validate()
			require.Error(t, err)
			assert.Equal(t, types.ErrInvalidWorkflow, types.GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPresets_AreWellFormed(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			wf, err := Preset(name)
			require.NoError(t, err)
			require.NoError(t, wf.Validate())
			assert.Equal(t, name, wf.Name)

			// Every preset is cyclic: no step ends the workflow.
			for id, s := range wf.Steps {
				assert.NotEmpty(t, s.NextSteps, "step %s", id)
			}
		})
	}
}

func TestPreset(t *testing.T) {
	wf, err := Preset("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPreset, wf.Name)
	assert.Equal(t, "timeline_check", wf.EntryPoint)

	_, err = Preset("does_not_exist")
	assert.Error(t, err)

	a, _ := Preset("complete_workflow")
	b, _ := Preset("complete_workflow")
	a.Steps["timeline_check"].Params["max_pages"] = 1
	assert.Equal(t, 10, b.Steps["timeline_check"].Params.Int("max_pages", 0), "presets are fresh copies")
}

func TestPreset_CompleteWorkflowBranches(t *testing.T) {
	wf := CompleteWorkflow()
	step := wf.Steps["timeline_check"]

	next, _ := ChooseNextStep(step, Bool(true))
	assert.Equal(t, "process_batch", next)
	next, _ = ChooseNextStep(step, Bool(false))
	assert.Equal(t, "check_viral", next)

	assert.Equal(t, 30*time.Second, step.MinSleep)
	assert.Equal(t, 60*time.Second, step.MaxSleep)
	assert.Equal(t, 75, wf.Constants["MIN_ENGAGEMENT"])
}
