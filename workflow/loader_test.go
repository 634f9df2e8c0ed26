package workflow

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customYAML = `
name: custom
description: timeline then mentions
entry_point: timeline
constants:
  MAX_TIMELINE_PAGES: 4
steps:
  timeline:
    action: fetch_timeline
    params:
      max_pages: 4
    next_steps: [mentions, timeline]
    min_sleep: 10
    max_sleep: 20.5
  mentions:
    action: process_mentions
    params:
      hours: 6
    next_steps: [timeline]
    rate_limit_sleep: false
`

func TestParse(t *testing.T) {
	wf, err := Parse([]byte(customYAML))
	require.NoError(t, err)

	assert.Equal(t, "custom", wf.Name)
	assert.Equal(t, "timeline", wf.EntryPoint)
	assert.Equal(t, 4, wf.Constants["MAX_TIMELINE_PAGES"])

	tl := wf.Steps["timeline"]
	assert.Equal(t, "fetch_timeline", tl.Action)
	assert.Equal(t, 4, tl.Params.Int("max_pages", 0))
	assert.Equal(t, []string{"mentions", "timeline"}, tl.NextSteps)
	assert.Equal(t, 10*time.Second, tl.MinSleep)
	assert.Equal(t, 20500*time.Millisecond, tl.MaxSleep)
	assert.True(t, tl.RateLimitSleep, "defaults to true")

	assert.False(t, wf.Steps["mentions"].RateLimitSleep)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
name: broken
entry_point: a
steps:
  a:
    action: fetch_timeline
    next_steps: [nowhere]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestMarshal_ParsesBack(t *testing.T) {
	for _, name := range PresetNames() {
		wf, err := Preset(name)
		require.NoError(t, err)

		data, err := Marshal(wf)
		require.NoError(t, err)
		back, err := Parse(data)
		require.NoError(t, err, "%s:\n%s", name, data)

		assert.Equal(t, wf.EntryPoint, back.EntryPoint)
		assert.Equal(t, wf.StepIDs(), back.StepIDs())
		for id, s := range wf.Steps {
			assert.Equal(t, s.NextSteps, back.Steps[id].NextSteps)
			assert.Equal(t, s.MaxSleep, back.Steps[id].MaxSleep)
			assert.Equal(t, s.RateLimitSleep, back.Steps[id].RateLimitSleep)
		}
	}
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o600))

	wf, err := Resolve("timeline_focused", path)
	require.NoError(t, err)
	assert.Equal(t, "custom", wf.Name, "file wins over preset")

	wf, err = Resolve("timeline_focused", "")
	require.NoError(t, err)
	assert.Equal(t, "timeline_focused", wf.Name)

	_, err = Resolve("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
