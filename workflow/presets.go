package workflow

import (
	"fmt"
	"sort"
	"time"
)

// DefaultPreset is used when no workflow is configured.
const DefaultPreset = "default"

var presets = map[string]func() *Workflow{
	DefaultPreset:        DefaultWorkflow,
	"timeline_focused":   TimelineFocused,
	"engagement_focused": EngagementFocused,
	"complete_workflow":  CompleteWorkflow,
}

// Preset returns a fresh copy of the named built-in workflow.
func Preset(name string) (*Workflow, error) {
	if name == "" {
		name = DefaultPreset
	}
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown workflow preset %q (available: %v)", name, PresetNames())
	}
	return build(), nil
}

// PresetNames lists the built-in workflows in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// DefaultWorkflow alternates a timeline check with one account batch.
func DefaultWorkflow() *Workflow {
	return &Workflow{
		Name:       DefaultPreset,
		EntryPoint: "timeline_check",
		Constants:  map[string]any{},
		Steps: map[string]Step{
			"timeline_check": {
				Action:         "fetch_timeline",
				Params:         Params{},
				NextSteps:      []string{"process_accounts"},
				RateLimitSleep: true,
			},
			"process_accounts": {
				Action:         "process_batch",
				Params:         Params{},
				NextSteps:      []string{"timeline_check"},
				RateLimitSleep: true,
			},
		},
	}
}

// TimelineFocused reads more timeline pages and crawls followings less.
func TimelineFocused() *Workflow {
	return &Workflow{
		Name:       "timeline_focused",
		EntryPoint: "timeline_check",
		Constants: map[string]any{
			"FOLLOWING_CHECK_CHANCE": 0.15,
			"MAX_FOLLOWING_PAGES":    5,
			"FOLLOW_CHANCE":          0.2,
			"MAX_TIMELINE_PAGES":     15,
		},
		Steps: map[string]Step{
			"timeline_check": {
				Action:         "fetch_timeline",
				Params:         Params{"max_pages": 15},
				NextSteps:      []string{"process_batch"},
				MinSleep:       secs(20),
				MaxSleep:       secs(45),
				RateLimitSleep: true,
			},
			"process_batch": {
				Action:         "process_batch",
				Params:         Params{},
				NextSteps:      []string{"timeline_check"},
				MinSleep:       secs(30),
				MaxSleep:       secs(90),
				RateLimitSleep: true,
			},
		},
	}
}

// EngagementFocused alternates viral-tweet discovery with deep reply
// processing.
func EngagementFocused() *Workflow {
	return &Workflow{
		Name:       "engagement_focused",
		EntryPoint: "check_viral",
		Constants: map[string]any{
			"MIN_ENGAGEMENT":       100,
			"MIN_REPLY_LIKES":      10,
			"MAX_TWEETS_PER_BATCH": 3,
			"MAX_DEPTH_PER_TWEET":  50,
		},
		Steps: map[string]Step{
			"check_viral": {
				Action: "check_engagement",
				Params: Params{
					"max_depth":      3,
					"min_engagement": 100,
				},
				NextSteps:      []string{"process_engagement"},
				MinSleep:       secs(180),
				MaxSleep:       secs(240),
				RateLimitSleep: true,
			},
			"process_engagement": {
				Action: "process_tweet_engagement",
				Params: Params{
					"max_depth":       50,
					"min_reply_likes": 10,
					"delay_range":     []any{5, 15},
				},
				NextSteps:      []string{"check_viral"},
				MinSleep:       secs(30),
				MaxSleep:       secs(60),
				RateLimitSleep: true,
			},
		},
	}
}

// CompleteWorkflow mixes timeline checks, account batches and viral checks,
// taking the alternate branch when a step reports no progress.
func CompleteWorkflow() *Workflow {
	return &Workflow{
		Name:       "complete_workflow",
		EntryPoint: "timeline_check",
		Constants: map[string]any{
			"FOLLOWING_CHECK_CHANCE": 0.3,
			"MAX_FOLLOWING_PAGES":    5,
			"FOLLOW_CHANCE":          0.15,
			"MIN_ENGAGEMENT":         75,
			"MIN_REPLY_LIKES":        8,
			"MAX_TIMELINE_PAGES":     10,
			"MIN_NEW_TWEETS":         3,
		},
		Steps: map[string]Step{
			"timeline_check": {
				Action:         "fetch_timeline",
				Params:         Params{"max_pages": 10},
				NextSteps:      []string{"process_batch", "check_viral"},
				MinSleep:       secs(30),
				MaxSleep:       secs(60),
				RateLimitSleep: true,
			},
			"process_batch": {
				Action:         "process_batch",
				Params:         Params{},
				NextSteps:      []string{"check_viral", "timeline_check"},
				MinSleep:       secs(45),
				MaxSleep:       secs(90),
				RateLimitSleep: true,
			},
			"check_viral": {
				Action: "check_engagement",
				Params: Params{
					"max_depth":       3,
					"min_engagement":  75,
					"min_reply_likes": 8,
				},
				NextSteps:      []string{"timeline_check", "process_batch"},
				MinSleep:       secs(120),
				MaxSleep:       secs(180),
				RateLimitSleep: true,
			},
		},
	}
}
