package workflow

import (
	"strconv"
	"time"
)

// ResultKind tags the value a handler returns.
type ResultKind uint8

const (
	ResultNone ResultKind = iota
	ResultBool
	ResultCount
)

// Result is the outcome of one action: nothing, a success flag, or a count.
type Result struct {
	kind  ResultKind
	ok    bool
	count int
}

// None is the empty result.
func None() Result { return Result{} }

// Bool wraps a success flag.
func Bool(b bool) Result { return Result{kind: ResultBool, ok: b} }

// Count wraps an item count.
func Count(n int) Result { return Result{kind: ResultCount, count: n} }

// Kind returns the tag.
func (r Result) Kind() ResultKind { return r.kind }

// AsBool returns the flag and whether r is a Bool.
func (r Result) AsBool() (bool, bool) { return r.ok, r.kind == ResultBool }

// AsCount returns the count and whether r is a Count.
func (r Result) AsCount() (int, bool) { return r.count, r.kind == ResultCount }

func (r Result) String() string {
	switch r.kind {
	case ResultBool:
		return strconv.FormatBool(r.ok)
	case ResultCount:
		return strconv.Itoa(r.count)
	default:
		return "none"
	}
}

// Step is one node of a workflow graph.
type Step struct {
	Action         string
	Params         Params
	NextSteps      []string
	MinSleep       time.Duration
	MaxSleep       time.Duration
	RateLimitSleep bool
}

// ChooseNextStep applies the branch rule. With no next steps the path ends
// and ok is false. A false Bool or a Count below 3 selects the last entry;
// every other result selects the first.
func ChooseNextStep(step Step, r Result) (next string, ok bool) {
	if len(step.NextSteps) == 0 {
		return "", false
	}
	last := step.NextSteps[len(step.NextSteps)-1]
	switch r.kind {
	case ResultBool:
		if !r.ok {
			return last, true
		}
	case ResultCount:
		if r.count < 3 {
			return last, true
		}
	}
	return step.NextSteps[0], true
}
