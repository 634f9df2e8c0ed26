package workflow

import (
	"fmt"
	"math"
	"time"

	"github.com/247void/twitterScraper/internal/clock"
)

// ParamKind is the declared type of an action parameter.
type ParamKind string

const (
	KindInt    ParamKind = "int"
	KindFloat  ParamKind = "float"
	KindBool   ParamKind = "bool"
	KindString ParamKind = "string"
	// KindRange is a [min, max] pair of seconds.
	KindRange ParamKind = "range"
)

// Params holds step parameters as decoded from YAML or built in Go.
type Params map[string]any

// Int returns the named parameter as an int, or def when absent or not
// integral.
func (p Params) Int(name string, def int) int {
	if v, ok := asInt(p[name]); ok {
		return v
	}
	return def
}

// Float returns the named parameter as a float64, or def.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := asFloat(p[name]); ok {
		return v
	}
	return def
}

// Bool returns the named parameter as a bool, or def.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name].(bool); ok {
		return v
	}
	return def
}

// String returns the named parameter as a string, or def.
func (p Params) String(name string, def string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return def
}

// Range returns the named parameter as a duration range, or def.
func (p Params) Range(name string, def clock.Range) clock.Range {
	if v, ok := asRange(p[name]); ok {
		return v
	}
	return def
}

// Has reports whether name is set.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// filter returns a copy of p restricted to the declared names.
func (p Params) filter(specs []ParamSpec) Params {
	out := make(Params, len(specs))
	for _, s := range specs {
		if v, ok := p[s.Name]; ok {
			out[s.Name] = v
		}
	}
	return out
}

// Conforms reports whether v can be read as kind.
func Conforms(v any, kind ParamKind) bool {
	switch kind {
	case KindInt:
		_, ok := asInt(v)
		return ok
	case KindFloat:
		_, ok := asFloat(v)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	case KindRange:
		_, ok := asRange(v)
		return ok
	}
	return false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asRange(v any) (clock.Range, bool) {
	switch r := v.(type) {
	case clock.Range:
		return r, r.Valid()
	case [2]float64:
		rng := clock.Seconds(r[0], r[1])
		return rng, rng.Valid()
	case []float64:
		if len(r) == 2 {
			rng := clock.Seconds(r[0], r[1])
			return rng, rng.Valid()
		}
	case []any:
		if len(r) != 2 {
			return clock.Range{}, false
		}
		lo, ok1 := asFloat(r[0])
		hi, ok2 := asFloat(r[1])
		if !ok1 || !ok2 {
			return clock.Range{}, false
		}
		rng := clock.Seconds(lo, hi)
		return rng, rng.Valid()
	case map[string]any:
		lo, ok1 := asFloat(r["min"])
		hi, ok2 := asFloat(r["max"])
		if !ok1 || !ok2 {
			return clock.Range{}, false
		}
		rng := clock.Seconds(lo, hi)
		return rng, rng.Valid()
	}
	return clock.Range{}, false
}

// seconds converts a YAML number of seconds into a duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func describe(v any) string {
	return fmt.Sprintf("%v (%T)", v, v)
}
