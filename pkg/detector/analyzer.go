package detector

import (
	"time"

	"github.com/mizutama/gamewatch/internal/log"
	"github.com/mizutama/gamewatch/pkg/frame"
	"github.com/mizutama/gamewatch/pkg/matcher"
)

// Event is the analyzer's per-detector output for one frame. Transitioned is
// true only when the detector's boolean flipped relative to the previous
// analyzed frame (rising or falling edge); a detector that stays true fires
// once on entry and once on exit, never every frame.
type Event struct {
	Detector     string
	Value        bool
	Transitioned bool

	// Score carries the primitive matcher score when the detector is a bare
	// matcher reference; composites have no single meaningful score and
	// leave it zero.
	Score    float64
	HasScore bool

	Timestamp time.Time
}

// Analyzer evaluates every registered detector against incoming frames and
// debounces the results into edge-triggered events. The previous-result map
// is owned by the instance, so independent analyzers never interfere.
//
// Analyze performs no I/O and never blocks; a matcher that fails to evaluate
// is logged and treated as non-matching for that frame only.
type Analyzer struct {
	registry *Registry
	prev     map[string]bool
}

// NewAnalyzer creates an analyzer over a validated registry. All detectors
// start from a previous value of false, so a detector that is already true
// on the first frame emits a rising edge immediately.
func NewAnalyzer(registry *Registry) *Analyzer {
	return &Analyzer{
		registry: registry,
		prev:     make(map[string]bool, len(registry.Detectors())),
	}
}

// evalCache memoizes per-frame results so detectors sharing a matcher or
// sub-detector evaluate it at most once per cycle.
type evalCache struct {
	matchers  map[string]matcher.Result
	detectors map[string]bool
}

// Analyze evaluates every detector against the frame, in declaration order,
// and returns one event per detector with the edge flag set.
func (a *Analyzer) Analyze(f *frame.Frame) []Event {
	cache := &evalCache{
		matchers:  make(map[string]matcher.Result),
		detectors: make(map[string]bool),
	}

	defs := a.registry.Detectors()
	events := make([]Event, 0, len(defs))
	for _, def := range defs {
		value := a.eval(f, def.Expr, cache)

		ev := Event{
			Detector:     def.Name,
			Value:        value,
			Transitioned: value != a.prev[def.Name],
			Timestamp:    f.Timestamp,
		}
		if def.Expr.Op == OpLeaf {
			if res, ok := cache.matchers[def.Expr.Name]; ok {
				ev.Score = res.Score
				ev.HasScore = true
			}
		}
		a.prev[def.Name] = value
		events = append(events, ev)
	}
	return events
}

// eval walks the expression tree. And stops at the first false child, Or at
// the first true child; short-circuiting changes which matchers run, never
// the logical result.
func (a *Analyzer) eval(f *frame.Frame, e *Expr, cache *evalCache) bool {
	switch e.Op {
	case OpLeaf:
		return a.evalLeaf(f, e.Name, cache)
	case OpNot:
		return !a.eval(f, e.Children[0], cache)
	case OpAnd:
		for _, c := range e.Children {
			if !a.eval(f, c, cache) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range e.Children {
			if a.eval(f, c, cache) {
				return true
			}
		}
		return false
	}
	return false
}

// evalLeaf resolves a name against the matcher namespace first, then the
// detector namespace. The registry guarantees one of the two resolves.
func (a *Analyzer) evalLeaf(f *frame.Frame, name string, cache *evalCache) bool {
	if res, ok := cache.matchers[name]; ok {
		return res.Value
	}
	if spec, ok := a.registry.Matcher(name); ok {
		res, err := matcher.Evaluate(f, spec)
		if err != nil {
			// Recoverable: this matcher is non-matching for this frame
			// only, the rest of the cycle continues.
			evalErr := &matcher.EvalError{Matcher: name, Err: err}
			log.Warn("matcher evaluation failed",
				"kind", spec.Kind.String(), "error", evalErr)
			res = matcher.Result{}
		}
		cache.matchers[name] = res
		return res.Value
	}

	if v, ok := cache.detectors[name]; ok {
		return v
	}
	def, _ := a.registry.Detector(name)
	v := a.eval(f, def.Expr, cache)
	cache.detectors[name] = v
	return v
}
