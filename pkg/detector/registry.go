package detector

import (
	"fmt"

	"github.com/mizutama/gamewatch/pkg/matcher"
)

// Definition names one composite detector.
type Definition struct {
	Name string
	Expr *Expr
}

// Registry is the validated, immutable set of named matchers and detectors
// for one run. Build rejects unresolved references and cycles outright; a
// partially valid registry is never produced.
type Registry struct {
	matchers  map[string]matcher.Spec
	detectors []Definition
	byName    map[string]int // detector name -> index in detectors
}

// Build validates matcher specs and detector definitions and returns the
// registry. Detector declaration order is preserved: the analyzer evaluates
// in the order given here.
func Build(matchers map[string]matcher.Spec, detectors []Definition) (*Registry, error) {
	r := &Registry{
		matchers:  make(map[string]matcher.Spec, len(matchers)),
		detectors: make([]Definition, 0, len(detectors)),
		byName:    make(map[string]int, len(detectors)),
	}

	for name, spec := range matchers {
		if name == "" {
			return nil, fmt.Errorf("%w: matcher with empty name", ErrInvalidExpression)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("matcher %q: %w", name, err)
		}
		r.matchers[name] = spec
	}

	for _, def := range detectors {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: detector with empty name", ErrInvalidExpression)
		}
		if _, dup := r.byName[def.Name]; dup {
			return nil, fmt.Errorf("%w: detector %q", ErrDuplicateName, def.Name)
		}
		if _, dup := r.matchers[def.Name]; dup {
			return nil, fmt.Errorf("%w: %q is both a matcher and a detector", ErrDuplicateName, def.Name)
		}
		if def.Expr == nil {
			return nil, fmt.Errorf("detector %q: %w: nil expression", def.Name, ErrInvalidExpression)
		}
		if err := def.Expr.validate(); err != nil {
			return nil, fmt.Errorf("detector %q: %w", def.Name, err)
		}
		r.byName[def.Name] = len(r.detectors)
		r.detectors = append(r.detectors, def)
	}

	// Every leaf must resolve to a matcher or a detector.
	for _, def := range r.detectors {
		for _, leaf := range def.Expr.leaves(nil) {
			if _, ok := r.matchers[leaf]; ok {
				continue
			}
			if _, ok := r.byName[leaf]; ok {
				continue
			}
			return nil, fmt.Errorf("detector %q: %w: %q", def.Name, ErrUnresolvedReference, leaf)
		}
	}

	if err := r.checkCycles(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkCycles runs a three-color depth-first search over detector-to-detector
// references. Matcher leaves are terminals and cannot participate in cycles.
func (r *Registry) checkCycles() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make([]int, len(r.detectors))

	// refs lists, per detector index, the detector indices it references.
	refs := make([][]int, len(r.detectors))
	for i, def := range r.detectors {
		for _, leaf := range def.Expr.leaves(nil) {
			if j, ok := r.byName[leaf]; ok {
				refs[i] = append(refs[i], j)
			}
		}
	}

	var visit func(int) error
	visit = func(i int) error {
		switch color[i] {
		case gray:
			return fmt.Errorf("%w: through %q", ErrCycle, r.detectors[i].Name)
		case black:
			return nil
		}
		color[i] = gray
		for _, j := range refs[i] {
			if err := visit(j); err != nil {
				return err
			}
		}
		color[i] = black
		return nil
	}

	for i := range r.detectors {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// Detectors returns the definitions in declaration order.
func (r *Registry) Detectors() []Definition {
	return r.detectors
}

// Matcher returns the spec for a named matcher.
func (r *Registry) Matcher(name string) (matcher.Spec, bool) {
	s, ok := r.matchers[name]
	return s, ok
}

// Detector returns the definition for a named detector.
func (r *Registry) Detector(name string) (Definition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.detectors[i], true
}
