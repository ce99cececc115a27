package detector

import (
	"errors"
	"testing"

	"github.com/mizutama/gamewatch/pkg/matcher"
)

func redMatcher() matcher.Spec {
	return matcher.Spec{Kind: matcher.KindRGB, Target: [3]uint8{255, 0, 0}, Threshold: 1}
}

func TestBuild_Valid(t *testing.T) {
	reg, err := Build(
		map[string]matcher.Spec{"red": redMatcher()},
		[]Definition{
			{Name: "base", Expr: Leaf("red")},
			{Name: "derived", Expr: Not(Leaf("base"))},
		},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	defs := reg.Detectors()
	if len(defs) != 2 || defs[0].Name != "base" || defs[1].Name != "derived" {
		t.Errorf("declaration order not preserved: %+v", defs)
	}
	if _, ok := reg.Matcher("red"); !ok {
		t.Error("matcher lookup failed")
	}
	if _, ok := reg.Detector("derived"); !ok {
		t.Error("detector lookup failed")
	}
}

func TestBuild_Rejections(t *testing.T) {
	red := map[string]matcher.Spec{"red": redMatcher()}

	tests := []struct {
		name      string
		matchers  map[string]matcher.Spec
		detectors []Definition
		wantErr   error
	}{
		{
			name:      "unresolved reference",
			matchers:  red,
			detectors: []Definition{{Name: "a", Expr: Leaf("ghost")}},
			wantErr:   ErrUnresolvedReference,
		},
		{
			name:     "self cycle",
			matchers: red,
			detectors: []Definition{
				{Name: "a", Expr: And(Leaf("red"), Leaf("a"))},
			},
			wantErr: ErrCycle,
		},
		{
			name:     "mutual cycle",
			matchers: red,
			detectors: []Definition{
				{Name: "a", Expr: Or(Leaf("b"), Leaf("red"))},
				{Name: "b", Expr: Not(Leaf("a"))},
			},
			wantErr: ErrCycle,
		},
		{
			name:     "long cycle",
			matchers: red,
			detectors: []Definition{
				{Name: "a", Expr: Leaf("b")},
				{Name: "b", Expr: Leaf("c")},
				{Name: "c", Expr: Leaf("a")},
			},
			wantErr: ErrCycle,
		},
		{
			name:     "duplicate detector",
			matchers: red,
			detectors: []Definition{
				{Name: "a", Expr: Leaf("red")},
				{Name: "a", Expr: Leaf("red")},
			},
			wantErr: ErrDuplicateName,
		},
		{
			name:     "matcher and detector share a name",
			matchers: red,
			detectors: []Definition{
				{Name: "red", Expr: Leaf("red")},
			},
			wantErr: ErrDuplicateName,
		},
		{
			name:      "empty and",
			matchers:  red,
			detectors: []Definition{{Name: "a", Expr: And()}},
			wantErr:   ErrInvalidExpression,
		},
		{
			name:      "nil expression",
			matchers:  red,
			detectors: []Definition{{Name: "a"}},
			wantErr:   ErrInvalidExpression,
		},
		{
			name: "invalid matcher spec",
			matchers: map[string]matcher.Spec{
				"bad": {Kind: matcher.KindRGB, Threshold: 2},
			},
			detectors: []Definition{{Name: "a", Expr: Leaf("bad")}},
			wantErr:   matcher.ErrInvalidSpec,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.matchers, tc.detectors)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Build: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestBuild_DiamondIsNotACycle(t *testing.T) {
	// Two detectors sharing a sub-detector is reuse, not a cycle.
	_, err := Build(
		map[string]matcher.Spec{"red": redMatcher()},
		[]Definition{
			{Name: "shared", Expr: Leaf("red")},
			{Name: "left", Expr: Not(Leaf("shared"))},
			{Name: "right", Expr: And(Leaf("shared"), Leaf("red"))},
			{Name: "top", Expr: Or(Leaf("left"), Leaf("right"))},
		},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestExprString(t *testing.T) {
	e := Or(And(Leaf("a"), Not(Leaf("b"))), Leaf("c"))
	want := "or(and(a, not(b)), c)"
	if got := e.String(); got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}
