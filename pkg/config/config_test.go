package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/mizutama/gamewatch/pkg/matcher"
	"github.com/mizutama/gamewatch/pkg/recording"
)

// fakeTemplates hands out a fixed 2x2 template for any path.
func fakeTemplates(path string) (*matcher.Template, error) {
	return matcher.NewTemplate(2, 2, []float64{10, 20, 30, 40})
}

const fullDocument = `
matchers:
  battle_icon:
    type: hash
    reference: deadbeef
    roi: {x: 10, y: 20, w: 32, h: 16}
  loading_tint:
    type: hsv
    lower_bound: [100, 50, 50]
    upper_bound: [140, 255, 255]
    threshold: 0.8
    roi: {x: 0, y: 0, w: 64, h: 64}
  flat_banner:
    type: uniform
    hue_threshold: 2.5
  kill_marker:
    type: rgb
    rgb: [255, 64, 64]
    threshold: 0.95
  result_logo:
    type: template
    template_path: assets/result.png
    threshold: 0.9
detectors:
  in_battle: battle_icon
  loading: loading_tint
  quiet_screen:
    and: [flat_banner, {not: kill_marker}]
  post_game:
    or: [result_logo, quiet_screen]
events:
  in_battle:
    rising: battle_started
  loading:
    rising: loading_detected
    falling: loading_finished
  post_game:
    rising: post_game_detected
`

func TestLoad_FullDocument(t *testing.T) {
	res, err := Load(strings.NewReader(fullDocument), fakeTemplates)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	defs := res.Registry.Detectors()
	wantOrder := []string{"in_battle", "loading", "quiet_screen", "post_game"}
	if len(defs) != len(wantOrder) {
		t.Fatalf("detectors: got %d, want %d", len(defs), len(wantOrder))
	}
	for i, name := range wantOrder {
		if defs[i].Name != name {
			t.Errorf("detector %d: got %q, want %q", i, defs[i].Name, name)
		}
	}

	spec, ok := res.Registry.Matcher("battle_icon")
	if !ok {
		t.Fatal("battle_icon matcher missing")
	}
	if spec.Kind != matcher.KindHash || spec.ReferenceHash != "deadbeef" {
		t.Errorf("hash spec: %+v", spec)
	}
	if spec.ROI.Min.X != 10 || spec.ROI.Max.X != 42 || spec.ROI.Max.Y != 36 {
		t.Errorf("roi not translated from x/y/w/h: %v", spec.ROI)
	}

	spec, _ = res.Registry.Matcher("loading_tint")
	if spec.Lower != (matcher.HSVBound{H: 100, S: 50, V: 50}) ||
		spec.Upper != (matcher.HSVBound{H: 140, S: 255, V: 255}) {
		t.Errorf("hsv bounds: %+v", spec)
	}

	spec, _ = res.Registry.Matcher("kill_marker")
	if spec.Target != [3]uint8{255, 64, 64} || spec.Threshold != 0.95 {
		t.Errorf("rgb spec: %+v", spec)
	}

	spec, _ = res.Registry.Matcher("result_logo")
	if spec.Template == nil {
		t.Error("template not loaded through the loader hook")
	}

	def, _ := res.Registry.Detector("quiet_screen")
	if got := def.Expr.String(); got != "and(flat_banner, not(kill_marker))" {
		t.Errorf("expression: got %q", got)
	}

	b, ok := res.Events["loading"]
	if !ok {
		t.Fatal("loading binding missing")
	}
	if !b.HasRising || b.Rising != recording.EventLoadingDetected {
		t.Errorf("loading rising: %+v", b)
	}
	if !b.HasFalling || b.Falling != recording.EventLoadingFinished {
		t.Errorf("loading falling: %+v", b)
	}
	if b = res.Events["in_battle"]; b.HasFalling {
		t.Error("in_battle must have no falling binding")
	}
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"unknown matcher type",
			`
matchers:
  m: {type: glow, threshold: 0.5}
detectors:
  d: m
`,
		},
		{
			"hsv threshold above one",
			`
matchers:
  m:
    type: hsv
    lower_bound: [0, 0, 0]
    upper_bound: [179, 255, 255]
    threshold: 1.5
detectors:
  d: m
`,
		},
		{
			"hsv hue out of range",
			`
matchers:
  m:
    type: hsv
    lower_bound: [0, 0, 0]
    upper_bound: [200, 255, 255]
    threshold: 0.5
detectors:
  d: m
`,
		},
		{
			"hsv missing threshold",
			`
matchers:
  m:
    type: hsv
    lower_bound: [0, 0, 0]
    upper_bound: [10, 255, 255]
detectors:
  d: m
`,
		},
		{
			"rgb wrong arity",
			`
matchers:
  m: {type: rgb, rgb: [255, 0], threshold: 1}
detectors:
  d: m
`,
		},
		{
			"rgb component out of range",
			`
matchers:
  m: {type: rgb, rgb: [255, 0, 300], threshold: 1}
detectors:
  d: m
`,
		},
		{
			"hash missing reference",
			`
matchers:
  m: {type: hash}
detectors:
  d: m
`,
		},
		{
			"template missing path",
			`
matchers:
  m: {type: template, threshold: 0.9}
detectors:
  d: m
`,
		},
		{
			"unresolved detector reference",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: ghost
`,
		},
		{
			"detector cycle",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  a: {not: b}
  b: {not: a}
`,
		},
		{
			"unknown combinator",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: {xor: [m, m]}
`,
		},
		{
			"combinator with two keys",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: {and: [m], or: [m]}
`,
		},
		{
			"and without a list",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: {and: m}
`,
		},
		{
			"event on unknown detector",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: m
events:
  ghost: {rising: battle_started}
`,
		},
		{
			"unknown event name",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: m
events:
  d: {rising: battle_exploded}
`,
		},
		{
			"binding with neither edge",
			`
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: m
events:
  d: {}
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.doc), fakeTemplates)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load: got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_TemplateLoaderFailurePropagates(t *testing.T) {
	failing := func(path string) (*matcher.Template, error) {
		return nil, errors.New("no such asset")
	}
	doc := `
matchers:
  m: {type: template, template_path: missing.png, threshold: 0.9}
detectors:
  d: m
`
	_, err := Load(strings.NewReader(doc), failing)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Load: got %v, want ErrInvalid", err)
	}
	if err == nil || !strings.Contains(err.Error(), "no such asset") {
		t.Errorf("loader error not propagated: %v", err)
	}
}

func TestLoad_EventsOptional(t *testing.T) {
	doc := `
matchers:
  m: {type: rgb, rgb: [0, 0, 0], threshold: 1}
detectors:
  d: m
`
	res, err := Load(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("events: got %v, want none", res.Events)
	}
}
