// Package config interprets the detector configuration schema: named matcher
// specs, named boolean detector expressions over them, and bindings from
// detector edges to domain events. Any violation is fatal at load time; a
// partially valid registry is never produced.
package config

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // default template decoding
	_ "image/png"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mizutama/gamewatch/pkg/detector"
	"github.com/mizutama/gamewatch/pkg/matcher"
	"github.com/mizutama/gamewatch/pkg/pipeline"
	"github.com/mizutama/gamewatch/pkg/recording"
)

// ErrInvalid is the class of all fatal load-time configuration errors.
var ErrInvalid = errors.New("config: invalid configuration")

// TemplateLoader reads a template image for a template matcher spec. The
// capture package provides an OpenCV-backed loader; the default decodes PNG
// and JPEG with the standard library.
type TemplateLoader func(path string) (*matcher.Template, error)

// DefaultTemplateLoader decodes PNG/JPEG template images.
func DefaultTemplateLoader(path string) (*matcher.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", path, err)
	}
	return matcher.TemplateFromImage(img)
}

// Result is a fully validated configuration: the immutable detector registry
// and the detector-edge to domain-event bindings.
type Result struct {
	Registry *detector.Registry
	Events   pipeline.EventMap
}

// rawROI is the on-disk ROI rectangle.
type rawROI struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// rawMatcher is the on-disk matcher spec; which fields apply depends on type.
type rawMatcher struct {
	Type         string   `yaml:"type"`
	Threshold    *float64 `yaml:"threshold"`
	LowerBound   []int    `yaml:"lower_bound"`
	UpperBound   []int    `yaml:"upper_bound"`
	RGB          []int    `yaml:"rgb"`
	HueThreshold *float64 `yaml:"hue_threshold"`
	Reference    string   `yaml:"reference"`
	TemplatePath string   `yaml:"template_path"`
	ROI          *rawROI  `yaml:"roi"`
}

// rawBinding is the on-disk detector-edge binding.
type rawBinding struct {
	Rising  string `yaml:"rising"`
	Falling string `yaml:"falling"`
}

type rawFile struct {
	Matchers map[string]rawMatcher `yaml:"matchers"`
	// Detectors is kept as a node so declaration order survives; the
	// analyzer evaluates in this order.
	Detectors yaml.Node             `yaml:"detectors"`
	Events    map[string]rawBinding `yaml:"events"`
}

// LoadFile loads and validates a configuration file.
func LoadFile(path string, templates TemplateLoader) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	defer f.Close()
	return Load(f, templates)
}

// Load reads and validates a configuration document.
func Load(r io.Reader, templates TemplateLoader) (*Result, error) {
	if templates == nil {
		templates = DefaultTemplateLoader
	}

	var raw rawFile
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	specs := make(map[string]matcher.Spec, len(raw.Matchers))
	for name, rm := range raw.Matchers {
		spec, err := buildMatcher(rm, templates)
		if err != nil {
			return nil, fmt.Errorf("%w: matcher %q: %v", ErrInvalid, name, err)
		}
		specs[name] = spec
	}

	defs, err := buildDetectors(&raw.Detectors)
	if err != nil {
		return nil, err
	}

	registry, err := detector.Build(specs, defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	events, err := buildEvents(raw.Events, registry)
	if err != nil {
		return nil, err
	}

	return &Result{Registry: registry, Events: events}, nil
}

func buildMatcher(rm rawMatcher, templates TemplateLoader) (matcher.Spec, error) {
	var spec matcher.Spec

	if rm.ROI != nil {
		spec.ROI = image.Rect(rm.ROI.X, rm.ROI.Y, rm.ROI.X+rm.ROI.W, rm.ROI.Y+rm.ROI.H)
	}
	if rm.Threshold != nil {
		spec.Threshold = *rm.Threshold
	}

	switch rm.Type {
	case "hash":
		spec.Kind = matcher.KindHash
		spec.ReferenceHash = rm.Reference

	case "hsv":
		spec.Kind = matcher.KindHSV
		lo, err := hsvBound(rm.LowerBound)
		if err != nil {
			return spec, fmt.Errorf("lower_bound: %v", err)
		}
		hi, err := hsvBound(rm.UpperBound)
		if err != nil {
			return spec, fmt.Errorf("upper_bound: %v", err)
		}
		spec.Lower, spec.Upper = lo, hi
		if rm.Threshold == nil {
			return spec, errors.New("hsv matcher needs a threshold")
		}

	case "uniform":
		spec.Kind = matcher.KindUniform
		if rm.HueThreshold == nil {
			return spec, errors.New("uniform matcher needs hue_threshold")
		}
		spec.HueThreshold = *rm.HueThreshold

	case "rgb":
		spec.Kind = matcher.KindRGB
		if len(rm.RGB) != 3 {
			return spec, fmt.Errorf("rgb needs 3 components, have %d", len(rm.RGB))
		}
		for i, v := range rm.RGB {
			if v < 0 || v > 255 {
				return spec, fmt.Errorf("rgb component %d outside [0, 255]", v)
			}
			spec.Target[i] = uint8(v)
		}
		if rm.Threshold == nil {
			return spec, errors.New("rgb matcher needs a threshold")
		}

	case "template":
		spec.Kind = matcher.KindTemplate
		if rm.TemplatePath == "" {
			return spec, errors.New("template matcher needs template_path")
		}
		t, err := templates(rm.TemplatePath)
		if err != nil {
			return spec, err
		}
		spec.Template = t
		if rm.Threshold == nil {
			return spec, errors.New("template matcher needs a threshold")
		}

	default:
		return spec, fmt.Errorf("unknown matcher type %q", rm.Type)
	}

	return spec, spec.Validate()
}

func hsvBound(v []int) (matcher.HSVBound, error) {
	var b matcher.HSVBound
	if len(v) != 3 {
		return b, fmt.Errorf("needs 3 components (h, s, v), have %d", len(v))
	}
	if v[0] < 0 || v[0] > 179 {
		return b, fmt.Errorf("hue %d outside [0, 179]", v[0])
	}
	for _, c := range v[1:] {
		if c < 0 || c > 255 {
			return b, fmt.Errorf("component %d outside [0, 255]", c)
		}
	}
	b.H, b.S, b.V = uint8(v[0]), uint8(v[1]), uint8(v[2])
	return b, nil
}

// buildDetectors walks the detectors mapping node in document order.
func buildDetectors(node *yaml.Node) ([]detector.Definition, error) {
	if node.Kind == 0 || node.IsZero() {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: detectors must be a mapping", ErrInvalid)
	}

	defs := make([]detector.Definition, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		expr, err := buildExpr(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: detector %q: %v", ErrInvalid, name, err)
		}
		defs = append(defs, detector.Definition{Name: name, Expr: expr})
	}
	return defs, nil
}

// buildExpr parses one expression node: a scalar is a leaf reference, a
// mapping with a single and/or/not key is a combinator.
func buildExpr(node *yaml.Node) (*detector.Expr, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil, errors.New("empty reference")
		}
		return detector.Leaf(node.Value), nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, errors.New("combinator mapping must have exactly one key")
		}
		op := node.Content[0].Value
		arg := node.Content[1]

		switch op {
		case "not":
			child, err := buildExpr(arg)
			if err != nil {
				return nil, err
			}
			return detector.Not(child), nil

		case "and", "or":
			if arg.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%s takes a list of operands", op)
			}
			children := make([]*detector.Expr, 0, len(arg.Content))
			for _, c := range arg.Content {
				child, err := buildExpr(c)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			if op == "and" {
				return detector.And(children...), nil
			}
			return detector.Or(children...), nil

		default:
			return nil, fmt.Errorf("unknown combinator %q", op)
		}
	}
	return nil, errors.New("expression must be a name or a combinator mapping")
}

func buildEvents(raw map[string]rawBinding, reg *detector.Registry) (pipeline.EventMap, error) {
	events := make(pipeline.EventMap, len(raw))
	for name, rb := range raw {
		if _, ok := reg.Detector(name); !ok {
			return nil, fmt.Errorf("%w: events: unknown detector %q", ErrInvalid, name)
		}
		var b pipeline.Binding
		if rb.Rising != "" {
			t, ok := recording.ParseEventType(rb.Rising)
			if !ok {
				return nil, fmt.Errorf("%w: events: unknown event %q", ErrInvalid, rb.Rising)
			}
			b.Rising, b.HasRising = t, true
		}
		if rb.Falling != "" {
			t, ok := recording.ParseEventType(rb.Falling)
			if !ok {
				return nil, fmt.Errorf("%w: events: unknown event %q", ErrInvalid, rb.Falling)
			}
			b.Falling, b.HasFalling = t, true
		}
		if !b.HasRising && !b.HasFalling {
			return nil, fmt.Errorf("%w: events: %q binds neither edge", ErrInvalid, name)
		}
		events[name] = b
	}
	return events, nil
}
