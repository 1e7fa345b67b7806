package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed facets.yaml
var surfaceRawData []byte

// ControlKind is the kind of filter control backing a facet group.
type ControlKind string

const (
	KindRadio  ControlKind = "radio"
	KindSlider ControlKind = "slider"
	KindNumber ControlKind = "number"
)

// Option is one selectable value of a radio group.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Group describes one filter control.
type Group struct {
	Section string      `yaml:"section" json:"section"`
	Key     string      `yaml:"key" json:"key"`
	Param   string      `yaml:"param,omitempty" json:"param"`
	Kind    ControlKind `yaml:"kind" json:"kind"`
	Options []Option    `yaml:"options,omitempty" json:"options,omitempty"`
	Min     float64     `yaml:"min,omitempty" json:"min,omitempty"`
	Max     float64     `yaml:"max,omitempty" json:"max,omitempty"`
	Step    float64     `yaml:"step,omitempty" json:"step,omitempty"`
	Default float64     `yaml:"default,omitempty" json:"default,omitempty"`
}

// QueryParam returns the query parameter carrying the group's value.
func (g Group) QueryParam() string {
	if g.Param != "" {
		return g.Param
	}
	return g.Key
}

// Surface is the full set of filter controls plus the sort selector options.
type Surface struct {
	Groups []Group  `yaml:"groups" json:"groups"`
	Sort   []Option `yaml:"sort" json:"sort"`
}

// Group returns the group with the given facet key.
func (s *Surface) Group(key string) (Group, bool) {
	for i := range s.Groups {
		if s.Groups[i].Key == key {
			return s.Groups[i], true
		}
	}
	return Group{}, false
}

var (
	surfaceOnce sync.Once
	surface     *Surface
	surfaceErr  error
)

// DefaultSurface returns the embedded filter-control surface, parsed once.
func DefaultSurface() (*Surface, error) {
	surfaceOnce.Do(func() {
		surface, surfaceErr = ParseSurface(surfaceRawData)
	})
	return surface, surfaceErr
}

// ParseSurface decodes a YAML surface definition.
func ParseSurface(data []byte) (*Surface, error) {
	var s Surface
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("catalog: parse facet surface: %w", err)
	}
	for i, g := range s.Groups {
		if g.Key == "" {
			return nil, fmt.Errorf("catalog: facet group %d (%q) has no key", i, g.Section)
		}
		switch g.Kind {
		case KindRadio, KindSlider, KindNumber:
		default:
			return nil, fmt.Errorf("catalog: facet group %q has unknown kind %q", g.Key, g.Kind)
		}
	}
	return &s, nil
}
