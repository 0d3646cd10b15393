// Package config loads the manifest of benchmark families and targets.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/sigbench/harness"
)

//go:embed targets.yaml
var defaultManifest []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manifest declares the families to benchmark, in run order.
type Manifest struct {
	Families []FamilySpec `yaml:"families" validate:"required,min=1,dive"`
}

// FamilySpec declares one scheme family.
type FamilySpec struct {
	Name    string       `yaml:"name" validate:"required"`
	Targets []TargetSpec `yaml:"targets" validate:"required,min=1,dive"`
}

// TargetSpec declares one variant and the executable benchmarking it.
type TargetSpec struct {
	Name string `yaml:"name" validate:"required"`
	Path string `yaml:"path" validate:"required"`
	// Env is added to the environment of this target's binary only.
	Env map[string]string `yaml:"env,omitempty" validate:"omitempty,dive,keys,required,excludes==,endkeys"`
}

// Default returns the built-in manifest.
func Default() (*Manifest, error) {
	m, err := Parse(defaultManifest)
	if err != nil {
		return nil, fmt.Errorf("built-in manifest: %w", err)
	}

	return m, nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return m, nil
}

// Parse decodes and validates a YAML manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks the structure of the manifest.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q",
					fe.Namespace(), fe.Tag()))
			}

			return fmt.Errorf("invalid manifest: %s", strings.Join(msgs, "; "))
		}

		return fmt.Errorf("invalid manifest: %w", err)
	}

	return nil
}

// Warnings reports declarations that are legal but probably mistaken:
// repeated family names, repeated variant names inside a family, and
// several variants benchmarked by the same executable. Nothing is
// rewritten; duplicates still run and are reported twice.
func (m *Manifest) Warnings() []string {
	var warnings []string

	families := make(map[string]bool, len(m.Families))
	paths := make(map[string]string)

	for _, f := range m.Families {
		if families[f.Name] {
			warnings = append(warnings,
				fmt.Sprintf("family %s is declared more than once", f.Name))
		}

		families[f.Name] = true
		names := make(map[string]bool, len(f.Targets))

		for _, t := range f.Targets {
			if names[t.Name] {
				warnings = append(warnings,
					fmt.Sprintf("%s: target %s is declared more than once",
						f.Name, t.Name))
			}

			names[t.Name] = true
			key := filepath.Clean(t.Path)
			qualified := f.Name + "/" + t.Name

			if prev, ok := paths[key]; ok {
				warnings = append(warnings,
					fmt.Sprintf("%s uses the same binary as %s (%s)",
						qualified, prev, t.Path))

				continue
			}

			paths[key] = qualified
		}
	}

	return warnings
}

// Select converts the manifest into harness families. When names is
// not empty only those families are returned, still in manifest order.
func (m *Manifest) Select(names ...string) ([]harness.Family, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(n)] = false
	}

	out := make([]harness.Family, 0, len(m.Families))

	for _, f := range m.Families {
		if len(names) > 0 {
			if _, ok := want[strings.ToLower(f.Name)]; !ok {
				continue
			}

			want[strings.ToLower(f.Name)] = true
		}

		targets := make([]harness.Target, 0, len(f.Targets))
		for _, t := range f.Targets {
			targets = append(targets, harness.Target{
				Name: t.Name,
				Path: t.Path,
				Env:  t.Env,
			})
		}

		out = append(out, harness.Family{Name: f.Name, Targets: targets})
	}

	var unknown []string

	for _, n := range names {
		if !want[strings.ToLower(n)] {
			unknown = append(unknown, n)
		}
	}

	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown families: %s", strings.Join(unknown, ", "))
	}

	return out, nil
}
