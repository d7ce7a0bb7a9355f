// Package modes maps mode names to the system prompts that prime the upstream
// conversation. A Registry is immutable once built.
package modes

import (
	"fmt"
	"sort"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

type Registry struct {
	modes       map[string]models.Mode
	defaultName string
}

// New builds a registry from the built-in modes plus overrides. An override
// with the same name as a built-in replaces it. defaultName must resolve.
func New(defaultName string, overrides ...Spec) (*Registry, error) {
	if defaultName == "" {
		defaultName = DefaultModeName
	}

	r := &Registry{
		modes:       make(map[string]models.Mode, len(builtins)+len(overrides)),
		defaultName: defaultName,
	}
	for _, s := range builtins {
		r.modes[s.Name] = models.Mode{Name: s.Name, Description: s.Description, Prompt: s.Prompt, Source: "builtin"}
	}
	for _, s := range overrides {
		if s.Name == "" {
			return nil, fmt.Errorf("mode from %s has no name", s.Path)
		}
		source := s.Path
		if source == "" {
			source = "override"
		}
		r.modes[s.Name] = models.Mode{Name: s.Name, Description: s.Description, Prompt: s.Prompt, Source: source}
	}

	if _, ok := r.modes[defaultName]; !ok {
		return nil, fmt.Errorf("default mode: %w: %q", models.ErrInvalidMode, defaultName)
	}
	return r, nil
}

// Load builds a registry from the built-ins and the mode files in dir.
func Load(defaultName, dir string) (*Registry, error) {
	var specs []Spec
	if dir != "" {
		var err error
		specs, err = LoadDir(dir)
		if err != nil {
			return nil, err
		}
	}
	return New(defaultName, specs...)
}

// Resolve returns the prompt text of a mode. An empty string is a valid
// prompt meaning "nothing to send".
func (r *Registry) Resolve(name string) (string, error) {
	m, ok := r.modes[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidMode, name)
	}
	return m.Prompt, nil
}

func (r *Registry) IsValid(name string) bool {
	_, ok := r.modes[name]
	return ok
}

func (r *Registry) Default() string {
	return r.defaultName
}

// List returns every mode, the default first and the rest sorted by name.
func (r *Registry) List() []models.Mode {
	out := make([]models.Mode, 0, len(r.modes))
	for _, m := range r.modes {
		m.Default = m.Name == r.defaultName
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Default != out[j].Default {
			return out[i].Default
		}
		return out[i].Name < out[j].Name
	})
	return out
}
