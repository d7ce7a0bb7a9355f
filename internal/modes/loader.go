package modes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is a mode definition before it enters a Registry.
type Spec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"-"` // markdown body after the frontmatter
	Path        string `yaml:"-"` // absolute path of the defining file
}

// LoadDir reads every *.md file in dir. Each file starts with YAML
// frontmatter delimited by --- markers; the remaining body is the system
// prompt. A missing dir yields no specs and no error.
func LoadDir(dir string) ([]Spec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read modes dir %s: %w", dir, err)
	}

	var specs []Spec
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mode file %s: %w", path, err)
		}

		spec, err := parseModeFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse mode file %s: %w", path, err)
		}
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		spec.Path = path
		specs = append(specs, spec)
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// parseModeFile splits frontmatter from body.
func parseModeFile(data []byte) (Spec, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "---") {
		return Spec{}, fmt.Errorf("no frontmatter found")
	}

	rest := trimmed[3:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return Spec{}, fmt.Errorf("no closing frontmatter delimiter")
	}

	var spec Spec
	if err := yaml.Unmarshal([]byte(rest[:idx]), &spec); err != nil {
		return Spec{}, fmt.Errorf("parse yaml: %w", err)
	}

	spec.Name = strings.TrimSpace(spec.Name)
	spec.Description = strings.TrimSpace(spec.Description)
	spec.Prompt = strings.TrimSpace(rest[idx+len("\n---"):])
	return spec, nil
}
