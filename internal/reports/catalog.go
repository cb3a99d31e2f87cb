// Package reports declares the read-only reports the gateway serves. Each
// report is a static SQL template plus the rules for binding its request
// parameters; one generic handler serves all of them.
package reports

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"querygate/internal/auth"
	"querygate/internal/db"
)

var validPath = regexp.MustCompile(`^[a-z0-9_-]+(/[a-z0-9_-]+)*$`)

//go:embed catalog.yaml
var defaultCatalog []byte

type ParamKind string

const (
	KindCode ParamKind = "code"
	KindDate ParamKind = "date"
	KindText ParamKind = "text"
)

type ParamSpec struct {
	Name      string    `yaml:"name"`
	Kind ParamKind `yaml:"kind"`
	// Sensitive values are redacted in logs. Text params are always
	// sensitive since they carry free-form user input.
	Sensitive bool `yaml:"sensitive"`
	// MaxLen caps text params; zero means defaultMaxTextLen.
	MaxLen int `yaml:"max_len"`
	// NotBefore names an earlier date param this one may not precede.
	NotBefore string `yaml:"not_before"`
}

type Report struct {
	Name        string      `yaml:"name"`
	Path        string      `yaml:"path"`
	Description string      `yaml:"description"`
	NotFound    string      `yaml:"not_found"`
	Roles       []auth.Role `yaml:"roles"`
	Params      []ParamSpec `yaml:"params"`
	SQL         string      `yaml:"sql"`
}

type catalogFile struct {
	Reports []Report `yaml:"reports"`
}

// DefaultCatalog returns the reports compiled into the binary.
func DefaultCatalog() ([]Report, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path selects the built-in one.
func LoadCatalog(path string) ([]Report, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]Report, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	names := make(map[string]struct{}, len(cf.Reports))
	paths := make(map[string]struct{}, len(cf.Reports))
	for i := range cf.Reports {
		r := &cf.Reports[i]
		r.Path = strings.Trim(r.Path, "/")
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, dup := names[r.Name]; dup {
			return nil, fmt.Errorf("report %q: duplicate name", r.Name)
		}
		if _, dup := paths[r.Path]; dup {
			return nil, fmt.Errorf("report %q: duplicate path %q", r.Name, r.Path)
		}
		names[r.Name] = struct{}{}
		paths[r.Path] = struct{}{}
		if r.NotFound == "" {
			r.NotFound = "no data found"
		}
		for j := range r.Params {
			if r.Params[j].Kind == KindText {
				r.Params[j].Sensitive = true
			}
		}
	}
	return cf.Reports, nil
}

func (r *Report) validate() error {
	if r.Name == "" {
		return fmt.Errorf("report with empty name")
	}
	if !validPath.MatchString(r.Path) {
		return fmt.Errorf("report %q: invalid path %q", r.Name, r.Path)
	}
	if strings.TrimSpace(r.SQL) == "" {
		return fmt.Errorf("report %q: empty sql", r.Name)
	}
	if got := db.CountPlaceholders(r.SQL); got != len(r.Params) {
		return fmt.Errorf("report %q: sql has %d placeholders but %d params", r.Name, got, len(r.Params))
	}
	seen := make(map[string]ParamKind, len(r.Params))
	for _, p := range r.Params {
		if p.Name == "" {
			return fmt.Errorf("report %q: param with empty name", r.Name)
		}
		switch p.Kind {
		case KindCode, KindDate, KindText:
		default:
			return fmt.Errorf("report %q: param %q has unknown kind %q", r.Name, p.Name, p.Kind)
		}
		if p.NotBefore != "" {
			k, ok := seen[p.NotBefore]
			if !ok || k != KindDate || p.Kind != KindDate {
				return fmt.Errorf("report %q: param %q: not_before must name an earlier date param", r.Name, p.Name)
			}
		}
		// Repeated names are allowed when a value is bound twice.
		if k, ok := seen[p.Name]; ok && k != p.Kind {
			return fmt.Errorf("report %q: param %q redeclared with kind %q", r.Name, p.Name, p.Kind)
		}
		seen[p.Name] = p.Kind
	}
	return nil
}
