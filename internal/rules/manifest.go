// Package rules turns declarative rule manifests into action factories. A
// rule matches source files by glob and either copies them or runs a command
// over them, consuming and providing named entities.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind selects how a finished action reports: build steps succeed, test steps
// pass. The distinction is dashboard-only.
type Kind string

const (
	KindBuild Kind = "build"
	KindTest  Kind = "test"
)

// Want declares an entity the rule needs before it can run.
type Want struct {
	Entity string `yaml:"entity"`
	Title  string `yaml:"title,omitempty"`
}

// Duration decodes yaml scalars like "30s" or "2m" into a time.Duration.
// yaml.v3 cannot unmarshal those into a bare time.Duration field.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar like \"30s\"")
	}
	parsed, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", n.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Rule is one parsed rule manifest.
//
// Templates: {src} expands to the source file path, {out} to the output file
// path, {name} to the source basename, and {base} to the basename without
// extension. {src} and {out} are only valid in command arguments.
type Rule struct {
	Name     string        `yaml:"name"`
	Verb     string        `yaml:"verb"`
	Kind     Kind          `yaml:"kind,omitempty"`
	Match    string        `yaml:"match"`
	Command  []string      `yaml:"command,omitempty"` // empty command means copy mode
	Output   string        `yaml:"output,omitempty"`
	Wants    []Want   `yaml:"wants,omitempty"`
	Provides []string `yaml:"provides,omitempty"`
	Triggers []string `yaml:"triggers,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
}

const defaultTimeout = 60 * time.Second

// manifestSuffix marks rule manifests inside a rules directory.
const manifestSuffix = ".rule.yaml"

// Load parses a single rule manifest.
func Load(path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule manifest: %w", err)
	}

	var rule Rule
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("parse rule manifest %s: %w", filepath.Base(path), err)
	}

	if err := rule.validate(); err != nil {
		return nil, fmt.Errorf("invalid rule manifest %s: %w", filepath.Base(path), err)
	}
	return &rule, nil
}

// Discover loads every *.rule.yaml in dir, sorted by filename. A missing
// directory yields no rules.
func Discover(dir string) ([]*Rule, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), manifestSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	rules := make([]*Rule, 0, len(names))
	for _, name := range names {
		rule, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *Rule) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is empty")
	}
	if strings.TrimSpace(r.Verb) == "" {
		return fmt.Errorf("verb is empty")
	}
	if strings.TrimSpace(r.Match) == "" && len(r.Triggers) == 0 {
		return fmt.Errorf("rule matches nothing: match and triggers are both empty")
	}
	if r.Match != "" {
		if _, err := filepath.Match(r.Match, "probe"); err != nil {
			return fmt.Errorf("bad match pattern %q: %w", r.Match, err)
		}
	}
	switch r.Kind {
	case "", KindBuild, KindTest:
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	if len(r.Command) == 0 {
		// Copy mode mirrors the matched file; it needs somewhere to put it.
		if r.Output == "" {
			return fmt.Errorf("copy rule requires an output")
		}
	}
	if len(r.Provides) > 0 && r.Output == "" {
		return fmt.Errorf("provides requires an output to attach entities to")
	}
	for i, w := range r.Wants {
		if strings.TrimSpace(w.Entity) == "" {
			return fmt.Errorf("wants[%d].entity is empty", i)
		}
	}
	return nil
}

func (r *Rule) kind() Kind {
	if r.Kind == "" {
		return KindBuild
	}
	return r.Kind
}

func (r *Rule) timeout() time.Duration {
	if r.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(r.Timeout)
}

// expand substitutes {name} and {base} templates against a source basename.
func expand(template, basename string) string {
	base := strings.TrimSuffix(basename, filepath.Ext(basename))
	out := strings.ReplaceAll(template, "{name}", basename)
	return strings.ReplaceAll(out, "{base}", base)
}
