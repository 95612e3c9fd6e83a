// Package tagging derives storefront tags for books from their metadata.
package tagging

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldKeywords    = "keywords"
	FieldGenres      = "genres"
)

type Rule struct {
	Match  string   `yaml:"match"`
	Fields []string `yaml:"fields,omitempty"`
	Tags   []string `yaml:"tags"`

	re *regexp.Regexp
}

// Family is a group of keyword rules reading the same book fields.
type Family struct {
	Name     string   `yaml:"name"`
	Fields   []string `yaml:"fields"`
	Requires string   `yaml:"requires,omitempty"`
	Fallback []string `yaml:"fallback,omitempty"`
	Rules    []Rule   `yaml:"rules"`
}

type Discovery struct {
	Percent int      `yaml:"percent"`
	Tags    []string `yaml:"tags"`
}

type Rules struct {
	Families  []Family  `yaml:"families"`
	Discovery Discovery `yaml:"discovery"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag rules: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse tag rules: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) compile() error {
	known := map[string]bool{FieldTitle: true, FieldDescription: true, FieldKeywords: true, FieldGenres: true}
	for fi := range r.Families {
		fam := &r.Families[fi]
		if fam.Name == "" {
			return fmt.Errorf("tag family %d has no name", fi)
		}
		if fam.Requires != "" && !known[fam.Requires] {
			return fmt.Errorf("family %s: unknown field %q", fam.Name, fam.Requires)
		}
		for ri := range fam.Rules {
			rule := &fam.Rules[ri]
			for _, f := range slices.Concat(fam.Fields, rule.Fields) {
				if !known[f] {
					return fmt.Errorf("family %s: unknown field %q", fam.Name, f)
				}
			}
			re, err := regexp.Compile("(?i)" + rule.Match)
			if err != nil {
				return fmt.Errorf("family %s rule %d: %w", fam.Name, ri, err)
			}
			rule.re = re
		}
	}
	if p := r.Discovery.Percent; p < 0 || p > 100 {
		return fmt.Errorf("discovery percent %d out of range", p)
	}
	return nil
}
