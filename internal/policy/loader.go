package policy

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/tkingovr/companybook/api"
)

// LoadFile reads and validates a YAML policy file.
func LoadFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates YAML policy data.
func LoadBytes(data []byte) (*PolicyFile, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}
	if err := validate(&pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

func validate(pf *PolicyFile) error {
	if pf.Version != 1 {
		return fmt.Errorf("unsupported policy version: %d (expected 1)", pf.Version)
	}

	if pf.Settings.DefaultAction == "" {
		pf.Settings.DefaultAction = api.VerdictAllow
	}
	if !validAction(string(pf.Settings.DefaultAction)) {
		return fmt.Errorf("invalid default_action %q", pf.Settings.DefaultAction)
	}

	seen := make(map[string]int, len(pf.Rules))
	for i, rule := range pf.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if first, dup := seen[rule.Name]; dup {
			return fmt.Errorf("rule %d: name %q already used by rule %d", i, rule.Name, first)
		}
		seen[rule.Name] = i
		if !validAction(rule.Action) {
			return fmt.Errorf("rule %q: invalid action %q", rule.Name, rule.Action)
		}
		if rule.Match.Empty() {
			return fmt.Errorf("rule %q: match needs at least one condition", rule.Name)
		}
		if rule.Match.Regex != "" {
			if _, err := regexp.Compile(rule.Match.Regex); err != nil {
				return fmt.Errorf("rule %q: regex invalid: %w", rule.Name, err)
			}
		}
	}

	return nil
}

func validAction(action string) bool {
	switch api.Verdict(action) {
	case api.VerdictAllow, api.VerdictDeny, api.VerdictLog:
		return true
	}
	return false
}
