package policy

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tkingovr/companybook/api"
)

// YAMLEngine implements first-match-wins naming policy using YAML rules.
type YAMLEngine struct {
	mu   sync.RWMutex
	file *PolicyFile
	path string

	// compiled regexes, indexed like file.Rules
	regexes []*regexp.Regexp
}

// NewYAMLEngine creates a new YAML policy engine from a file path.
func NewYAMLEngine(path string) (*YAMLEngine, error) {
	e := &YAMLEngine{path: path}
	if err := e.Reload(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// NewYAMLEngineFromPolicy creates a new YAML policy engine from an already-loaded policy.
func NewYAMLEngineFromPolicy(pf *PolicyFile) (*YAMLEngine, error) {
	e := &YAMLEngine{}
	e.file = pf
	if err := e.compileRegexes(); err != nil {
		return nil, err
	}
	return e, nil
}

// Evaluate checks the name against rules in order, returning the first match.
func (e *YAMLEngine) Evaluate(_ context.Context, input *EvalInput) (*EvalResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i, rule := range e.file.Rules {
		if e.matches(i, input.Name) {
			return &EvalResult{
				Verdict: api.Verdict(rule.Action),
				Rule:    rule.Name,
				Message: rule.Message,
			}, nil
		}
	}

	defaultAction := e.file.Settings.DefaultAction
	if defaultAction == "" {
		defaultAction = api.VerdictAllow
	}
	return &EvalResult{
		Verdict: defaultAction,
		Rule:    "_default",
		Message: "no matching rule; default action applied",
	}, nil
}

// Reload re-reads the policy file from disk.
func (e *YAMLEngine) Reload(_ context.Context) error {
	if e.path == "" {
		return nil
	}
	pf, err := LoadFile(e.path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.file = pf
	return e.compileRegexes()
}

// Policy returns the current loaded policy (for dashboard display).
func (e *YAMLEngine) Policy() *PolicyFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.file
}

func (e *YAMLEngine) compileRegexes() error {
	regexes := make([]*regexp.Regexp, len(e.file.Rules))
	for i, rule := range e.file.Rules {
		if rule.Match.Regex == "" {
			continue
		}
		re, err := regexp.Compile(rule.Match.Regex)
		if err != nil {
			return fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		regexes[i] = re
	}
	e.regexes = regexes
	return nil
}

func (e *YAMLEngine) matches(i int, name string) bool {
	m := e.file.Rules[i].Match
	if m.Empty() {
		return false
	}
	lower := strings.ToLower(name)

	if m.Exact != "" && !strings.EqualFold(name, m.Exact) {
		return false
	}
	if m.Prefix != "" && !strings.HasPrefix(lower, strings.ToLower(m.Prefix)) {
		return false
	}
	if m.Contains != "" && !strings.Contains(lower, strings.ToLower(m.Contains)) {
		return false
	}
	if m.Regex != "" {
		if i >= len(e.regexes) || e.regexes[i] == nil || !e.regexes[i].MatchString(name) {
			return false
		}
	}
	return true
}
