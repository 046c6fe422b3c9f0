// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RuleKey is the key of a rule table item that holds the expression.
// Items without expression always match.
const RuleKey = "rule"

// well known variables of the evaluation context
const (
	VariableEntry         = "ENTRY"
	VariableScheduleEntry = "SCHEDULE_ENTRY"
	VariableSchedule      = "SCHEDULE"
	VariableTestSchedule  = "TEST_SCHEDULE"
	VariableCurrentResult = "CURRENT_RESULT"
	VariableEval          = "EVAL"
)

// DefaultVariables are declared for every rule set.
var DefaultVariables = []string{
	VariableEntry,
	VariableScheduleEntry,
	VariableSchedule,
	VariableTestSchedule,
	VariableCurrentResult,
	VariableEval,
}

// Attribute is a single "name: value" override of a rule.
type Attribute struct {
	Name  string
	Value string
}

// Rule is a compiled rule table item.
type Rule struct {
	// Index is the position of the rule in its file.
	Index int
	// Source is the file the rule was loaded from.
	Source     string
	Expression string
	Attributes []Attribute

	program cel.Program
}

// Get returns the value of the named attribute.
func (r *Rule) Get(name string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (r *Rule) String() string {
	if r.Source != "" {
		return fmt.Sprintf("%s[%d]", r.Source, r.Index)
	}
	return fmt.Sprintf("rule %d", r.Index)
}

// Matches evaluates the rule expression against the context.
func (r *Rule) Matches(context map[string]interface{}) (bool, error) {
	if r.program == nil {
		return true, nil
	}
	out, _, err := r.program.Eval(withDefaults(context))
	if err != nil {
		return false, errors.Wrapf(err, "unable to evaluate %s %q", r, r.Expression)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("%s %q evaluated to %v, expected a boolean", r, r.Expression, out.Value())
	}
	return matched, nil
}

// Validator checks a single attribute override when a rule table is loaded.
type Validator func(name, value string) error

// Options configure how rule tables are compiled.
type Options struct {
	// Variables are declared in addition to DefaultVariables.
	Variables []string
	// Validator is called for every attribute of every rule.
	Validator Validator
}

var identifier = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// ParseVariables parses "key=value" pairs into evaluation variables.
// Later definitions of a key win.
func ParseVariables(pairs []string) (map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("invalid eval variable %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// VariableNames returns the sorted names of all values that rule expressions can reference directly.
// Names that are not valid identifiers are only reachable through EVAL.
func VariableNames(values map[string]interface{}) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		if identifier.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RuleSet is an ordered list of compiled rules.
type RuleSet struct {
	Rules []*Rule
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rules)
}

// Matching returns all rules that match the context in file order.
func (rs *RuleSet) Matching(context map[string]interface{}) ([]*Rule, error) {
	if rs == nil {
		return nil, nil
	}
	matched := []*Rule{}
	for _, rule := range rs.Rules {
		ok, err := rule.Matches(context)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// First returns the first rule that matches the context.
func (rs *RuleSet) First(context map[string]interface{}) (*Rule, error) {
	if rs == nil {
		return nil, nil
	}
	for _, rule := range rs.Rules {
		ok, err := rule.Matches(context)
		if err != nil {
			return nil, err
		}
		if ok {
			return rule, nil
		}
	}
	return nil, nil
}

// LoadFiles compiles all rule tables and concatenates them in the given order.
func LoadFiles(opts Options, paths ...string) (*RuleSet, error) {
	set := &RuleSet{}
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read rule table %s", path)
		}
		rs, err := Parse(data, path, opts)
		if err != nil {
			return nil, err
		}
		set.Rules = append(set.Rules, rs.Rules...)
	}
	return set, nil
}

// Parse compiles a yaml rule table.
// The table is a list of mappings. The "rule" key holds a CEL expression, all other keys are attribute overrides.
func Parse(data []byte, source string, opts Options) (*RuleSet, error) {
	env, err := newEnv(opts.Variables)
	if err != nil {
		return nil, err
	}

	doc := &yaml.Node{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "unable to decode rule table %s", source)
	}
	set := &RuleSet{}
	if len(doc.Content) == 0 {
		return set, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("rule table %s: expected a list of rules", source)
	}

	for i, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, errors.Errorf("rule table %s: item %d is not a mapping", source, i)
		}
		rule := &Rule{Index: i, Source: source}
		for j := 0; j+1 < len(item.Content); j += 2 {
			key, value := item.Content[j], item.Content[j+1]
			if value.Kind != yaml.ScalarNode {
				return nil, errors.Errorf("%s: value of %q must be a scalar", rule, key.Value)
			}
			if key.Value == RuleKey {
				rule.Expression = strings.TrimSpace(value.Value)
				continue
			}
			if opts.Validator != nil {
				if err := opts.Validator(key.Value, value.Value); err != nil {
					return nil, errors.Wrapf(err, "invalid %s", rule)
				}
			}
			rule.Attributes = append(rule.Attributes, Attribute{Name: key.Value, Value: value.Value})
		}
		if rule.Expression != "" {
			prg, err := compile(env, rule.Expression)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s", rule)
			}
			rule.program = prg
		}
		set.Rules = append(set.Rules, rule)
	}
	return set, nil
}

// Compile compiles a single expression with the given additional variables.
func Compile(expression string, variables ...string) (*Rule, error) {
	env, err := newEnv(variables)
	if err != nil {
		return nil, err
	}
	prg, err := compile(env, expression)
	if err != nil {
		return nil, err
	}
	return &Rule{Expression: expression, program: prg}, nil
}

func newEnv(variables []string) (*cel.Env, error) {
	opts := []cel.EnvOption{ext.Strings()}
	declared := map[string]bool{}
	for _, name := range append(append([]string{}, DefaultVariables...), variables...) {
		if declared[name] {
			continue
		}
		declared[name] = true
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create rule environment")
	}
	return env, nil
}

func compile(env *cel.Env, expression string) (cel.Program, error) {
	ast, iss := env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "unable to compile %q", expression)
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, errors.Errorf("expression %q has type %s, expected a boolean", expression, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create program for %q", expression)
	}
	return prg, nil
}

// withDefaults fills all default variables that are missing in the context.
func withDefaults(context map[string]interface{}) map[string]interface{} {
	vars := make(map[string]interface{}, len(context)+len(DefaultVariables))
	for _, name := range DefaultVariables {
		vars[name] = map[string]interface{}{}
	}
	vars[VariableCurrentResult] = ""
	for k, v := range context {
		vars[k] = v
	}
	return vars
}
