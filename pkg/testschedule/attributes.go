// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testschedule

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// attribute names that can be read and overridden by rules
const (
	AttributeStage            = "stage"
	AttributeState            = "state"
	AttributeResult           = "result"
	AttributeTestsuiteName    = "testsuite_name"
	AttributeRunnerCapability = "runner_capability"
	AttributePlan             = "plan"
)

type attributeSetter func(e *Entry, value string) error

var attributeSetters = map[string]attributeSetter{
	AttributeStage: func(e *Entry, value string) error {
		stage, err := ParseStage(value)
		if err != nil {
			return err
		}
		e.SetStage(stage)
		return nil
	},
	AttributeState: func(e *Entry, value string) error {
		state, err := ParseState(value)
		if err != nil {
			return err
		}
		if state == StateError {
			e.Fail(nil)
			return nil
		}
		e.SetState(state)
		return nil
	},
	AttributeResult: func(e *Entry, value string) error {
		result, err := ParseResult(value)
		if err != nil {
			return err
		}
		e.SetResult(result)
		return nil
	},
	AttributeTestsuiteName: func(e *Entry, value string) error {
		e.mut.Lock()
		defer e.mut.Unlock()
		e.testsuiteName = value
		return nil
	},
	AttributeRunnerCapability: func(e *Entry, value string) error {
		e.mut.Lock()
		defer e.mut.Unlock()
		e.runnerCapability = value
		return nil
	},
	AttributePlan: func(e *Entry, value string) error {
		e.mut.Lock()
		defer e.mut.Unlock()
		e.plan = value
		return nil
	},
}

// SettableAttributes returns the sorted names of all attributes rules may override.
func SettableAttributes() []string {
	names := make([]string, 0, len(attributeSetters))
	for name := range attributeSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAttribute checks that value is a valid value for the named attribute without applying it.
func ValidateAttribute(name, value string) error {
	if _, ok := attributeSetters[name]; !ok {
		return errors.Errorf("schedule entry has no attribute %q", name)
	}
	var err error
	switch name {
	case AttributeStage:
		_, err = ParseStage(value)
	case AttributeState:
		_, err = ParseState(value)
	case AttributeResult:
		_, err = ParseResult(value)
	}
	if err != nil {
		return errors.Wrapf(err, "cannot set schedule entry %s to %q", name, value)
	}
	return nil
}

// SetAttribute overrides the named attribute.
func (e *Entry) SetAttribute(name, value string) error {
	setter, ok := attributeSetters[name]
	if !ok {
		return errors.Errorf("schedule entry has no attribute %q", name)
	}
	if err := setter(e, value); err != nil {
		return errors.Wrapf(err, "cannot set schedule entry %s to %q", name, value)
	}
	e.Log.V(3).Info("attribute overridden", "attribute", name, "value", value)
	return nil
}

// Attributes returns a snapshot of the entry as plain values.
// It is used as evaluation context for rules and templates.
func (e *Entry) Attributes() map[string]interface{} {
	e.mut.RLock()
	defer e.mut.RUnlock()

	guestName := ""
	if e.guest != nil {
		guestName = e.guest.Name()
	}

	return map[string]interface{}{
		"id":                      e.ID,
		AttributePlan:             e.plan,
		AttributeRunnerCapability: e.runnerCapability,
		AttributeTestsuiteName:    e.testsuiteName,
		AttributeStage:            string(e.stage),
		AttributeState:            string(e.state),
		AttributeResult:           string(e.result),
		"guest":                   guestName,
		"work_dir":                e.WorkDir,
		"exceptions":              int64(len(e.exceptions)),
		"testing_environment":     environmentAttributes(e),
	}
}

func environmentAttributes(e *Entry) map[string]interface{} {
	data, err := e.TestingEnvironment.SerializeToJSON(true)
	if err != nil {
		return map[string]interface{}{}
	}
	values := map[string]interface{}{}
	if err := json.Unmarshal(data, &values); err != nil {
		return map[string]interface{}{}
	}
	for _, name := range []string{"arch", "compose", "pool"} {
		if _, ok := values[name]; !ok {
			values[name] = ""
		}
	}
	return values
}
