// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/rules"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// SetResultAttribute is the only attribute of an overall result rule table.
const SetResultAttribute = "set-result"

// ValidateOverallResultAttribute checks an attribute of an overall result rule table.
func ValidateOverallResultAttribute(name, value string) error {
	if name != SetResultAttribute {
		return errors.Errorf("unknown attribute %q, only %q is supported", name, SetResultAttribute)
	}
	_, err := testschedule.ParseResult(value)
	return err
}

// Overall computes the result of the schedule.
// The "set-result" attribute of the first matching rule replaces the computed result.
// CURRENT_RESULT holds the computed result during rule evaluation.
func Overall(schedule *testschedule.Schedule, rs *rules.RuleSet, evalContext map[string]interface{}) (testschedule.Result, error) {
	computed := schedule.Result()
	if rs.Len() == 0 {
		return computed, nil
	}

	ctx := make(map[string]interface{}, len(evalContext)+3)
	for k, v := range evalContext {
		ctx[k] = v
	}
	attributes := schedule.Attributes()
	ctx[rules.VariableSchedule] = attributes
	ctx[rules.VariableTestSchedule] = attributes
	ctx[rules.VariableCurrentResult] = string(computed)

	rule, err := rs.First(ctx)
	if err != nil {
		return computed, errors.Wrap(err, "unable to evaluate overall result rules")
	}
	if rule == nil {
		return computed, nil
	}
	value, ok := rule.Get(SetResultAttribute)
	if !ok {
		return computed, nil
	}
	result, err := testschedule.ParseResult(value)
	if err != nil {
		return computed, errors.Wrapf(err, "invalid result of %s", rule)
	}
	return result, nil
}
