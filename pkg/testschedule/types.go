// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testschedule

import (
	"strings"

	"github.com/pkg/errors"
)

// Stage is the orchestration phase of a schedule entry.
type Stage string

const (
	StageCreated           Stage = "created"
	StageReady             Stage = "ready"
	StageGuestProvisioning Stage = "guest-provisioning"
	StageGuestProvisioned  Stage = "guest-provisioned"
	StageGuestSetup        Stage = "guest-setup"
	StagePrepared          Stage = "prepared"
	StageRunning           Stage = "running"
	StageCleanup           Stage = "cleanup"
	StageComplete          Stage = "complete"
)

// Stages lists all stages in transition order.
var Stages = []Stage{
	StageCreated,
	StageReady,
	StageGuestProvisioning,
	StageGuestProvisioned,
	StageGuestSetup,
	StagePrepared,
	StageRunning,
	StageCleanup,
	StageComplete,
}

// HoldsGuest returns true for all stages an entry owns a guest in.
func (s Stage) HoldsGuest() bool {
	switch s {
	case StageGuestProvisioned, StageGuestSetup, StagePrepared, StageRunning, StageCleanup:
		return true
	}
	return false
}

// ParseStage parses a stage name. Underscores and upper case letters are accepted.
func ParseStage(name string) (Stage, error) {
	n := normalize(name)
	for _, s := range Stages {
		if string(s) == n {
			return s, nil
		}
	}
	return "", errors.Errorf("unknown stage %q", name)
}

// State records whether an entry proceeds normally.
type State string

const (
	StateOK    State = "ok"
	StateError State = "error"
)

// ParseState parses a state name.
func ParseState(name string) (State, error) {
	switch State(normalize(name)) {
	case StateOK:
		return StateOK, nil
	case StateError:
		return StateError, nil
	}
	return "", errors.Errorf("unknown state %q", name)
}

// Result is the test verdict of an entry or a whole schedule.
type Result string

const (
	ResultUndefined       Result = "undefined"
	ResultPassed          Result = "passed"
	ResultFailed          Result = "failed"
	ResultError           Result = "error"
	ResultSkipped         Result = "skipped"
	ResultInfo            Result = "info"
	ResultNotApplicable   Result = "not-applicable"
	ResultNeedsInspection Result = "needs-inspection"
)

// resultSeverity defines the total order used to compute the result of a schedule.
// Results listed first take precedence.
var resultSeverity = []Result{
	ResultError,
	ResultFailed,
	ResultNeedsInspection,
	ResultPassed,
	ResultInfo,
	ResultNotApplicable,
	ResultSkipped,
	ResultUndefined,
}

// Results lists all results ordered by severity.
func Results() []Result {
	return append([]Result{}, resultSeverity...)
}

// ParseResult parses a result name.
func ParseResult(name string) (Result, error) {
	n := normalize(name)
	for _, r := range resultSeverity {
		if string(r) == n {
			return r, nil
		}
	}
	return "", errors.Errorf("unknown result %q", name)
}

func (r Result) severity() int {
	for i, s := range resultSeverity {
		if s == r {
			return len(resultSeverity) - i
		}
	}
	return 0
}

// MoreSevere returns true if r takes precedence over other.
func (r Result) MoreSevere(other Result) bool {
	return r.severity() > other.severity()
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
