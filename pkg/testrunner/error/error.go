// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"github.com/pkg/errors"
)

// TestrunnerReason classifies why a schedule entry or a whole schedule failed.
type TestrunnerReason string

const (
	// testrunner error is not clear
	TestrunnerReasonUnknown TestrunnerReason = ""

	// no guest could be provisioned
	TestrunnerReasonProvisioning TestrunnerReason = "Provisioning"

	// a guest setup stage failed
	TestrunnerReasonGuestSetup TestrunnerReason = "GuestSetup"

	// the test runner plugin failed
	TestrunnerReasonTestExecution TestrunnerReason = "TestExecution"

	// the guest could not be released
	TestrunnerReasonCleanup TestrunnerReason = "Cleanup"

	// at least one entry of the schedule crashed
	TestrunnerReasonCrashed TestrunnerReason = "Crashed"

	// the runner configuration is invalid
	TestrunnerReasonConfig TestrunnerReason = "Config"
)

// TestrunnerError is an error with a reason and an optional cause.
type TestrunnerError struct {
	message string
	reason  TestrunnerReason
	cause   error
}

var _ error = &TestrunnerError{}

// Error implements the error interface
func (e *TestrunnerError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

// Unwrap returns the cause of the error.
func (e *TestrunnerError) Unwrap() error {
	return e.cause
}

// Reason returns the reason of the error.
func (e *TestrunnerError) Reason() TestrunnerReason {
	return e.reason
}

// New returns a new testrunner error
func New(reason TestrunnerReason, message string) error {
	return &TestrunnerError{
		message: message,
		reason:  reason,
	}
}

// Wrap returns a new testrunner error caused by err.
func Wrap(reason TestrunnerReason, err error, message string) error {
	return &TestrunnerError{
		message: message,
		reason:  reason,
		cause:   err,
	}
}

// NewProvisioningError returns an error indicating that no guest could be provisioned.
func NewProvisioningError(err error) error {
	return Wrap(TestrunnerReasonProvisioning, err, "guest provisioning failed")
}

// NewGuestSetupError returns an error indicating that a guest setup stage failed.
func NewGuestSetupError(err error, stage string) error {
	return Wrap(TestrunnerReasonGuestSetup, err, "guest setup stage "+stage+" failed")
}

// NewTestExecutionError returns an error indicating that the test runner plugin failed.
func NewTestExecutionError(err error) error {
	return Wrap(TestrunnerReasonTestExecution, err, "test execution failed")
}

// NewCleanupError returns an error indicating that a guest could not be released.
func NewCleanupError(err error) error {
	return Wrap(TestrunnerReasonCleanup, err, "guest cleanup failed")
}

// NewCrashedError returns the aggregate error of a schedule with crashed entries.
func NewCrashedError(err error) error {
	return Wrap(TestrunnerReasonCrashed, err, "At least one entry crashed")
}

// NewConfigError returns an error indicating an invalid runner configuration.
func NewConfigError(message string) error {
	return New(TestrunnerReasonConfig, message)
}

// IsProvisioning determines if the error indicates a provisioning failure.
func IsProvisioning(err error) bool {
	return reasonForError(err) == TestrunnerReasonProvisioning
}

// IsGuestSetup determines if the error indicates a guest setup failure.
func IsGuestSetup(err error) bool {
	return reasonForError(err) == TestrunnerReasonGuestSetup
}

// IsTestExecution determines if the error indicates a failure of the test runner plugin.
func IsTestExecution(err error) bool {
	return reasonForError(err) == TestrunnerReasonTestExecution
}

// IsCleanup determines if the error indicates a cleanup failure.
func IsCleanup(err error) bool {
	return reasonForError(err) == TestrunnerReasonCleanup
}

// IsCrashed determines if at least one entry of a schedule crashed.
func IsCrashed(err error) bool {
	return reasonForError(err) == TestrunnerReasonCrashed
}

// IsConfig determines if the error indicates an invalid configuration.
func IsConfig(err error) bool {
	return reasonForError(err) == TestrunnerReasonConfig
}

// reasonForError returns the testrunner reason for a particular error.
// Wrapped errors are unwrapped until a testrunner error is found.
func reasonForError(err error) TestrunnerReason {
	var t *TestrunnerError
	if errors.As(err, &t) {
		return t.reason
	}
	return TestrunnerReasonUnknown
}

// ReasonOf returns the reason of the first testrunner error in the chain of err.
func ReasonOf(err error) TestrunnerReason {
	return reasonForError(err)
}
