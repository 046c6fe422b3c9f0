// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// StepSummary writes markdown to the step summary file of a GitHub Actions job.
// A step summary without path discards all messages.
type StepSummary struct {
	path string
	mut  sync.Mutex
}

// NewStepSummary creates a step summary for the given file.
// The path is usually taken from $GITHUB_STEP_SUMMARY.
func NewStepSummary(path string) *StepSummary {
	if path != "" {
		path = filepath.Clean(path)
	}
	return &StepSummary{path: path}
}

// Post appends the message to the summary file or replaces its content.
func (s *StepSummary) Post(message string, append bool) error {
	if s == nil || s.path == "" {
		return nil
	}
	s.mut.Lock()
	defer s.mut.Unlock()

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(s.path, flags, 0600) // #nosec G304 -- path is given by the user
	if err != nil {
		return errors.Wrapf(err, "unable to open step summary %s", s.path)
	}
	defer file.Close()

	if _, err := file.WriteString(message + "\n"); err != nil {
		return errors.Wrapf(err, "unable to write step summary %s", s.path)
	}
	return nil
}
