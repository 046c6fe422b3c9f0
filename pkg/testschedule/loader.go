// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testschedule

import (
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// File is the on-disk representation of a schedule.
type File struct {
	Entries []EntrySpec `json:"entries"`
}

// EntrySpec describes a single entry of a schedule file.
type EntrySpec struct {
	ID               string                                `json:"id,omitempty"`
	Plan             string                                `json:"plan"`
	RunnerCapability string                                `json:"runnerCapability,omitempty"`
	TestsuiteName    string                                `json:"testsuiteName,omitempty"`
	Result           string                                `json:"result,omitempty"`
	Environment      testingenvironment.TestingEnvironment `json:"environment"`
}

// LoadFile reads a schedule file.
// The work directory of every entry is created below workDir.
func LoadFile(log logr.Logger, path, workDir, defaultRunner string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read schedule file %s", path)
	}
	s, err := Parse(log, data, workDir, defaultRunner)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule file %s", path)
	}
	return s, nil
}

// Parse creates a schedule from its yaml representation.
func Parse(log logr.Logger, data []byte, workDir, defaultRunner string) (*Schedule, error) {
	file := &File{}
	if err := yaml.UnmarshalStrict(data, file); err != nil {
		return nil, errors.Wrap(err, "unable to decode schedule")
	}
	if len(file.Entries) == 0 {
		return nil, errors.New("schedule contains no entries")
	}

	s := New()
	ids := map[string]bool{}
	for i, spec := range file.Entries {
		if spec.Plan == "" {
			return nil, errors.Errorf("entry %d: plan is required", i)
		}
		runner := spec.RunnerCapability
		if runner == "" {
			runner = defaultRunner
		}
		e := NewEntry(spec.ID, spec.Plan, runner, spec.Environment).WithLogger(log)
		if ids[e.ID] {
			return nil, errors.Errorf("entry %d: duplicate id %q", i, e.ID)
		}
		ids[e.ID] = true

		if spec.TestsuiteName != "" {
			e.testsuiteName = spec.TestsuiteName
		}
		if spec.Result != "" {
			result, err := ParseResult(spec.Result)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			e.SetResult(result)
		}
		if workDir != "" {
			e.WorkDir = filepath.Join(workDir, sanitizePath(e.ID))
		}
		s.Append(e)
	}
	return s, nil
}

// sanitizePath replaces characters that are not suitable for directory names.
func sanitizePath(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
