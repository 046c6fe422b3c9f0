// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"io"

	"github.com/testing-farm/schedule-runner/pkg/rules"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
	"github.com/testing-farm/schedule-runner/pkg/util/s3"
)

// Config represents the configuration for reporting the results of a test schedule.
type Config struct {
	// XUnitFile is the path where the xunit document is written to.
	XUnitFile string

	// ResultsFile is the path of the json summary.
	// The summary is regenerated whenever the runner fires a results hook.
	ResultsFile string

	// OverallResultRules may override the computed overall result with their "set-result" attribute.
	OverallResultRules *rules.RuleSet

	// EvalContext returns the variables that are available to the override rules.
	EvalContext func(schedule *testschedule.Schedule) map[string]interface{}

	// Out is the writer the result table is printed to.
	Out io.Writer

	// S3 enables the upload of UploadDir after the results are written.
	S3 *s3.Config

	// S3Client is used instead of a client created from S3.
	S3Client s3.Client

	// UploadDir is the directory that is uploaded to the object store.
	UploadDir string

	// UploadPrefix is prepended to all object names.
	UploadPrefix string
}

func (c *Config) uploadEnabled() bool {
	return c.UploadDir != "" && (c.S3 != nil || c.S3Client != nil)
}
