// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"context"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/events"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
	"github.com/testing-farm/schedule-runner/pkg/util"
	"github.com/testing-farm/schedule-runner/pkg/util/s3"
)

// Reporter regenerates the results summary on every results hook of the runner
// and writes the final reports once the schedule finished.
type Reporter struct {
	log    logr.Logger
	config Config

	// serializes concurrent hooks
	mut sync.Mutex
}

var _ events.Notifier = &Reporter{}

// NewReporter creates a new reporter.
func NewReporter(log logr.Logger, config Config) *Reporter {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &Reporter{
		log:    log.WithName("result"),
		config: config,
	}
}

// EnableUpload uploads dir to the object store when the results are reported.
func (r *Reporter) EnableUpload(config *s3.Config, dir, prefix string) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.config.S3 = config
	r.config.UploadDir = dir
	r.config.UploadPrefix = prefix
}

func (r *Reporter) ScheduleStarted(schedule *testschedule.Schedule) {
	r.generate("schedule started", schedule)
}

func (r *Reporter) Results(label string, schedule *testschedule.Schedule) {
	r.generate(label, schedule)
}

func (r *Reporter) EntryError(_ *testschedule.Entry, _ error) {}

func (r *Reporter) ScheduleError(schedule *testschedule.Schedule, _ error) {
	r.generate("schedule error", schedule)
}

func (r *Reporter) ScheduleFinished(schedule *testschedule.Schedule) {
	r.generate("schedule finished", schedule)
}

// generate rewrites the results summary. Errors are only logged as hooks are fire and forget.
func (r *Reporter) generate(label string, schedule *testschedule.Schedule) {
	if r.config.ResultsFile == "" {
		return
	}
	r.mut.Lock()
	defer r.mut.Unlock()

	summary, err := Summarize(label, schedule, schedule.Result())
	if err != nil {
		r.log.Error(err, "unable to generate results summary", "label", label)
		return
	}
	if err := WriteSummary(r.config.ResultsFile, summary); err != nil {
		r.log.Error(err, "unable to write results summary", "label", label)
		return
	}
	r.log.V(5).Info("results summary written", "label", label, "file", r.config.ResultsFile)
}

// Report computes the overall result and writes all configured reports.
// The overall result is returned even if some reports could not be written.
func (r *Reporter) Report(ctx context.Context, schedule *testschedule.Schedule) (testschedule.Result, error) {
	r.mut.Lock()
	defer r.mut.Unlock()

	var result *multierror.Error
	var evalContext map[string]interface{}
	if r.config.EvalContext != nil {
		evalContext = r.config.EvalContext(schedule)
	}
	overall, err := Overall(schedule, r.config.OverallResultRules, evalContext)
	if err != nil {
		result = multierror.Append(result, err)
	}

	if r.config.ResultsFile != "" {
		summary, err := Summarize("report", schedule, overall)
		if err == nil {
			err = WriteSummary(r.config.ResultsFile, summary)
		}
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			r.log.Info("results summary written", "file", r.config.ResultsFile)
		}
	}

	if r.config.XUnitFile != "" {
		if err := WriteXUnit(r.config.XUnitFile, schedule, overall); err != nil {
			result = multierror.Append(result, err)
		} else {
			r.log.Info("xunit written", "file", r.config.XUnitFile)
		}
	}

	PrintResults(r.config.Out, schedule, overall)

	if r.config.uploadEnabled() {
		if err := r.upload(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	r.log.Info("Result of testing", "result", overall)
	return overall, util.ReturnMultiError(result)
}

func (r *Reporter) upload(ctx context.Context) error {
	client := r.config.S3Client
	if client == nil {
		var err error
		client, err = s3.New(r.config.S3)
		if err != nil {
			return errors.Wrap(err, "unable to create s3 client")
		}
	}
	if _, err := s3.UploadDir(ctx, r.log, client, r.config.UploadPrefix, r.config.UploadDir); err != nil {
		return errors.Wrapf(err, "unable to upload %s", r.config.UploadDir)
	}
	return nil
}
