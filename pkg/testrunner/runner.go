// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/cancellation"
	"github.com/testing-farm/schedule-runner/pkg/events"
	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/guestcache"
	"github.com/testing-farm/schedule-runner/pkg/jobs"
	"github.com/testing-farm/schedule-runner/pkg/provision"
	"github.com/testing-farm/schedule-runner/pkg/rules"
	trerrors "github.com/testing-farm/schedule-runner/pkg/testrunner/error"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// Options are the collaborators of a runner.
type Options struct {
	// Provisioner provisions the guests of entries. It is required in single host mode.
	Provisioner provision.Provisioner
	// Plugins run the tests of entries by runner capability.
	Plugins Plugins
	// AttributeRules rewrite entry attributes before every job.
	AttributeRules *rules.RuleSet
	// Notifier receives the progress of the schedule.
	Notifier events.Notifier
	// Token is shared with the provisioner. A new token is created if none is given.
	Token *cancellation.Token
}

// Runner drives all entries of a schedule to the complete stage.
type Runner struct {
	log    logr.Logger
	runID  string
	config Config

	token          *cancellation.Token
	provisioner    provision.Provisioner
	plugins        Plugins
	attributeRules *rules.RuleSet
	notifier       events.Notifier
	cache          *guestcache.Cache
	skipStages     map[guest.SetupStage]bool
}

// New creates a new schedule runner.
func New(log logr.Logger, config Config, opts Options) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	skipStages, err := guest.ParseSetupStages(config.SkipGuestSetupStages)
	if err != nil {
		return nil, trerrors.Wrap(trerrors.TestrunnerReasonConfig, err, "invalid guest setup stages to skip")
	}
	if config.mode() == ModeSingleHost && opts.Provisioner == nil {
		return nil, trerrors.NewConfigError("a provisioner is required in single host mode")
	}
	if opts.Token == nil {
		opts.Token = cancellation.NewToken(context.Background())
	}
	if opts.Notifier == nil {
		opts.Notifier = events.Multi{}
	}

	runID := uuid.New().String()
	r := &Runner{
		log:            log.WithName("schedule-runner").WithValues("run", runID),
		runID:          runID,
		config:         config,
		token:          opts.Token,
		provisioner:    opts.Provisioner,
		plugins:        opts.Plugins,
		attributeRules: opts.AttributeRules,
		notifier:       opts.Notifier,
		skipStages:     skipStages,
	}
	r.cache = guestcache.New(r.log, r.destroy)
	return r, nil
}

// RunID returns the unique id of the runner.
func (r *Runner) RunID() string {
	return r.runID
}

// Token returns the cancellation token of the runner.
func (r *Runner) Token() *cancellation.Token {
	return r.token
}

// CachedGuests returns the number of idle guests that wait for reuse.
func (r *Runner) CachedGuests() int {
	return r.cache.Len()
}

// EvalContext returns the values the parallel limit template and the rules are evaluated with.
func (r *Runner) EvalContext(schedule *testschedule.Schedule) map[string]interface{} {
	values := map[string]interface{}{}
	for k, v := range r.config.EvalVariables {
		values[k] = v
	}
	attrs := schedule.Attributes()
	values[rules.VariableSchedule] = attrs
	values[rules.VariableTestSchedule] = attrs
	values[rules.VariableEval] = r.evalVariables()
	return values
}

func (r *Runner) evalVariables() map[string]interface{} {
	if r.config.EvalVariables == nil {
		return map[string]interface{}{}
	}
	return r.config.EvalVariables
}

// Execute runs all entries of the schedule until they are complete.
// An error is returned after all entries are complete if at least one of them crashed.
func (r *Runner) Execute(ctx context.Context, schedule *testschedule.Schedule) error {
	workers := 1
	if r.config.Parallelize {
		limit, err := r.config.RenderParallelLimit(r.EvalContext(schedule))
		if err != nil {
			return err
		}
		workers = limit
	}

	run := &scheduleRun{
		Runner:      r,
		ctx:         ctx,
		schedule:    schedule,
		completions: completions(r.config.mode()),
	}
	engine, err := jobs.NewEngine[*testschedule.Entry](r.log, jobs.EngineConfig{MaxWorkers: workers}, jobs.Callbacks[*testschedule.Entry]{
		OnJobStart:    run.onJobStart,
		OnJobComplete: run.onJobComplete,
		OnJobError:    run.onJobError,
		OnJobDone:     run.onJobDone,
	})
	if err != nil {
		return err
	}
	run.engine = engine

	var seed []*testschedule.Entry
	if r.config.Parallelize && workers == 0 {
		r.log.Info("Will run schedule entries in parallel")
		seed = schedule.Entries()
	} else {
		for _, e := range schedule.Entries() {
			if e.Result() == testschedule.ResultSkipped {
				e.SetStage(testschedule.StageComplete)
				continue
			}
			run.pending = append(run.pending, e)
		}
		if r.config.Parallelize {
			r.log.Info(fmt.Sprintf("Will run schedule entries in parallel, %d entries at once", workers))
		} else {
			r.log.Info("Will run schedule entries serially")
			if len(run.pending) == 0 {
				return trerrors.NewConfigError("no test schedule to run")
			}
			workers = 1
		}
		for i := 0; i < workers && len(run.pending) != 0; i++ {
			seed = append(seed, run.pending[0])
			run.pending = run.pending[1:]
		}
	}
	if r.config.ReuseGuests {
		r.log.Info("Will reuse guests for schedule entries")
	}

	r.notifier.ScheduleStarted(schedule)
	schedule.LogTo(r.log, fmt.Sprintf("running test schedule of %d entries", schedule.Len()), testschedule.LogOptions{})

	for _, e := range seed {
		engine.Enqueue(run.job(e, JobGetEntryReady))
	}
	engine.Run(ctx)

	schedule.LogTo(r.log, "finished schedule", testschedule.LogOptions{IncludeErrors: true, IncludeLogs: true})

	var result error
	if err := engine.Err(); err != nil {
		r.notifier.ScheduleError(schedule, err)
		result = trerrors.NewCrashedError(err)
	}

	if r.config.ReuseGuests {
		if err := r.cache.Drain(ctx, 0); err != nil {
			r.log.Error(err, "unable to destroy cached guests")
		}
	}

	r.notifier.ScheduleFinished(schedule)
	r.log.Info("schedule finished", "result", schedule.Result())
	return result
}

// scheduleRun is the state of a single execution of a schedule.
type scheduleRun struct {
	*Runner
	ctx         context.Context
	schedule    *testschedule.Schedule
	engine      *jobs.Engine[*testschedule.Entry]
	completions map[testschedule.Stage]completion

	mut     sync.Mutex
	pending []*testschedule.Entry
}

func (run *scheduleRun) job(e *testschedule.Entry, name string) *jobs.Job[*testschedule.Entry] {
	return jobs.NewJob(e.Log, fmt.Sprintf("%s: %s", e.ID, name), e, run.target)
}

// feed starts the next pending entry.
func (run *scheduleRun) feed() {
	run.mut.Lock()
	if len(run.pending) == 0 {
		run.mut.Unlock()
		return
	}
	e := run.pending[0]
	run.pending = run.pending[1:]
	run.mut.Unlock()

	run.engine.Enqueue(run.job(e, JobGetEntryReady))
}

// target executes the action of the current stage of the entry.
// The stage may differ from the stage the job was enqueued for if it was rewritten by a rule.
func (run *scheduleRun) target(ctx context.Context, e *testschedule.Entry) (interface{}, error) {
	switch e.Stage() {
	case testschedule.StageCreated:
		return run.getEntryReady(ctx, e)
	case testschedule.StageGuestProvisioning:
		return run.provisionGuest(ctx, e)
	case testschedule.StageGuestSetup:
		return nil, run.setupGuest(ctx, e)
	case testschedule.StageRunning:
		return nil, run.runTests(ctx, e)
	case testschedule.StageCleanup:
		return nil, run.Cleanup(ctx, e)
	}
	e.Log.V(3).Info("nothing to do", "stage", e.Stage())
	return nil, nil
}

func (run *scheduleRun) onJobStart(job *jobs.Job[*testschedule.Entry]) error {
	e := job.Subject
	if err := run.applyAttributeRules(e); err != nil {
		return err
	}

	if e.Stage() == testschedule.StageComplete {
		e.Log.Info("entry completed by schedule entry attribute map")
		return run.Cleanup(run.ctx, e)
	}

	t, ok := startTransitions[e.Stage()]
	if !ok {
		return nil
	}
	run.shift(e, t)
	return nil
}

func (run *scheduleRun) onJobComplete(job *jobs.Job[*testschedule.Entry], result interface{}) error {
	e := job.Subject
	c, ok := run.completions[e.Stage()]
	if !ok {
		return errors.Errorf("no transition for stage %s", e.Stage())
	}
	t := c.Transition
	if c.resolve != nil {
		if alt, ok := c.resolve(e, result); ok {
			t = alt
		}
	}
	run.shift(e, t)
	return nil
}

func (run *scheduleRun) shift(e *testschedule.Entry, t Transition) {
	if t.Message != "" {
		e.Log.Info(t.Message)
	}
	old := e.Stage()
	e.SetStage(t.Next)
	e.Log.V(3).Info("shifted", "from", old, "to", t.Next, "state", e.State())

	if t.Label != "" {
		run.notifier.Results(t.Label, run.schedule)
	}
	if t.Job != "" {
		run.engine.Enqueue(run.job(e, t.Job))
	}
	if t.Feed {
		run.feed()
	}
}

func (run *scheduleRun) onJobError(job *jobs.Job[*testschedule.Entry], err error) {
	e := job.Subject
	stage := e.Stage()

	if trerrors.ReasonOf(err) == trerrors.TestrunnerReasonUnknown {
		switch stage {
		case testschedule.StageGuestProvisioning:
			err = trerrors.NewProvisioningError(err)
		case testschedule.StageGuestSetup:
			err = trerrors.Wrap(trerrors.TestrunnerReasonGuestSetup, err, "guest setup failed")
		case testschedule.StageRunning:
			err = trerrors.NewTestExecutionError(err)
		case testschedule.StageCleanup:
			err = trerrors.NewCleanupError(err)
		}
	}
	e.Log.Error(err, "job failed", "job", job.Name, "stage", stage)
	e.Fail(err)

	if stage.HoldsGuest() {
		if g := e.TakeGuest(); g != nil {
			if derr := run.destroy(run.ctx, g); derr != nil {
				e.Log.Error(derr, "unable to destroy guest", "guest", g.Name())
				e.Fail(trerrors.NewCleanupError(derr))
			}
		}
	}

	e.SetStage(testschedule.StageComplete)
	run.notifier.EntryError(e, err)
	run.notifier.Results(events.LabelEntryError, run.schedule)
	run.feed()
}

func (run *scheduleRun) onJobDone(_ *jobs.Job[*testschedule.Entry], _ int) {
	remaining := 0
	for _, e := range run.schedule.Entries() {
		if e.Stage() != testschedule.StageComplete {
			remaining++
		}
	}
	run.schedule.LogTo(run.log.V(3), fmt.Sprintf("%d entries pending", remaining), testschedule.LogOptions{})
}

// applyAttributeRules applies all matching rules of the schedule entry attribute map in order.
func (run *scheduleRun) applyAttributeRules(e *testschedule.Entry) error {
	if run.attributeRules.Len() == 0 {
		return nil
	}
	values := run.EvalContext(run.schedule)
	attrs := e.Attributes()
	values[rules.VariableEntry] = attrs
	values[rules.VariableScheduleEntry] = attrs

	matched, err := run.attributeRules.Matching(values)
	if err != nil {
		return errors.Wrap(err, "unable to evaluate schedule entry attribute map")
	}
	if len(matched) != 0 {
		e.Log.Info("Schedule entry will be changed by config file")
	}
	for _, rule := range matched {
		e.Log.V(3).Info("applied rule", "rule", rule.String())
		for _, attr := range rule.Attributes {
			if err := e.SetAttribute(attr.Name, attr.Value); err != nil {
				return err
			}
			e.Log.Info(fmt.Sprintf("%s changed", attr.Name), "value", attr.Value)
		}
	}
	return nil
}
