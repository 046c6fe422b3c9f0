// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package static

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/testing-farm/schedule-runner/pkg/cancellation"
	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/guestsetup"
	"github.com/testing-farm/schedule-runner/pkg/provision"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// Provisioner leases guests from a pool of existing machines.
// A guest is leased by exactly one entry until it is destroyed.
type Provisioner struct {
	log   logr.Logger
	token *cancellation.Token
	setup *guestsetup.Runner

	waitTimeout  time.Duration
	pollInterval time.Duration
	aliveTimeout time.Duration

	mut    sync.Mutex
	guests []GuestSpec
	leased map[string]bool
}

var _ provision.Provisioner = &Provisioner{}

// New creates a provisioner for the configured guest pool.
func New(log logr.Logger, token *cancellation.Token, config *Config, setup *guestsetup.Runner) (*Provisioner, error) {
	if config == nil {
		return nil, errors.New("no guest pool configured")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if setup == nil {
		setup = guestsetup.NewRunner(log, nil)
	}
	return &Provisioner{
		log:          log.WithName("static-provisioner"),
		token:        token,
		setup:        setup,
		waitTimeout:  durationOrDefault(config.WaitTimeout, DefaultWaitTimeout),
		pollInterval: durationOrDefault(config.PollInterval, DefaultPollInterval),
		aliveTimeout: durationOrDefault(config.AliveTimeout, DefaultAliveTimeout),
		guests:       append([]GuestSpec{}, config.Guests...),
		leased:       map[string]bool{},
	}, nil
}

// Provision leases a free guest that matches the environment.
// It waits until a guest is released if all matching guests are leased.
func (p *Provisioner) Provision(ctx context.Context, env testingenvironment.TestingEnvironment, workDir string) ([]guest.Guest, error) {
	if p.token.Cancelled() {
		return nil, cancellation.ErrPipelineCancelled
	}

	candidates := p.matching(env)
	if len(candidates) == 0 {
		return nil, errors.Errorf("no guest of the pool matches %s", env)
	}

	if workDir != "" {
		if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "unable to create work directory %s", workDir)
		}
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.token.Context(), cancel)
	defer stop()

	var spec *GuestSpec
	err := wait.PollUntilContextTimeout(pollCtx, p.pollInterval, p.waitTimeout, true, func(ctx context.Context) (bool, error) {
		if err := p.token.Acquire(func() error {
			spec = p.lease(candidates)
			return nil
		}); err != nil {
			return false, err
		}
		if spec == nil {
			p.log.V(3).Info("all matching guests are leased, waiting", "environment", env.String())
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		if p.token.Cancelled() {
			return nil, cancellation.ErrPipelineCancelled
		}
		return nil, errors.Wrapf(err, "no free guest for %s", env)
	}

	p.log.Info("guest leased", "guest", spec.Name, "environment", env.String())
	return []guest.Guest{p.newGuest(*spec, env, workDir)}, nil
}

// Leased returns the number of leased guests.
func (p *Provisioner) Leased() int {
	p.mut.Lock()
	defer p.mut.Unlock()
	return len(p.leased)
}

func (p *Provisioner) matching(env testingenvironment.TestingEnvironment) []GuestSpec {
	p.mut.Lock()
	defer p.mut.Unlock()
	matching := []GuestSpec{}
	for _, g := range p.guests {
		if g.Matches(env) {
			matching = append(matching, g)
		}
	}
	return matching
}

func (p *Provisioner) lease(candidates []GuestSpec) *GuestSpec {
	p.mut.Lock()
	defer p.mut.Unlock()
	for i := range candidates {
		if !p.leased[candidates[i].Name] {
			p.leased[candidates[i].Name] = true
			return &candidates[i]
		}
	}
	return nil
}

func (p *Provisioner) release(name string) {
	p.mut.Lock()
	defer p.mut.Unlock()
	delete(p.leased, name)
	p.log.Info("guest released", "guest", name)
}

func (p *Provisioner) newGuest(spec GuestSpec, env testingenvironment.TestingEnvironment, workDir string) guest.Guest {
	g := &Guest{
		spec:        spec,
		env:         env,
		provisioner: p,
	}
	if spec.Local {
		g.executor = &guest.LocalExecutor{Dir: workDir}
		return g
	}
	g.executor = &guest.SSHExecutor{Info: spec.ConnectionInfo(), Options: spec.SSHOptions}
	return &SSHGuest{Guest: g}
}
