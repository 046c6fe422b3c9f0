// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package static

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

const (
	DefaultWaitTimeout  = 10 * time.Minute
	DefaultPollInterval = 5 * time.Second
	DefaultAliveTimeout = 1 * time.Minute
)

// Config describes the pool of static guests.
type Config struct {
	Guests []GuestSpec `json:"guests"`

	// WaitTimeout is the maximum time to wait for a free matching guest.
	WaitTimeout string `json:"waitTimeout,omitempty"`
	// PollInterval is the interval between two lease attempts and liveness probes.
	PollInterval string `json:"pollInterval,omitempty"`
	// AliveTimeout is the maximum time a guest may need to respond to a liveness probe.
	AliveTimeout string `json:"aliveTimeout,omitempty"`
}

// GuestSpec describes one existing machine.
type GuestSpec struct {
	Name string `json:"name"`

	// Local guests execute commands on the machine the runner runs on.
	Local bool `json:"local,omitempty"`

	Hostname   string   `json:"hostname,omitempty"`
	Port       int      `json:"port,omitempty"`
	Username   string   `json:"username,omitempty"`
	KeyPath    string   `json:"keyPath,omitempty"`
	SSHOptions []string `json:"sshOptions,omitempty"`

	// Arch and Compose restrict the environments the guest can serve. Empty values match everything.
	Arch    string `json:"arch,omitempty"`
	Compose string `json:"compose,omitempty"`
}

// Matches returns true if the guest can serve the environment.
func (s GuestSpec) Matches(env testingenvironment.TestingEnvironment) bool {
	if s.Arch != "" && env.Arch != "" && s.Arch != env.Arch {
		return false
	}
	if s.Compose != "" && env.Compose != "" && s.Compose != env.Compose {
		return false
	}
	return true
}

// ConnectionInfo returns the ssh connection information of a remote guest.
func (s GuestSpec) ConnectionInfo() guest.ConnectionInfo {
	return guest.ConnectionInfo{
		Hostname: s.Hostname,
		Port:     s.Port,
		Username: s.Username,
		KeyPath:  s.KeyPath,
	}
}

// LoadFile reads a static guest pool configuration.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read guest pool file %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a static guest pool configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode guest pool")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every guest is usable.
func (c *Config) Validate() error {
	if len(c.Guests) == 0 {
		return errors.New("guest pool contains no guests")
	}
	names := map[string]bool{}
	for i, g := range c.Guests {
		if g.Name == "" {
			return errors.Errorf("guest %d: name is required", i)
		}
		if names[g.Name] {
			return errors.Errorf("guest %d: duplicate name %q", i, g.Name)
		}
		names[g.Name] = true
		if !g.Local && g.Hostname == "" {
			return errors.Errorf("guest %s: hostname is required for remote guests", g.Name)
		}
	}
	for _, d := range []string{c.WaitTimeout, c.PollInterval, c.AliveTimeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return errors.Wrapf(err, "invalid duration %q", d)
		}
	}
	return nil
}

func durationOrDefault(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
