// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner

import (
	"fmt"
	"strconv"
	"strings"

	trerrors "github.com/testing-farm/schedule-runner/pkg/testrunner/error"
	rendertemplate "github.com/testing-farm/schedule-runner/pkg/util/render-template"
)

// Mode defines who provisions the guests of a schedule.
type Mode string

const (
	// ModeSingleHost provisions one guest per entry and runs the full stage sequence.
	ModeSingleHost Mode = "single-host"
	// ModeMultiHost leaves provisioning to the runner plugin.
	ModeMultiHost Mode = "multihost"
)

// DefaultMaxParallelLimit is the upper bound of the parallel limit if none is configured.
const DefaultMaxParallelLimit = 64

// Config configures how a schedule is executed.
type Config struct {
	// Parallelize runs entries concurrently.
	Parallelize bool
	// ParallelLimit is a template that renders to the maximum number of entries processed at once.
	// An empty limit means no limit.
	ParallelLimit string
	// MaxParallelLimit bounds the rendered parallel limit.
	MaxParallelLimit int

	// ReuseGuests returns guests of successful entries to a cache instead of destroying them.
	ReuseGuests bool
	// DestroyIfFail destroys guests of failed entries even if guests are reused.
	DestroyIfFail bool

	// SkipGuestSetupStages are guest setup stages that are not executed.
	SkipGuestSetupStages []string

	Mode Mode

	// EvalVariables are available to the parallel limit template and to rules.
	EvalVariables map[string]interface{}
}

// Validate validates the runner configuration.
func (c *Config) Validate() error {
	if c.DestroyIfFail && !c.ReuseGuests {
		return trerrors.NewConfigError("--destroy-if-fail option works only together with the --reuse-guests")
	}
	if c.MaxParallelLimit < 0 {
		return trerrors.NewConfigError(fmt.Sprintf("max parallel limit must not be negative but is %d", c.MaxParallelLimit))
	}
	switch c.Mode {
	case "", ModeSingleHost, ModeMultiHost:
	default:
		return trerrors.NewConfigError(fmt.Sprintf("unknown mode %q", c.Mode))
	}
	return nil
}

func (c *Config) mode() Mode {
	if c.Mode == "" {
		return ModeSingleHost
	}
	return c.Mode
}

func (c *Config) maxParallelLimit() int {
	if c.MaxParallelLimit == 0 {
		return DefaultMaxParallelLimit
	}
	return c.MaxParallelLimit
}

// RenderParallelLimit renders the parallel limit template with the given values.
// 0 is returned if no limit is configured.
func (c *Config) RenderParallelLimit(values interface{}) (int, error) {
	if strings.TrimSpace(c.ParallelLimit) == "" {
		return 0, nil
	}
	rendered, err := rendertemplate.RenderString(c.ParallelLimit, values)
	if err != nil {
		return 0, trerrors.Wrap(trerrors.TestrunnerReasonConfig, err, "unable to render parallel limit")
	}
	limit, err := strconv.Atoi(strings.TrimSpace(rendered))
	if err != nil {
		return 0, trerrors.Wrap(trerrors.TestrunnerReasonConfig, err, fmt.Sprintf("parallel limit %q is not a number", rendered))
	}
	if limit < 1 || limit > c.maxParallelLimit() {
		return 0, trerrors.NewConfigError(fmt.Sprintf("parallel limit %d is out of range [1, %d]", limit, c.maxParallelLimit()))
	}
	return limit, nil
}
