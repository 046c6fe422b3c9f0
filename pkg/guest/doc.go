// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:generate mockgen -destination=./mocks/guest.go github.com/testing-farm/schedule-runner/pkg/guest Guest

// Package guest defines the machines tests are executed on and the ordered guest setup stages.
package guest
