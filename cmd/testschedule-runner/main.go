// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/testing-farm/schedule-runner/cmd/testschedule-runner/cmd"
)

func main() {
	cmd.Execute()
}
