// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ReturnMultiError takes an err object and returns a multierror with a custom format.
// A nil multierror or a multierror without any errors results in nil.
func ReturnMultiError(err error) error {
	if err == nil || reflect.ValueOf(err).IsNil() {
		return nil
	}

	if errs, ok := err.(*multierror.Error); ok {
		errs.ErrorFormat = formatErrors
		return errs.ErrorOrNil()
	}
	return err
}

// CombineErrors appends all non nil errors into one multierror that uses the custom format.
func CombineErrors(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return ReturnMultiError(result)
}

func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return fmt.Sprintf("1 error occurred: %s", errs[0].Error())
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d errors occurred - %s", len(errs), strings.Join(msgs, " - "))
}
