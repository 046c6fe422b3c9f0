// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package render_template

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
)

// RenderLocalTemplate uses a template <tpl> given as a string and renders it with the sprig function map.
// Thus, the template does not necessarily need to be stored as a file.
func RenderLocalTemplate(tpl string, values interface{}) ([]byte, error) {
	templateObj, err := template.
		New("tpl").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(tpl)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse template %q", tpl)
	}
	return render(templateObj, values)
}

// RenderString renders the template and returns the result with leading and trailing whitespace removed.
func RenderString(tpl string, values interface{}) (string, error) {
	out, err := RenderLocalTemplate(tpl, values)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// RenderStrings renders every template of the list with the same values.
func RenderStrings(tpls []string, values interface{}) ([]string, error) {
	rendered := make([]string, 0, len(tpls))
	for _, tpl := range tpls {
		out, err := RenderString(tpl, values)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, out)
	}
	return rendered, nil
}

// render takes a text/template.Template object <temp> and an interface of <values> which are used to render the
// template. It returns the rendered result as byte slice, or an error if something went wrong.
func render(tpl *template.Template, values interface{}) ([]byte, error) {
	var result bytes.Buffer
	if err := tpl.Execute(&result, values); err != nil {
		return nil, errors.Wrap(err, "unable to render template")
	}
	return result.Bytes(), nil
}
