// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testingenvironment

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	// HiddenValue replaces secret values in serialized environments.
	HiddenValue = "hidden"

	// NotSet is printed for empty fields when they are requested to be shown.
	NotSet = "<not set>"
)

// field names in serialized form
const (
	FieldArch             = "arch"
	FieldArtifacts        = "artifacts"
	FieldCompose          = "compose"
	FieldExcludedPackages = "excluded_packages"
	FieldHardware         = "hardware"
	FieldKickstart        = "kickstart"
	FieldPool             = "pool"
	FieldSecrets          = "secrets"
	FieldSettings         = "settings"
	FieldSnapshots        = "snapshots"
	FieldTMT              = "tmt"
	FieldVariables        = "variables"
)

// Fields lists all fields of a testing environment in serialization order.
var Fields = []string{
	FieldArch,
	FieldArtifacts,
	FieldCompose,
	FieldExcludedPackages,
	FieldHardware,
	FieldKickstart,
	FieldPool,
	FieldSecrets,
	FieldSettings,
	FieldSnapshots,
	FieldTMT,
	FieldVariables,
}

// Artifact describes an artifact that is installed on a guest during guest setup.
type Artifact struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Packages []string `json:"packages,omitempty"`
	Install  *bool    `json:"install,omitempty"`
}

// TestingEnvironment describes the conditions a test plan should run in.
// It is treated as a value: all methods return copies and never modify the receiver.
type TestingEnvironment struct {
	Arch             string                 `json:"arch,omitempty"`
	Compose          string                 `json:"compose,omitempty"`
	Pool             string                 `json:"pool,omitempty"`
	Snapshots        bool                   `json:"snapshots,omitempty"`
	Variables        map[string]string      `json:"variables,omitempty"`
	Secrets          map[string]string      `json:"secrets,omitempty"`
	Artifacts        []Artifact             `json:"artifacts,omitempty"`
	Hardware         map[string]interface{} `json:"hardware,omitempty"`
	Settings         map[string]interface{} `json:"settings,omitempty"`
	TMT              map[string]interface{} `json:"tmt,omitempty"`
	Kickstart        map[string]string      `json:"kickstart,omitempty"`
	ExcludedPackages []string               `json:"excluded_packages,omitempty"`
}

// Key is the comparable identity of a testing environment.
// Two environments with equal keys can share a guest.
type Key string

// keyFields are the fields that take part in the environment identity.
// Secrets, pool and excluded packages do not change the kind of guest that is needed.
type keyFields struct {
	Arch      string                 `json:"arch"`
	Compose   string                 `json:"compose"`
	Snapshots bool                   `json:"snapshots"`
	Variables map[string]string      `json:"variables"`
	Artifacts []Artifact             `json:"artifacts"`
	Hardware  map[string]interface{} `json:"hardware"`
	Settings  map[string]interface{} `json:"settings"`
	TMT       map[string]interface{} `json:"tmt"`
	Kickstart map[string]string      `json:"kickstart"`
}

// Key returns the structural key of the environment.
// Maps are encoded with sorted keys, so the key does not depend on insertion order.
func (e TestingEnvironment) Key() Key {
	kf := keyFields{
		Arch:      e.Arch,
		Compose:   e.Compose,
		Snapshots: e.Snapshots,
		Variables: emptyAsNil(e.Variables),
		Artifacts: e.Artifacts,
		Hardware:  e.Hardware,
		Settings:  e.Settings,
		TMT:       e.TMT,
		Kickstart: emptyAsNil(e.Kickstart),
	}
	if len(kf.Artifacts) == 0 {
		kf.Artifacts = nil
	}
	if len(kf.Hardware) == 0 {
		kf.Hardware = nil
	}
	if len(kf.Settings) == 0 {
		kf.Settings = nil
	}
	if len(kf.TMT) == 0 {
		kf.TMT = nil
	}
	data, err := json.Marshal(kf)
	if err != nil {
		// values that cannot be encoded never match anything else
		return Key(fmt.Sprintf("%#v", kf))
	}
	return Key(data)
}

// Equal compares two environments by their keys.
func (e TestingEnvironment) Equal(other TestingEnvironment) bool {
	return e.Key() == other.Key()
}

// Clone returns a deep copy of the environment.
func (e TestingEnvironment) Clone() TestingEnvironment {
	c := e
	c.Variables = copyStringMap(e.Variables)
	c.Secrets = copyStringMap(e.Secrets)
	c.Kickstart = copyStringMap(e.Kickstart)
	c.Hardware = copyMap(e.Hardware)
	c.Settings = copyMap(e.Settings)
	c.TMT = copyMap(e.TMT)
	if e.ExcludedPackages != nil {
		c.ExcludedPackages = append([]string{}, e.ExcludedPackages...)
	}
	if e.Artifacts != nil {
		c.Artifacts = make([]Artifact, len(e.Artifacts))
		for i, a := range e.Artifacts {
			c.Artifacts[i] = a
			if a.Packages != nil {
				c.Artifacts[i].Packages = append([]string{}, a.Packages...)
			}
			if a.Install != nil {
				install := *a.Install
				c.Artifacts[i].Install = &install
			}
		}
	}
	return c
}

// CloneWith returns a deep copy of the environment with the given modifications applied.
func (e TestingEnvironment) CloneWith(modifiers ...func(env *TestingEnvironment)) TestingEnvironment {
	c := e.Clone()
	for _, modify := range modifiers {
		modify(&c)
	}
	return c
}

// String returns the serialized environment with hidden secrets.
func (e TestingEnvironment) String() string {
	return e.SerializeToString(true, false)
}

// SerializeToString returns the environment as "key=value" pairs sorted by key and separated by commas.
// Composite values are json encoded.
// If hideSecrets is set, secrets and tmt environment values are replaced by "hidden".
// If showNone is set, empty fields are printed too.
func (e TestingEnvironment) SerializeToString(hideSecrets, showNone bool) string {
	values := e.fieldValues(hideSecrets)
	pairs := make([]string, 0, len(Fields))
	for _, name := range Fields {
		v, ok := values[name]
		if !ok {
			if showNone {
				pairs = append(pairs, fmt.Sprintf("%s=%s", name, NotSet))
			}
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, formatValue(v)))
	}
	return strings.Join(pairs, ",")
}

// SerializeToJSON returns the json representation of the environment.
func (e TestingEnvironment) SerializeToJSON(hideSecrets bool) ([]byte, error) {
	data, err := json.Marshal(e.fieldValues(hideSecrets))
	if err != nil {
		return nil, errors.Wrap(err, "unable to serialize testing environment")
	}
	return data, nil
}

// UnserializeFromJSON parses a json encoded testing environment.
func UnserializeFromJSON(data []byte) (TestingEnvironment, error) {
	env := TestingEnvironment{}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, errors.Wrap(err, "unable to unserialize testing environment")
	}
	return env, nil
}

// UnserializeFromString parses the output of SerializeToString.
func UnserializeFromString(s string) (TestingEnvironment, error) {
	env := TestingEnvironment{}
	s = strings.TrimSpace(s)
	if s == "" {
		return env, nil
	}

	raw := map[string]json.RawMessage{}
	for _, pair := range splitPairs(s) {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return env, errors.Errorf("invalid testing environment pair %q, expected key=value", pair)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !isField(name) {
			return env, errors.Errorf("unknown testing environment field %q", name)
		}
		if value == NotSet {
			continue
		}
		if isScalarField(name) {
			encoded, err := scalarJSON(name, value)
			if err != nil {
				return env, err
			}
			raw[name] = encoded
			continue
		}
		if !json.Valid([]byte(value)) {
			return env, errors.Errorf("value of testing environment field %q is not valid json: %s", name, value)
		}
		raw[name] = json.RawMessage(value)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return env, errors.Wrap(err, "unable to unserialize testing environment")
	}
	return UnserializeFromJSON(data)
}

// fieldValues returns all non empty fields by their serialized name.
func (e TestingEnvironment) fieldValues(hideSecrets bool) map[string]interface{} {
	values := map[string]interface{}{}
	if e.Arch != "" {
		values[FieldArch] = e.Arch
	}
	if len(e.Artifacts) != 0 {
		values[FieldArtifacts] = e.Artifacts
	}
	if e.Compose != "" {
		values[FieldCompose] = e.Compose
	}
	if len(e.ExcludedPackages) != 0 {
		values[FieldExcludedPackages] = e.ExcludedPackages
	}
	if len(e.Hardware) != 0 {
		values[FieldHardware] = e.Hardware
	}
	if len(e.Kickstart) != 0 {
		values[FieldKickstart] = e.Kickstart
	}
	if e.Pool != "" {
		values[FieldPool] = e.Pool
	}
	if len(e.Secrets) != 0 {
		if hideSecrets {
			values[FieldSecrets] = hideValues(e.Secrets)
		} else {
			values[FieldSecrets] = e.Secrets
		}
	}
	if len(e.Settings) != 0 {
		values[FieldSettings] = e.Settings
	}
	if e.Snapshots {
		values[FieldSnapshots] = e.Snapshots
	}
	if len(e.TMT) != 0 {
		if hideSecrets {
			values[FieldTMT] = hideTMTEnvironment(e.TMT)
		} else {
			values[FieldTMT] = e.TMT
		}
	}
	if len(e.Variables) != 0 {
		values[FieldVariables] = e.Variables
	}
	return values
}

func hideValues(m map[string]string) map[string]string {
	hidden := make(map[string]string, len(m))
	for k := range m {
		hidden[k] = HiddenValue
	}
	return hidden
}

// hideTMTEnvironment hides the values of tmt.environment which may carry secrets.
func hideTMTEnvironment(tmt map[string]interface{}) map[string]interface{} {
	c := copyMap(tmt)
	rawEnv, ok := c["environment"]
	if !ok {
		return c
	}
	switch env := rawEnv.(type) {
	case map[string]interface{}:
		for k := range env {
			env[k] = HiddenValue
		}
	case map[string]string:
		c["environment"] = hideValues(env)
	}
	return c
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func isField(name string) bool {
	i := sort.SearchStrings(Fields, name)
	return i < len(Fields) && Fields[i] == name
}

func isScalarField(name string) bool {
	switch name {
	case FieldArch, FieldCompose, FieldPool, FieldSnapshots:
		return true
	}
	return false
}

func scalarJSON(name, value string) (json.RawMessage, error) {
	if name == FieldSnapshots {
		switch strings.ToLower(value) {
		case "true", "yes", "1":
			return json.RawMessage("true"), nil
		case "false", "no", "0":
			return json.RawMessage("false"), nil
		}
		return nil, errors.Errorf("invalid value %q for snapshots, expected a boolean", value)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// splitPairs splits on commas that are not nested in brackets, braces or quotes.
func splitPairs(s string) []string {
	var (
		pairs    []string
		depth    int
		inQuotes bool
		escaped  bool
		start    int
	)
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
		case r == ',' && depth == 0:
			pairs = append(pairs, s[start:i])
			start = i + 1
		}
	}
	return append(pairs, s[start:])
}

func emptyAsNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = copyValue(v)
	}
	return c
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMap(val)
	case map[string]string:
		return copyStringMap(val)
	case []interface{}:
		c := make([]interface{}, len(val))
		for i := range val {
			c[i] = copyValue(val[i])
		}
		return c
	case []string:
		return append([]string{}, val...)
	}
	return v
}
