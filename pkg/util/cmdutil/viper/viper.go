// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package viper

import (
	"os"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyAnnotation = "key"
)

// Helper loads a configuration file and writes its values back to the bound flags.
// Flags that are set on the command line take precedence over the configuration file.
type Helper struct {
	viper  *viper.Viper
	pflags map[string]*flag.Flag

	customConfigPath string
}

// NewHelper creates a new helper that searches a configuration file called name in the config paths.
func NewHelper(v *viper.Viper, name string, configPaths ...string) *Helper {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	return &Helper{
		viper:  v,
		pflags: map[string]*flag.Flag{},
	}
}

// InitFlags adds the flag to select a custom configuration file.
func (h *Helper) InitFlags(fs *flag.FlagSet) {
	if fs == nil {
		fs = flag.CommandLine
	}
	fs.StringVar(&h.customConfigPath, "config", "", "path to a configuration file. Defaults to the first config file found in the search paths")
}

// BindPFlag binds a pflag to viper and stores a internal reference
func (h *Helper) BindPFlag(key string, f *flag.Flag) {
	AddCustomConfigForFlag(f, key)
	h.pflags[key] = f
	_ = h.viper.BindPFlag(key, f)
}

// BindPFlags binds all pflag of a flagset to viper and stores a internal reference
func (h *Helper) BindPFlags(fs *flag.FlagSet, keyPrefix string) {
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		key := GetConfigKey(f)
		if keyPrefix != "" {
			key = keyPrefix + "." + key
		}
		h.BindPFlag(key, f)
	})
}

// ReadInConfig loads the custom configuration file or searches one in the config paths.
// A missing configuration file in the search paths is not an error.
func (h *Helper) ReadInConfig() error {
	if h.customConfigPath != "" {
		file, err := os.Open(h.customConfigPath)
		if err != nil {
			return errors.Wrapf(err, "unable to read file from %s", h.customConfigPath)
		}
		defer file.Close()
		if err := h.viper.ReadConfig(file); err != nil {
			return errors.Wrapf(err, "unable to parse config %s", h.customConfigPath)
		}
	} else if err := h.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrapf(err, "unable to read config %s", h.viper.ConfigFileUsed())
		}
		return nil
	}
	return h.ApplyConfig()
}

// ApplyConfig writes configured values back to all bound flags that were not changed on the command line.
func (h *Helper) ApplyConfig() error {
	for key, f := range h.pflags {
		if f.Changed || !h.viper.InConfig(key) {
			continue
		}
		if err := setFlag(f, h.viper.Get(key)); err != nil {
			return errors.Wrapf(err, "invalid value for %s", key)
		}
	}
	return nil
}

// setFlag sets list values item by item so that slice flags get all items of a yaml list.
func setFlag(f *flag.Flag, value interface{}) error {
	if sv, ok := f.Value.(flag.SliceValue); ok {
		if list, ok := value.([]interface{}); ok {
			items := make([]string, 0, len(list))
			for _, item := range list {
				items = append(items, toString(item))
			}
			return sv.Replace(items)
		}
	}
	return f.Value.Set(toString(value))
}
