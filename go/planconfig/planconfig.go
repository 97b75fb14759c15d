// Copyright 2026 The Aggplan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package planconfig is the planner-wide settings layer: allowDiskUse's
// default, the result byte-size cap, and which local-optimizer passes are
// enabled. Sources merge flag > env > config file > default, the order
// viper applies automatically once flags are bound and AutomaticEnv is on.
package planconfig

import (
	"errors"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/multigres/aggplan/go/optimize"
	"github.com/multigres/aggplan/go/stage"
)

// EnvPrefix namespaces every environment variable this package reads.
// viper's AutomaticEnv uppercases the bare key, so the three recognized
// variables are AGGPLAN_ALLOWDISKUSE, AGGPLAN_MAXRESULTBYTES, and
// AGGPLAN_DISABLEDPASSES (comma-separated for the slice).
const EnvPrefix = "AGGPLAN"

// DefaultMaxResultBytes matches go/pipelinerun's own default; kept as an
// independent constant here rather than an import so config loading never
// needs to reach into the runner package just to know its own default.
const DefaultMaxResultBytes = 16 * 1024 * 1024

// Config is the planner-wide settings this core reads at startup.
type Config struct {
	AllowDiskUse bool `mapstructure:"allowDiskUse"`

	// MaxResultBytes bounds go/pipelinerun.Run's result accumulation.
	MaxResultBytes int `mapstructure:"maxResultBytes"`

	// DisabledPasses names local-optimizer passes (by the same names
	// optimize.PassNames lists) to skip — a feature-flag knob a test
	// harness uses to assert a pipeline's "before" shape.
	DisabledPasses []string `mapstructure:"disabledPasses"`
}

// Default returns the zero-configuration settings: disk spill off, the
// historical 16MB result cap, every optimizer pass enabled.
func Default() *Config {
	return &Config{
		AllowDiskUse:   false,
		MaxResultBytes: DefaultMaxResultBytes,
		DisabledPasses: nil,
	}
}

// DisabledPassSet builds the map optimize.PipelineWithOptions expects,
// from cfg.DisabledPasses.
func (cfg *Config) DisabledPassSet() map[string]bool {
	if len(cfg.DisabledPasses) == 0 {
		return nil
	}
	out := make(map[string]bool, len(cfg.DisabledPasses))
	for _, name := range cfg.DisabledPasses {
		out[name] = true
	}
	return out
}

// Optimize runs optimize.PipelineWithOptions over p using cfg's disabled
// pass set.
func (cfg *Config) Optimize(p *stage.Pipeline) {
	optimize.PipelineWithOptions(p, cfg.DisabledPassSet())
}

// RegisterFlags installs the pflag flags Load binds into viper.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Bool("allow-disk-use", false, "enable external sort/group spilling by default")
	fs.Int("max-result-bytes", DefaultMaxResultBytes, "running byte-size bound enforced on run's result array")
	fs.StringSlice("disabled-passes", nil, "local-optimizer passes to skip (repeatable)")
}

// Load merges, in increasing precedence, Default(), a config file located
// via fsys (if configFile is non-empty), AGGPLAN_-prefixed environment
// variables, and any flags in fs that were actually set.
//
// A missing config file is not an error (the caller may be running with
// flags and environment variables alone); any other read failure is.
func Load(fsys afero.Fs, fs *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	v.SetFs(fsys)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("allowDiskUse", def.AllowDiskUse)
	v.SetDefault("maxResultBytes", def.MaxResultBytes)
	v.SetDefault("disabledPasses", def.DisabledPasses)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	// BindPFlag per key rather than BindPFlags(fs) wholesale: pflag names
	// are dash-case ("allow-disk-use") but the config keys are camelCase
	// to match the struct's mapstructure tags, so each flag needs to be
	// bound under its config key explicitly rather than its own name.
	if fs != nil {
		bindings := map[string]string{
			"allowDiskUse":   "allow-disk-use",
			"maxResultBytes": "max-result-bytes",
			"disabledPasses": "disabled-passes",
		}
		for key, flagName := range bindings {
			flag := fs.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
