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

// Package command implements the aggplan CLI: run, explain, split, and
// watch subcommands over an aggregation command document. This is the
// "outer command dispatcher" spec.md §1 treats as an external collaborator
// — the only layer that logs parse/run errors before exiting (spec §7's
// propagation policy leaves logging to the caller).
package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/multigres/aggplan/go/planconfig"
)

// AggplanCommand holds the configuration shared by every subcommand.
type AggplanCommand struct {
	fs     afero.Fs
	cfg    *planconfig.Config
	logger *slog.Logger
}

// GetRootCommand builds the root command and its subcommand tree.
func GetRootCommand() (*cobra.Command, *AggplanCommand) {
	ac := &AggplanCommand{fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:   "aggplan",
		Short: "Plan, split, and run MongoDB-style aggregation pipelines over Postgres-backed collections",
		Long: `aggplan parses an aggregation command document, optimizes it with a fixed
set of rewrite passes, and either runs it against a document store, renders
its explain output, or splits it into a shard-side/merger-side pair.

Configuration is layered flag > env > config file > default:
  1. Flags on this command
  2. AGGPLAN_-prefixed environment variables
  3. The file named by --config-file, if any
  4. Built-in defaults`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			ac.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			configFile, _ := cmd.Flags().GetString("config-file")
			cfg, err := planconfig.Load(ac.fs, cmd.Flags(), configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			ac.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().String("config-file", "", "path to a YAML/TOML/JSON config file")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	planconfig.RegisterFlags(root.PersistentFlags())

	AddRunCommand(root, ac)
	AddExplainCommand(root, ac)
	AddSplitCommand(root, ac)
	AddWatchCommand(root, ac)

	return root, ac
}
