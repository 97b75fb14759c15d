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

package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/multigres/aggplan/go/pipelinefmt"
)

// AddExplainCommand adds the explain subcommand: parse, optimize, and
// render the pipeline's verbose per-stage form without running it.
func AddExplainCommand(root *cobra.Command, ac *AggplanCommand) {
	cmd := &cobra.Command{
		Use:   "explain <command-file>",
		Short: "Parse and optimize an aggregation command, printing its explain output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ac.parsePipeline(args[0])
			if err != nil {
				ac.logger.Error("failed to parse command", "error", err)
				return err
			}

			ops := pipelinefmt.WriteExplainOps(pipeline)
			out, err := json.MarshalIndent(ops, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding explain output: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
	root.AddCommand(cmd)
}
