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
	"github.com/multigres/aggplan/go/shardsplit"
)

// AddSplitCommand adds the split subcommand: parse, optimize, and factor
// the pipeline into its shard-side and merger-side halves.
func AddSplitCommand(root *cobra.Command, ac *AggplanCommand) {
	cmd := &cobra.Command{
		Use:   "split <command-file>",
		Short: "Parse, optimize, and shard-split an aggregation command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ac.parsePipeline(args[0])
			if err != nil {
				ac.logger.Error("failed to parse command", "error", err)
				return err
			}

			shardP, mergerP, err := shardsplit.Split(pipeline)
			if err != nil {
				ac.logger.Error("split failed", "error", err)
				return err
			}

			result := map[string]any{
				"shard":                   pipelinefmt.Serialize(shardP),
				"merger":                  pipelinefmt.Serialize(mergerP),
				"needsPrimaryShardMerger": mergerP.NeedsPrimaryShardMerger(),
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding split output: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
	root.AddCommand(cmd)
}
