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
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/multigres/aggplan/go/pipelinefmt"
)

// AddWatchCommand adds the watch subcommand: re-parse and re-print explain
// output each time the command document on disk changes, until the
// command's context is canceled (e.g. by Ctrl-C: main.go cancels the root
// context on SIGINT/SIGTERM, and cobra hands it down as cmd.Context()).
func AddWatchCommand(root *cobra.Command, ac *AggplanCommand) {
	cmd := &cobra.Command{
		Use:   "watch <command-file>",
		Short: "Re-plan and re-print explain output whenever the command document changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}

			printExplain := func() {
				pipeline, err := ac.parsePipeline(path)
				if err != nil {
					ac.logger.Error("failed to parse command", "error", err)
					return
				}
				out, err := json.MarshalIndent(pipelinefmt.WriteExplainOps(pipeline), "", "  ")
				if err != nil {
					ac.logger.Error("failed to encode explain output", "error", err)
					return
				}
				cmd.Println(string(out))
			}

			printExplain()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != filepath.Clean(path) {
						continue
					}
					if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
						printExplain()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					ac.logger.Error("watch error", "error", err)
				}
			}
		},
	}
	root.AddCommand(cmd)
}
