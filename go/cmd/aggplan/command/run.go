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
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/multigres/aggplan/go/docstore"
	"github.com/multigres/aggplan/go/pipelineparse"
	"github.com/multigres/aggplan/go/pipelinerun"
	"github.com/multigres/aggplan/go/stage"
)

// storeAdapter narrows *docstore.Store's concrete return types down to the
// pipelinerun.DocStore/Cursor interfaces pipelinerun depends on, without
// docstore importing pipelinerun (the IExecute-style collaborator split).
type storeAdapter struct {
	*docstore.Store
}

func (s storeAdapter) OpenCursor(ctx context.Context, ns stage.Namespace, query map[string]any) (pipelinerun.Cursor, error) {
	return s.Store.OpenCursor(ctx, ns, query)
}

// AddRunCommand adds the run subcommand.
func AddRunCommand(root *cobra.Command, ac *AggplanCommand) {
	cmd := &cobra.Command{
		Use:   "run <command-file>",
		Short: "Parse, optimize, and run an aggregation command against a document store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := cmd.Flags().GetString("dsn")
			if err != nil || dsn == "" {
				return fmt.Errorf("--dsn is required")
			}

			pipeline, err := ac.parsePipeline(args[0])
			if err != nil {
				ac.logger.Error("failed to parse command", "error", err)
				return err
			}
			if pipeline.Explain {
				return fmt.Errorf("command document has explain set; use 'aggplan explain' instead")
			}

			ctx := cmd.Context()
			store, err := docstore.Open(ctx, dsn)
			if err != nil {
				ac.logger.Error("failed to open document store", "error", err)
				return err
			}
			defer store.Close()

			result, err := pipelinerun.Run(ctx, pipeline, storeAdapter{store}, ac.cfg.MaxResultBytes)
			if err != nil {
				ac.logger.Error("run failed", "error", err)
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
	cmd.Flags().String("dsn", "", "Postgres connection string for the document store (required)")
	root.AddCommand(cmd)
}

// parsePipeline loads, parses, validates, and optimizes the command
// document at path.
func (ac *AggplanCommand) parsePipeline(path string) (*stage.Pipeline, error) {
	doc, err := loadCommandDocument(ac.fs, path)
	if err != nil {
		return nil, err
	}

	pipeline, err := pipelineparse.ParseCommand(doc, nil)
	if err != nil {
		return nil, err
	}
	if err := validateNamespaces(pipeline); err != nil {
		return nil, err
	}
	for _, priv := range requiredPrivileges(pipeline) {
		ac.logger.Debug("required privilege", "privilege", priv.String())
	}

	ac.cfg.Optimize(pipeline)
	return pipeline, nil
}
