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

// aggplan parses, optimizes, explains, splits, and runs MongoDB-style
// aggregation pipelines against Postgres-backed document collections.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/multigres/aggplan/go/cmd/aggplan/command"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root, _ := command.GetRootCommand()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		slog.Error("aggplan failed", "error", err)
		os.Exit(1)
	}
}
