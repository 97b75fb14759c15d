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
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multigres/aggplan/go/planconfig"
	"github.com/multigres/aggplan/go/stage"
)

func newTestCommand(fsys afero.Fs) *AggplanCommand {
	return &AggplanCommand{fs: fsys, cfg: planconfig.Default(), logger: slog.Default()}
}

func TestLoadCommandDocumentParsesJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cmd.json", []byte(`{"aggregate":"orders","pipeline":[]}`), 0o644))

	doc, err := loadCommandDocument(fsys, "/cmd.json")
	require.NoError(t, err)
	assert.Equal(t, "orders", doc["aggregate"])
}

func TestLoadCommandDocumentParsesYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cmd.yaml", []byte("aggregate: orders\npipeline:\n  - $match:\n      a: 1\n"), 0o644))

	doc, err := loadCommandDocument(fsys, "/cmd.yaml")
	require.NoError(t, err)
	assert.Equal(t, "orders", doc["aggregate"])
	pipeline, ok := doc["pipeline"].([]any)
	require.True(t, ok)
	require.Len(t, pipeline, 1)
	elem, ok := pipeline[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, elem, "$match")
}

func TestLoadCommandDocumentFailsOnMissingFile(t *testing.T) {
	_, err := loadCommandDocument(afero.NewMemMapFs(), "/missing.json")
	assert.Error(t, err)
}

func TestRequiredPrivilegesIncludesOutAndLookup(t *testing.T) {
	p := stage.NewPipeline(&stage.ExpressionContext{InputNamespace: stage.Namespace{Collection: "orders"}})
	p.Stages = []stage.Stage{
		stage.NewLookup("customers", "customerId", "_id", "customer"),
		stage.NewOut("results"),
	}

	privs := requiredPrivileges(p)
	assert.Contains(t, privs, Privilege{Namespace: stage.Namespace{Collection: "orders"}, Action: ActionFind})
	assert.Contains(t, privs, Privilege{Namespace: stage.Namespace{Collection: "customers"}, Action: ActionFind})
	assert.Contains(t, privs, Privilege{Namespace: stage.Namespace{Collection: "results"}, Action: ActionInsert})
	assert.Contains(t, privs, Privilege{Namespace: stage.Namespace{Collection: "results"}, Action: ActionRemove})
}

func TestValidateNamespacesRejectsInvalidInput(t *testing.T) {
	p := stage.NewPipeline(&stage.ExpressionContext{InputNamespace: stage.Namespace{Collection: ""}})
	err := validateNamespaces(p)
	assert.Error(t, err)
}

func TestValidateNamespacesAcceptsWellFormedPipeline(t *testing.T) {
	p := stage.NewPipeline(&stage.ExpressionContext{InputNamespace: stage.Namespace{Collection: "orders"}})
	p.Stages = []stage.Stage{stage.NewOut("results")}
	assert.NoError(t, validateNamespaces(p))
}

func TestParsePipelineOptimizesCoalescableStages(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cmd.json", []byte(
		`{"aggregate":"orders","pipeline":[{"$sort":{"x":1}},{"$limit":5}]}`), 0o644))

	ac := newTestCommand(fsys)
	pipeline, err := ac.parsePipeline("/cmd.json")
	require.NoError(t, err)
	assert.Equal(t, 1, pipeline.Len())
}

func TestGetRootCommandWiresAllSubcommands(t *testing.T) {
	root, _ := GetRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["explain"])
	assert.True(t, names["split"])
	assert.True(t, names["watch"])
}
