/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeyValidation(t *testing.T) {
	fkm := &ForeignKeyManager{constraints: []ForeignKeyConstraint{
		{Table: "member", Column: "team_id", ReferenceTable: "team", ReferenceColumn: "team_id", OnDelete: "set null"},
		{Table: "member", Column: "", ReferenceTable: "team", ReferenceColumn: "team_id", OnUpdate: "EXPLODE"},
	}}

	errs := fkm.ValidateConstraints()
	assert.Len(t, errs, 2)
	assert.Len(t, fkm.GetConstraintsByTable("MEMBER"), 2)
	assert.Empty(t, fkm.GetConstraintsByTable("team"))
	assert.Len(t, fkm.ListAllConstraints(), 2)
}

func TestGenerateConstraintName(t *testing.T) {
	fk := ForeignKeyConstraint{Table: "member", Column: "team_id"}
	assert.Equal(t, "fk_member_team_id", fk.GenerateConstraintName())
	fk.ConstraintName = "member_team"
	assert.Equal(t, "member_team", fk.GenerateConstraintName())
}

func TestConfigurableForeignKeyManager(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign_keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
foreign_keys:
  - table: member
    column: team_id
    reference_table: team
    reference_column: team_id
    on_delete: CASCADE
`), 0o600))

	fkm := NewConfigurableForeignKeyManager(GetLogger(), path)
	constraints := fkm.GetConstraintsByTable("member")
	require.Len(t, constraints, 1)
	assert.Equal(t, "CASCADE", constraints[0].OnDelete)
	assert.Empty(t, fkm.ValidateConstraints())

	fallback := NewConfigurableForeignKeyManager(GetLogger(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, getForeignKeyConstraints(), fallback.ListAllConstraints())
}
