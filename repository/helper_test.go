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

package repository

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/uptrace/bun"
)

// newTestDB opens a private in-memory sqlite database with the schema migrated.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())

	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.DBName = "file:" + name + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.MaxIdleConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0

	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(context.Background(), true))
	t.Cleanup(func() { _ = factory.Close() })

	return manager.GetDB()
}

func saveMember(t *testing.T, s *Session, repo MemberRepository, username string, age int, team *entity.Team) *entity.Member {
	t.Helper()
	m, err := repo.Save(context.Background(), s, entity.NewMember(username, age, team))
	require.NoError(t, err)
	return m
}

func saveTeam(t *testing.T, s *Session, repo TeamRepository, name string) *entity.Team {
	t.Helper()
	team, err := repo.Save(context.Background(), s, entity.NewTeam(name))
	require.NoError(t, err)
	return team
}
