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

package datajpa

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

func memoryConfig(name string) *database.Config {
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.DBName = "file:" + strings.ReplaceAll(name, "/", "_") + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.MaxIdleConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return cfg
}

func newTestService(t *testing.T) (MemberService, *bun.DB) {
	t.Helper()
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(memoryConfig(t.Name()))
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(context.Background(), true))
	t.Cleanup(func() { _ = factory.Close() })
	return NewMemberServiceWithDB(manager.GetDB()), manager.GetDB()
}

func TestJoinAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	member1, err := svc.Join(ctx, "member1", 10, "teamA")
	require.NoError(t, err)
	member2, err := svc.Join(ctx, "member2", 20, "teamA")
	require.NoError(t, err)
	loner, err := svc.Join(ctx, "loner", 30, "")
	require.NoError(t, err)

	require.NotNil(t, member1.Team)
	assert.Equal(t, member1.TeamID, member2.TeamID)
	assert.Nil(t, loner.Team)

	found, err := svc.Get(ctx, member1.ID)
	require.NoError(t, err)
	got, ok := found.Get()
	require.True(t, ok)
	assert.Equal(t, "member1", got.Username)
	require.NotNil(t, got.Team)
	assert.Equal(t, "teamA", got.Team.Name)

	found, err = svc.Get(ctx, loner.ID+100)
	require.NoError(t, err)
	assert.True(t, found.IsEmpty())

	usernames, err := svc.Usernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member1", "member2", "loner"}, usernames)

	dtos, err := svc.MemberDtos(ctx)
	require.NoError(t, err)
	assert.Len(t, dtos, 2)
}

func TestPageByAge(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for i := 1; i <= 5; i++ {
		_, err := svc.Join(ctx, fmt.Sprintf("member%d", i), 10, "teamA")
		require.NoError(t, err)
	}

	page, err := svc.PageByAge(ctx, 10, types.PageOf(0, 3, types.SortBy(types.DESC, "username")))
	require.NoError(t, err)
	require.Len(t, page.Content, 3)
	assert.Equal(t, "member5", page.Content[0].Username)
	assert.Equal(t, "teamA", page.Content[0].TeamName)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	assert.True(t, page.IsFirst())
	assert.True(t, page.HasNext())

	_, err = svc.Join(ctx, "loner", 20, "")
	require.NoError(t, err)
	_, err = svc.PageByAge(ctx, 20, types.PageOf(0, 3))
	assert.ErrorIs(t, err, entity.ErrTeamNotLoaded)
}

func TestServiceBulkAgePlus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var member3 *entity.Member
	for i, age := range []int{10, 20, 30, 40, 50} {
		m, err := svc.Join(ctx, fmt.Sprintf("member%d", i+1), age, "teamA")
		require.NoError(t, err)
		if age == 30 {
			member3 = m
		}
	}

	affected, err := svc.BulkAgePlus(ctx, nil, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, affected)

	found, err := svc.Get(ctx, member3.ID)
	require.NoError(t, err)
	got, ok := found.Get()
	require.True(t, ok)
	assert.Equal(t, 31, got.Age)

	members := repository.NewMemberRepository()
	err = svc.Transactional(ctx, func(ctx context.Context, s *repository.Session) error {
		before, err := members.FindByID(ctx, s, member3.ID)
		require.NoError(t, err)
		stale, ok := before.Get()
		require.True(t, ok)

		affected, err := svc.BulkAgePlus(ctx, s, 30)
		require.NoError(t, err)
		assert.Equal(t, 3, affected)
		assert.False(t, s.Contains(stale))
		assert.Equal(t, 31, stale.Age)

		after, err := members.FindByID(ctx, s, member3.ID)
		require.NoError(t, err)
		reloaded, ok := after.Get()
		require.True(t, ok)
		assert.NotSame(t, stale, reloaded)
		assert.Equal(t, 32, reloaded.Age)
		return nil
	})
	require.NoError(t, err)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	member, err := svc.Join(ctx, "member1", 10, "teamA")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, member.ID))
	dtos, err := svc.MemberDtos(ctx)
	require.NoError(t, err)
	assert.Empty(t, dtos)

	assert.ErrorIs(t, svc.Leave(ctx, member.ID+100), repository.ErrNotFound)
}

func TestTransactionalRollback(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	err := svc.Transactional(ctx, func(ctx context.Context, s *repository.Session) error {
		_, err := repository.NewMemberRepository().Save(ctx, s, entity.NewMember("member1", 10, nil))
		require.NoError(t, err)
		return repository.ErrUnsavedReference
	})
	assert.ErrorIs(t, err, repository.ErrUnsavedReference)

	count, err := repository.NewMemberRepository().Count(ctx, repository.OpenSession(db))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceWithGlobalDatabase(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, database.CloseDB())

	_, err := NewMemberService().Usernames(ctx)
	assert.ErrorIs(t, err, ErrDatabaseNotInitialized)

	_, err = database.InitDatabaseWithOptions(ctx, memoryConfig(t.Name()), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	svc := NewMemberService()
	_, err = svc.Join(ctx, "member1", 10, "teamA")
	require.NoError(t, err)
	usernames, err := svc.Usernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member1"}, usernames)
}
