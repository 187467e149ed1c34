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
	"slices"

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

var teamSortables = map[string]string{
	"id":   "t.team_id",
	"name": "t.name",
}

type teamRepository struct {
	*baseRepositoryImpl[entity.Team]
	members *memberRepository
}

// NewTeamRepository returns the Bun backed TeamRepository.
func NewTeamRepository() TeamRepository {
	return &teamRepository{
		baseRepositoryImpl: newTeamBase(),
		members:            newMemberRepository(),
	}
}

func newTeamBase() *baseRepositoryImpl[entity.Team] {
	r := newBaseRepository[entity.Team]("t.team_id", teamSortables)
	r.merge = func(managed, detached *entity.Team) {
		managed.Name = detached.Name
	}
	// member.team_id is set to NULL by the store.
	r.afterDelete = func(t *entity.Team) {
		for _, m := range slices.Clone(t.Members) {
			m.ChangeTeam(nil)
		}
	}
	return r
}

func (r *teamRepository) FindByName(ctx context.Context, s *Session, name string) (types.Optional[entity.Team], error) {
	t, err := r.findUnique(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("t.name = ?", name)
	})
	if err != nil {
		return types.Empty[entity.Team](), err
	}
	return types.OptionalOf(t), nil
}

func (r *teamRepository) LoadMembers(ctx context.Context, s *Session, team *entity.Team) ([]*entity.Member, error) {
	members, err := r.members.FindByTeam(ctx, s, team)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.TeamID == team.ID {
			m.ChangeTeam(team)
		}
	}
	return members, nil
}
