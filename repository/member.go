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

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

var memberSortables = map[string]string{
	"id":       "m.member_id",
	"username": "m.username",
	"age":      "m.age",
}

type memberRepository struct {
	*baseRepositoryImpl[entity.Member]
	teams *baseRepositoryImpl[entity.Team]
}

// NewMemberRepository returns the Bun backed MemberRepository.
func NewMemberRepository() MemberRepository {
	return newMemberRepository()
}

func newMemberRepository() *memberRepository {
	r := &memberRepository{
		baseRepositoryImpl: newBaseRepository[entity.Member]("m.member_id", memberSortables),
		teams:              newTeamBase(),
	}
	r.beforeSave = syncTeamID
	r.merge = mergeMember
	r.resolve = r.resolveTeams
	r.afterDelete = func(m *entity.Member) { m.ChangeTeam(nil) }
	return r
}

// syncTeamID copies the id of the referenced team into the foreign key column.
// A copy of a team the session manages is replaced by the managed instance.
func syncTeamID(s *Session, m *entity.Member) error {
	if m.Team == nil {
		return nil
	}
	if m.Team.ID == 0 {
		return ErrUnsavedReference
	}
	if team, ok := lookup[entity.Team](s, m.Team.ID); ok && team != m.Team {
		m.ChangeTeam(team)
	}
	m.TeamID = m.Team.ID
	return nil
}

// mergeMember copies a detached member into the managed one. The detached copy
// leaves its team so that the collection only holds the managed instance.
func mergeMember(managed, detached *entity.Member) {
	team := detached.Team
	teamID := detached.TeamID
	detached.ChangeTeam(nil)
	managed.Username = detached.Username
	managed.Age = detached.Age
	managed.ChangeTeam(team)
	managed.TeamID = teamID
}

// resolveTeams attaches loaded members to their teams. Teams are looked up in
// the session first and the missing ones are loaded with one query.
func (r *memberRepository) resolveTeams(ctx context.Context, s *Session, members []*entity.Member) error {
	var ids []int64
	seen := make(map[int64]bool)
	for _, m := range members {
		if m.TeamID == 0 || (m.Team != nil && m.Team.ID == m.TeamID) || seen[m.TeamID] {
			continue
		}
		seen[m.TeamID] = true
		ids = append(ids, m.TeamID)
	}

	teams, err := r.teams.findByIDs(ctx, s, ids)
	if err != nil {
		return err
	}
	for _, m := range members {
		switch {
		case m.TeamID == 0:
			if m.Team != nil {
				m.ChangeTeam(nil)
			}
		case m.Team != nil && m.Team.ID == m.TeamID:
			m.ChangeTeam(m.Team)
		default:
			if team, ok := teams[m.TeamID]; ok {
				m.ChangeTeam(team)
			}
		}
	}
	return nil
}

func (r *memberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, s *Session, username string, age int) ([]*entity.Member, error) {
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.orderByPK(q.Where("m.username = ?", username).Where("m.age > ?", age))
	})
}

func (r *memberRepository) FindTop3(ctx context.Context, s *Session) ([]*entity.Member, error) {
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.orderByPK(q).Limit(3)
	})
}

func (r *memberRepository) FindByUsername(ctx context.Context, s *Session, username string) ([]*entity.Member, error) {
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.orderByPK(q.Where("m.username = ?", username))
	})
}

func (r *memberRepository) FindUser(ctx context.Context, s *Session, username string, age int) ([]*entity.Member, error) {
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.orderByPK(q.Where("m.username = ?", username).Where("m.age = ?", age))
	})
}

func (r *memberRepository) FindUsernameList(ctx context.Context, s *Session) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	usernames := make([]string, 0)
	err := r.orderByPK(s.DB().NewSelect().Model((*entity.Member)(nil)).Column("username")).
		Scan(ctx, &usernames)
	if err != nil {
		return nil, translate(err)
	}
	return usernames, nil
}

func (r *memberRepository) FindMemberDto(ctx context.Context, s *Session) ([]entity.MemberDto, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	dtos := make([]entity.MemberDto, 0)
	err := s.DB().NewSelect().
		TableExpr("? AS m", bun.Ident("member")).
		ColumnExpr("m.member_id AS id").
		ColumnExpr("m.username AS username").
		ColumnExpr("t.name AS team_name").
		Join("JOIN ? AS t ON t.team_id = m.team_id", bun.Ident("team")).
		OrderExpr("m.member_id ASC").
		Scan(ctx, &dtos)
	if err != nil {
		return nil, translate(err)
	}
	return dtos, nil
}

func (r *memberRepository) FindByNames(ctx context.Context, s *Session, names []string) ([]*entity.Member, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*entity.Member{}, nil
	}
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.orderByPK(q.Where("m.username IN (?)", bun.In(names)))
	})
}

func (r *memberRepository) FindListByUsername(ctx context.Context, s *Session, username string) ([]*entity.Member, error) {
	return r.FindByUsername(ctx, s, username)
}

func (r *memberRepository) FindMemberByUsername(ctx context.Context, s *Session, username string) (*entity.Member, error) {
	return r.findUnique(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.username = ?", username)
	})
}

func (r *memberRepository) FindOptionalByUsername(ctx context.Context, s *Session, username string) (types.Optional[entity.Member], error) {
	m, err := r.FindMemberByUsername(ctx, s, username)
	if err != nil {
		return types.Empty[entity.Member](), err
	}
	return types.OptionalOf(m), nil
}

func (r *memberRepository) FindByAge(ctx context.Context, s *Session, age int, page *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.page(ctx, s, page, ageEquals(age))
}

func (r *memberRepository) FindSliceByAge(ctx context.Context, s *Session, age int, page *types.PageRequest) (*types.Slice[entity.Member], error) {
	return r.slice(ctx, s, page, ageEquals(age))
}

func (r *memberRepository) FindByPage(ctx context.Context, s *Session, age int, offset int, limit int) ([]*entity.Member, error) {
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return ageEquals(age)(q).
			OrderExpr("m.username DESC").
			Offset(offset).
			Limit(limit)
	})
}

func (r *memberRepository) TotalCount(ctx context.Context, s *Session, age int) (int, error) {
	return r.count(ctx, s, ageEquals(age))
}

func (r *memberRepository) FindByTeam(ctx context.Context, s *Session, team *entity.Team) ([]*entity.Member, error) {
	if team == nil || team.ID == 0 {
		return nil, ErrUnsavedReference
	}
	return r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.orderByPK(q.Where("m.team_id = ?", team.ID))
	})
}

func (r *memberRepository) BulkAgePlus(ctx context.Context, s *Session, ageThreshold int) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	res, err := s.DB().NewUpdate().
		Model((*entity.Member)(nil)).
		Set("age = age + 1").
		Where("age >= ?", ageThreshold).
		Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	database.GetLogger().Debug("Bulk age update executed", "threshold", ageThreshold, "affected", affected)
	return int(affected), nil
}

func ageEquals(age int) queryFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.age = ?", age)
	}
}
