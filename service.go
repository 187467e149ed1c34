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

// Package datajpa is a member/team repository layer on Bun. The root package
// offers MemberService, which runs repository calls in transactional sessions.
package datajpa

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// ErrDatabaseNotInitialized is returned when the service is bound to the
// global database before it has been initialized.
var ErrDatabaseNotInitialized = errors.New("datajpa: database not initialized")

type MemberService interface {
	// Transactional runs fn in a session that commits when fn returns nil.
	Transactional(ctx context.Context, fn func(ctx context.Context, s *repository.Session) error) error

	// Join creates a member in the team named teamName, creating the team
	// when it does not exist. An empty teamName creates a member without team.
	Join(ctx context.Context, username string, age int, teamName string) (*entity.Member, error)

	// Get returns the member with the given id.
	Get(ctx context.Context, id int64) (types.Optional[entity.Member], error)

	// Usernames returns the usernames of all members.
	Usernames(ctx context.Context) ([]string, error)

	// MemberDtos returns the projections of all members having a team.
	MemberDtos(ctx context.Context) ([]entity.MemberDto, error)

	// PageByAge returns a page of members of the given age as projections.
	// Every member of the page must have a team.
	PageByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[entity.MemberDto], error)

	// BulkAgePlus increments the age of members at least ageThreshold years
	// old within session and clears it, so later reads in the same unit of
	// work load the updated rows. A nil session runs the update in its own
	// transaction.
	BulkAgePlus(ctx context.Context, session *repository.Session, ageThreshold int) (int, error)

	// Leave removes the member from its team.
	Leave(ctx context.Context, memberID int64) error
}

type memberServiceImpl struct {
	conn    *bun.DB
	once    sync.Once
	members repository.MemberRepository
	teams   repository.TeamRepository
}

// NewMemberService returns a MemberService backed by the global database
// connection, resolved on first use.
func NewMemberService() MemberService {
	return newMemberServiceImpl(nil)
}

// NewMemberServiceWithDB returns a MemberService backed by db.
func NewMemberServiceWithDB(db *bun.DB) MemberService {
	return newMemberServiceImpl(db)
}

func newMemberServiceImpl(db *bun.DB) *memberServiceImpl {
	return &memberServiceImpl{
		conn:    db,
		members: repository.NewMemberRepository(),
		teams:   repository.NewTeamRepository(),
	}
}

func (s *memberServiceImpl) db() (*bun.DB, error) {
	s.once.Do(func() {
		if s.conn == nil {
			s.conn = database.GetDB()
		}
	})
	if s.conn == nil {
		return nil, ErrDatabaseNotInitialized
	}
	return s.conn, nil
}

func (s *memberServiceImpl) Transactional(ctx context.Context, fn func(ctx context.Context, s *repository.Session) error) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	return repository.RunInSession(ctx, db, fn)
}

func (s *memberServiceImpl) Join(ctx context.Context, username string, age int, teamName string) (*entity.Member, error) {
	var member *entity.Member
	err := s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		var team *entity.Team
		if teamName != "" {
			found, err := s.teams.FindByName(ctx, session, teamName)
			if err != nil {
				return err
			}
			if team = found.OrElse(nil); team == nil {
				if team, err = s.teams.Save(ctx, session, entity.NewTeam(teamName)); err != nil {
					return err
				}
			}
		}
		saved, err := s.members.Save(ctx, session, entity.NewMember(username, age, team))
		if err != nil {
			return err
		}
		member = saved
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("join %s to team %q: %w", username, teamName, err)
	}
	database.GetLogger().Info("Member joined", "member", member.String(), "team", teamName)
	return member, nil
}

func (s *memberServiceImpl) Get(ctx context.Context, id int64) (types.Optional[entity.Member], error) {
	result := types.Empty[entity.Member]()
	err := s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		var err error
		result, err = s.members.FindByID(ctx, session, id)
		return err
	})
	return result, err
}

func (s *memberServiceImpl) Usernames(ctx context.Context) ([]string, error) {
	var usernames []string
	err := s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		var err error
		usernames, err = s.members.FindUsernameList(ctx, session)
		return err
	})
	return usernames, err
}

func (s *memberServiceImpl) MemberDtos(ctx context.Context) ([]entity.MemberDto, error) {
	var dtos []entity.MemberDto
	err := s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		var err error
		dtos, err = s.members.FindMemberDto(ctx, session)
		return err
	})
	return dtos, err
}

func (s *memberServiceImpl) PageByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[entity.MemberDto], error) {
	var result *types.Page[entity.MemberDto]
	err := s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		members, err := s.members.FindByAge(ctx, session, age, page)
		if err != nil {
			return err
		}
		result, err = types.MapPage(members, entity.NewMemberDto)
		return err
	})
	return result, err
}

func (s *memberServiceImpl) BulkAgePlus(ctx context.Context, session *repository.Session, ageThreshold int) (int, error) {
	if session != nil {
		return s.bulkAgePlus(ctx, session, ageThreshold)
	}
	var affected int
	err := s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		var err error
		affected, err = s.bulkAgePlus(ctx, session, ageThreshold)
		return err
	})
	return affected, err
}

func (s *memberServiceImpl) bulkAgePlus(ctx context.Context, session *repository.Session, ageThreshold int) (int, error) {
	affected, err := s.members.BulkAgePlus(ctx, session, ageThreshold)
	if err != nil {
		return 0, err
	}
	session.Clear()
	return affected, nil
}

func (s *memberServiceImpl) Leave(ctx context.Context, memberID int64) error {
	return s.Transactional(ctx, func(ctx context.Context, session *repository.Session) error {
		found, err := s.members.FindByID(ctx, session, memberID)
		if err != nil {
			return err
		}
		member, ok := found.Get()
		if !ok {
			return fmt.Errorf("member %d: %w", memberID, repository.ErrNotFound)
		}
		member.ChangeTeam(nil)
		_, err = s.members.Save(ctx, session, member)
		return err
	})
}
