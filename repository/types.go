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

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
// Every call runs in the given session and reconciles results with its
// identity map.
type CrudRepository[T any] interface {
	// Save inserts an entity without identity and upserts one with identity.
	// The returned pointer is the instance managed by the session.
	Save(ctx context.Context, s *Session, entity *T) (*T, error)

	FindByID(ctx context.Context, s *Session, id int64) (types.Optional[T], error)

	FindAll(ctx context.Context, s *Session) ([]*T, error)

	Count(ctx context.Context, s *Session) (int, error)

	// Delete removes the row of entity and evicts it from the session.
	Delete(ctx context.Context, s *Session, entity *T) error

	// Refresh reloads the row of entity into the same instance. A copy of an
	// entity the session already manages is reloaded but stays detached.
	Refresh(ctx context.Context, s *Session, entity *T) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	FindAllPage(ctx context.Context, s *Session, page *types.PageRequest) (*types.Page[T], error)
}

// Repository combines CRUD and pagination.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
}

// MemberRepository is the member repository with its derived queries.
// Sortable properties are id, username and age.
type MemberRepository interface {
	Repository[entity.Member]

	FindByUsernameAndAgeGreaterThan(ctx context.Context, s *Session, username string, age int) ([]*entity.Member, error)

	// FindTop3 returns the first three members by id.
	FindTop3(ctx context.Context, s *Session) ([]*entity.Member, error)

	FindByUsername(ctx context.Context, s *Session, username string) ([]*entity.Member, error)

	FindUser(ctx context.Context, s *Session, username string, age int) ([]*entity.Member, error)

	FindUsernameList(ctx context.Context, s *Session) ([]string, error)

	// FindMemberDto projects members joined with their team; members without
	// a team are not returned.
	FindMemberDto(ctx context.Context, s *Session) ([]entity.MemberDto, error)

	FindByNames(ctx context.Context, s *Session, names []string) ([]*entity.Member, error)

	FindListByUsername(ctx context.Context, s *Session, username string) ([]*entity.Member, error)

	// FindMemberByUsername returns nil when nothing matches and
	// ErrAmbiguousResult when more than one member matches.
	FindMemberByUsername(ctx context.Context, s *Session, username string) (*entity.Member, error)

	FindOptionalByUsername(ctx context.Context, s *Session, username string) (types.Optional[entity.Member], error)

	FindByAge(ctx context.Context, s *Session, age int, page *types.PageRequest) (*types.Page[entity.Member], error)

	FindSliceByAge(ctx context.Context, s *Session, age int, page *types.PageRequest) (*types.Slice[entity.Member], error)

	// FindByPage returns members of the given age ordered by username descending.
	FindByPage(ctx context.Context, s *Session, age int, offset int, limit int) ([]*entity.Member, error)

	TotalCount(ctx context.Context, s *Session, age int) (int, error)

	FindByTeam(ctx context.Context, s *Session, team *entity.Team) ([]*entity.Member, error)

	// BulkAgePlus increments the age of every member at least ageThreshold
	// years old directly in the store and returns the affected row count.
	// Managed instances keep their old age until the session is cleared or
	// they are refreshed.
	BulkAgePlus(ctx context.Context, s *Session, ageThreshold int) (int, error)
}

// TeamRepository is the team repository. Sortable properties are id and name.
type TeamRepository interface {
	Repository[entity.Team]

	FindByName(ctx context.Context, s *Session, name string) (types.Optional[entity.Team], error)

	// LoadMembers loads the members of team and adds them to team.Members.
	LoadMembers(ctx context.Context, s *Session, team *entity.Team) ([]*entity.Member, error)
}
