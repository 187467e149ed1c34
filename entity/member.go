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

package entity

import (
	"fmt"

	"github.com/uptrace/bun"
)

// Identifiable is implemented by every persistent entity. A zero identity
// means the entity has not been saved yet.
type Identifiable interface {
	Identity() int64
}

// Member is the owning side of the member/team association: team_id lives on
// the member row.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"member_id,pk,autoincrement"`
	Username string `bun:"username"`
	Age      int    `bun:"age,notnull"`
	TeamID   int64  `bun:"team_id,nullzero"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=team_id"`
}

var _ Identifiable = (*Member)(nil)

// NewMember creates an unsaved member and joins team when it is not nil.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

func (m *Member) Identity() int64 { return m.ID }

// ChangeTeam moves the member to team, keeping both sides of the association
// consistent. The member leaves its previous team's collection; a nil team
// detaches it. Calling it twice with the same team is a no-op.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil && m.Team != team {
		m.Team.removeMember(m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = 0
		return
	}
	m.TeamID = team.ID
	if !team.HasMember(m) {
		team.Members = append(team.Members, m)
	}
}

func (m *Member) String() string {
	return fmt.Sprintf("Member{id=%d, username=%s, age=%d}", m.ID, m.Username, m.Age)
}
