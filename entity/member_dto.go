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

import "fmt"

// MemberDto is a read-only projection of a member and the name of its team.
type MemberDto struct {
	ID       int64  `bun:"id" json:"id"`
	Username string `bun:"username" json:"username"`
	TeamName string `bun:"team_name" json:"teamName"`
}

// NewMemberDto projects m; the team must be loaded.
func NewMemberDto(m *Member) (MemberDto, error) {
	if m.Team == nil {
		return MemberDto{}, fmt.Errorf("member %d: %w", m.ID, ErrTeamNotLoaded)
	}
	return MemberDto{ID: m.ID, Username: m.Username, TeamName: m.Team.Name}, nil
}

func (d MemberDto) String() string {
	return fmt.Sprintf("MemberDto{id=%d, username=%s, teamName=%s}", d.ID, d.Username, d.TeamName)
}
