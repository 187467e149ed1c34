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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemberJoinsTeam(t *testing.T) {
	team := &Team{ID: 7, Name: "teamA"}
	m := NewMember("member1", 10, team)

	assert.Same(t, team, m.Team)
	assert.Equal(t, int64(7), m.TeamID)
	assert.Equal(t, []*Member{m}, team.Members)

	loner := NewMember("member2", 20, nil)
	assert.Nil(t, loner.Team)
	assert.Zero(t, loner.TeamID)
}

func TestChangeTeamMovesBetweenTeams(t *testing.T) {
	teamA := &Team{ID: 1, Name: "teamA"}
	teamB := &Team{ID: 2, Name: "teamB"}
	m := NewMember("member1", 10, teamA)

	m.ChangeTeam(teamB)

	assert.Same(t, teamB, m.Team)
	assert.Equal(t, int64(2), m.TeamID)
	assert.Empty(t, teamA.Members)
	assert.True(t, teamB.HasMember(m))
}

func TestChangeTeamIsIdempotent(t *testing.T) {
	team := &Team{ID: 1, Name: "teamA"}
	m := NewMember("member1", 10, team)

	m.ChangeTeam(team)
	m.ChangeTeam(team)

	assert.Len(t, team.Members, 1)
}

func TestChangeTeamNilDetaches(t *testing.T) {
	team := &Team{ID: 1, Name: "teamA"}
	m1 := NewMember("member1", 10, team)
	m2 := NewMember("member2", 20, team)

	m1.ChangeTeam(nil)

	assert.Nil(t, m1.Team)
	assert.Zero(t, m1.TeamID)
	assert.Equal(t, []*Member{m2}, team.Members)
}

func TestMemberAndTeamString(t *testing.T) {
	team := &Team{ID: 1, Name: "teamA"}
	m := NewMember("member1", 10, team)
	m.ID = 3

	assert.Equal(t, "Member{id=3, username=member1, age=10}", m.String())
	assert.Equal(t, "Team{id=1, name=teamA}", team.String())
}

func TestNewMemberDto(t *testing.T) {
	team := &Team{ID: 1, Name: "teamA"}
	m := NewMember("member1", 10, team)
	m.ID = 5

	dto, err := NewMemberDto(m)
	require.NoError(t, err)
	assert.Equal(t, MemberDto{ID: 5, Username: "member1", TeamName: "teamA"}, dto)
	assert.Equal(t, "MemberDto{id=5, username=member1, teamName=teamA}", dto.String())

	_, err = NewMemberDto(NewMember("loner", 1, nil))
	assert.True(t, errors.Is(err, ErrTeamNotLoaded))
}
