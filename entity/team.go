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
	"slices"

	"github.com/uptrace/bun"
)

// Team is the inverse side of the association. Members is never persisted;
// it is rebuilt through Member.ChangeTeam.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64     `bun:"team_id,pk,autoincrement"`
	Name    string    `bun:"name"`
	Members []*Member `bun:"rel:has-many,join:team_id=team_id"`
}

var _ Identifiable = (*Team)(nil)

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) Identity() int64 { return t.ID }

// HasMember reports whether m is in the collection, compared by instance.
func (t *Team) HasMember(m *Member) bool {
	return slices.Contains(t.Members, m)
}

func (t *Team) removeMember(m *Member) {
	t.Members = slices.DeleteFunc(t.Members, func(other *Member) bool { return other == m })
}

func (t *Team) String() string {
	return fmt.Sprintf("Team{id=%d, name=%s}", t.ID, t.Name)
}
