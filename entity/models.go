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

import "github.com/tomoncle/datajpa/database"

// Teams are created before members, member.team_id references them.
func init() {
	database.RegisteredModel(database.NewModelAdapter((*Team)(nil), 1))
	database.RegisteredModel(database.NewModelAdapter((*Member)(nil), 2))
	database.RegisterForeignKey(database.ForeignKeyConstraint{
		Table:           "member",
		Column:          "team_id",
		ReferenceTable:  "team",
		ReferenceColumn: "team_id",
		OnDelete:        "SET NULL",
	})
}
