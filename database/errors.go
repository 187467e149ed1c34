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

package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
)

func (e SQLError) String() string {
	switch e {
	case NoRowsErr:
		return "no rows"
	case NoColumnErr:
		return "no such column"
	case NoTableErr:
		return "no such table"
	case ExistTableErr:
		return "table exists"
	case DuplicateKeyErr:
		return "duplicate key"
	case NotNullViolationErr:
		return "not null violation"
	case ForeignKeyViolationErr:
		return "foreign key violation"
	case CheckConstraintViolationErr:
		return "check constraint violation"
	case DataTruncatedErr:
		return "data truncated"
	default:
		return "unknown"
	}
}

// IsConstraintViolation reports whether the store rejected a write because of
// an integrity constraint.
func (e SQLError) IsConstraintViolation() bool {
	switch e {
	case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
		return true
	}
	return false
}

var mysqlErrors = map[uint16]SQLError{
	1054: NoColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
}

var postgresErrors = map[pq.ErrorCode]SQLError{
	"42703": NoColumnErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
}

// textPatterns covers postgres (lib/pq, SQLSTATE) and sqlite messages.
var textPatterns = []struct {
	kind     SQLError
	patterns []string
}{
	{NoColumnErr, []string{"sqlstate 42703", "undefined column", "no such column"}},
	{NoTableErr, []string{"sqlstate 42p01", "undefined table", "no such table"}},
	{DuplicateKeyErr, []string{"duplicate key value", "unique constraint failed", "sqlstate 23505"}},
	{NotNullViolationErr, []string{"not-null constraint", "sqlstate 23502", "not null constraint failed"}},
	{ForeignKeyViolationErr, []string{"foreign key violation", "violates foreign key constraint", "foreign key constraint failed", "sqlstate 23503"}},
	{CheckConstraintViolationErr, []string{"check constraint", "sqlstate 23514"}},
	{DataTruncatedErr, []string{"string data right truncation", "sqlstate 22001", "data truncated"}},
}

// IsSqlError classifies err as a store error. The boolean is false when err
// does not look like a store error at all.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrors[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := postgresErrors[pqErr.Code]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "already exists") && (strings.Contains(s, "table") || strings.Contains(s, "relation")) {
		return true, ExistTableErr
	}
	for _, tp := range textPatterns {
		for _, p := range tp.patterns {
			if strings.Contains(s, p) {
				return true, tp.kind
			}
		}
	}
	return false, UnknownErr
}

// Classify returns the kind of store error, UnknownErr when unrecognized.
func Classify(err error) SQLError {
	_, kind := IsSqlError(err)
	return kind
}
