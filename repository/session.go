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
	"database/sql"
	"reflect"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/uptrace/bun"
)

// Session is a unit of work. It runs queries on a *bun.DB (auto-commit) or a
// bun.Tx and keeps an identity map holding at most one instance per entity
// type and id. A Session is not safe for concurrent use.
type Session struct {
	db       bun.IDB
	tx       *bun.Tx
	identity map[reflect.Type]map[int64]any
	closed   bool
}

func newSession(db bun.IDB, tx *bun.Tx) *Session {
	return &Session{
		db:       db,
		tx:       tx,
		identity: make(map[reflect.Type]map[int64]any),
	}
}

// OpenSession returns an auto-commit session: every statement commits on its own.
func OpenSession(db bun.IDB) *Session {
	return newSession(db, nil)
}

// BeginSession starts a transaction and returns a session bound to it.
func BeginSession(ctx context.Context, db *bun.DB, opts *sql.TxOptions) (*Session, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return newSession(tx, &tx), nil
}

// RunInSession runs fn in a transactional session. The transaction commits
// when fn returns nil and rolls back when fn fails or panics. fn must not
// commit or roll back the session itself.
func RunInSession(ctx context.Context, db *bun.DB, fn func(ctx context.Context, s *Session) error) error {
	s, err := BeginSession(ctx, db, nil)
	if err != nil {
		return err
	}
	var done bool
	defer func() {
		if !done {
			_ = s.Rollback()
		}
	}()
	if err := fn(ctx, s); err != nil {
		return err
	}
	done = true
	return s.Commit()
}

// DB returns the handle queries run on.
func (s *Session) DB() bun.IDB { return s.db }

// Commit commits the transaction, if any, and ends the session.
func (s *Session) Commit() error {
	if err := s.finish(); err != nil {
		return err
	}
	if s.tx == nil {
		return nil
	}
	database.GetLogger().Debug("Session committed")
	return s.tx.Commit()
}

// Rollback rolls back the transaction, if any, and ends the session.
func (s *Session) Rollback() error {
	if err := s.finish(); err != nil {
		return err
	}
	if s.tx == nil {
		return nil
	}
	database.GetLogger().Debug("Session rolled back")
	return s.tx.Rollback()
}

func (s *Session) finish() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	s.Clear()
	return nil
}

func (s *Session) check() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Clear detaches every managed instance. The next query loads fresh instances.
func (s *Session) Clear() {
	clear(s.identity)
}

// Contains reports whether e is the instance managed for its type and id.
func (s *Session) Contains(e entity.Identifiable) bool {
	if e == nil || e.Identity() == 0 {
		return false
	}
	managed, ok := s.identity[reflect.TypeOf(e)][e.Identity()]
	return ok && managed == any(e)
}

// Detach stops managing e. It is a no-op when e is not managed.
func (s *Session) Detach(e entity.Identifiable) {
	if s.Contains(e) {
		delete(s.identity[reflect.TypeOf(e)], e.Identity())
	}
}

// Size returns the number of managed instances.
func (s *Session) Size() int {
	n := 0
	for _, byID := range s.identity {
		n += len(byID)
	}
	return n
}

func lookup[T any](s *Session, id int64) (*T, bool) {
	e, ok := s.identity[reflect.TypeFor[*T]()][id]
	if !ok {
		return nil, false
	}
	return e.(*T), true
}

func attach[T any](s *Session, id int64, e *T) {
	typ := reflect.TypeFor[*T]()
	byID, ok := s.identity[typ]
	if !ok {
		byID = make(map[int64]any)
		s.identity[typ] = byID
	}
	byID[id] = e
}

func evict[T any](s *Session, id int64) {
	delete(s.identity[reflect.TypeFor[*T]()], id)
}
