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
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type queryFunc func(q *bun.SelectQuery) *bun.SelectQuery

type baseRepositoryImpl[T any] struct {
	pk        string
	sortables map[string]string

	// Optional entity specific behavior.
	beforeSave  func(s *Session, e *T) error
	merge       func(managed, detached *T)
	resolve     func(ctx context.Context, s *Session, loaded []*T) error
	afterDelete func(e *T)
}

// NewRepository returns a generic repository for the Bun model T, whose
// pointer must implement entity.Identifiable. pk is the alias qualified
// primary key column, e.g. "m.member_id"; sortables maps sort properties to
// alias qualified columns.
func NewRepository[T any](pk string, sortables map[string]string) Repository[T] {
	return newBaseRepository[T](pk, sortables)
}

func newBaseRepository[T any](pk string, sortables map[string]string) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{pk: pk, sortables: sortables}
}

func identity[T any](e *T) int64 {
	return any(e).(entity.Identifiable).Identity()
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, s *Session, e *T) (*T, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if r.beforeSave != nil {
		if err := r.beforeSave(s, e); err != nil {
			return nil, err
		}
	}

	id := identity(e)
	if id == 0 {
		if _, err := s.DB().NewInsert().Model(e).Exec(ctx); err != nil {
			return nil, translate(err)
		}
		attach(s, identity(e), e)
		return e, nil
	}

	if err := r.upsert(ctx, s.DB(), e); err != nil {
		return nil, translate(err)
	}
	if m, ok := lookup[T](s, id); ok && m != e {
		if r.merge != nil {
			r.merge(m, e)
		} else {
			*m = *e
		}
		return m, nil
	}
	attach(s, id, e)
	return e, nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, s *Session, id int64) (types.Optional[T], error) {
	if err := s.check(); err != nil {
		return types.Empty[T](), err
	}
	if m, ok := lookup[T](s, id); ok {
		return types.OptionalOf(m), nil
	}
	rows, err := r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(r.pk), id)
	})
	if err != nil || len(rows) == 0 {
		return types.Empty[T](), err
	}
	return types.OptionalOf(rows[0]), nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context, s *Session) ([]*T, error) {
	return r.find(ctx, s, r.orderByPK)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, s *Session) (int, error) {
	return r.count(ctx, s, nil)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, s *Session, e *T) error {
	if err := s.check(); err != nil {
		return err
	}
	id := identity(e)
	if id == 0 {
		return fmt.Errorf("%w: %T without identity", ErrNotFound, e)
	}
	res, err := s.DB().NewDelete().Model(e).WherePK().Exec(ctx)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %T id=%d", ErrNotFound, e, id)
	}

	m, ok := lookup[T](s, id)
	evict[T](s, id)
	if r.afterDelete != nil {
		r.afterDelete(e)
		if ok && m != e {
			r.afterDelete(m)
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Refresh(ctx context.Context, s *Session, e *T) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.DB().NewSelect().Model(e).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %T id=%d", ErrNotFound, e, identity(e))
		}
		return translate(err)
	}
	// A copy of a managed entity is reloaded but stays out of the object graph.
	if m, ok := lookup[T](s, identity(e)); ok && m != e {
		return nil
	}
	attach(s, identity(e), e)
	if r.resolve != nil {
		return r.resolve(ctx, s, []*T{e})
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindAllPage(ctx context.Context, s *Session, page *types.PageRequest) (*types.Page[T], error) {
	return r.page(ctx, s, page, nil)
}

// fetch scans the rows selected by build without touching the session.
func (r *baseRepositoryImpl[T]) fetch(ctx context.Context, s *Session, build queryFunc) ([]*T, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows := make([]*T, 0)
	q := s.DB().NewSelect().Model(&rows)
	if build != nil {
		q = build(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// manage replaces rows whose id is already managed by the managed instance
// and attaches the others. Managed instances are returned unchanged.
func (r *baseRepositoryImpl[T]) manage(ctx context.Context, s *Session, rows []*T) ([]*T, error) {
	loaded := make([]*T, 0, len(rows))
	for i, row := range rows {
		id := identity(row)
		if m, ok := lookup[T](s, id); ok {
			rows[i] = m
			continue
		}
		attach(s, id, row)
		loaded = append(loaded, row)
	}
	if r.resolve != nil && len(loaded) > 0 {
		if err := r.resolve(ctx, s, loaded); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (r *baseRepositoryImpl[T]) find(ctx context.Context, s *Session, build queryFunc) ([]*T, error) {
	rows, err := r.fetch(ctx, s, build)
	if err != nil {
		return nil, err
	}
	return r.manage(ctx, s, rows)
}

// findUnique returns nil when nothing matches and ErrAmbiguousResult when
// more than one row matches.
func (r *baseRepositoryImpl[T]) findUnique(ctx context.Context, s *Session, build queryFunc) (*T, error) {
	rows, err := r.fetch(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return build(q).Limit(2)
	})
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		if rows, err = r.manage(ctx, s, rows); err != nil {
			return nil, err
		}
		return rows[0], nil
	default:
		return nil, ErrAmbiguousResult
	}
}

// findByIDs returns the entities with the given ids, serving managed ones
// from the session and loading the rest with a single query.
func (r *baseRepositoryImpl[T]) findByIDs(ctx context.Context, s *Session, ids []int64) (map[int64]*T, error) {
	result := make(map[int64]*T, len(ids))
	var missing []int64
	for _, id := range ids {
		if m, ok := lookup[T](s, id); ok {
			result[id] = m
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}
	rows, err := r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? IN (?)", bun.Ident(r.pk), bun.In(missing))
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[identity(row)] = row
	}
	return result, nil
}

func (r *baseRepositoryImpl[T]) count(ctx context.Context, s *Session, build queryFunc) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	q := s.DB().NewSelect().Model((*T)(nil))
	if build != nil {
		q = build(q)
	}
	total, err := q.Count(ctx)
	return total, translate(err)
}

func (r *baseRepositoryImpl[T]) page(ctx context.Context, s *Session, pageRequest *types.PageRequest, build queryFunc) (*types.Page[T], error) {
	if pageRequest == nil {
		pageRequest = types.PageOf(0, types.DefaultPageSize)
	}
	order, err := r.orderBy(pageRequest.GetSort())
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPage[T](pageRequest)
	total, err := r.count(ctx, s, build)
	if err != nil || total == 0 {
		return pagination, err
	}
	rows, err := r.find(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		if build != nil {
			q = build(q)
		}
		return order(q).
			Offset(pageRequest.GetOffset()).
			Limit(pageRequest.GetPageSize())
	})
	if err != nil {
		return nil, err
	}
	return types.NewPage(rows, pageRequest, total), nil
}

// slice fetches one row beyond the page size to learn whether a next slice exists.
func (r *baseRepositoryImpl[T]) slice(ctx context.Context, s *Session, pageRequest *types.PageRequest, build queryFunc) (*types.Slice[T], error) {
	if pageRequest == nil {
		pageRequest = types.PageOf(0, types.DefaultPageSize)
	}
	order, err := r.orderBy(pageRequest.GetSort())
	if err != nil {
		return nil, err
	}
	size := pageRequest.GetPageSize()
	rows, err := r.fetch(ctx, s, func(q *bun.SelectQuery) *bun.SelectQuery {
		if build != nil {
			q = build(q)
		}
		return order(q).
			Offset(pageRequest.GetOffset()).
			Limit(size + 1)
	})
	if err != nil {
		return nil, err
	}
	hasNext := len(rows) > size
	if hasNext {
		rows = rows[:size]
	}
	if rows, err = r.manage(ctx, s, rows); err != nil {
		return nil, err
	}
	return types.NewSlice(rows, pageRequest, hasNext), nil
}

// orderBy maps sort properties to whitelisted columns. The primary key ends
// every order so that rows with equal sort values keep a stable position
// across pages.
func (r *baseRepositoryImpl[T]) orderBy(sort types.Sort) (queryFunc, error) {
	if !sort.IsSorted() {
		return r.orderByPK, nil
	}
	orders := sort.Orders()
	columns := make([]string, len(orders))
	for i, o := range orders {
		column, ok := r.sortables[o.Property]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSortProperty, o.Property)
		}
		if !o.Direction.IsValid() {
			return nil, fmt.Errorf("%w: %q has direction %s", ErrInvalidSortProperty, o.Property, o.Direction)
		}
		columns[i] = column
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for i, o := range orders {
			q = q.OrderExpr("? "+o.Direction.Name(), bun.Ident(columns[i]))
		}
		if !slices.Contains(columns, r.pk) {
			q = r.orderByPK(q)
		}
		return q
	}, nil
}

func (r *baseRepositoryImpl[T]) orderByPK(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("? ASC", bun.Ident(r.pk))
}

func (r *baseRepositoryImpl[T]) upsert(ctx context.Context, db bun.IDB, e *T) error {
	table := db.Dialect().Tables().Get(reflect.TypeFor[T]())
	features := db.Dialect().Features()
	if features.Has(feature.InsertOnConflict) {
		return r.upsertWithPostgresqlOrSQLite(ctx, db.NewInsert(), table, e)
	} else if features.Has(feature.InsertOnDuplicateKey) {
		return r.upsertWithMySQL(ctx, db.NewInsert(), table, e)
	} else {
		// Fallback: Separate update/insert logic
		return r.upsertFallback(ctx, db, e)
	}
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, table *schema.Table, e *T) error {
	insertQuery = insertQuery.Model(e).On("DUPLICATE KEY UPDATE")
	for _, field := range table.DataFields {
		insertQuery = insertQuery.Set("? = VALUES(?)", bun.Ident(field.Name), bun.Ident(field.Name))
	}
	_, err := insertQuery.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, table *schema.Table, e *T) error {
	keys := make([]string, len(table.PKs))
	keyArgs := make([]interface{}, len(table.PKs))
	for i, pk := range table.PKs {
		keys[i] = "?"
		keyArgs[i] = bun.Ident(pk.Name)
	}
	insertQuery = insertQuery.Model(e).On("CONFLICT ("+strings.Join(keys, ", ")+") DO UPDATE", keyArgs...)
	for _, field := range table.DataFields {
		insertQuery = insertQuery.Set("? = EXCLUDED.?", bun.Ident(field.Name), bun.Ident(field.Name))
	}
	_, err := insertQuery.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, e *T) error {
	res, err := db.NewUpdate().Model(e).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, insertErr := db.NewInsert().Model(e).Exec(ctx); insertErr != nil {
		return fmt.Errorf("upsert failed for entity: update matched no row, insert error: %w", insertErr)
	}
	return nil
}
