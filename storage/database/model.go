package database

import (
	"context"
	"database/sql"
	"math"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/schema"
)

// Model is the persistence gateway of the entity T, described by a schema definition.
// Payloads and filters use presentation names; rows are scanned through the `db` tags of T.
type Model[T any] struct {
	db  *sqlx.DB
	def *schema.Definition
	sq  squirrel.StatementBuilderType
}

func NewModel[T any](db *sqlx.DB, def *schema.Definition) *Model[T] {
	return &Model[T]{
		db:  db,
		def: def,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(placeholders(db.DriverName())),
	}
}

func placeholders(driver string) squirrel.PlaceholderFormat {
	if driver == Postgres {
		return squirrel.Dollar
	}
	return squirrel.Question
}

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// writeError wraps a failed write, flagging constraint conflicts.
func writeError(err error, op string) error {
	if isUniqueViolation(err) {
		return &core.StorageError{Op: op, Err: err, Conflict: true}
	}
	return core.NewStorageError(err, op)
}

func (m *Model[T]) describe() (*schema.Schema, error) {
	s, err := m.def.Schema()
	if err != nil {
		return nil, errors.Wrap(err, "describing "+m.def.Table())
	}
	return s, nil
}

// fail reclassifies a lower-level error.
func (m *Model[T]) fail(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return core.NewStorageError(err, op+" "+m.def.Table())
}

// prepare extracts the writable fields of payload, validates and transforms them.
func (m *Model[T]) prepare(ctx context.Context, s *schema.Schema, payload map[string]interface{}, create bool) (schema.Record, error) {
	rec := s.Extract(payload)
	if err := schema.Validate(s, rec, create); err != nil {
		return nil, err
	}
	rec, err := schema.Transform(ctx, s, rec)
	if err != nil {
		return nil, core.NewStorageError(err, "transforming "+s.Table)
	}
	return rec, nil
}

func (m *Model[T]) Create(ctx context.Context, payload map[string]interface{}) (T, error) {
	var zero T
	s, err := m.describe()
	if err != nil {
		return zero, err
	}
	rec, err := m.prepare(ctx, s, payload, true)
	if err != nil {
		return zero, err
	}

	cols, vals := rec.Split(s)
	query, args, err := m.sq.Insert(s.Table).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + s.Key.Column).
		ToSql()
	if err != nil {
		return zero, m.fail(err, "building insert into")
	}

	var id int
	if err = m.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return zero, writeError(err, "insert into "+s.Table)
	}
	return m.get(ctx, s, s.Key.Column, id)
}

func (m *Model[T]) get(ctx context.Context, s *schema.Schema, column string, value interface{}) (T, error) {
	var t T
	query, args, err := m.sq.Select(s.Columns()...).
		From(s.Table).
		Where(squirrel.Eq{column: value}).
		OrderBy(s.Key.Column).
		Limit(1).
		ToSql()
	if err != nil {
		return t, m.fail(err, "building select from")
	}
	if err = m.db.GetContext(ctx, &t, query, args...); err != nil {
		return t, m.fail(err, "select from")
	}
	return t, nil
}

// FindBy returns the first row (by primary key) whose storage column equals value, or core.ErrNotFound.
func (m *Model[T]) FindBy(ctx context.Context, column string, value interface{}) (T, error) {
	var zero T
	s, err := m.describe()
	if err != nil {
		return zero, err
	}
	name, ok := s.ToPresentation(column)
	if !ok {
		return zero, errors.Errorf("%s: unknown column %q", s.Table, column)
	}
	return m.get(ctx, s, column, s.Coerce(name, value))
}

// compile turns AND-ed predicates on presentation names into a parameterized condition.
func compile(s *schema.Schema, filters []core.Predicate) (squirrel.And, error) {
	where := make(squirrel.And, 0, len(filters))
	for _, p := range filters {
		col, ok := s.ToStorage(p.Field)
		if !ok {
			return nil, errors.Errorf("%s: cannot filter on %q", s.Table, p.Field)
		}
		v := s.Coerce(p.Field, p.Value)

		switch p.Op {
		case core.OpEq:
			where = append(where, squirrel.Eq{col: v})
		case core.OpNotEq:
			where = append(where, squirrel.NotEq{col: v})
		case core.OpIn:
			vals, ok := v.([]interface{})
			if !ok {
				return nil, errors.Errorf("%s: %s IN expects a list, got %T", s.Table, p.Field, p.Value)
			}
			where = append(where, squirrel.Eq{col: vals})
		default:
			return nil, errors.Errorf("%s: unsupported operator %q", s.Table, p.Op)
		}
	}
	return where, nil
}

func (m *Model[T]) Count(ctx context.Context, filters ...core.Predicate) (int, error) {
	s, err := m.describe()
	if err != nil {
		return 0, err
	}
	where, err := compile(s, filters)
	if err != nil {
		return 0, err
	}

	q := m.sq.Select("COUNT(*)").From(s.Table)
	if len(where) > 0 {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, m.fail(err, "building count")
	}

	var n int
	if err = m.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, core.NewStorageError(err, "count "+s.Table)
	}
	return n, nil
}

// All returns the rows matching filters in primary key order, skipping offset rows.
// A limit <= 0 returns every remaining row.
func (m *Model[T]) All(ctx context.Context, offset, limit int, filters ...core.Predicate) ([]T, error) {
	s, err := m.describe()
	if err != nil {
		return nil, err
	}
	where, err := compile(s, filters)
	if err != nil {
		return nil, err
	}

	q := m.sq.Select(s.Columns()...).From(s.Table).OrderBy(s.Key.Column + " ASC")
	if len(where) > 0 {
		q = q.Where(where)
	}
	if limit <= 0 && offset > 0 {
		limit = math.MaxInt // OFFSET needs a LIMIT
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, m.fail(err, "building select from")
	}

	items := make([]T, 0)
	if err = m.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, core.NewStorageError(err, "select from "+s.Table)
	}
	return items, nil
}

// Update applies a partial update to the row with the given id, then reloads it.
func (m *Model[T]) Update(ctx context.Context, id int, payload map[string]interface{}) (T, error) {
	var zero T
	s, err := m.describe()
	if err != nil {
		return zero, err
	}
	rec, err := m.prepare(ctx, s, payload, false)
	if err != nil {
		return zero, err
	}

	query, args, err := m.sq.Update(s.Table).
		SetMap(map[string]interface{}(rec)).
		Where(squirrel.Eq{s.Key.Column: id}).
		ToSql()
	if err != nil {
		return zero, m.fail(err, "building update")
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return zero, writeError(err, "update "+s.Table)
	}
	if n, err := res.RowsAffected(); err != nil {
		return zero, core.NewStorageError(err, "update "+s.Table)
	} else if n == 0 {
		return zero, core.ErrNotFound
	}
	return m.get(ctx, s, s.Key.Column, id)
}

// Destroy deletes the row with the given id. Deleting a missing row is not an error.
func (m *Model[T]) Destroy(ctx context.Context, id int) error {
	s, err := m.describe()
	if err != nil {
		return err
	}
	query, args, err := m.sq.Delete(s.Table).Where(squirrel.Eq{s.Key.Column: id}).ToSql()
	if err != nil {
		return m.fail(err, "building delete from")
	}
	if _, err = m.db.ExecContext(ctx, query, args...); err != nil {
		return core.NewStorageError(err, "delete from "+s.Table)
	}
	return nil
}

// DestroyWhere deletes the rows matching filters and returns how many were deleted.
// At least one filter is required.
func (m *Model[T]) DestroyWhere(ctx context.Context, filters ...core.Predicate) (int, error) {
	s, err := m.describe()
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, errors.Errorf("%s: refusing to delete without filters", s.Table)
	}
	where, err := compile(s, filters)
	if err != nil {
		return 0, err
	}

	query, args, err := m.sq.Delete(s.Table).Where(where).ToSql()
	if err != nil {
		return 0, m.fail(err, "building delete from")
	}
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, core.NewStorageError(err, "delete from "+s.Table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStorageError(err, "delete from "+s.Table)
	}
	return int(n), nil
}
