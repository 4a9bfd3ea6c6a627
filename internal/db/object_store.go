package db

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/udovin/gosql"
)

// ObjectPtr represents pointer to object with sequential ID.
type ObjectPtr[T any] interface {
	*T
	// ObjectID should return sequential ID of object.
	ObjectID() int64
	// SetObjectID should set sequential ID of object.
	SetObjectID(int64)
}

// FindQuery represents query for objects.
//
// Where contains SQL boolean expression with placeholders $1, $2, ...
// that should be used in ascending order.
type FindQuery struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
}

// ObjectROStore represents read-only store for objects.
type ObjectROStore[T any] interface {
	// LoadObjects should load all objects from store.
	LoadObjects(ctx context.Context) (Rows[T], error)
	// FindObjects should find objects with specified query.
	FindObjects(ctx context.Context, query FindQuery) (Rows[T], error)
	// FindObject should find object with specified ID.
	//
	// Returns sql.ErrNoRows if object does not exist.
	FindObject(ctx context.Context, id int64) (T, error)
}

// ObjectStore represents persistent store for objects.
type ObjectStore[T any, TPtr ObjectPtr[T]] interface {
	ObjectROStore[T]
	// CreateObject should create a new object and set ID of object.
	CreateObject(ctx context.Context, object TPtr) error
	// UpdateObject should update all columns of object.
	UpdateObject(ctx context.Context, object TPtr) error
	// UpdateObjectIf should update object only if specified column
	// has expected value.
	//
	// Returns sql.ErrNoRows if nothing was updated.
	UpdateObjectIf(ctx context.Context, object TPtr, column string, value any) error
	// UpdateWhere should run update with custom set and where expressions
	// and return amount of updated rows.
	//
	// Placeholders in where expression should continue numbering
	// of placeholders in set expression.
	UpdateWhere(ctx context.Context, set, where string, args ...any) (int64, error)
	// DeleteObject should delete existing object from the store.
	DeleteObject(ctx context.Context, id int64) error
}

type objectStore[T any, TPtr ObjectPtr[T]] struct {
	db      *gosql.DB
	id      string
	table   string
	columns []string
}

func (s *objectStore[T, TPtr]) LoadObjects(ctx context.Context) (Rows[T], error) {
	return s.FindObjects(ctx, FindQuery{})
}

func (s *objectStore[T, TPtr]) FindObjects(
	ctx context.Context, q FindQuery,
) (Rows[T], error) {
	var query strings.Builder
	query.WriteString(fmt.Sprintf(
		"SELECT %s FROM %q", quoteColumns(s.columns), s.table,
	))
	if q.Where != "" {
		query.WriteString(" WHERE ")
		query.WriteString(q.Where)
	}
	query.WriteString(" ORDER BY ")
	if q.OrderBy != "" {
		query.WriteString(q.OrderBy)
	} else {
		query.WriteString(fmt.Sprintf("%q", s.id))
	}
	if q.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
	}
	rows, err := GetRunner(ctx, s.db).QueryContext(ctx, query.String(), q.Args...)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(rows, s.columns); err != nil {
		_ = rows.Close()
		return nil, err
	}
	return newRowReader[T](rows), nil
}

func (s *objectStore[T, TPtr]) FindObject(ctx context.Context, id int64) (T, error) {
	rows, err := s.FindObjects(ctx, FindQuery{
		Where: fmt.Sprintf("%q = $1", s.id),
		Args:  []any{id},
		Limit: 1,
	})
	if err != nil {
		var empty T
		return empty, err
	}
	return FirstRow(rows)
}

func (s *objectStore[T, TPtr]) CreateObject(ctx context.Context, object TPtr) error {
	cols, vals := rowValues(reflect.ValueOf(object).Elem(), s.id)
	builder := s.db.Insert(s.table)
	builder.SetNames(cols...)
	builder.SetValues(vals...)
	var id int64
	switch b := builder.(type) {
	case *gosql.PostgresInsertQuery:
		b.SetReturning(s.id)
		row := GetRunner(ctx, s.db).QueryRowContext(ctx, s.db.BuildString(builder), vals...)
		if err := row.Scan(&id); err != nil {
			return err
		}
	default:
		res, err := GetRunner(ctx, s.db).ExecContext(ctx, s.db.BuildString(builder), vals...)
		if err != nil {
			return err
		}
		if err := checkAffected(res, "inserted"); err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	object.SetObjectID(id)
	return nil
}

func (s *objectStore[T, TPtr]) UpdateObject(ctx context.Context, object TPtr) error {
	cols, vals := rowValues(reflect.ValueOf(object).Elem(), s.id)
	builder := s.db.Update(s.table)
	builder.SetNames(cols...)
	builder.SetValues(vals...)
	builder.SetWhere(gosql.Column(s.id).Equal(object.ObjectID()))
	query, values := s.db.Build(builder)
	res, err := GetRunner(ctx, s.db).ExecContext(ctx, query, values...)
	if err != nil {
		return err
	}
	return checkAffected(res, "updated")
}

func (s *objectStore[T, TPtr]) UpdateObjectIf(
	ctx context.Context, object TPtr, column string, value any,
) error {
	cols, vals := rowValues(reflect.ValueOf(object).Elem(), s.id)
	builder := s.db.Update(s.table)
	builder.SetNames(cols...)
	builder.SetValues(vals...)
	builder.SetWhere(gosql.Column(s.id).Equal(object.ObjectID()).
		And(gosql.Column(column).Equal(value)))
	query, values := s.db.Build(builder)
	res, err := GetRunner(ctx, s.db).ExecContext(ctx, query, values...)
	if err != nil {
		return err
	}
	return checkAffected(res, "updated")
}

func (s *objectStore[T, TPtr]) UpdateWhere(
	ctx context.Context, set, where string, args ...any,
) (int64, error) {
	query := fmt.Sprintf("UPDATE %q SET %s WHERE %s", s.table, set, where)
	res, err := GetRunner(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *objectStore[T, TPtr]) DeleteObject(ctx context.Context, id int64) error {
	builder := s.db.Delete(s.table)
	builder.SetWhere(gosql.Column(s.id).Equal(id))
	query, values := s.db.Build(builder)
	res, err := GetRunner(ctx, s.db).ExecContext(ctx, query, values...)
	if err != nil {
		return err
	}
	return checkAffected(res, "deleted")
}

// NewObjectStore creates a new store for objects of specified type.
func NewObjectStore[T any, TPtr ObjectPtr[T]](
	db *gosql.DB, id, table string,
) ObjectStore[T, TPtr] {
	return &objectStore[T, TPtr]{
		db:      db,
		id:      id,
		table:   table,
		columns: rowColumns[T](),
	}
}
