// Package db provides generic object store over SQL database and
// simple schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/udovin/gosql"
)

type runnerKey struct{}

// WithRunner returns context that carries specified runner.
func WithRunner(ctx context.Context, r gosql.Runner) context.Context {
	return context.WithValue(ctx, runnerKey{}, r)
}

// GetRunner returns runner from context or db if context has no runner.
func GetRunner(ctx context.Context, db gosql.Runner) gosql.Runner {
	if r, ok := ctx.Value(runnerKey{}).(gosql.Runner); ok {
		return r
	}
	return db
}

// WithTx returns context that carries specified transaction.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return WithRunner(ctx, tx)
}

// GetTx returns transaction from context.
func GetTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(runnerKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// Rows represents reader for rows.
type Rows[T any] interface {
	// Next should read next row and return true if row exists.
	Next() bool
	// Row should return current row.
	Row() T
	// Close should close reader.
	Close() error
	// Err should return error that occurred during reading.
	Err() error
}

// CollectRows reads all rows and closes reader.
func CollectRows[T any](rows Rows[T]) ([]T, error) {
	defer func() { _ = rows.Close() }()
	var result []T
	for rows.Next() {
		result = append(result, rows.Row())
	}
	return result, rows.Err()
}

// FirstRow returns first row and closes reader.
//
// Returns sql.ErrNoRows if reader is empty.
func FirstRow[T any](rows Rows[T]) (T, error) {
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		return rows.Row(), nil
	}
	var empty T
	if err := rows.Err(); err != nil {
		return empty, err
	}
	return empty, sql.ErrNoRows
}

type rowReader[T any] struct {
	rows *sql.Rows
	err  error
	row  T
	// refs contains pointers to each column field of row.
	refs []any
}

func newRowReader[T any](rows *sql.Rows) *rowReader[T] {
	r := &rowReader[T]{rows: rows}
	r.refs = rowFields(&r.row)
	return r
}

func (r *rowReader[T]) Next() bool {
	if !r.rows.Next() {
		return false
	}
	r.err = r.rows.Scan(r.refs...)
	return r.err == nil
}

func (r *rowReader[T]) Row() T {
	return r.row
}

func (r *rowReader[T]) Close() error {
	return r.rows.Close()
}

func (r *rowReader[T]) Err() error {
	if err := r.rows.Err(); err != nil {
		return err
	}
	return r.err
}

type sliceRows[T any] struct {
	rows []T
	pos  int
}

func (r *sliceRows[T]) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *sliceRows[T]) Row() T {
	return r.rows[r.pos]
}

func (r *sliceRows[T]) Close() error {
	return nil
}

func (r *sliceRows[T]) Err() error {
	return nil
}

// NewSliceRows returns reader over in-memory rows.
func NewSliceRows[T any](rows []T) Rows[T] {
	return &sliceRows[T]{rows: rows, pos: -1}
}

// walkColumns calls fn for each field with "db" tag including
// fields of embedded structs.
func walkColumns(v reflect.Value, fn func(name string, field reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag, ok := t.Field(i).Tag.Lookup("db"); ok {
			fn(strings.Split(tag, ",")[0], v.Field(i))
		} else if t.Field(i).Anonymous {
			walkColumns(v.Field(i), fn)
		}
	}
}

func rowFields[T any](row *T) []any {
	var fields []any
	walkColumns(reflect.ValueOf(row).Elem(), func(_ string, field reflect.Value) {
		fields = append(fields, field.Addr().Interface())
	})
	return fields
}

func rowColumns[T any]() []string {
	var cols []string
	var row T
	walkColumns(reflect.ValueOf(&row).Elem(), func(name string, _ reflect.Value) {
		cols = append(cols, name)
	})
	return cols
}

// rowValues returns columns and values of row except id column.
func rowValues(row reflect.Value, id string) ([]string, []any) {
	var cols []string
	var vals []any
	walkColumns(row, func(name string, field reflect.Value) {
		if name == id {
			return
		}
		cols = append(cols, name)
		vals = append(vals, field.Interface())
	})
	return cols, vals
}

func checkColumns(rows *sql.Rows, cols []string) error {
	rowCols, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) != len(rowCols) {
		return fmt.Errorf("result has invalid column sequence: %v != %v", cols, rowCols)
	}
	for i := 0; i < len(cols); i++ {
		if cols[i] != rowCols[i] {
			return fmt.Errorf("result has invalid column sequence: %v != %v", cols, rowCols)
		}
	}
	return nil
}

func quoteColumns(cols []string) string {
	var query strings.Builder
	for i, col := range cols {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString(fmt.Sprintf("%q", col))
	}
	return query.String()
}

func checkAffected(res sql.Result, op string) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count < 1 {
		return sql.ErrNoRows
	} else if count > 1 {
		return fmt.Errorf("%s %d objects", op, count)
	}
	return nil
}
