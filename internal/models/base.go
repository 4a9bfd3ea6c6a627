// Package models contains objects of grading pipeline stored in
// SQLite or Postgres databases.
package models

import (
	"context"
	"database/sql"
	"errors"

	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/db"
)

// ErrEntityNotExist represents error when referenced entity is missing.
var ErrEntityNotExist = errors.New("entity does not exist")

// ObjectPtr represents pointer to object.
type ObjectPtr[T any] interface {
	db.ObjectPtr[T]
}

type baseObject struct {
	ID int64 `db:"id"`
}

// ObjectID return ID of object.
func (o baseObject) ObjectID() int64 {
	return o.ID
}

// SetObjectID sets ID of object.
func (o *baseObject) SetObjectID(id int64) {
	o.ID = id
}

type baseStore[T any, TPtr ObjectPtr[T]] struct {
	db    *gosql.DB
	table string
	store db.ObjectStore[T, TPtr]
}

// DB returns store database.
func (s *baseStore[T, TPtr]) DB() *gosql.DB {
	return s.db
}

// Get returns object by ID.
//
// Returns sql.ErrNoRows if object does not exist.
func (s *baseStore[T, TPtr]) Get(ctx context.Context, id int64) (T, error) {
	return s.store.FindObject(ctx, id)
}

// Create creates a new object and sets its ID.
func (s *baseStore[T, TPtr]) Create(ctx context.Context, object TPtr) error {
	return s.store.CreateObject(ctx, object)
}

// Update updates all columns of object.
func (s *baseStore[T, TPtr]) Update(ctx context.Context, object TPtr) error {
	return s.store.UpdateObject(ctx, object)
}

// Delete deletes object with specified ID.
func (s *baseStore[T, TPtr]) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteObject(ctx, id)
}

// All returns all objects ordered by ID.
func (s *baseStore[T, TPtr]) All(ctx context.Context) ([]T, error) {
	rows, err := s.store.LoadObjects(ctx)
	if err != nil {
		return nil, err
	}
	return db.CollectRows(rows)
}

func (s *baseStore[T, TPtr]) findAll(
	ctx context.Context, query db.FindQuery,
) ([]T, error) {
	rows, err := s.store.FindObjects(ctx, query)
	if err != nil {
		return nil, err
	}
	return db.CollectRows(rows)
}

func (s *baseStore[T, TPtr]) findOne(
	ctx context.Context, query db.FindQuery,
) (T, error) {
	query.Limit = 1
	rows, err := s.store.FindObjects(ctx, query)
	if err != nil {
		var empty T
		return empty, err
	}
	return db.FirstRow(rows)
}

func makeBaseStore[T any, TPtr ObjectPtr[T]](
	conn *gosql.DB, table string,
) baseStore[T, TPtr] {
	return baseStore[T, TPtr]{
		db:    conn,
		table: table,
		store: db.NewObjectStore[T, TPtr](conn, "id", table),
	}
}

// IsNotFound returns true if error means that object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrEntityNotExist)
}
