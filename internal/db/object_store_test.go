package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/db/schema"
)

type testObject struct {
	ID     int64  `db:"id"`
	Title  string `db:"title"`
	Status int64  `db:"status"`
	Score  int64  `db:"score"`
}

func (o testObject) ObjectID() int64 {
	return o.ID
}

func (o *testObject) SetObjectID(id int64) {
	o.ID = id
}

var testObjectTable = schema.CreateTable{
	Name: "test_object",
	Columns: []schema.Column{
		{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
		{Name: "title", Type: schema.String},
		{Name: "status", Type: schema.Int64},
		{Name: "score", Type: schema.Int64},
	},
}

func newTestDB(tb testing.TB) *gosql.DB {
	cfg := config.DB{Options: config.SQLiteOptions{Path: ":memory:"}}
	conn, err := cfg.Create()
	if err != nil {
		tb.Fatal("Error:", err)
	}
	tb.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestStore(tb testing.TB) (*gosql.DB, ObjectStore[testObject, *testObject]) {
	conn := newTestDB(tb)
	group := NewMigrationGroup()
	group.AddMigration("001_test", NewMigration([]schema.Operation{testObjectTable}))
	if err := ApplyMigrations(context.Background(), conn, "test", group); err != nil {
		tb.Fatal("Error:", err)
	}
	return conn, NewObjectStore[testObject, *testObject](conn, "id", "test_object")
}

func TestObjectStore(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()
	first := testObject{Title: "first", Status: 1}
	if err := store.CreateObject(ctx, &first); err != nil {
		t.Fatal("Error:", err)
	}
	second := testObject{Title: "second", Status: 1}
	if err := store.CreateObject(ctx, &second); err != nil {
		t.Fatal("Error:", err)
	}
	if first.ID == 0 || second.ID == 0 || first.ID == second.ID {
		t.Fatalf("Invalid IDs: %d, %d", first.ID, second.ID)
	}
	found, err := store.FindObject(ctx, second.ID)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if found != second {
		t.Fatalf("Expected %v, got %v", second, found)
	}
	if _, err := store.FindObject(ctx, second.ID+100); err != sql.ErrNoRows {
		t.Fatalf("Expected %v, got %v", sql.ErrNoRows, err)
	}
	first.Title = "first-updated"
	if err := store.UpdateObject(ctx, &first); err != nil {
		t.Fatal("Error:", err)
	}
	first.Status = 2
	if err := store.UpdateObjectIf(ctx, &first, "status", int64(1)); err != nil {
		t.Fatal("Error:", err)
	}
	first.Status = 3
	if err := store.UpdateObjectIf(ctx, &first, "status", int64(1)); err != sql.ErrNoRows {
		t.Fatalf("Expected %v, got %v", sql.ErrNoRows, err)
	}
	count, err := store.UpdateWhere(
		ctx, `"score" = "score" + $1`, `"id" = $2`, int64(50), second.ID,
	)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if count != 1 {
		t.Fatalf("Expected %d, got %d", 1, count)
	}
	rows, err := store.FindObjects(ctx, FindQuery{
		Where:   `"status" >= $1`,
		Args:    []any{int64(1)},
		OrderBy: `"title" DESC`,
	})
	if err != nil {
		t.Fatal("Error:", err)
	}
	objects, err := CollectRows(rows)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(objects) != 2 {
		t.Fatalf("Expected %d objects, got %d", 2, len(objects))
	}
	if objects[0].Title != "second" || objects[0].Score != 50 {
		t.Fatalf("Unexpected object: %v", objects[0])
	}
	if objects[1].Title != "first-updated" || objects[1].Status != 2 {
		t.Fatalf("Unexpected object: %v", objects[1])
	}
	if err := store.DeleteObject(ctx, first.ID); err != nil {
		t.Fatal("Error:", err)
	}
	if err := store.DeleteObject(ctx, first.ID); err != sql.ErrNoRows {
		t.Fatalf("Expected %v, got %v", sql.ErrNoRows, err)
	}
	all, err := store.LoadObjects(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if _, err := FirstRow(all); err != nil {
		t.Fatal("Error:", err)
	}
}

func TestObjectStoreTx(t *testing.T) {
	conn, store := newTestStore(t)
	ctx := context.Background()
	object := testObject{Title: "rollback"}
	if err := gosql.WrapTx(ctx, conn, func(tx *sql.Tx) error {
		if err := store.CreateObject(WithTx(ctx, tx), &object); err != nil {
			return err
		}
		return sql.ErrTxDone
	}); !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("Expected %v, got %v", sql.ErrTxDone, err)
	}
	if _, err := store.FindObject(ctx, object.ID); err != sql.ErrNoRows {
		t.Fatalf("Expected %v, got %v", sql.ErrNoRows, err)
	}
}

func TestSliceRows(t *testing.T) {
	rows := NewSliceRows([]int{1, 2, 3})
	values, err := CollectRows(rows)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(values) != 3 || values[2] != 3 {
		t.Fatalf("Unexpected values: %v", values)
	}
	if _, err := FirstRow(NewSliceRows[int](nil)); err != sql.ErrNoRows {
		t.Fatalf("Expected %v, got %v", sql.ErrNoRows, err)
	}
}
