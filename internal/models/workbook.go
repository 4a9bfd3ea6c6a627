package models

import (
	"github.com/udovin/gosql"
)

// Workbook represents unscored set of problems.
type Workbook struct {
	baseObject
	Title string `db:"title"`
}

// WorkbookStore represents store for workbooks.
type WorkbookStore struct {
	baseStore[Workbook, *Workbook]
}

// NewWorkbookStore creates a new instance of WorkbookStore.
func NewWorkbookStore(conn *gosql.DB, table string) *WorkbookStore {
	return &WorkbookStore{
		baseStore: makeBaseStore[Workbook, *Workbook](conn, table),
	}
}
