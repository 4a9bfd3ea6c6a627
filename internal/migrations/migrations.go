// Package migrations contains database migrations of grader.
package migrations

import (
	"github.com/udovin/grader/internal/db"
)

// Schema contains migrations that create tables of grader.
var Schema = db.NewMigrationGroup()

// SchemaGroup contains name of schema migration group.
const SchemaGroup = "schema"
