// Package schema contains dialect independent definitions of tables.
package schema

import (
	"fmt"
	"strings"

	"github.com/udovin/gosql"
)

// Type represents type of column.
type Type int

const (
	// Int64 represents golang int64 type in SQL.
	Int64 Type = 1 + iota
	// String represents golang string type in SQL.
	String
	// JSON represents JSON value in SQL.
	JSON
	// Float64 represents golang float64 type in SQL.
	Float64
	// Bool represents golang bool type in SQL.
	Bool
)

// Column represents table column with parameters.
type Column struct {
	Name          string
	Type          Type
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
}

const notNull = " NOT NULL"

func (c Column) typeName(d gosql.Dialect) (string, error) {
	switch c.Type {
	case Int64:
		if !c.PrimaryKey {
			return "bigint", nil
		}
		switch {
		case d == gosql.SQLiteDialect && c.AutoIncrement:
			return "integer PRIMARY KEY AUTOINCREMENT", nil
		case d == gosql.SQLiteDialect:
			return "integer PRIMARY KEY", nil
		case c.AutoIncrement:
			return "bigserial PRIMARY KEY", nil
		default:
			return "bigint PRIMARY KEY", nil
		}
	case String:
		return "text", nil
	case JSON:
		if d == gosql.PostgresDialect {
			return "jsonb", nil
		}
		return "blob", nil
	case Float64:
		if d == gosql.PostgresDialect {
			return "double precision", nil
		}
		return "real", nil
	case Bool:
		return "boolean", nil
	default:
		return "", fmt.Errorf("unsupported column type: %v", c.Type)
	}
}

// BuildSQL returns SQL in specified dialect.
func (c Column) BuildSQL(d gosql.Dialect) (string, error) {
	typeName, err := c.typeName(d)
	if err != nil {
		return "", err
	}
	if !c.PrimaryKey && !c.Nullable {
		typeName += notNull
	}
	return fmt.Sprintf("%q %s", c.Name, typeName), nil
}

// Operation represents schema operation.
type Operation interface {
	BuildApply(gosql.Dialect) (string, error)
	BuildUnapply(gosql.Dialect) (string, error)
}

// CreateTable represents create table query.
type CreateTable struct {
	Name    string
	Columns []Column
}

// BuildApply returns create table query in specified dialect.
func (q CreateTable) BuildApply(d gosql.Dialect) (string, error) {
	var query strings.Builder
	query.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (", q.Name))
	for i, column := range q.Columns {
		if i > 0 {
			query.WriteString(", ")
		}
		sql, err := column.BuildSQL(d)
		if err != nil {
			return "", err
		}
		query.WriteString(sql)
	}
	query.WriteRune(')')
	return query.String(), nil
}

// BuildUnapply returns drop table query in specified dialect.
func (q CreateTable) BuildUnapply(d gosql.Dialect) (string, error) {
	return fmt.Sprintf("DROP TABLE IF EXISTS %q", q.Name), nil
}

// CreateIndex represents create index query.
type CreateIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// BuildApply returns create index query in specified dialect.
func (q CreateIndex) BuildApply(d gosql.Dialect) (string, error) {
	if len(q.Columns) == 0 {
		return "", fmt.Errorf("index %q has no columns", q.Name)
	}
	var query strings.Builder
	query.WriteString("CREATE ")
	if q.Unique {
		query.WriteString("UNIQUE ")
	}
	query.WriteString(fmt.Sprintf("INDEX IF NOT EXISTS %q ON %q (", q.Name, q.Table))
	for i, column := range q.Columns {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString(fmt.Sprintf("%q", column))
	}
	query.WriteRune(')')
	return query.String(), nil
}

// BuildUnapply returns drop index query in specified dialect.
func (q CreateIndex) BuildUnapply(d gosql.Dialect) (string, error) {
	return fmt.Sprintf("DROP INDEX IF EXISTS %q", q.Name), nil
}
