package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/udovin/gosql"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/db/schema"
)

// Migration represents database migration.
type Migration interface {
	// Apply should apply database migration.
	Apply(ctx context.Context, conn *gosql.DB) error
	// Unapply should unapply database migration.
	Unapply(ctx context.Context, conn *gosql.DB) error
}

// NamedMigration represents migration with name.
type NamedMigration struct {
	Name      string
	Migration Migration
}

// MigrationGroup represents ordered group of database migrations.
type MigrationGroup interface {
	// AddMigration registers new migration to group.
	AddMigration(name string, m Migration)
	// GetMigration returns migration by name.
	GetMigration(name string) Migration
	// GetMigrations returns migrations ordered by name.
	GetMigrations() []NamedMigration
}

// NewMigration returns migration that applies schema operations.
func NewMigration(operations []schema.Operation) Migration {
	return &simpleMigration{operations: operations}
}

type simpleMigration struct {
	operations []schema.Operation
}

func (m *simpleMigration) Apply(ctx context.Context, conn *gosql.DB) error {
	tx := GetRunner(ctx, conn)
	for _, op := range m.operations {
		query, err := op.BuildApply(conn.Dialect())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (m *simpleMigration) Unapply(ctx context.Context, conn *gosql.DB) error {
	tx := GetRunner(ctx, conn)
	for i := len(m.operations) - 1; i >= 0; i-- {
		query, err := m.operations[i].BuildUnapply(conn.Dialect())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// NewMigrationGroup returns empty migration group.
func NewMigrationGroup() MigrationGroup {
	return &migrationGroup{migrations: map[string]Migration{}}
}

type migrationGroup struct {
	migrations map[string]Migration
}

func (g *migrationGroup) AddMigration(name string, m Migration) {
	if _, ok := g.migrations[name]; ok {
		panic(fmt.Errorf("migration %q already exists", name))
	}
	g.migrations[name] = m
}

func (g *migrationGroup) GetMigration(name string) Migration {
	m, ok := g.migrations[name]
	if !ok {
		panic(fmt.Errorf("migration %q does not exist", name))
	}
	return m
}

func (g *migrationGroup) GetMigrations() []NamedMigration {
	var migrations []NamedMigration
	for name, m := range g.migrations {
		migrations = append(migrations, NamedMigration{Name: name, Migration: m})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})
	return migrations
}

type migrationState struct {
	Name    string
	Applied bool
}

// MigrateOption represents option for ApplyMigrations.
type MigrateOption func(state []migrationState, endPos *int) error

// WithMigration applies migrations up to specified migration.
func WithMigration(name string) MigrateOption {
	if name == "zero" {
		return WithZeroMigration
	}
	return func(state []migrationState, endPos *int) error {
		for i := range state {
			if state[i].Name == name {
				*endPos = i + 1
				return nil
			}
		}
		return fmt.Errorf("invalid migration %q", name)
	}
}

// WithZeroMigration reverts all applied migrations.
func WithZeroMigration(state []migrationState, endPos *int) error {
	*endPos = 0
	return nil
}

// ApplyMigrations applies migrations of group with specified name.
func ApplyMigrations(
	ctx context.Context, conn *gosql.DB, name string, g MigrationGroup,
	options ...MigrateOption,
) error {
	m := migrator{
		db:    conn,
		group: name,
		store: NewObjectStore[migration, *migration](conn, "id", migrationTableName),
	}
	if err := m.init(ctx); err != nil {
		return err
	}
	return m.apply(ctx, g, options...)
}

type migrator struct {
	db    *gosql.DB
	group string
	store ObjectStore[migration, *migration]
}

func (m *migrator) init(ctx context.Context) error {
	query, err := migrationTable.BuildApply(m.db.Dialect())
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx, query)
	return err
}

func (m *migrator) getApplied(ctx context.Context) (map[string]migration, error) {
	rows, err := m.store.FindObjects(ctx, FindQuery{
		Where: `"group" = $1`,
		Args:  []any{m.group},
	})
	if err != nil {
		return nil, err
	}
	migrations, err := CollectRows(rows)
	if err != nil {
		return nil, err
	}
	applied := map[string]migration{}
	for _, migration := range migrations {
		applied[migration.Name] = migration
	}
	return applied, nil
}

func (m *migrator) apply(ctx context.Context, g MigrationGroup, options ...MigrateOption) error {
	applied, err := m.getApplied(ctx)
	if err != nil {
		return err
	}
	var state []migrationState
	beginPos := 0
	for i, migration := range g.GetMigrations() {
		_, ok := applied[migration.Name]
		state = append(state, migrationState{Name: migration.Name, Applied: ok})
		if ok {
			beginPos = i + 1
		}
	}
	endPos := len(state)
	for _, option := range options {
		if err := option(state, &endPos); err != nil {
			return err
		}
	}
	if endPos < beginPos {
		for i := beginPos - 1; i >= endPos; i-- {
			if err := m.unapplyOne(ctx, g, state[i], applied[state[i].Name]); err != nil {
				return err
			}
		}
		return nil
	}
	if beginPos == endPos {
		log.Info("No migrations to apply: ", m.group)
	}
	for i := beginPos; i < endPos; i++ {
		if err := m.applyOne(ctx, g, state[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) applyOne(ctx context.Context, g MigrationGroup, s migrationState) error {
	log.Info("Applying migration: ", m.group, ".", s.Name)
	impl := g.GetMigration(s.Name)
	if err := gosql.WrapTx(ctx, m.db, func(tx *sql.Tx) error {
		ctx := WithTx(ctx, tx)
		if err := impl.Apply(ctx, m.db); err != nil {
			return err
		}
		if s.Applied {
			return nil
		}
		object := migration{
			Group:   m.group,
			Name:    s.Name,
			Version: config.Version,
			Time:    time.Now().Unix(),
		}
		return m.store.CreateObject(ctx, &object)
	}); err != nil {
		return fmt.Errorf("cannot apply migration %q: %w", s.Name, err)
	}
	log.Info("Migration applied: ", m.group, ".", s.Name)
	return nil
}

func (m *migrator) unapplyOne(
	ctx context.Context, g MigrationGroup, s migrationState, object migration,
) error {
	if !s.Applied {
		return fmt.Errorf("migration %q is not applied", s.Name)
	}
	log.Info("Reverse applying migration: ", m.group, ".", s.Name)
	impl := g.GetMigration(s.Name)
	if err := gosql.WrapTx(ctx, m.db, func(tx *sql.Tx) error {
		ctx := WithTx(ctx, tx)
		if err := impl.Unapply(ctx, m.db); err != nil {
			return err
		}
		return m.store.DeleteObject(ctx, object.ID)
	}); err != nil {
		return fmt.Errorf("cannot unapply migration %q: %w", s.Name, err)
	}
	log.Info("Migration reverse applied: ", m.group, ".", s.Name)
	return nil
}

type migration struct {
	ID      int64  `db:"id"`
	Group   string `db:"group"`
	Name    string `db:"name"`
	Version string `db:"version"`
	Time    int64  `db:"time"`
}

func (o migration) ObjectID() int64 {
	return o.ID
}

func (o *migration) SetObjectID(id int64) {
	o.ID = id
}

const migrationTableName = "grader_db_migration"

var migrationTable = schema.CreateTable{
	Name: migrationTableName,
	Columns: []schema.Column{
		{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
		{Name: "group", Type: schema.String},
		{Name: "name", Type: schema.String},
		{Name: "version", Type: schema.String},
		{Name: "time", Type: schema.Int64},
	},
}
