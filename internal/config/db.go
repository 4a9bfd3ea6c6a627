package config

import (
	"encoding/json"
	"fmt"

	"github.com/udovin/gosql"

	// Register SQL drivers.
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type DBDriver string

const (
	SQLiteDriver   DBDriver = "sqlite"
	PostgresDriver DBDriver = "postgres"
)

type DBOptions interface {
	Driver() DBDriver
}

// SQLiteOptions stores SQLite connection options.
type SQLiteOptions struct {
	// Path contains path to SQLite database file.
	Path string `json:"path"`
}

func (o SQLiteOptions) Driver() DBDriver {
	return SQLiteDriver
}

// PostgresOptions stores Postgres connection options.
type PostgresOptions struct {
	Hosts    []string `json:"hosts"`
	User     string   `json:"user"`
	Password Secret   `json:"password"`
	Name     string   `json:"name"`
	SSLMode  string   `json:"sslmode,omitempty"`
}

func (o PostgresOptions) Driver() DBDriver {
	return PostgresDriver
}

// DB stores configuration for database connection.
type DB struct {
	Options DBOptions `json:"options"`
}

func (c DB) MarshalJSON() ([]byte, error) {
	cfg := struct {
		Driver  DBDriver  `json:"driver"`
		Options DBOptions `json:"options"`
	}{
		Options: c.Options,
	}
	if c.Options != nil {
		cfg.Driver = c.Options.Driver()
	}
	return json.Marshal(cfg)
}

func (c *DB) UnmarshalJSON(bytes []byte) error {
	var cfg struct {
		Driver  DBDriver        `json:"driver"`
		Options json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(bytes, &cfg); err != nil {
		return err
	}
	switch cfg.Driver {
	case SQLiteDriver:
		var options SQLiteOptions
		if err := json.Unmarshal(cfg.Options, &options); err != nil {
			return err
		}
		c.Options = options
	case PostgresDriver:
		var options PostgresOptions
		if err := json.Unmarshal(cfg.Options, &options); err != nil {
			return err
		}
		c.Options = options
	default:
		return fmt.Errorf("driver %q is not supported", cfg.Driver)
	}
	return nil
}

// Create creates database connection using current configuration.
func (c DB) Create() (*gosql.DB, error) {
	switch o := c.Options.(type) {
	case SQLiteOptions:
		config := gosql.SQLiteConfig{
			Path: o.Path,
		}
		conn, err := config.NewDB()
		if err != nil {
			return nil, err
		}
		// SQLite allows only one writer and in-memory database
		// lives inside single connection.
		conn.SetMaxOpenConns(1)
		return conn, nil
	case PostgresOptions:
		password, err := o.Password.Secret()
		if err != nil {
			return nil, err
		}
		config := gosql.PostgresConfig{
			Hosts:    o.Hosts,
			User:     o.User,
			Password: password,
			Name:     o.Name,
			SSLMode:  o.SSLMode,
		}
		return config.NewDB()
	default:
		return nil, fmt.Errorf("driver %T is not supported", o)
	}
}
