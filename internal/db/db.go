// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Options describes how to reach the database.
type Options struct {
	Driver Dialect

	// Postgres. URL wins over the individual parts when set.
	URL      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string

	// SQLite. ":memory:" gives a private in-memory database.
	Path string
}

// DSN renders the connection string for the selected driver.
func (o Options) DSN() string {
	if o.Driver == SQLite {
		path := o.Path
		if path == "" {
			path = ":memory:"
		}
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	if o.URL != "" {
		return o.URL
	}
	sslmode := o.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(o.User, o.Password),
		Host:     o.Host + ":" + o.Port,
		Path:     "/" + o.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

// Database pairs the pool with the dialect its SQL must be written in.
type Database struct {
	*sql.DB
	Dialect Dialect
}

// Conn returns a DBTX over the pool that accepts `?` placeholders.
func (d *Database) Conn() DBTX {
	return Bind(d.DB, d.Dialect)
}

// Open connects, pings and migrates.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driverName := "postgres"
	if opts.Driver == SQLite {
		driverName = "sqlite"
		if opts.Path != "" && opts.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	log.Info("opening database",
		zap.String("driver", driverName),
		zap.String("host", opts.Host),
		zap.String("name", opts.Name),
		zap.String("path", opts.Path),
	)

	sqlDB, err := sql.Open(driverName, opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if opts.Driver == SQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	database := &Database{DB: sqlDB, Dialect: opts.Driver}
	if err := Migrate(ctx, database); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info("✅ connected to database", zap.String("driver", driverName))
	return database, nil
}
