package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB is the subset of the connection used by the health check and shutdown
type DB interface {
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB wraps the sqlx connection shared by every repository
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connection poolers (pgbouncer, Supavisor) reject prepared statements
	connectionURL := cfg.URL
	if strings.Contains(connectionURL, "pooler") && !strings.Contains(connectionURL, "binary_parameters") {
		separator := "?"
		if strings.Contains(connectionURL, "?") {
			separator = "&"
		}
		connectionURL = connectionURL + separator + "binary_parameters=yes"
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// Sqlx returns the underlying sqlx handle for repositories
func (db *PostgresDB) Sqlx() *sqlx.DB {
	return db.DB
}
