// Package database implements the persistence stores on PostgreSQL.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
)

// PostgresDB owns the connection pool shared by the stores.
type PostgresDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection settings.
type Config struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// NewPostgresDB opens the pool, verifies connectivity, and ensures the schema
// exists.
func NewPostgresDB(cfg Config, logger *zap.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{
		db:     db,
		logger: logger,
	}

	if err := pgDB.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pgDB, nil
}

func (p *PostgresDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS countries (
            id SERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL UNIQUE
        )`,

		`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            email VARCHAR(255) NOT NULL UNIQUE,
            nickname VARCHAR(255) NOT NULL UNIQUE
        )`,

		`CREATE TABLE IF NOT EXISTS sun_records (
            id BIGSERIAL PRIMARY KEY,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            date DATE NOT NULL,
            sunrise TIME NOT NULL,
            sunset TIME NOT NULL,
            time_zone VARCHAR(64) NOT NULL,
            city VARCHAR(255) NOT NULL,
            country_id INT REFERENCES countries(id),
            CONSTRAINT uq_sun_records_tuple UNIQUE (latitude, longitude, date)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sun_records_sunrise_hour
            ON sun_records (EXTRACT(HOUR FROM sunrise))`,
		`CREATE INDEX IF NOT EXISTS idx_sun_records_sunset_hour
            ON sun_records (EXTRACT(HOUR FROM sunset))`,

		`CREATE TABLE IF NOT EXISTS record_requesters (
            record_id BIGINT NOT NULL REFERENCES sun_records(id) ON DELETE CASCADE,
            user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            PRIMARY KEY (record_id, user_id)
        )`,
	}

	for _, query := range queries {
		if _, err := p.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// Close closes the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping verifies the database is reachable.
func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}

// conflictError maps unique-constraint violations to domain conflicts so the
// reconciler can treat a lost insert race as an expected outcome.
func conflictError(err error, message string) error {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &domain.Error{Kind: domain.KindConflict, Message: message, Cause: err}
	}

	return err
}
