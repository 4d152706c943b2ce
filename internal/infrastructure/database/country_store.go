package database

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// CountryStore persists name-keyed countries.
type CountryStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCountryStore returns a country store over the shared pool.
func NewCountryStore(pg *PostgresDB, logger *zap.Logger) *CountryStore {
	return &CountryStore{db: pg.db, logger: logger}
}

var _ ports.CountryStore = (*CountryStore)(nil)

// FindByName looks up a country by exact, case-sensitive name.
func (s *CountryStore) FindByName(ctx context.Context, name string) (*domain.Country, error) {
	var country domain.Country

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM countries WHERE name = $1`, name).
		Scan(&country.ID, &country.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &country, nil
}

func (s *CountryStore) Create(ctx context.Context, country *domain.Country) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO countries (name) VALUES ($1) RETURNING id`, country.Name).
		Scan(&country.ID)

	if err != nil {
		return conflictError(err, "country already exists")
	}

	s.logger.Debug("country created",
		zap.Int64("id", country.ID),
		zap.String("name", country.Name))

	return nil
}
