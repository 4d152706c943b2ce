package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// UserStore resolves user identities. Account management lives outside this
// service; only lookups are needed here.
type UserStore struct {
	db *sql.DB
}

// NewUserStore returns a user store over the shared pool.
func NewUserStore(pg *PostgresDB) *UserStore {
	return &UserStore{db: pg.db}
}

var _ ports.UserStore = (*UserStore)(nil)

func (s *UserStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, nickname FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.Nickname)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}
