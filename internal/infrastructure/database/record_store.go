package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

const recordColumns = `r.id, r.latitude, r.longitude, r.date, r.sunrise, r.sunset,
    r.time_zone, r.city, COALESCE(r.country_id, 0), COALESCE(c.name, '')`

const recordFrom = `FROM sun_records r LEFT JOIN countries c ON c.id = r.country_id`

// RecordStore persists sun records and their requester associations.
type RecordStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordStore returns a record store over the shared pool.
func NewRecordStore(pg *PostgresDB, logger *zap.Logger) *RecordStore {
	return &RecordStore{db: pg.db, logger: logger}
}

var _ ports.RecordStore = (*RecordStore)(nil)

func (s *RecordStore) FindByCoordinates(ctx context.Context, lat, lon float64, date time.Time) (*domain.SunRecord, error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "RecordStore.FindByCoordinates")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lon),
	)

	// Exact floating-point equality is the dedup key; no rounding tolerance.
	query := `SELECT ` + recordColumns + ` ` + recordFrom + `
        WHERE r.latitude = $1 AND r.longitude = $2 AND r.date = $3`

	return s.queryOne(ctx, query, lat, lon, date.Format(domain.DateLayout))
}

func (s *RecordStore) FindByID(ctx context.Context, id int64) (*domain.SunRecord, error) {
	query := `SELECT ` + recordColumns + ` ` + recordFrom + ` WHERE r.id = $1`

	return s.queryOne(ctx, query, id)
}

func (s *RecordStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sun_records WHERE id = $1)`, id).Scan(&exists)

	return exists, err
}

func (s *RecordStore) Create(ctx context.Context, rec *domain.SunRecord) error {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "RecordStore.Create")
	defer span.End()

	query := `
        INSERT INTO sun_records (latitude, longitude, date, sunrise, sunset, time_zone, city, country_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`

	start := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		rec.Latitude,
		rec.Longitude,
		rec.Date.Format(domain.DateLayout),
		rec.Sunrise.Format(domain.ClockLayout),
		rec.Sunset.Format(domain.ClockLayout),
		rec.TimeZone,
		rec.City,
		nullableID(rec.CountryID),
	).Scan(&rec.ID)

	if err != nil {
		span.RecordError(err)
		return conflictError(err, "sun record already exists")
	}

	s.logger.Debug("record created",
		zap.Int64("id", rec.ID),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func (s *RecordStore) Update(ctx context.Context, rec *domain.SunRecord) error {
	query := `
        UPDATE sun_records
        SET latitude = $1, longitude = $2, date = $3, sunrise = $4, sunset = $5,
            time_zone = $6, city = $7, country_id = $8
        WHERE id = $9`

	result, err := s.db.ExecContext(ctx, query,
		rec.Latitude,
		rec.Longitude,
		rec.Date.Format(domain.DateLayout),
		rec.Sunrise.Format(domain.ClockLayout),
		rec.Sunset.Format(domain.ClockLayout),
		rec.TimeZone,
		rec.City,
		nullableID(rec.CountryID),
		rec.ID,
	)

	if err != nil {
		return conflictError(err, "sun record already exists")
	}

	affected, err := result.RowsAffected()

	if err == nil && affected == 0 {
		return fmt.Errorf("record %d vanished during update", rec.ID)
	}

	return err
}

func (s *RecordStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sun_records WHERE id = $1`, id)
	return err
}

func (s *RecordStore) ListByHour(ctx context.Context, kind domain.HourKind, hour, page, size int) ([]domain.SunRecord, error) {
	column := "sunrise"

	if kind == domain.SunsetHour {
		column = "sunset"
	}

	query := `SELECT ` + recordColumns + ` ` + recordFrom + `
        WHERE EXTRACT(HOUR FROM r.` + column + `) = $1
        ORDER BY r.id
        LIMIT $2 OFFSET $3`

	return s.queryMany(ctx, query, hour, size, page*size)
}

func (s *RecordStore) ListAll(ctx context.Context, page, size int) ([]domain.SunRecord, error) {
	query := `SELECT ` + recordColumns + ` ` + recordFrom + `
        ORDER BY r.id
        LIMIT $1 OFFSET $2`

	return s.queryMany(ctx, query, size, page*size)
}

func (s *RecordStore) HasRequester(ctx context.Context, recordID, userID int64) (bool, error) {
	var exists bool

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM record_requesters WHERE record_id = $1 AND user_id = $2)`,
		recordID, userID).Scan(&exists)

	return exists, err
}

func (s *RecordStore) AddRequester(ctx context.Context, recordID, userID int64) error {
	// Concurrent resolves of the same tuple may race here; the association is
	// idempotent either way.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO record_requesters (record_id, user_id) VALUES ($1, $2)
         ON CONFLICT DO NOTHING`,
		recordID, userID)

	return err
}

func (s *RecordStore) ListRequesters(ctx context.Context, recordID int64, page, size int) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.nickname
         FROM users u
         JOIN record_requesters rr ON rr.user_id = u.id
         WHERE rr.record_id = $1
         ORDER BY u.id ASC
         LIMIT $2 OFFSET $3`,
		recordID, size, page*size)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	users := make([]domain.User, 0)

	for rows.Next() {
		var u domain.User

		if err := rows.Scan(&u.ID, &u.Email, &u.Nickname); err != nil {
			return nil, err
		}

		users = append(users, u)
	}

	return users, rows.Err()
}

func (s *RecordStore) queryOne(ctx context.Context, query string, args ...any) (*domain.SunRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *RecordStore) queryMany(ctx context.Context, query string, args ...any) ([]domain.SunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	records := make([]domain.SunRecord, 0)

	for rows.Next() {
		rec, err := scanRecord(rows)

		if err != nil {
			return nil, err
		}

		records = append(records, *rec)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.SunRecord, error) {
	var (
		rec             domain.SunRecord
		sunrise, sunset string
	)

	err := row.Scan(
		&rec.ID,
		&rec.Latitude,
		&rec.Longitude,
		&rec.Date,
		&sunrise,
		&sunset,
		&rec.TimeZone,
		&rec.City,
		&rec.CountryID,
		&rec.Country,
	)

	if err != nil {
		return nil, err
	}

	if rec.Sunrise, err = parseClock(sunrise); err != nil {
		return nil, err
	}

	if rec.Sunset, err = parseClock(sunset); err != nil {
		return nil, err
	}

	rec.Date = domain.Date(rec.Date)

	return &rec, nil
}

func parseClock(value string) (time.Time, error) {
	t, err := time.Parse(domain.ClockLayout, value)

	if err != nil {
		return time.Time{}, fmt.Errorf("malformed time column %q: %w", value, err)
	}

	return domain.Clock(t), nil
}

// nullableID maps the zero value to NULL so unset associations stay unset in
// the database.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
