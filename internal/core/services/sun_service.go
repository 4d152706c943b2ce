// Package services implements the enrichment-and-cache pipeline: resolving a
// coordinate and date to local sun times via the external providers,
// reconciling the result against the persistence store, and serving repeated
// derived queries from the bounded cache.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

const (
	msgRecordNotFound  = "Coordinates information not found!"
	msgUserNotFound    = "User not found!"
	msgCountryNotFound = "Country not found!"
	msgAlreadyExists   = "This information already exists."

	bulkErrorSeparator = "   ||||   "

	defaultPageSize = 10
)

type sunService struct {
	records   ports.RecordStore
	countries ports.CountryStore
	users     ports.UserStore
	client    ports.EnrichmentClient
	cache     ports.CacheService
	counter   ports.RequestCounter
	logger    *zap.Logger
}

// NewSunInfoService wires the reconciler over its collaborators. counter may
// be nil when request counting is disabled.
func NewSunInfoService(
	records ports.RecordStore,
	countries ports.CountryStore,
	users ports.UserStore,
	client ports.EnrichmentClient,
	cache ports.CacheService,
	counter ports.RequestCounter,
	logger *zap.Logger,
) ports.SunInfoService {
	return &sunService{
		records:   records,
		countries: countries,
		users:     users,
		client:    client,
		cache:     cache,
		counter:   counter,
		logger:    logger,
	}
}

func (s *sunService) Resolve(ctx context.Context, userID int64, q domain.Query) (*domain.SunRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, domain.Invalid(err.Error())
	}

	user, err := s.users.FindByID(ctx, userID)

	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, domain.NotFound(msgUserNotFound)
	}

	s.countRequest(ctx)

	rec, err := s.records.FindByCoordinates(ctx, q.Latitude, q.Longitude, domain.Date(q.Date))

	if err != nil {
		return nil, err
	}

	if rec != nil {
		return s.reconcileExisting(ctx, rec, userID)
	}

	rec, err = s.enrich(ctx, q)

	if err != nil {
		s.logger.Error("enrichment failed",
			zap.Float64("latitude", q.Latitude),
			zap.Float64("longitude", q.Longitude),
			zap.Error(err))

		return nil, err
	}

	country, err := s.getOrCreateCountry(ctx, rec.Country)

	if err != nil {
		return nil, err
	}

	rec.CountryID = country.ID

	if err := s.records.Create(ctx, rec); err != nil {
		// Losing the first-insert race for the same tuple is an expected
		// outcome, not a crash.
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Conflict(msgAlreadyExists)
		}

		return nil, err
	}

	if err := s.records.AddRequester(ctx, rec.ID, userID); err != nil {
		return nil, err
	}

	s.logger.Info("record enriched and persisted",
		zap.Float64("latitude", q.Latitude),
		zap.Float64("longitude", q.Longitude),
		zap.String("date", q.Date.Format(domain.DateLayout)),
		zap.String("time_zone", rec.TimeZone))

	return rec, nil
}

// reconcileExisting serves a tuple already known to the store: the enriched
// fields are returned as-is, with no re-enrichment; only the country
// association (when previously unset) and the requester set may change.
func (s *sunService) reconcileExisting(ctx context.Context, rec *domain.SunRecord, userID int64) (*domain.SunRecord, error) {
	if rec.CountryID == 0 {
		name, err := s.countryName(ctx, rec.Latitude, rec.Longitude)

		if err != nil {
			return nil, err
		}

		country, err := s.getOrCreateCountry(ctx, name)

		if err != nil {
			return nil, err
		}

		rec.CountryID = country.ID
		rec.Country = country.Name

		if err := s.records.Update(ctx, rec); err != nil {
			return nil, err
		}

		s.logger.Info("country association backfilled",
			zap.Int64("id", rec.ID),
			zap.String("country", country.Name))
	}

	has, err := s.records.HasRequester(ctx, rec.ID, userID)

	if err != nil {
		return nil, err
	}

	if !has {
		if err := s.records.AddRequester(ctx, rec.ID, userID); err != nil {
			return nil, err
		}

		s.logger.Debug("requester attached",
			zap.Int64("id", rec.ID),
			zap.Int64("user_id", userID))
	}

	return rec, nil
}

// enrich runs the three external lookups and the time normalization for a
// tuple not yet known to the store. Any failure propagates unchanged so the
// caller never persists a partial record.
func (s *sunService) enrich(ctx context.Context, q domain.Query) (*domain.SunRecord, error) {
	raw, err := s.client.SunTimes(ctx, q.Latitude, q.Longitude, q.Date)

	if err != nil {
		return nil, err
	}

	zoneID, err := s.client.TimeZoneID(ctx, q.Latitude, q.Longitude)

	if err != nil {
		return nil, err
	}

	norm, err := normalizeSunTimes(raw, q.Date, zoneID)

	if err != nil {
		return nil, err
	}

	if norm.SunriseDayOffset != 0 || norm.SunsetDayOffset != 0 {
		s.logger.Warn("zone conversion crossed a date boundary; stored date keeps the query date",
			zap.String("time_zone", zoneID),
			zap.Int("sunrise_day_offset", norm.SunriseDayOffset),
			zap.Int("sunset_day_offset", norm.SunsetDayOffset))
	}

	name, err := s.countryName(ctx, q.Latitude, q.Longitude)

	if err != nil {
		return nil, err
	}

	return &domain.SunRecord{
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
		Date:      domain.Date(q.Date),
		Sunrise:   norm.Sunrise,
		Sunset:    norm.Sunset,
		TimeZone:  zoneID,
		City:      norm.City,
		Country:   name,
	}, nil
}

func (s *sunService) countryName(ctx context.Context, lat, lon float64) (string, error) {
	code, err := s.client.CountryCode(ctx, lat, lon)

	if err != nil {
		return "", err
	}

	code = strings.TrimSpace(code)

	if code == "" {
		return "", domain.NotFound(msgCountryNotFound)
	}

	name := s.client.CountryName(code)

	if name == "" {
		return "", domain.NotFound(msgCountryNotFound)
	}

	return name, nil
}

// getOrCreateCountry resolves a country by exact, case-sensitive name match,
// creating it on first reference. A create that loses a concurrent race falls
// back to the winner's row.
func (s *sunService) getOrCreateCountry(ctx context.Context, name string) (*domain.Country, error) {
	country, err := s.countries.FindByName(ctx, name)

	if err != nil {
		return nil, err
	}

	if country != nil {
		return country, nil
	}

	country = &domain.Country{Name: name}

	if err := s.countries.Create(ctx, country); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			if existing, ferr := s.countries.FindByName(ctx, name); ferr == nil && existing != nil {
				return existing, nil
			}
		}

		return nil, err
	}

	return country, nil
}

func (s *sunService) CreateRecord(ctx context.Context, q domain.Query) (*domain.SunRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, domain.Invalid(err.Error())
	}

	existing, err := s.records.FindByCoordinates(ctx, q.Latitude, q.Longitude, domain.Date(q.Date))

	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, domain.Conflict(msgAlreadyExists)
	}

	rec, err := s.enrich(ctx, q)

	if err != nil {
		return nil, err
	}

	country, err := s.getOrCreateCountry(ctx, rec.Country)

	if err != nil {
		return nil, err
	}

	rec.CountryID = country.ID

	if err := s.records.Create(ctx, rec); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Conflict(msgAlreadyExists)
		}

		return nil, err
	}

	s.clearCache(ctx)

	return rec, nil
}

func (s *sunService) CreateRecords(ctx context.Context, qs []domain.Query) error {
	if len(qs) == 0 {
		return domain.Invalid("bulk request list must not be empty")
	}

	var failures []string

	for _, q := range qs {
		if _, err := s.CreateRecord(ctx, q); err != nil {
			failures = append(failures, messageOf(err))
		}
	}

	s.clearCache(ctx)

	if len(failures) > 0 {
		return domain.Partial("Errors occurred during bulk creation: " +
			strings.Join(failures, bulkErrorSeparator))
	}

	return nil
}

func (s *sunService) UpdateRecord(ctx context.Context, id int64, upd domain.RecordUpdate) (*domain.SunRecord, error) {
	rec, err := s.records.FindByID(ctx, id)

	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, domain.NotFound(msgRecordNotFound)
	}

	// Invalidation must use the pre-update hour values, before the record is
	// touched in memory or in the store.
	s.invalidateDerived(ctx, rec)

	country, err := s.getOrCreateCountry(ctx, upd.Country)

	if err != nil {
		return nil, err
	}

	rec.Latitude = upd.Latitude
	rec.Longitude = upd.Longitude
	rec.Date = domain.Date(upd.Date)
	rec.Sunrise = domain.Clock(upd.Sunrise)
	rec.Sunset = domain.Clock(upd.Sunset)
	rec.TimeZone = upd.TimeZone
	rec.City = upd.City
	rec.CountryID = country.ID
	rec.Country = country.Name

	if err := s.records.Update(ctx, rec); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Conflict(msgAlreadyExists)
		}

		return nil, err
	}

	return rec, nil
}

func (s *sunService) DeleteRecord(ctx context.Context, id int64) error {
	rec, err := s.records.FindByID(ctx, id)

	if err != nil {
		return err
	}

	if rec == nil {
		return domain.NotFound(msgRecordNotFound)
	}

	// Pre-deletion values drive the invalidation.
	s.invalidateDerived(ctx, rec)

	return s.records.Delete(ctx, id)
}

func (s *sunService) RecordsByHour(ctx context.Context, kind domain.HourKind, hour, page, size int) (*domain.Page[domain.SunRecord], error) {
	page, size = normalizePage(page, size)
	key := newCacheKey(hourOp(kind), hour, page, size).String()

	if cached, ok := pageFromCache[domain.SunRecord](ctx, s, key); ok {
		return cached, nil
	}

	items, err := s.records.ListByHour(ctx, kind, hour, page, size)

	if err != nil {
		return nil, err
	}

	result := &domain.Page[domain.SunRecord]{Items: items, Number: page, Size: size}
	pageToCache(ctx, s, key, result)

	return result, nil
}

func (s *sunService) Records(ctx context.Context, page, size int) (*domain.Page[domain.SunRecord], error) {
	page, size = normalizePage(page, size)
	key := newCacheKey(opListAll, page, size).String()

	if cached, ok := pageFromCache[domain.SunRecord](ctx, s, key); ok {
		return cached, nil
	}

	items, err := s.records.ListAll(ctx, page, size)

	if err != nil {
		return nil, err
	}

	result := &domain.Page[domain.SunRecord]{Items: items, Number: page, Size: size}
	pageToCache(ctx, s, key, result)

	return result, nil
}

func (s *sunService) RecordRequesters(ctx context.Context, id int64, page, size int) (*domain.Page[domain.User], error) {
	page, size = normalizePage(page, size)
	key := newCacheKey(opRequesters, id, page, size).String()

	if cached, ok := pageFromCache[domain.User](ctx, s, key); ok {
		return cached, nil
	}

	exists, err := s.records.ExistsByID(ctx, id)

	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, domain.NotFound(msgRecordNotFound)
	}

	items, err := s.records.ListRequesters(ctx, id, page, size)

	if err != nil {
		return nil, err
	}

	result := &domain.Page[domain.User]{Items: items, Number: page, Size: size}
	pageToCache(ctx, s, key, result)

	return result, nil
}

// invalidateDerived evicts the hour-indexed entries that could contain rec.
// The keys carry page dimensions that cannot be enumerated here, so the whole
// cache is flushed; the load-bearing part is the ordering, which the callers
// preserve by invoking this before mutating the record.
func (s *sunService) invalidateDerived(ctx context.Context, rec *domain.SunRecord) {
	s.logger.Debug("invalidating derived cache entries",
		zap.Int64("id", rec.ID),
		zap.Int("sunrise_hour", rec.Sunrise.Hour()),
		zap.Int("sunset_hour", rec.Sunset.Hour()))

	s.clearCache(ctx)
}

func (s *sunService) clearCache(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("cache clear failed", zap.Error(err))
	}
}

func (s *sunService) countRequest(ctx context.Context) {
	if s.counter == nil {
		return
	}

	if _, err := s.counter.Increment(ctx); err != nil {
		s.logger.Warn("request counter increment failed", zap.Error(err))
	}
}

func pageFromCache[T any](ctx context.Context, s *sunService, key string) (*domain.Page[T], bool) {
	data, err := s.cache.Get(ctx, key)

	if err != nil {
		return nil, false
	}

	var p domain.Page[T]

	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("dropping undecodable cache entry",
			zap.String("key", key),
			zap.Error(err))
		_ = s.cache.Delete(ctx, key)

		return nil, false
	}

	return &p, true
}

func pageToCache[T any](ctx context.Context, s *sunService, key string, p *domain.Page[T]) {
	data, err := json.Marshal(p)

	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, key, data, 0); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func normalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}

	if size < 1 {
		size = defaultPageSize
	}

	return page, size
}

func messageOf(err error) string {
	var e *domain.Error

	if errors.As(err, &e) {
		return e.Message
	}

	return err.Error()
}
