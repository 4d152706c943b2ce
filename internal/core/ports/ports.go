// Package ports defines the interfaces between the enrichment core and its
// collaborators: persistence stores, the external data providers, the cache,
// and the service surface exposed to the transport layer.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent.
// A miss is a normal outcome, not a failure.
var ErrCacheMiss = errors.New("cache miss")

// SunInfoService is the operation surface consumed by the transport layer.
type SunInfoService interface {
	// Resolve returns the enriched record for the query, enriching and
	// persisting it on first sight and attaching the requesting user.
	Resolve(ctx context.Context, userID int64, q domain.Query) (*domain.SunRecord, error)

	// CreateRecord enriches and persists a record with no requester
	// association. It rejects tuples that already exist.
	CreateRecord(ctx context.Context, q domain.Query) (*domain.SunRecord, error)

	// CreateRecords applies CreateRecord to every element, attempting all
	// of them and reporting the collected failures at the end.
	CreateRecords(ctx context.Context, qs []domain.Query) error

	// UpdateRecord unconditionally replaces every scalar field of an
	// existing record and re-resolves its country association.
	UpdateRecord(ctx context.Context, id int64, upd domain.RecordUpdate) (*domain.SunRecord, error)

	// DeleteRecord removes a record and invalidates derived cache entries.
	DeleteRecord(ctx context.Context, id int64) error

	// RecordsByHour lists records whose sunrise or sunset falls in the
	// given hour, served cache-first.
	RecordsByHour(ctx context.Context, kind domain.HourKind, hour int, page, size int) (*domain.Page[domain.SunRecord], error)

	// Records lists all records, served cache-first.
	Records(ctx context.Context, page, size int) (*domain.Page[domain.SunRecord], error)

	// RecordRequesters lists the users that have queried a record.
	RecordRequesters(ctx context.Context, id int64, page, size int) (*domain.Page[domain.User], error)
}

// RecordStore is the persistence contract for sun records. Lookups that find
// nothing return (nil, nil); errors are reserved for store failures. Create
// surfaces uniqueness violations as domain.KindConflict errors.
type RecordStore interface {
	FindByCoordinates(ctx context.Context, lat, lon float64, date time.Time) (*domain.SunRecord, error)
	FindByID(ctx context.Context, id int64) (*domain.SunRecord, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, rec *domain.SunRecord) error
	Update(ctx context.Context, rec *domain.SunRecord) error
	Delete(ctx context.Context, id int64) error

	ListByHour(ctx context.Context, kind domain.HourKind, hour, page, size int) ([]domain.SunRecord, error)
	ListAll(ctx context.Context, page, size int) ([]domain.SunRecord, error)

	HasRequester(ctx context.Context, recordID, userID int64) (bool, error)
	AddRequester(ctx context.Context, recordID, userID int64) error
	ListRequesters(ctx context.Context, recordID int64, page, size int) ([]domain.User, error)
}

// CountryStore persists name-keyed countries. Name uniqueness is enforced by
// the store; Create surfaces violations as domain.KindConflict errors.
type CountryStore interface {
	FindByName(ctx context.Context, name string) (*domain.Country, error)
	Create(ctx context.Context, country *domain.Country) error
}

// UserStore resolves external user identities. FindByID returns (nil, nil)
// when the user does not exist.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// SunTimes carries the raw sunrise/sunset clock values as reported by the
// sun-time provider: wall-clock times anchored to the UTC+0 reference zone,
// not yet projected into the coordinate's actual zone.
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// EnrichmentClient is the gateway to the three external data sources. Each
// call fails with a domain.KindUnavailable error when the network call errors,
// the response is unparseable, or an expected field is absent; it never
// returns an empty result silently.
type EnrichmentClient interface {
	SunTimes(ctx context.Context, lat, lon float64, date time.Time) (*SunTimes, error)
	TimeZoneID(ctx context.Context, lat, lon float64) (string, error)
	CountryCode(ctx context.Context, lat, lon float64) (string, error)

	// CountryName maps a two-letter country code to its display name using
	// a local locale table. Pure and non-networked; returns "" for codes it
	// does not know.
	CountryName(code string) string
}

// CacheService is the bounded query cache shared across requests. Operations
// never fail the caller: absence is ErrCacheMiss, and write errors are for
// logging only. Implementations may ignore ttl.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RequestCounter tracks how many lookups the service has handled. Counting is
// best effort; failures must not fail the request being counted.
type RequestCounter interface {
	Increment(ctx context.Context) (int64, error)
	Total(ctx context.Context) (int64, error)
}
