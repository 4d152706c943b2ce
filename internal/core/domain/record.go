// Package domain contains the core business entities for the sunrise/sunset
// service. These types are independent of transport, storage, and the external
// data providers that populate them.
package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// ClockLayout is the storage format for local times of day.
const ClockLayout = "15:04:05"

// Query identifies one sunrise/sunset lookup: an exact coordinate pair and a
// calendar date. Exact floating-point equality on latitude/longitude is the
// deduplication key; two nearly identical coordinates never dedup.
type Query struct {
	// Latitude specifies the north-south position (-90 to 90 degrees)
	Latitude float64

	// Longitude specifies the east-west position (-180 to 180 degrees)
	Longitude float64

	// Date is the calendar date of interest; the time component is ignored.
	Date time.Time
}

// Validate checks that the query carries a date and coordinates within valid
// geographic bounds.
func (q Query) Validate() error {
	if q.Latitude < -90 || q.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", q.Latitude)
	}

	if q.Longitude < -180 || q.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", q.Longitude)
	}

	if q.Date.IsZero() {
		return fmt.Errorf("date is required")
	}

	return nil
}

// SunRecord is the enriched, persisted result for one (latitude, longitude,
// date) tuple. At most one record exists per tuple. Once created, a record is
// immutable except for its requester and country associations, which may grow
// as new users query the same tuple or as country data is backfilled.
type SunRecord struct {
	ID int64

	Latitude  float64
	Longitude float64

	// Date is the requested calendar date. It is not adjusted when time-zone
	// conversion pushes sunrise or sunset past midnight.
	Date time.Time

	// Sunrise and Sunset are local times of day in TimeZone, represented as
	// clock-only values (zero date).
	Sunrise time.Time
	Sunset  time.Time

	// TimeZone is the IANA zone identifier, e.g. "Asia/Vladivostok".
	TimeZone string

	// City is the path segment after the "/" in TimeZone. It is a display
	// convenience, not a geocoded city name.
	City string

	CountryID int64

	// Country is the display name of the associated country, populated on
	// reads via the country association.
	Country string
}

// Country is a name-keyed entity created lazily on first reference.
type Country struct {
	ID   int64
	Name string
}

// User is the external identity that requests lookups. Only the association
// contract matters here; account management lives elsewhere.
type User struct {
	ID       int64
	Email    string
	Nickname string
}

// RecordUpdate carries replacement values for every scalar field of a record.
// Updates are unconditional: no re-enrichment and no validation against the
// external services.
type RecordUpdate struct {
	Latitude  float64
	Longitude float64
	Date      time.Time
	Sunrise   time.Time
	Sunset    time.Time
	TimeZone  string
	City      string
	Country   string
}

// Page is one page of a listing query.
type Page[T any] struct {
	Items  []T `json:"items"`
	Number int `json:"page"`
	Size   int `json:"pageSize"`
}

// HourKind selects which derived hour index a listing query runs against.
type HourKind string

const (
	SunriseHour HourKind = "sunrise"
	SunsetHour  HourKind = "sunset"
)

// Clock truncates t to a clock-only value (zero date), the canonical
// representation for Sunrise and Sunset.
func Clock(t time.Time) time.Time {
	return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Date truncates t to a date-only value at midnight UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
