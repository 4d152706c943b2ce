package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// referenceZone anchors the raw provider times before re-projection. The
// sun-time provider reports wall-clock values as if the coordinate were at
// UTC+0; that is the provider's documented convention.
var referenceZone = time.UTC

// normalizedTimes is the result of projecting raw reference-zone sun times
// into the coordinate's actual zone.
type normalizedTimes struct {
	// Sunrise and Sunset are clock-only local times in the target zone.
	Sunrise time.Time
	Sunset  time.Time

	// SunriseDayOffset and SunsetDayOffset report how many calendar days the
	// projection moved relative to the query date (-1, 0 or +1). The stored
	// record date is never adjusted; the offsets exist so callers can observe
	// boundary crossings explicitly.
	SunriseDayOffset int
	SunsetDayOffset  int

	City string
}

// normalizeSunTimes pairs the raw clock values with the query date in the
// reference zone, re-projects the resulting instants into zoneID (same
// instant, different wall clock), and derives the city label from the zone
// identifier.
func normalizeSunTimes(raw *ports.SunTimes, date time.Time, zoneID string) (*normalizedTimes, error) {
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, domain.Unavailable(fmt.Sprintf("unknown time zone %q", zoneID), err)
	}

	sunrise, sunriseOffset := projectClock(raw.Sunrise, date, loc)
	sunset, sunsetOffset := projectClock(raw.Sunset, date, loc)

	return &normalizedTimes{
		Sunrise:          sunrise,
		Sunset:           sunset,
		SunriseDayOffset: sunriseOffset,
		SunsetDayOffset:  sunsetOffset,
		City:             cityFromZoneID(zoneID),
	}, nil
}

// projectClock converts one reference-zone clock value into a clock-only
// local time in loc, reporting the day delta when the conversion crosses
// midnight.
func projectClock(clock, date time.Time, loc *time.Location) (time.Time, int) {
	instant := time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, referenceZone)

	local := instant.In(loc)

	localDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	refDate := domain.Date(date)
	offset := int(localDate.Sub(refDate).Hours() / 24)

	return domain.Clock(local), offset
}

// cityFromZoneID derives the display city from an IANA zone identifier: the
// second slash-separated segment, so "Asia/Vladivostok" yields "Vladivostok"
// and "America/Argentina/Buenos_Aires" yields "Argentina". Identifiers with
// no "/" (e.g. "UTC") yield the whole identifier.
func cityFromZoneID(zoneID string) string {
	parts := strings.Split(zoneID, "/")
	if len(parts) > 1 {
		return parts[1]
	}

	return zoneID
}
