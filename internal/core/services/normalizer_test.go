package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

func TestNormalizeSunTimes(t *testing.T) {
	date := time.Date(2024, time.March, 26, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		sunrise       string
		sunset        string
		zoneID        string
		wantSunrise   string
		wantSunset    string
		wantSunriseDO int
		wantSunsetDO  int
		wantCity      string
	}{
		{
			name:          "vladivostok sunrise crosses into the next day",
			sunrise:       "21:03:07",
			sunset:        "09:15:00",
			zoneID:        "Asia/Vladivostok",
			wantSunrise:   "07:03:07",
			wantSunset:    "19:15:00",
			wantSunriseDO: 1,
			wantSunsetDO:  0,
			wantCity:      "Vladivostok",
		},
		{
			name:        "utc zone is a no-op",
			sunrise:     "06:30:00",
			sunset:      "18:45:00",
			zoneID:      "UTC",
			wantSunrise: "06:30:00",
			wantSunset:  "18:45:00",
			wantCity:    "UTC",
		},
		{
			name:          "negative offset crosses into the previous day",
			sunrise:       "02:15:00",
			sunset:        "14:30:00",
			zoneID:        "Pacific/Honolulu",
			wantSunrise:   "16:15:00",
			wantSunset:    "04:30:00",
			wantSunriseDO: -1,
			wantSunsetDO:  0,
			wantCity:      "Honolulu",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &ports.SunTimes{
				Sunrise: mustClock(t, tt.sunrise),
				Sunset:  mustClock(t, tt.sunset),
			}

			norm, err := normalizeSunTimes(raw, date, tt.zoneID)

			assert.NoError(t, err)
			assert.Equal(t, mustClock(t, tt.wantSunrise), norm.Sunrise)
			assert.Equal(t, mustClock(t, tt.wantSunset), norm.Sunset)
			assert.Equal(t, tt.wantSunriseDO, norm.SunriseDayOffset)
			assert.Equal(t, tt.wantSunsetDO, norm.SunsetDayOffset)
			assert.Equal(t, tt.wantCity, norm.City)
		})
	}
}

func TestNormalizeSunTimes_UnknownZone(t *testing.T) {
	raw := &ports.SunTimes{
		Sunrise: mustClock(t, "06:00:00"),
		Sunset:  mustClock(t, "18:00:00"),
	}

	_, err := normalizeSunTimes(raw, time.Date(2024, time.March, 26, 0, 0, 0, 0, time.UTC), "Nowhere/Atlantis")

	assert.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindUnavailable))
}

func TestCityFromZoneID(t *testing.T) {
	tests := []struct {
		zoneID string
		want   string
	}{
		{"Asia/Vladivostok", "Vladivostok"},
		{"Europe/Paris", "Paris"},
		// Three-segment identifiers keep the second segment.
		{"America/Argentina/Buenos_Aires", "Argentina"},
		{"UTC", "UTC"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cityFromZoneID(tt.zoneID))
	}
}

func TestCacheKeys(t *testing.T) {
	// Coinciding parameters under different operations must never collide.
	byHour := newCacheKey(opSunriseHour, 7, 0, 10).String()
	bySunset := newCacheKey(opSunsetHour, 7, 0, 10).String()
	requesters := newCacheKey(opRequesters, int64(7), 0, 10).String()

	assert.Equal(t, "by-sunrise-hour:7:0:10", byHour)
	assert.NotEqual(t, byHour, bySunset)
	assert.NotEqual(t, byHour, requesters)
	assert.NotEqual(t, bySunset, requesters)

	assert.Equal(t, "list-all", newCacheKey(opListAll).String())

	date := time.Date(2024, time.March, 26, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, "list-all:2024-03-26", newCacheKey(opListAll, date).String())
}

func mustClock(t *testing.T, value string) time.Time {
	t.Helper()

	clock, err := time.Parse(domain.ClockLayout, value)
	assert.NoError(t, err)

	return domain.Clock(clock)
}
