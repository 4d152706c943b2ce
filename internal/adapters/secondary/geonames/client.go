// Package geonames implements the external enrichment client: raw sun times
// from the sunrise-sunset API and time zone / country code lookups from the
// GeoNames web services. It is a secondary adapter translating provider
// payloads into the types the core pipeline consumes.
package geonames

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// sunTimeLayout is the provider's clock format: 12-hour with AM/PM marker,
// e.g. "9:03:07 PM".
const sunTimeLayout = "3:04:05 PM"

// Config holds the provider endpoints and credentials.
type Config struct {
	// SunTimesURL is the sunrise-sunset JSON endpoint.
	SunTimesURL string

	// TimeZoneURL and CountryURL are GeoNames endpoints; Username is the
	// GeoNames account the requests are attributed to.
	TimeZoneURL string
	CountryURL  string
	Username    string

	// LookupTTL bounds the memoization of time-zone and country-code
	// responses; a coordinate's zone does not change between requests.
	LookupTTL time.Duration
}

// Client calls the three provider endpoints. Each lookup either yields a
// parsed value or a domain.KindUnavailable error; partial results are never
// returned silently.
type Client struct {
	cfg        Config
	httpClient *http.Client
	lookups    *gocache.Cache
	logger     *zap.Logger
}

// NewClient creates an enrichment client. The supplied HTTP client carries
// the outbound request timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	ttl := cfg.LookupTTL

	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		lookups:    gocache.New(ttl, 2*ttl),
		logger:     logger,
	}
}

// sunTimesResponse mirrors the sunrise-sunset API payload. The clock values
// are wall-clock times anchored to UTC+0 regardless of the coordinate; that
// is the provider's documented convention, and re-zoning happens downstream.
type sunTimesResponse struct {
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
	Status string `json:"status"`
}

// timeZoneResponse mirrors the GeoNames timezoneJSON payload.
type timeZoneResponse struct {
	TimezoneID string `json:"timezoneId"`
}

func (c *Client) SunTimes(ctx context.Context, lat, lon float64, date time.Time) (*ports.SunTimes, error) {
	url := fmt.Sprintf("%s?lat=%f&lng=%f&date=%s",
		c.cfg.SunTimesURL, lat, lon, date.Format(domain.DateLayout))

	body, err := c.fetch(ctx, url)

	if err != nil {
		return nil, domain.Unavailable("sun-time lookup failed", err)
	}

	var payload sunTimesResponse

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.Unavailable("sun-time response is not valid JSON", err)
	}

	if payload.Results.Sunrise == "" || payload.Results.Sunset == "" {
		return nil, domain.Unavailable("sun-time response is missing sunrise or sunset", nil)
	}

	sunrise, err := time.Parse(sunTimeLayout, payload.Results.Sunrise)

	if err != nil {
		return nil, domain.Unavailable(
			fmt.Sprintf("cannot parse sunrise %q", payload.Results.Sunrise), err)
	}

	sunset, err := time.Parse(sunTimeLayout, payload.Results.Sunset)

	if err != nil {
		return nil, domain.Unavailable(
			fmt.Sprintf("cannot parse sunset %q", payload.Results.Sunset), err)
	}

	return &ports.SunTimes{Sunrise: sunrise, Sunset: sunset}, nil
}

func (c *Client) TimeZoneID(ctx context.Context, lat, lon float64) (string, error) {
	memoKey := fmt.Sprintf("tz:%f:%f", lat, lon)

	if zone, found := c.lookups.Get(memoKey); found {
		return zone.(string), nil
	}

	url := fmt.Sprintf("%s?lat=%f&lng=%f&username=%s",
		c.cfg.TimeZoneURL, lat, lon, c.cfg.Username)

	body, err := c.fetch(ctx, url)

	if err != nil {
		return "", domain.Unavailable("time-zone lookup failed", err)
	}

	var payload timeZoneResponse

	if err := json.Unmarshal(body, &payload); err != nil {
		return "", domain.Unavailable("time-zone response is not valid JSON", err)
	}

	if payload.TimezoneID == "" {
		return "", domain.Unavailable("time-zone response is missing timezoneId", nil)
	}

	c.lookups.SetDefault(memoKey, payload.TimezoneID)

	return payload.TimezoneID, nil
}

func (c *Client) CountryCode(ctx context.Context, lat, lon float64) (string, error) {
	memoKey := fmt.Sprintf("cc:%f:%f", lat, lon)

	if code, found := c.lookups.Get(memoKey); found {
		return code.(string), nil
	}

	url := fmt.Sprintf("%s?lat=%f&lng=%f&username=%s",
		c.cfg.CountryURL, lat, lon, c.cfg.Username)

	body, err := c.fetch(ctx, url)

	if err != nil {
		return "", domain.Unavailable("country-code lookup failed", err)
	}

	// The endpoint returns the bare code with trailing CRLF. A blank body is
	// not memoized: pinning a transient "no result" for the full TTL would
	// keep reporting the country as missing after the provider recovers.
	code := strings.TrimSpace(string(body))

	if code != "" {
		c.lookups.SetDefault(memoKey, code)
	}

	return code, nil
}

// CountryName maps an ISO 3166-1 alpha-2 code to its English display name.
// Pure and local; unknown codes yield "".
func (c *Client) CountryName(code string) string {
	region, err := language.ParseRegion(strings.TrimSpace(code))

	if err != nil {
		return ""
	}

	return display.English.Regions().Name(region)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	if err != nil {
		return nil, err
	}

	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Error("failed to close response body", zap.Error(cerr))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, err
	}

	c.logger.Debug("provider call completed",
		zap.String("url", url),
		zap.Duration("duration", time.Since(start)))

	return body, nil
}
