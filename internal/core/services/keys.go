package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
)

// Cache key operations. Every call site gets its own discriminator so that
// queries with coinciding parameters can never collide.
const (
	opSunriseHour = "by-sunrise-hour"
	opSunsetHour  = "by-sunset-hour"
	opRequesters  = "requesters"
	opListAll     = "list-all"
)

// cacheKey is a structured cache fingerprint: an operation discriminator plus
// the semantically relevant query parameters, rendered canonically.
type cacheKey struct {
	op    string
	parts []string
}

func newCacheKey(op string, params ...any) cacheKey {
	parts := make([]string, 0, len(params))

	for _, p := range params {
		switch v := p.(type) {
		case time.Time:
			parts = append(parts, v.Format(domain.DateLayout))
		default:
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}

	return cacheKey{op: op, parts: parts}
}

func (k cacheKey) String() string {
	if len(k.parts) == 0 {
		return k.op
	}

	return k.op + ":" + strings.Join(k.parts, ":")
}

func hourOp(kind domain.HourKind) string {
	if kind == domain.SunsetHour {
		return opSunsetHour
	}

	return opSunriseHour
}
