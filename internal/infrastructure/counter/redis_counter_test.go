package counter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterKeyOutsideCacheNamespace(t *testing.T) {
	// The Redis cache clears everything under "suninfo:cache:". The counter
	// must live outside that prefix or cache invalidation wipes the total.
	assert.Equal(t, "suninfo:requests:total", counterKey)
	assert.False(t, strings.HasPrefix(counterKey, "suninfo:cache:"))
}
