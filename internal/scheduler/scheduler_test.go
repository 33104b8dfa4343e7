package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRun(t *testing.T) {
	s := New(nil, nil, 2)

	// Before today's trigger hour: fires later today.
	now := time.Date(2025, 6, 1, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC), s.nextRun(now))

	// After today's trigger hour: fires tomorrow.
	now = time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), s.nextRun(now))

	// Exactly at the trigger instant: the next run is tomorrow, not now.
	now = time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), s.nextRun(now))
}
