package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/sallebot/internal/domain"
)

func TestIntervalContainsBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	iv, err := domain.NewInterval(start, end)
	require.NoError(t, err)

	assert.True(t, iv.Contains(start), "start is inclusive")
	assert.True(t, iv.Contains(end), "end is inclusive")
	assert.True(t, iv.Contains(start.Add(30*time.Minute)))
	assert.False(t, iv.Contains(start.Add(-time.Nanosecond)))
	assert.False(t, iv.Contains(end.Add(time.Nanosecond)))
	assert.Equal(t, "09:00-10:00", iv.FormatTime())
}

func TestNewIntervalRejectsReversedBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := domain.NewInterval(start, start.Add(-time.Minute))
	assert.Error(t, err)

	iv, err := domain.NewInterval(start, start)
	require.NoError(t, err)
	assert.True(t, iv.Contains(start))
}

func TestNewIntervalNormalizesToUTC(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, paris)

	iv, err := domain.NewInterval(start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, iv.Start.Location())
	assert.Equal(t, 9, iv.Start.Hour())
}
