package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		interval string
		want     time.Duration
	}{
		{"1m", time.Minute},
		{"15m", 15 * time.Minute},
		{"30m", 30 * time.Minute},
		{"1h", time.Hour},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1M", 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		got, err := IntervalDuration(tt.interval)
		require.NoError(t, err, tt.interval)
		assert.Equal(t, tt.want, got, tt.interval)
	}
}

func TestIntervalDuration_Invalid(t *testing.T) {
	for _, interval := range []string{"", "m", "15", "h1", "0m", "-1h", "15x", "абв"} {
		_, err := IntervalDuration(interval)
		assert.Error(t, err, interval)
	}
}

func TestSortTimeframes(t *testing.T) {
	got := SortTimeframes([]string{"4h", "15m", "1d", "1h"})
	assert.Equal(t, []string{"15m", "1h", "4h", "1d"}, got)
}

func TestSortTimeframes_DoesNotMutateInput(t *testing.T) {
	in := []string{"4h", "15m"}
	SortTimeframes(in)
	assert.Equal(t, []string{"4h", "15m"}, in)
}

func TestNormalizeTimeframes(t *testing.T) {
	got := NormalizeTimeframes([]string{" 4H ", "15m", "4h", "", "1h", "15M"})
	assert.Equal(t, []string{"15m", "1h", "4h", "15M"}, got)
}

func TestNormalizeTimeframes_MonthIsNotMinute(t *testing.T) {
	// Binance различает "1m" (минута) и "1M" (месяц): нормализация
	// не должна склеивать их
	got := NormalizeTimeframes([]string{"1M", "1m"})
	assert.Equal(t, []string{"1m", "1M"}, got)

	month, err := IntervalDuration("1M")
	require.NoError(t, err)
	minute, err := IntervalDuration("1m")
	require.NoError(t, err)
	assert.Greater(t, month, minute)
}

func TestNormalizeTimeframes_Empty(t *testing.T) {
	assert.Empty(t, NormalizeTimeframes(nil))
	assert.Empty(t, NormalizeTimeframes([]string{"", "  "}))
}
