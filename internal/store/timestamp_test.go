package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"upstream layout", "05.03.2024 14:30:00"},
		{"rfc3339", "2024-03-05T14:30:00Z"},
		{"rfc3339 with offset", "2024-03-05T16:30:00+02:00"},
		{"space separated", "2024-03-05 14:30:00"},
		{"unix seconds", "1709649000"},
		{"unix millis", "1709649000000"},
		{"written date", "5 March 2024 14:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Rejects(t *testing.T) {
	for _, input := range []string{"", "   ", "0", "-5", "yesterday", "2 hours ago", "now", "March 5 10:00", "March 2024", "14:30"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTimestamp(input)
			assert.Error(t, err)
		})
	}
}

func TestParseTimestamp_IndependentOfClock(t *testing.T) {
	first, err := ParseTimestamp("5 March 2024 14:30:00")
	require.NoError(t, err)
	second, err := ParseTimestamp("5 March 2024 14:30:00")
	require.NoError(t, err)
	assert.Equal(t, 2024, first.Year())
	assert.True(t, first.Equal(second))

	_, err = ParseTimestamp("March 5 10:00")
	require.Error(t, err, "a date without a year must not borrow it from the clock")
}
