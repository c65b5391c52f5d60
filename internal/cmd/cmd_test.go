package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"monday", 0},
		{"Tue", 1},
		{" SUNDAY ", 6},
		{"fri", 4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWeekday(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseWeekday("mo")
	assert.Error(t, err)
	_, err = parseWeekday("someday")
	assert.Error(t, err)
}

func TestParseInstant(t *testing.T) {
	got, err := parseInstant("2024-06-03T08:15:00Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 3, 8, 15, 0, 0, time.UTC)))

	got, err = parseInstant("2024-06-03 17:30")
	require.NoError(t, err)
	assert.Equal(t, 17, got.Hour())
	assert.Equal(t, 30, got.Minute())

	_, err = parseInstant("tomorrow")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"run", "predict", "history", "report", "version"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	c, _, err := rootCmd.Find([]string{"history", "import"})
	require.NoError(t, err)
	assert.Equal(t, "import", c.Name())
}
