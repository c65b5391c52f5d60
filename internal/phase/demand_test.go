package phase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"north", North},
		{"South", South},
		{" EAST ", East},
		{"west", West},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDirection(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	_, err := ParseDirection("northeast")
	require.Error(t, err)
	assert.True(t, IsDirectionError(err))
	assert.Equal(t, ErrCodeInvalidDirection, GetErrorCode(err))
	assert.Contains(t, err.Error(), "northeast")
}

func TestDirection_Text(t *testing.T) {
	assert.Equal(t, "unknown", Direction(7).String())
	assert.False(t, Direction(-1).Valid())

	raw, err := json.Marshal(map[string]Direction{"green": West})
	require.NoError(t, err)
	assert.JSONEq(t, `{"green":"west"}`, string(raw))

	var decoded struct {
		Green Direction `json:"green"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"green":"south"}`), &decoded))
	assert.Equal(t, South, decoded.Green)

	assert.Error(t, json.Unmarshal([]byte(`{"green":"up"}`), &decoded))
}

func TestParseDemand(t *testing.T) {
	t.Run("missing directions are zero", func(t *testing.T) {
		dm, err := ParseDemand(map[string]int{"north": 3, "west": 1})
		require.NoError(t, err)
		assert.Equal(t, Demand{3, 0, 0, 1}, dm)
		assert.Equal(t, 4, dm.Total())
	})

	t.Run("unknown key rejects input", func(t *testing.T) {
		_, err := ParseDemand(map[string]int{"north": 3, "up": 1})
		assert.True(t, IsDirectionError(err))
	})

	t.Run("negative count rejects input", func(t *testing.T) {
		_, err := ParseDemand(map[string]int{"east": -2})
		require.Error(t, err)
		assert.True(t, IsCountError(err))
		assert.Equal(t, ErrCodeNegativeCount, GetErrorCode(err))
	})
}

func TestSanitizeDemand(t *testing.T) {
	dm, err := SanitizeDemand(map[string]int{"north": 4, "east": -1, "sky": 9, "west": 2})

	assert.Equal(t, Demand{4, 0, 0, 2}, dm)
	require.Error(t, err)
	assert.True(t, IsDirectionError(err))
	assert.True(t, IsCountError(err))

	dm, err = SanitizeDemand(map[string]int{"south": 1})
	assert.NoError(t, err)
	assert.Equal(t, 1, dm.Of(South))
}

func TestDemand_Map(t *testing.T) {
	assert.Equal(t,
		map[string]int{"north": 1, "south": 2, "east": 3, "west": 4},
		Demand{1, 2, 3, 4}.Map())

	raw, err := json.Marshal(Demand{0, 0, 7, 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"north":0,"south":0,"east":7,"west":1}`, string(raw))
}

func TestTiming_Validate(t *testing.T) {
	require.NoError(t, DefaultTiming().Validate())

	tests := []struct {
		name   string
		mutate func(*Timing)
		field  string
	}{
		{"negative min green", func(tm *Timing) { tm.MinGreen = -1 }, "MinGreen"},
		{"zero max green", func(tm *Timing) { tm.MaxGreen = 0 }, "MaxGreen"},
		{"min above max", func(tm *Timing) { tm.MinGreen = tm.MaxGreen + 1 }, "MinGreen"},
		{"margin below one", func(tm *Timing) { tm.SwitchMargin = 0.9 }, "SwitchMargin"},
		{"empty history", func(tm *Timing) { tm.HistorySize = 0 }, "HistorySize"},
		{"window beyond history", func(tm *Timing) { tm.RotationWindow = 5 }, "RotationWindow"},
		{"bad initial", func(tm *Timing) { tm.Initial = Direction(4) }, "Initial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := DefaultTiming()
			tt.mutate(&tm)
			err := tm.Validate()

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, ErrCodeInvalidConfiguration, GetErrorCode(err))
		})
	}
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "None", ErrCodeNone.String())
	assert.Equal(t, "InvalidDirection", ErrCodeInvalidDirection.String())
	assert.Equal(t, "NegativeCount", ErrCodeNegativeCount.String())
	assert.Equal(t, "NonMonotonicClock", ErrCodeNonMonotonicClock.String())
	assert.Equal(t, ErrCodeNone, GetErrorCode(nil))
}
