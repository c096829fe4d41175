package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int
		wantErr bool
	}{
		{"nil is UTC", nil, 0, false},
		{"minutes int", 60, 60, false},
		{"minutes int64", int64(-330), -330, false},
		{"whole float", 120.0, 120, false},
		{"json number", json.Number("540"), 540, false},
		{"colon form", "+01:00", 60, false},
		{"negative colon form", "-05:30", -330, false},
		{"compact form", "+0545", 345, false},
		{"hours only", "-03", -180, false},
		{"zulu", "Z", 0, false},
		{"upper bound", "+14:00", 840, false},
		{"lower bound", -720, -720, false},
		{"fractional minutes", 1.5, 0, true},
		{"above range", "+14:01", 0, true},
		{"below range", -721, 0, true},
		{"no sign", "01:00", 0, true},
		{"bad minutes", "+01:75", 0, true},
		{"signed minutes", "+01:-5", 0, true},
		{"plus-signed minutes", "+01:+5", 0, true},
		{"signed hours", "+-1:00", 0, true},
		{"compact signed minutes", "+01-5", 0, true},
		{"non-ascii digits", "+١٢:00", 0, true},
		{"garbage", "Europe/Paris", 0, true},
		{"wrong type", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseOffset(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidTime))
				var ite *domain.InvalidTimeError
				assert.True(t, errors.As(err, &ite))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+00:00", domain.FormatOffset(0))
	assert.Equal(t, "+01:00", domain.FormatOffset(60))
	assert.Equal(t, "-05:30", domain.FormatOffset(-330))
	assert.Equal(t, "+14:00", domain.FormatOffset(840))
}

func TestNewTime(t *testing.T) {
	tm, err := domain.NewTime(1489998174, "+01:00")
	require.NoError(t, err)
	assert.Equal(t, domain.Time{Timestamp: 1489998174, Offset: 60}, tm)

	same, err := domain.NewTime(1489998174, 60)
	require.NoError(t, err)
	assert.Equal(t, tm, same, "string and minute offsets must yield equal times")

	_, err = domain.NewTime(-1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTime)
}

func TestTime_Derivations(t *testing.T) {
	tests := []struct {
		name     string
		ts       int64
		offset   int
		timezone string
		day      int
		month    int
		secOfDay int64
	}{
		{"scenario instant at +01:00", 1489998174, 60, "+01:00", 0, 3, 33774},
		{"same instant in UTC", 1489998174, 0, "+00:00", 0, 3, 30174},
		{"same instant at -05:30", 1489998174, -330, "-05:30", 0, 3, 10374},
		{"epoch is a Thursday", 0, 0, "+00:00", 3, 1, 0},
		{"new year's eve in UTC", 1514764799, 0, "+00:00", 6, 12, 86399},
		{"already new year at +01:00", 1514764799, 60, "+01:00", 0, 1, 3599},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := domain.Time{Timestamp: tt.ts, Offset: tt.offset}
			assert.Equal(t, tt.timezone, tm.Timezone())
			assert.Equal(t, tt.day, tm.DayOfWeek())
			assert.Equal(t, tt.month, tm.MonthOfYear())
			assert.Equal(t, tt.secOfDay, tm.SecondsOfDay())
		})
	}
}

func TestTime_TimeOfDayQuantization(t *testing.T) {
	tm := domain.Time{Timestamp: 1489998174, Offset: 60} // 09:22:54 local

	assert.InDelta(t, 33774.0/3600, tm.TimeOfDay(0), 1e-12, "no quantum keeps full precision")
	assert.InDelta(t, 33774.0/3600, tm.TimeOfDay(-10), 1e-12, "negative quantum disables quantization")
	assert.InDelta(t, 33500.0/3600, tm.TimeOfDay(500), 1e-12, "floor to a multiple of 500s")
	assert.Equal(t, 9.0, tm.TimeOfDay(3600), "floor to the hour")
	assert.Equal(t, 0.0, tm.TimeOfDay(86400))
}

func TestTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want domain.Time
		err  bool
	}{
		{"timezone string", `{"timestamp": 1489998174, "timezone": "+01:00"}`, domain.Time{Timestamp: 1489998174, Offset: 60}, false},
		{"offset minutes", `{"timestamp": 1489998174, "offset": -330}`, domain.Time{Timestamp: 1489998174, Offset: -330}, false},
		{"utc by default", `{"timestamp": 0}`, domain.Time{}, false},
		{"missing timestamp", `{"offset": 60}`, domain.Time{}, true},
		{"fractional timestamp", `{"timestamp": 1.5}`, domain.Time{}, true},
		{"offset out of range", `{"timestamp": 1, "offset": 900}`, domain.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Time
			err := json.Unmarshal([]byte(tt.doc), &got)
			if tt.err {
				assert.ErrorIs(t, err, domain.ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
