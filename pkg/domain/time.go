package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Offset bounds, in minutes. UTC-12:00 to UTC+14:00 covers every civil offset.
const (
	MinOffset = -720
	MaxOffset = 840
)

// Time is an instant expressed as epoch seconds plus a fixed UTC offset.
// It is a comparable value type: two Times are equal iff both fields are equal.
// No timezone database is consulted, only the numeric offset is honored.
type Time struct {
	Timestamp int64 `json:"timestamp"`
	Offset    int   `json:"offset"` // minutes east of UTC
}

// NewTime builds a Time from an epoch and an offset given either as a number
// of minutes (int, int64, float64 with no fraction) or as a "+HH:MM", "+HHMM",
// "+HH" or "Z" string.
func NewTime(timestamp int64, tz any) (Time, error) {
	if timestamp < 0 {
		return Time{}, &InvalidTimeError{Value: timestamp, Reason: "timestamp must be a non-negative epoch"}
	}
	offset, err := ParseOffset(tz)
	if err != nil {
		return Time{}, err
	}
	return Time{Timestamp: timestamp, Offset: offset}, nil
}

// UnmarshalJSON accepts {"timestamp": n} with the offset given either as
// "offset" (minutes) or "timezone" (any form ParseOffset understands).
func (t *Time) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp *json.Number `json:"timestamp"`
		Offset    any          `json:"offset"`
		Timezone  any          `json:"timezone"`
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return &InvalidTimeError{Value: string(data), Reason: err.Error()}
	}
	if raw.Timestamp == nil {
		return &InvalidTimeError{Value: string(data), Reason: "timestamp is required"}
	}
	ts, err := raw.Timestamp.Int64()
	if err != nil {
		return &InvalidTimeError{Value: raw.Timestamp.String(), Reason: "timestamp must be whole epoch seconds"}
	}
	tz := raw.Timezone
	if tz == nil {
		tz = raw.Offset
	}
	parsed, err := NewTime(ts, tz)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseOffset converts a UTC offset representation into whole minutes.
func ParseOffset(tz any) (int, error) {
	var minutes int
	switch v := tz.(type) {
	case nil:
		minutes = 0
	case int:
		minutes = v
	case int32:
		minutes = int(v)
	case int64:
		minutes = int(v)
	case float64:
		if v != float64(int64(v)) {
			return 0, &InvalidTimeError{Value: tz, Reason: "offset must be a whole number of minutes"}
		}
		minutes = int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, &InvalidTimeError{Value: tz, Reason: "offset must be a whole number of minutes"}
		}
		minutes = int(n)
	case string:
		m, err := parseOffsetString(v)
		if err != nil {
			return 0, &InvalidTimeError{Value: tz, Reason: err.Error()}
		}
		minutes = m
	default:
		return 0, &InvalidTimeError{Value: tz, Reason: fmt.Sprintf("unsupported offset type %T", tz)}
	}

	if minutes < MinOffset || minutes > MaxOffset {
		return 0, &InvalidTimeError{Value: tz, Reason: fmt.Sprintf("offset %d minutes is outside [%d, %d]", minutes, MinOffset, MaxOffset)}
	}
	return minutes, nil
}

func parseOffsetString(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "Z" || s == "z" || s == "UTC" {
		return 0, nil
	}
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("offset %q must start with '+' or '-'", s)
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := s[1:]

	var hh, mm string
	switch {
	case len(body) == 5 && body[2] == ':':
		hh, mm = body[:2], body[3:]
	case len(body) == 4:
		hh, mm = body[:2], body[2:]
	case len(body) == 2:
		hh, mm = body, "00"
	default:
		return 0, fmt.Errorf("offset %q is not in +HH:MM form", s)
	}

	h, ok := twoDigits(hh)
	if !ok {
		return 0, fmt.Errorf("offset %q has invalid hours", s)
	}
	m, ok := twoDigits(mm)
	if !ok || m >= 60 {
		return 0, fmt.Errorf("offset %q has invalid minutes", s)
	}
	return sign * (h*60 + m), nil
}

// twoDigits parses exactly two ASCII digits.
func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// FormatOffset encodes an offset in minutes as "+HH:MM" / "-HH:MM".
func FormatOffset(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}

// Local returns the wall-clock time at the Time's offset.
func (t Time) Local() time.Time {
	return time.Unix(t.Timestamp, 0).In(time.FixedZone(FormatOffset(t.Offset), t.Offset*60))
}

// Timezone returns the offset encoded as "+HH:MM".
func (t Time) Timezone() string {
	return FormatOffset(t.Offset)
}

// DayOfWeek returns the local day, 0 for Monday through 6 for Sunday.
func (t Time) DayOfWeek() int {
	return (int(t.Local().Weekday()) + 6) % 7
}

// MonthOfYear returns the local month, 1 through 12.
func (t Time) MonthOfYear() int {
	return int(t.Local().Month())
}

// SecondsOfDay returns the number of seconds elapsed since local midnight.
func (t Time) SecondsOfDay() int64 {
	l := t.Local()
	return int64(l.Hour()*3600 + l.Minute()*60 + l.Second())
}

// TimeOfDay returns local hours since midnight, floored to a multiple of
// quantum seconds. A non-positive quantum disables quantization.
func (t Time) TimeOfDay(quantum int64) float64 {
	secs := t.SecondsOfDay()
	if quantum > 0 {
		secs = (secs / quantum) * quantum
	}
	return float64(secs) / 3600
}

func (t Time) String() string {
	return fmt.Sprintf("%d%s", t.Timestamp, t.Timezone())
}
