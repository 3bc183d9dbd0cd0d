package models

import (
	"bytes"
	"strconv"
	"time"
)

// Time is a nullable timestamp tolerant of the backend's two wire formats:
// RFC3339 (with zone) and FastAPI's naive ISO form without one. Malformed or
// null values decode to the zero Time instead of failing the record.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// NewTime wraps a time.Time.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	s := string(data)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Unparseable timestamps degrade to zero rather than aborting the decode.
	t.Time = time.Time{}
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// Won is an integral KRW amount that accepts both bare numbers and the quoted
// numeric strings Kiwoom payloads use. Non-numeric input decodes to zero.
type Won int64

func (w *Won) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	s := string(data)
	if s == "null" || s == "" {
		*w = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*w = Won(v)
		return nil
	}
	// Kiwoom sometimes reports amounts with a decimal part.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*w = Won(int64(f))
		return nil
	}
	*w = 0
	return nil
}

// Rate is a percentage that accepts numbers and quoted numeric strings.
type Rate float64

func (r *Rate) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	s := string(data)
	if s == "null" || s == "" {
		*r = 0
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*r = Rate(f)
		return nil
	}
	*r = 0
	return nil
}
