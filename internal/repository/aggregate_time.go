package repository

import (
	"fmt"
	"time"
)

// SQLite hands back aggregates over DATETIME columns as text while MySQL
// returns time.Time, so MAX(created_at) needs to accept both.
var aggregateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type aggregateTime struct {
	Time  time.Time
	Valid bool
}

func (t *aggregateTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported aggregate time type %T", value)
	}
}

func (t *aggregateTime) parse(s string) error {
	for _, layout := range aggregateTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("unparseable aggregate time %q", s)
}

func (t aggregateTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	out := t.Time
	return &out
}
