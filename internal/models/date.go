package models

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
)

const DateLayout = "2006-01-02"

// Date - календарный день без времени и зоны (колонки DATE).
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DatePtr is a convenience for optional date fields.
func DatePtr(year int, month time.Month, day int) *Date {
	d := Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
	return &d
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	return errors.Errorf("invalid date %q", s)
}
