package dbtime

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tod is a time of day with minute precision.
type Tod struct {
	Hour   int
	Minute int
}

// ParseTod accepts "HH:MM".
func ParseTod(s string) (Tod, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Tod{}, err
	}
	return Tod{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t Tod) minutes() int { return t.Hour*60 + t.Minute }

func (t Tod) Before(o Tod) bool { return t.minutes() < o.minutes() }

func (t Tod) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Scan takes time.Time or "HH:MM[:SS[.ffffff]]" from Postgres TIME columns.
func (t *Tod) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*t = Tod{Hour: x.Hour(), Minute: x.Minute()}
		return nil
	case []byte:
		return t.parse(string(x))
	case string:
		return t.parse(x)
	case nil:
		*t = Tod{}
		return nil
	default:
		return fmt.Errorf("tod: unsupported Scan type %T", v)
	}
}

func (t *Tod) parse(s string) error {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		s = s[:5]
	}
	parsed, err := ParseTod(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Tod) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

func (t Tod) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.parse(s)
}
