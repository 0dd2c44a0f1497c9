package sqlstore

import (
	"fmt"
	"time"
)

// timestampFormats are the layouts go-sqlite3 writes time.Time values in,
// plus RFC 3339. PostgreSQL hands back time.Time directly.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// timeScanner reads a timestamp column whatever representation the driver
// chose for it. SQLite only converts columns it can see a declared type for,
// which excludes expressions and some RETURNING clauses.
type timeScanner struct {
	t *time.Time
}

func scanTime(t *time.Time) timeScanner {
	return timeScanner{t: t}
}

func (s timeScanner) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*s.t = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	case int64:
		*s.t = time.Unix(v, 0).UTC()
		return nil
	case nil:
		*s.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into time", value)
	}
}

func (s timeScanner) parse(v string) error {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as time", v)
}
