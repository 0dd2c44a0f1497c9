package sqlstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	query := `SELECT id FROM t WHERE a = ? AND b IN (?,?)`
	assert.Equal(t, query, SQLite.Rebind(query))
	assert.Equal(t, `SELECT id FROM t WHERE a = $1 AND b IN ($2,$3)`, Postgres.Rebind(query))
}

func TestTimeScanner(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value interface{}
	}{
		{"time", want.In(time.FixedZone("CET", 3600))},
		{"sqlite string", "2024-05-01 12:30:00+00:00"},
		{"bytes", []byte("2024-05-01T12:30:00Z")},
		{"no zone", "2024-05-01 12:30:00"},
		{"unix", want.Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			require.NoError(t, scanTime(&got).Scan(tt.value))
			assert.True(t, want.Equal(got), "got %v", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	var got time.Time
	assert.NoError(t, scanTime(&got).Scan(nil))
	assert.True(t, got.IsZero())
	assert.Error(t, scanTime(&got).Scan("yesterday"))
	assert.Error(t, scanTime(&got).Scan(3.14))
}
