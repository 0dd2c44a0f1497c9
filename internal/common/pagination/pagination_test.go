package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/common/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		query   string
		want    Params
		wantErr bool
	}{
		{query: "", want: Params{Page: 1, PerPage: 20, Limit: 20, Offset: 0}},
		{query: "page=3&per_page=10", want: Params{Page: 3, PerPage: 10, Limit: 10, Offset: 20}},
		{query: "per_page=500", want: Params{Page: 1, PerPage: 100, Limit: 100, Offset: 0}},
		{query: "page=0", wantErr: true},
		{query: "per_page=abc", wantErr: true},
		{query: "page=922337203685477581&per_page=100", wantErr: true},
		{query: "page=9223372036854775807", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Parse(httptest.NewRequest("GET", "/api/subscribers?"+tt.query, nil))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPage(t *testing.T) {
	p := Params{Page: 2, PerPage: 2}

	page := NewPage([]string{"c", "d"}, p, 5)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 5, page.TotalResults)

	empty := NewPage[string](nil, Params{Page: 1, PerPage: 20}, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.NotNil(t, empty.Results)
}
