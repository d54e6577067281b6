package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, 20},
		{"explicit values", "page=3&limit=50", 3, 50},
		{"zero page clamps", "page=0", 1, 20},
		{"negative page clamps", "page=-2", 1, 20},
		{"zero limit clamps", "limit=0", 1, 20},
		{"limit above max clamps to default", "limit=500", 1, 20},
		{"limit at max allowed", "limit=100", 1, 100},
		{"non-numeric ignored", "page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/?"+tt.query, nil)

			params := FromRequest(r, DefaultLimit)

			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

func TestFromRequest_CustomDefaultLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)

	params := FromRequest(r, 50)

	assert.Equal(t, 50, params.Limit)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 20, Params{Page: 2, Limit: 20}.Offset())
	assert.Equal(t, 90, Params{Page: 10, Limit: 10}.Offset())
	assert.Equal(t, 0, Params{Page: 0, Limit: 20}.Offset())
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name           string
		limit          int
		total          int
		wantTotalPages int
	}{
		{"exact division", 20, 40, 2},
		{"partial last page", 20, 41, 3},
		{"empty", 20, 0, 0},
		{"single item", 20, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewMeta(Params{Page: 1, Limit: tt.limit}, tt.total)

			assert.Equal(t, tt.wantTotalPages, meta.TotalPages)
			assert.Equal(t, tt.total, meta.Total)
		})
	}
}
