package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"localbiz/internal/repository"
)

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         repository.Page
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"zero value", repository.Page{}, 1, 20, 0},
		{"third page", repository.Page{Page: 3, Limit: 10}, 3, 10, 20},
		{"limit capped", repository.Page{Page: 2, Limit: 1000}, 2, 100, 100},
		{"negative page", repository.Page{Page: -4, Limit: 5}, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, tt.in.Offset())
		})
	}
}
