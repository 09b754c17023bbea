package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

func TestNewPaginationParams(t *testing.T) {
	ptr := func(n int) *int { return &n }
	tests := []struct {
		name        string
		page, limit *int
		want        domain.PaginationParams
	}{
		{"defaults", nil, nil, domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}},
		{"explicit", ptr(3), ptr(10), domain.PaginationParams{Page: 3, Limit: 10}},
		{"non-positive falls back", ptr(0), ptr(-5), domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}},
		{"limit clamped", ptr(1), ptr(500), domain.PaginationParams{Page: 1, Limit: domain.MaxPageLimit}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.NewPaginationParams(tc.page, tc.limit))
		})
	}
}

func TestPaginationParams_OffsetAndHasMore(t *testing.T) {
	p := domain.PaginationParams{Page: 2, Limit: 10}
	assert.Equal(t, 10, p.Offset())
	assert.True(t, p.HasMore(21))
	assert.False(t, p.HasMore(20))
}
