package domain

// Activity log listing defaults.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PaginationParams selects one page of a share's activity log, most recent
// entries first. Page is 1-indexed.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams builds PaginationParams from the optional ?page= and
// ?limit= query values. Missing or non-positive values take the defaults and
// the limit is clamped to MaxPageLimit.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of log rows before this page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// HasMore reports whether rows remain after this page out of total.
func (p PaginationParams) HasMore(total int64) bool {
	return int64(p.Offset()+p.Limit) < total
}
