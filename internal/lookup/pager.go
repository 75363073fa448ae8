package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/jisarea/internal/store"
)

// ErrInvalidPage is returned for a negative offset or non-positive limit.
var ErrInvalidPage = errors.New("invalid page: offset must be >= 0 and limit > 0")

// Pager reads one table or view page by page in id order.
type Pager[T any] struct {
	count func(ctx context.Context) (int64, error)
	fetch func(ctx context.Context, offset, limit int) ([]T, error)
}

// SubAreas pages over sub_areas.
func SubAreas(r store.Reader) *Pager[store.SubArea] {
	return &Pager[store.SubArea]{count: r.CountSubAreas, fetch: r.SubAreas}
}

// Codes pages over codes_view.
func Codes(r store.Reader) *Pager[store.Code] {
	return &Pager[store.Code]{count: r.CountCodes, fetch: r.Codes}
}

// Count returns the total number of rows.
func (p *Pager[T]) Count(ctx context.Context) (int64, error) {
	return p.count(ctx)
}

// Fetch returns up to limit rows starting at offset.
func (p *Pager[T]) Fetch(ctx context.Context, offset, limit int) ([]T, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w (offset %d, limit %d)", ErrInvalidPage, offset, limit)
	}
	return p.fetch(ctx, offset, limit)
}

// FetchAll returns every row.
func (p *Pager[T]) FetchAll(ctx context.Context) ([]T, error) {
	return p.fetch(ctx, 0, 0)
}

// Each calls fn for every row, reading pageSize rows at a time. It stops at
// the first error from fn.
func (p *Pager[T]) Each(ctx context.Context, pageSize int, fn func(T) error) error {
	if pageSize <= 0 {
		return fmt.Errorf("%w (page size %d)", ErrInvalidPage, pageSize)
	}
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := p.fetch(ctx, offset, pageSize)
		if err != nil {
			return err
		}
		for _, row := range page {
			if err := fn(row); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}
