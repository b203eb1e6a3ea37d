package store

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page window. Size 0 means unpaged.
type Page struct {
	Number int
	Size   int
}

// NewPage normalises client supplied paging values.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	// Past this the offset no longer fits in an int.
	if last := math.MaxInt/size + 1; number > last {
		number = last
	}
	return Page{Number: number, Size: size}
}

// Unpaged returns every matching item.
func Unpaged() Page { return Page{Number: 1} }

// Paged reports whether the page limits results.
func (p Page) Paged() bool { return p.Size > 0 }

// Offset is the number of items skipped before this page.
func (p Page) Offset() int {
	if !p.Paged() || p.Number < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// TotalPages is ceil(total/Size).
func (p Page) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	if !p.Paged() {
		return 1
	}
	size := int64(p.Size)
	return int((total + size - 1) / size)
}

// Slice applies the page window to n items and returns the [lo, hi) bounds.
func (p Page) Slice(n int) (int, int) {
	if !p.Paged() {
		return 0, n
	}
	lo := p.Offset()
	if lo < 0 || lo > n {
		lo = n
	}
	hi := lo + p.Size
	if hi > n {
		hi = n
	}
	return lo, hi
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
