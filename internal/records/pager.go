package records

// PageSize is the number of rows per page for every record kind.
const PageSize = 10

// Pager tracks the current page over an in-memory collection. Pages are
// numbered from 1. It never fetches.
type Pager struct {
	size    int
	current int
}

func NewPager(size int) Pager {
	if size <= 0 {
		size = PageSize
	}
	return Pager{size: size, current: 1}
}

// TotalPages is ceil(n/size).
func (p Pager) TotalPages(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + p.size - 1) / p.size
}

func (p Pager) Current() int { return p.current }

// GoTo moves to page when it lies in [1, TotalPages(n)] and reports whether
// it did. Out of range requests leave the pager untouched.
func (p *Pager) GoTo(page, n int) bool {
	if page < 1 || page > p.TotalPages(n) {
		return false
	}
	p.current = page
	return true
}

// Bounds returns the slice indexes of the current page.
func (p Pager) Bounds(n int) (lo, hi int) {
	lo = (p.current - 1) * p.size
	if lo > n {
		lo = n
	}
	hi = lo + p.size
	if hi > n {
		hi = n
	}
	return lo, hi
}

// Reset goes back to the first page.
func (p *Pager) Reset() { p.current = 1 }
