package akita

// IPage is one page of query results together with the pagination totals the
// count query produced.
type IPage[T any] struct {
	Current int64 `json:"current"`
	Size    int64 `json:"size"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	Records []T   `json:"records"`
}

func newPage[T any](current, size, total int64, records []T) *IPage[T] {
	p := &IPage[T]{Current: current, Size: size, Total: total, Records: records}
	if total > 0 && size > 0 {
		p.Pages = (total + size - 1) / size
	}
	return p
}

// HasNext reports whether a page after the current one exists.
func (p *IPage[T]) HasNext() bool {
	return p.Current < p.Pages
}

// HasPrevious reports whether a page before the current one exists.
func (p *IPage[T]) HasPrevious() bool {
	return p.Current > 1
}
