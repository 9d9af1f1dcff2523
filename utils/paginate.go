package utils

const (
	DefaultPerPage = 15
	MaxPerPage     = 500
)

type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// NormalizePage clamps page >= 1 and 1 <= perPage <= MaxPerPage.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func NewPageMeta(total int64, page, perPage int) PageMeta {
	page, perPage = NormalizePage(page, perPage)
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	return PageMeta{CurrentPage: page, LastPage: last, PerPage: perPage, Total: total}
}

// Paginate slices an already materialized sequence. Pages past the end are empty.
func Paginate[T any](items []T, page, perPage int) ([]T, PageMeta) {
	meta := NewPageMeta(int64(len(items)), page, perPage)
	start := (meta.CurrentPage - 1) * meta.PerPage
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + meta.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
