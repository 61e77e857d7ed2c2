package pagination

// Result is the page envelope returned by list operations.
type Result[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	PrevPage   *int  `json:"prevPage"`
	NextPage   *int  `json:"nextPage"`
	TotalPages int   `json:"totalPages"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize clamps page/limit to sane bounds, substituting defaults for
// missing or nonsensical values.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// NewResult computes the derived page fields for one page of data.
// PrevPage and NextPage are nil when no such page exists.
func NewResult[T any](data []T, total int64, page, limit int) Result[T] {
	if data == nil {
		data = []T{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	result := Result[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	if page > 1 {
		prev := page - 1
		result.PrevPage = &prev
	}
	if page < totalPages {
		next := page + 1
		result.NextPage = &next
	}

	return result
}
