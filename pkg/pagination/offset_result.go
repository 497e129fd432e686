package pagination

type OffsetResult[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Size    int   `json:"size"`
	HasMore bool  `json:"has_more"`
}

// NewOffsetResult never returns nil Items so empty pages encode as [].
func NewOffsetResult[T any](items []T, total int64, page int, size int) *OffsetResult[T] {
	if items == nil {
		items = []T{}
	}
	return &OffsetResult[T]{
		Items:   items,
		Total:   total,
		Page:    page,
		Size:    size,
		HasMore: int64(page*size) < total,
	}
}

// Paginate slices an already filtered collection.
func Paginate[T any](all []T, req OffsetRequest) *OffsetResult[T] {
	start := min(req.Offset(), len(all))
	end := min(start+req.Size, len(all))
	return NewOffsetResult(all[start:end], int64(len(all)), req.Page, req.Size)
}
