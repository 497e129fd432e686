// Package pagination implements page/size offset paging for list endpoints.
package pagination

const (
	PageDefaultSize = 20
	PageMaxSize     = 200
)

// OffsetRequest is bound from ?page=&size= query parameters. Pages start at 1.
type OffsetRequest struct {
	Page int `json:"page" query:"page"`
	Size int `json:"size" query:"size"`
}

// Validate clamps out-of-range values instead of rejecting them.
func (r *OffsetRequest) Validate() error {
	r.Page = max(r.Page, 1)
	switch {
	case r.Size <= 0:
		r.Size = PageDefaultSize
	case r.Size > PageMaxSize:
		r.Size = PageMaxSize
	}
	return nil
}

func (r *OffsetRequest) Offset() int {
	return (r.Page - 1) * r.Size
}
