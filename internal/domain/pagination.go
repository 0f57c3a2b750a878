package domain

// DefaultPageSize is the page and batch size used when none is configured.
const DefaultPageSize = 100

// PageRequest addresses one LIMIT/OFFSET page of a table scan.
type PageRequest struct {
	Size   int
	Offset int
}

// FirstPage returns the request for the first page of the given size.
func FirstPage(size int) PageRequest {
	return PageRequest{Size: size}
}

// Validate rejects sizes below one and negative offsets.
func (p PageRequest) Validate() error {
	if p.Size < 1 {
		return ErrValidation("page size must be at least 1, got %d", p.Size)
	}
	if p.Offset < 0 {
		return ErrValidation("offset must not be negative, got %d", p.Offset)
	}
	return nil
}

// Next returns the request for the page that follows p.
func (p PageRequest) Next() PageRequest {
	return PageRequest{Size: p.Size, Offset: p.Offset + p.Size}
}
