package queryir

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// SQL returns "ASC" or "DESC".
func (d Direction) SQL() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// SortTerm orders by one column, optionally on a joined path.
type SortTerm struct {
	Column    string
	Path      JoinPath
	Direction Direction
}

// SortSpec is an ordered list of sort terms. Terms are written in list
// order; repeated columns are kept.
type SortSpec []SortTerm

// OrderBy builds a SortSpec.
func OrderBy(terms ...SortTerm) SortSpec {
	return SortSpec(terms)
}

// Pagination selects one page of rows.
type Pagination struct {
	Page     int // zero-based page number
	PageSize int
}

// Page builds a Pagination.
func Page(page, size int) Pagination {
	return Pagination{Page: page, PageSize: size}
}

// Limit is the LIMIT value.
func (p Pagination) Limit() int64 { return int64(p.PageSize) }

// Offset is the OFFSET value.
func (p Pagination) Offset() int64 { return int64(p.Page) * int64(p.PageSize) }

// Validate checks page >= 0 and size > 0.
func (p Pagination) Validate() error {
	if p.Page < 0 || p.PageSize <= 0 {
		return newPlanError(ErrCodeBadPagination, "", "page must be >= 0 and page size > 0 (got page=%d size=%d)", p.Page, p.PageSize)
	}
	return nil
}
