package pagination

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 250
)

// Pagination is page/size paging as bound from query parameters.
type Pagination struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20" validate:"gte=1,lte=250"`
}

// PageInfo describes the returned page alongside the total row count.
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Apply adds LIMIT/OFFSET to a gorm statement.
func (p Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.PageSize)
}

// Info builds the PageInfo for a total count.
func (p Pagination) Info(total int64) PageInfo {
	return PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: total,
	}
}
