package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type Operator string

const (
	EQ  Operator = "="
	GTE Operator = ">="
	LTE Operator = "<="
)

// Condition applies a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type conditionOption struct {
	cond Condition
}

func (o conditionOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", o.cond.Field, o.cond.Operator), o.cond.Value)
}

func ApplyOperator(cond Condition) QueryOption {
	return conditionOption{cond: cond}
}

// QuerySortBy names a sort column restricted to an allow list.
type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

type sortByOption struct {
	sort QuerySortBy
}

func (o sortByOption) Apply(db *gorm.DB) *gorm.DB {
	field := strings.TrimSpace(o.sort.Field)
	if field == "" || (o.sort.Allow != nil && !o.sort.Allow[field]) {
		field = "created_at"
	}
	direction := "ASC"
	if o.sort.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", field, direction))
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return sortByOption{sort: sort}
}

// WithQuerySortBy builds a QuerySortBy from raw query parameters.
func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		Field: strings.TrimSpace(sortBy),
		Desc:  strings.EqualFold(strings.TrimSpace(orderBy), "desc"),
		Allow: allow,
	}
}
