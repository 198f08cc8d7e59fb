package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	PaymentMethod string
	InvoiceType   string
	CustomerID    *snowflake.ID
	Voided        *bool
	SoldFrom      *time.Time
	SoldTo        *time.Time
	SortBy        string
	OrderBy       string
}

type Repository interface {
	// Insert persists the sale and its line items on the caller's transaction.
	Insert(ctx context.Context, tx *gorm.DB, sale *Sale) error

	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Sale, error)

	// MarkVoided flips the void state with a guard on is_voided so two
	// concurrent voids cannot both win. Returns the number of rows updated
	// (zero when the sale was already voided or does not exist).
	MarkVoided(ctx context.Context, tx *gorm.DB, branchID, id, voidedBy snowflake.ID, reason string, at time.Time) (int64, error)

	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Sale, int64, error)
}
