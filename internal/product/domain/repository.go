package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, branchID snowflake.ID, ids []snowflake.ID) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListRequest) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error

	// AdjustStock applies a signed delta to stock_level as a single additive
	// UPDATE (last-commit-wins: no lock, no version token) and raises the
	// discrepancy flag when the resulting level is negative. It never fails
	// for insufficient stock.
	AdjustStock(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, delta int64) error
}
