package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, branch *Branch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Branch, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Branch, error)
	Update(ctx context.Context, db *gorm.DB, branch *Branch) error

	// NextInvoiceSeq atomically increments and reads the branch invoice
	// counter. Must be called inside the transaction that persists the sale
	// so an assigned number never becomes visible before its sale exists.
	NextInvoiceSeq(ctx context.Context, tx *gorm.DB, id snowflake.ID) (int64, error)
}
