package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListRequest) ([]Customer, error)

	// ApplyStats applies additive deltas to the loyalty projection. visitAt,
	// when non-nil, overwrites last_visit_at (a sale); voids pass nil so the
	// prior visit time is preserved.
	ApplyStats(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, totalDeltaCents, visitDelta int64, visitAt *time.Time) error
}
