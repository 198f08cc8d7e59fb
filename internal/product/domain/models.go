package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Product is the catalog entry and the stock projection mutated by the sale
// engine. StockLevel is signed: concurrent sales may drive it negative, in
// which case HasInventoryDiscrepancy is raised and stays raised until staff
// reconcile the shelf count manually.
type Product struct {
	ID                      snowflake.ID      `gorm:"primaryKey" json:"id"`
	BranchID                snowflake.ID      `gorm:"not null;uniqueIndex:ux_products_branch_sku,priority:1" json:"branch_id"`
	SKU                     string            `gorm:"type:text;not null;uniqueIndex:ux_products_branch_sku,priority:2" json:"sku"`
	Name                    string            `gorm:"type:text;not null" json:"name"`
	UnitPriceCents          int64             `gorm:"not null;default:0" json:"unit_price_cents"`
	StockLevel              int64             `gorm:"not null;default:0" json:"stock_level"`
	MinStockThreshold       int64             `gorm:"not null;default:0" json:"min_stock_threshold"`
	HasInventoryDiscrepancy bool              `gorm:"not null;default:false" json:"has_inventory_discrepancy"`
	Active                  bool              `gorm:"not null;default:true" json:"active"`
	Metadata                datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt               time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt               time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
