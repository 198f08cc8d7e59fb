package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer carries the loyalty stats projection: cumulative tax-inclusive
// spend, visit count, and the last visit time. The sale engine increments
// these on sale creation and reverses spend and visits on void; LastVisitAt
// is never rolled back.
type Customer struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	BranchID            snowflake.ID      `gorm:"not null;index" json:"branch_id"`
	Name                string            `gorm:"not null" json:"name"`
	Email               string            `gorm:"type:text" json:"email,omitempty"`
	Phone               string            `gorm:"type:text" json:"phone,omitempty"`
	TotalPurchasesCents int64             `gorm:"not null;default:0" json:"total_purchases_cents"`
	VisitCount          int64             `gorm:"not null;default:0" json:"visit_count"`
	LastVisitAt         *time.Time        `json:"last_visit_at,omitempty"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
