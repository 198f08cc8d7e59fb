package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Branch is one retail branch. Every sale, product, and customer row is
// scoped to a branch; the invoice_seq column is the per-branch counter
// behind regulated invoice numbering.
type Branch struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Code           string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	Currency       string       `gorm:"type:text;not null;default:'USD'" json:"currency"`
	TaxRatePercent float64      `gorm:"not null;default:0" json:"tax_rate_percent"`
	InvoiceSeq     int64        `gorm:"not null;default:0" json:"-"`
	Active         bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Branch) TableName() string { return "branches" }
