package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/sale/pricing"
)

// InvoiceType selects the invoice regime. Only standard invoices receive a
// sequential, regulator-facing invoice number; simplified quick sales are
// identified by their transaction ID alone.
type InvoiceType string

const (
	InvoiceSimplified InvoiceType = "simplified"
	InvoiceStandard   InvoiceType = "standard"
)

func ParseInvoiceType(raw string) (InvoiceType, bool) {
	switch InvoiceType(raw) {
	case InvoiceSimplified, "":
		return InvoiceSimplified, true
	case InvoiceStandard:
		return InvoiceStandard, true
	default:
		return "", false
	}
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(raw) {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return PaymentMethod(raw), true
	default:
		return "", false
	}
}

// Sale is one committed transaction. Once IsVoided flips to true the row is
// immutable apart from the audit fields set by the void itself; sales are
// never physically deleted.
type Sale struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	BranchID            snowflake.ID  `gorm:"not null;index" json:"branch_id"`
	TransactionID       string        `gorm:"type:text;not null;uniqueIndex" json:"transaction_id"`
	InvoiceNumber       *string       `gorm:"type:text" json:"invoice_number,omitempty"`
	InvoiceType         InvoiceType   `gorm:"type:text;not null" json:"invoice_type"`
	OrderType           string        `gorm:"type:text" json:"order_type,omitempty"`
	CustomerID          *snowflake.ID `gorm:"index" json:"customer_id,omitempty"`
	CashierID           snowflake.ID  `gorm:"not null" json:"cashier_id"`
	SoldAt              time.Time     `gorm:"not null;index" json:"sold_at"`
	SubtotalCents       int64         `gorm:"not null" json:"subtotal_cents"`
	TotalDiscountCents  int64         `gorm:"not null" json:"total_discount_cents"`
	TaxAmountCents      int64         `gorm:"not null" json:"tax_amount_cents"`
	TotalCents          int64         `gorm:"not null" json:"total_cents"`
	AmountPaidCents     int64         `gorm:"not null" json:"amount_paid_cents"`
	ChangeReturnedCents int64         `gorm:"not null" json:"change_returned_cents"`
	PaymentMethod       PaymentMethod `gorm:"type:text;not null" json:"payment_method"`
	Notes               string        `gorm:"type:text" json:"notes,omitempty"`
	IsVoided            bool          `gorm:"not null;default:false" json:"is_voided"`
	VoidedAt            *time.Time    `json:"voided_at,omitempty"`
	VoidedBy            *snowflake.ID `json:"voided_by,omitempty"`
	VoidReason          *string       `gorm:"type:text" json:"void_reason,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []SaleLineItem `gorm:"-" json:"items,omitempty"`
}

func (Sale) TableName() string { return "sales" }

// SaleLineItem is one priced product line, owned exclusively by its sale.
// UnitPriceCents is the catalog price captured at sale time and immutable
// thereafter.
type SaleLineItem struct {
	ID                       snowflake.ID         `gorm:"primaryKey" json:"id"`
	SaleID                   snowflake.ID         `gorm:"not null;index" json:"sale_id"`
	BranchID                 snowflake.ID         `gorm:"not null" json:"branch_id"`
	ProductID                snowflake.ID         `gorm:"not null;index" json:"product_id"`
	ProductName              string               `gorm:"type:text;not null" json:"product_name"`
	Quantity                 int64                `gorm:"not null" json:"quantity"`
	UnitPriceCents           int64                `gorm:"not null" json:"unit_price_cents"`
	DiscountType             pricing.DiscountType `gorm:"type:text;not null" json:"discount_type"`
	DiscountValue            float64              `gorm:"not null;default:0" json:"discount_value"`
	DiscountedUnitPriceCents int64                `gorm:"not null" json:"discounted_unit_price_cents"`
	LineTotalCents           int64                `gorm:"not null" json:"line_total_cents"`
	CreatedAt                time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SaleLineItem) TableName() string { return "sale_line_items" }
