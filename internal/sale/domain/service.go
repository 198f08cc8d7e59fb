package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/tillway/pkg/db/pagination"
)

type CreateLineItem struct {
	ProductID     string  `json:"product_id"`
	Quantity      int64   `json:"quantity"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`
}

type CreateRequest struct {
	BranchID        string           `json:"-"`
	InvoiceType     string           `json:"invoice_type"`
	OrderType       string           `json:"order_type"`
	PaymentMethod   string           `json:"payment_method"`
	CustomerID      string           `json:"customer_id"`
	CashierID       string           `json:"cashier_id"`
	AmountPaidCents int64            `json:"amount_paid_cents"`
	Notes           string           `json:"notes"`
	Items           []CreateLineItem `json:"items"`
}

type VoidRequest struct {
	BranchID string `json:"-"`
	SaleID   string `json:"-"`
	Reason   string `json:"reason"`
	VoidedBy string `json:"voided_by"`
}

type ListRequest struct {
	BranchID      string
	PaymentMethod string
	InvoiceType   string
	CustomerID    string
	Voided        *bool
	SoldFrom      *time.Time
	SoldTo        *time.Time
	SortBy        string
	OrderBy       string
	Page          pagination.Pagination
}

type GetRequest struct {
	BranchID string
	ID       string
}

type LineItemResponse struct {
	ID                       string  `json:"id"`
	ProductID                string  `json:"product_id"`
	ProductName              string  `json:"product_name"`
	Quantity                 int64   `json:"quantity"`
	UnitPriceCents           int64   `json:"unit_price_cents"`
	DiscountType             string  `json:"discount_type"`
	DiscountValue            float64 `json:"discount_value"`
	DiscountedUnitPriceCents int64   `json:"discounted_unit_price_cents"`
	LineTotalCents           int64   `json:"line_total_cents"`
}

type Response struct {
	ID                  string             `json:"id"`
	BranchID            string             `json:"branch_id"`
	TransactionID       string             `json:"transaction_id"`
	InvoiceNumber       *string            `json:"invoice_number,omitempty"`
	InvoiceType         string             `json:"invoice_type"`
	OrderType           string             `json:"order_type,omitempty"`
	CustomerID          *string            `json:"customer_id,omitempty"`
	CashierID           string             `json:"cashier_id"`
	SoldAt              time.Time          `json:"sold_at"`
	SubtotalCents       int64              `json:"subtotal_cents"`
	TotalDiscountCents  int64              `json:"total_discount_cents"`
	TaxAmountCents      int64              `json:"tax_amount_cents"`
	TotalCents          int64              `json:"total_cents"`
	AmountPaidCents     int64              `json:"amount_paid_cents"`
	ChangeReturnedCents int64              `json:"change_returned_cents"`
	PaymentMethod       string             `json:"payment_method"`
	Notes               string             `json:"notes,omitempty"`
	IsVoided            bool               `json:"is_voided"`
	VoidedAt            *time.Time         `json:"voided_at,omitempty"`
	VoidedBy            *string            `json:"voided_by,omitempty"`
	VoidReason          *string            `json:"void_reason,omitempty"`
	Items               []LineItemResponse `json:"items,omitempty"`
}

type ListResponse struct {
	pagination.PageInfo
	Sales []Response `json:"sales"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Void(ctx context.Context, req VoidRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, req GetRequest) (*Response, error)
}

var (
	ErrInvalidBranch        = errors.New("invalid_branch")
	ErrInvalidInvoiceType   = errors.New("invalid_invoice_type")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidCashier       = errors.New("invalid_cashier")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidProduct       = errors.New("invalid_product")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrNoLineItems          = errors.New("no_line_items")
	ErrTooManyLineItems     = errors.New("too_many_line_items")
	ErrInsufficientPayment  = errors.New("insufficient_payment")
	ErrInvalidReason        = errors.New("invalid_reason")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("not_found")
	ErrAlreadyVoided        = errors.New("already_voided")
)
