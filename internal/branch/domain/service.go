package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Currency       string  `json:"currency"`
	TaxRatePercent float64 `json:"tax_rate_percent"`
}

type UpdateRequest struct {
	ID             string   `json:"-"`
	Name           *string  `json:"name"`
	TaxRatePercent *float64 `json:"tax_rate_percent"`
	Active         *bool    `json:"active"`
}

type Response struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Currency       string    `json:"currency"`
	TaxRatePercent float64   `json:"tax_rate_percent"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)

	// TaxRate returns the branch's configured tax rate in percent.
	TaxRate(ctx context.Context, branchID snowflake.ID) (float64, error)

	// NextInvoiceNumber assigns the next formatted invoice number for the
	// branch inside the caller's transaction.
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB, branchID snowflake.ID, issuedAt time.Time) (string, error)
}

var (
	ErrInvalidCode    = errors.New("invalid_code")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
	ErrInvalidID      = errors.New("invalid_id")
	ErrDuplicateCode  = errors.New("duplicate_code")
	ErrNotFound       = errors.New("not_found")
)
