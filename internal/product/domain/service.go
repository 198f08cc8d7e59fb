package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, req GetRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Restock(ctx context.Context, req RestockRequest) (*Response, error)
}

type CreateRequest struct {
	BranchID          string         `json:"-"`
	SKU               string         `json:"sku"`
	Name              string         `json:"name"`
	UnitPriceCents    int64          `json:"unit_price_cents"`
	StockLevel        int64          `json:"stock_level"`
	MinStockThreshold int64          `json:"min_stock_threshold"`
	Metadata          map[string]any `json:"metadata"`
}

type ListRequest struct {
	BranchID    string `json:"-"`
	Name        string
	Active      *bool
	LowStock    bool
	Discrepancy *bool
	SortBy      string
	OrderBy     string
}

type GetRequest struct {
	BranchID string
	ID       string
}

type UpdateRequest struct {
	BranchID          string         `json:"-"`
	ID                string         `json:"-"`
	Name              *string        `json:"name"`
	UnitPriceCents    *int64         `json:"unit_price_cents"`
	MinStockThreshold *int64         `json:"min_stock_threshold"`
	Active            *bool          `json:"active"`
	Metadata          map[string]any `json:"metadata"`
}

// RestockRequest adds stock through the same additive-delta primitive the
// sale engine uses. Restocking does not clear the discrepancy flag; that is
// a deliberate manual-reconciliation step.
type RestockRequest struct {
	BranchID string `json:"-"`
	ID       string `json:"-"`
	Quantity int64  `json:"quantity"`
}

type Response struct {
	ID                      string         `json:"id"`
	BranchID                string         `json:"branch_id"`
	SKU                     string         `json:"sku"`
	Name                    string         `json:"name"`
	UnitPriceCents          int64          `json:"unit_price_cents"`
	StockLevel              int64          `json:"stock_level"`
	MinStockThreshold       int64          `json:"min_stock_threshold"`
	HasInventoryDiscrepancy bool           `json:"has_inventory_discrepancy"`
	LowStock                bool           `json:"low_stock"`
	Active                  bool           `json:"active"`
	Metadata                map[string]any `json:"metadata,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

var (
	ErrInvalidBranch   = errors.New("invalid_branch")
	ErrInvalidSKU      = errors.New("invalid_sku")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidID       = errors.New("invalid_id")
	ErrDuplicateSKU    = errors.New("duplicate_sku")
	ErrNotFound        = errors.New("not_found")
)
