package domain

import (
	"context"
	"errors"
	"time"
)

type CreateRequest struct {
	BranchID string `json:"-"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type ListRequest struct {
	BranchID string `json:"-"`
	Name     string
	Email    string
	SortBy   string
	OrderBy  string
}

type GetRequest struct {
	BranchID string
	ID       string
}

type Response struct {
	ID                  string     `json:"id"`
	BranchID            string     `json:"branch_id"`
	Name                string     `json:"name"`
	Email               string     `json:"email,omitempty"`
	Phone               string     `json:"phone,omitempty"`
	TotalPurchasesCents int64      `json:"total_purchases_cents"`
	VisitCount          int64      `json:"visit_count"`
	LastVisitAt         *time.Time `json:"last_visit_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, req GetRequest) (*Response, error)
}

var (
	ErrInvalidBranch = errors.New("invalid_branch")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
