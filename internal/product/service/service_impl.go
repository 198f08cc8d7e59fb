package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/product/domain"
	"github.com/smallbiznis/tillway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.UnitPriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.MinStockThreshold < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:                s.genID.Generate(),
		BranchID:          branchID,
		SKU:               sku,
		Name:              name,
		UnitPriceCents:    req.UnitPriceCents,
		StockLevel:        req.StockLevel,
		MinStockThreshold: req.MinStockThreshold,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Metadata != nil {
		p.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSKU
		}
		return nil, err
	}

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}

	filter := domain.ListRequest{
		Name:        strings.TrimSpace(req.Name),
		Active:      req.Active,
		LowStock:    req.LowStock,
		Discrepancy: req.Discrepancy,
		SortBy:      strings.TrimSpace(req.SortBy),
		OrderBy:     strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.List(ctx, s.db, branchID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 0 {
			return nil, domain.ErrInvalidPrice
		}
		item.UnitPriceCents = *req.UnitPriceCents
	}
	if req.MinStockThreshold != nil {
		if *req.MinStockThreshold < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		item.MinStockThreshold = *req.MinStockThreshold
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

// Restock adds stock via the same additive delta the sale engine uses. The
// discrepancy flag is intentionally left alone even when the level returns
// to non-negative; clearing it is a manual reconciliation action.
func (s *Service) Restock(ctx context.Context, req domain.RestockRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	if err := s.repo.AdjustStock(ctx, s.db, branchID, productID, req.Quantity); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	s.log.Info("product restocked",
		zap.String("product_id", item.ID.String()),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("stock_level", item.StockLevel),
	)

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) toResponse(p *domain.Product) domain.Response {
	resp := domain.Response{
		ID:                      p.ID.String(),
		BranchID:                p.BranchID.String(),
		SKU:                     p.SKU,
		Name:                    p.Name,
		UnitPriceCents:          p.UnitPriceCents,
		StockLevel:              p.StockLevel,
		MinStockThreshold:       p.MinStockThreshold,
		HasInventoryDiscrepancy: p.HasInventoryDiscrepancy,
		LowStock:                p.StockLevel < p.MinStockThreshold,
		Active:                  p.Active,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = map[string]any(p.Metadata)
	}
	return resp
}

func parseBranchID(raw string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidBranch
	}
	return parsed, nil
}
