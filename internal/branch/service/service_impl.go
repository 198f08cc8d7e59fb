package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/branch/domain"
	"github.com/smallbiznis/tillway/internal/branch/numbering"
	"github.com/smallbiznis/tillway/internal/config"
	"github.com/smallbiznis/tillway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	PosCfg *config.PosConfigHolder `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	posCfg *config.PosConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("branch.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		posCfg: p.PosCfg,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.TaxRatePercent < 0 || req.TaxRatePercent > 100 {
		return nil, domain.ErrInvalidTaxRate
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	b := &domain.Branch{
		ID:             s.genID.Generate(),
		Code:           code,
		Name:           name,
		Currency:       currency,
		TaxRatePercent: req.TaxRatePercent,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, s.db, b); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	resp := s.toResponse(b)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	branchID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID)
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
	branchID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID)
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
	if req.TaxRatePercent != nil {
		if *req.TaxRatePercent < 0 || *req.TaxRatePercent > 100 {
			return nil, domain.ErrInvalidTaxRate
		}
		item.TaxRatePercent = *req.TaxRatePercent
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) TaxRate(ctx context.Context, branchID snowflake.ID) (float64, error) {
	item, err := s.repo.FindByID(ctx, s.db, branchID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, domain.ErrNotFound
	}
	return item.TaxRatePercent, nil
}

func (s *Service) NextInvoiceNumber(ctx context.Context, tx *gorm.DB, branchID snowflake.ID, issuedAt time.Time) (string, error) {
	item, err := s.repo.FindByID(ctx, tx, branchID)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", domain.ErrNotFound
	}

	seq, err := s.repo.NextInvoiceSeq(ctx, tx, branchID)
	if err != nil {
		return "", err
	}

	template := numbering.DefaultTemplate
	if s.posCfg != nil {
		template = s.posCfg.Current().InvoiceNumberTemplate
	}
	return numbering.Format(template, item.Code, issuedAt, seq)
}

func (s *Service) toResponse(b *domain.Branch) domain.Response {
	return domain.Response{
		ID:             b.ID.String(),
		Code:           b.Code,
		Name:           b.Name,
		Currency:       b.Currency,
		TaxRatePercent: b.TaxRatePercent,
		Active:         b.Active,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}
