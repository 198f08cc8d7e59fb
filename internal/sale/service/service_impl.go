package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	"github.com/smallbiznis/tillway/internal/clock"
	"github.com/smallbiznis/tillway/internal/config"
	customerdomain "github.com/smallbiznis/tillway/internal/customer/domain"
	"github.com/smallbiznis/tillway/internal/observability/metrics"
	productdomain "github.com/smallbiznis/tillway/internal/product/domain"
	"github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/smallbiznis/tillway/internal/sale/pricing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	ProductRepo  productdomain.Repository
	CustomerRepo customerdomain.Repository
	BranchSvc    branchdomain.Service
	Metrics      *metrics.Metrics        `optional:"true"`
	PosCfg       *config.PosConfigHolder `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	productRepo  productdomain.Repository
	customerRepo customerdomain.Repository
	branchSvc    branchdomain.Service
	metrics      *metrics.Metrics
	posCfg       *config.PosConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sale.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		productRepo:  p.ProductRepo,
		customerRepo: p.CustomerRepo,
		branchSvc:    p.BranchSvc,
		metrics:      p.Metrics,
		posCfg:       p.PosCfg,
	}
}

// Create runs the sale creation workflow. Everything up to the transaction
// is validation against an in-memory view; no write happens until every line
// has been resolved and priced, so a validation failure leaves zero side
// effects. Inventory and customer deltas, invoice numbering, and the sale row
// itself commit as one atomic unit.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}

	invoiceType, ok := domain.ParseInvoiceType(strings.TrimSpace(req.InvoiceType))
	if !ok {
		return nil, domain.ErrInvalidInvoiceType
	}
	paymentMethod, ok := domain.ParsePaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if !ok {
		return nil, domain.ErrInvalidPaymentMethod
	}
	cashierID, err := snowflake.ParseString(strings.TrimSpace(req.CashierID))
	if err != nil || cashierID == 0 {
		return nil, domain.ErrInvalidCashier
	}

	if len(req.Items) == 0 {
		return nil, domain.ErrNoLineItems
	}
	maxItems := config.DefaultPosConfig().MaxLineItems
	if s.posCfg != nil {
		maxItems = s.posCfg.Current().MaxLineItems
	}
	if len(req.Items) > maxItems {
		return nil, domain.ErrTooManyLineItems
	}

	var customerID *snowflake.ID
	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil || parsed == 0 {
			return nil, domain.ErrInvalidCustomer
		}
		existing, err := s.customerRepo.FindByID(ctx, s.db, branchID, parsed)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.ErrInvalidCustomer
		}
		customerID = &parsed
	}

	taxRate, err := s.branchSvc.TaxRate(ctx, branchID)
	if err != nil {
		if err == branchdomain.ErrNotFound {
			return nil, domain.ErrInvalidBranch
		}
		return nil, err
	}

	productIDs := make([]snowflake.ID, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidProduct
		}
		productIDs = append(productIDs, id)
	}

	products, err := s.productRepo.FindByIDs(ctx, s.db, branchID, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]productdomain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	inputs := make([]pricing.LineInput, 0, len(req.Items))
	for i, item := range req.Items {
		p, ok := byID[productIDs[i]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProduct, productIDs[i])
		}
		discountType, ok := pricing.ParseDiscountType(strings.TrimSpace(item.DiscountType))
		if !ok {
			return nil, &pricing.LineError{Index: i, Reason: fmt.Sprintf("unknown discount type %q", item.DiscountType)}
		}
		inputs = append(inputs, pricing.LineInput{
			UnitPriceCents: p.UnitPriceCents,
			Quantity:       item.Quantity,
			DiscountType:   discountType,
			DiscountValue:  item.DiscountValue,
		})
	}

	totals, err := pricing.Calculate(inputs, taxRate)
	if err != nil {
		return nil, err
	}

	amountPaid := req.AmountPaidCents
	changeReturned := int64(0)
	switch {
	case amountPaid == 0:
		// Charged exactly (card/transfer flows without tendered cash).
		amountPaid = totals.TotalCents
	case amountPaid < totals.TotalCents:
		return nil, domain.ErrInsufficientPayment
	default:
		changeReturned = amountPaid - totals.TotalCents
	}

	now := s.clock.Now()
	sale := &domain.Sale{
		ID:                  s.genID.Generate(),
		BranchID:            branchID,
		TransactionID:       ulid.Make().String(),
		InvoiceType:         invoiceType,
		OrderType:           strings.TrimSpace(req.OrderType),
		CustomerID:          customerID,
		CashierID:           cashierID,
		SoldAt:              now,
		SubtotalCents:       totals.SubtotalCents,
		TotalDiscountCents:  totals.TotalDiscountCents,
		TaxAmountCents:      totals.TaxAmountCents,
		TotalCents:          totals.TotalCents,
		AmountPaidCents:     amountPaid,
		ChangeReturnedCents: changeReturned,
		PaymentMethod:       paymentMethod,
		Notes:               strings.TrimSpace(req.Notes),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for i, priced := range totals.Lines {
		p := byID[productIDs[i]]
		sale.Items = append(sale.Items, domain.SaleLineItem{
			ID:                       s.genID.Generate(),
			SaleID:                   sale.ID,
			BranchID:                 branchID,
			ProductID:                p.ID,
			ProductName:              p.Name,
			Quantity:                 priced.Quantity,
			UnitPriceCents:           priced.UnitPriceCents,
			DiscountType:             priced.DiscountType,
			DiscountValue:            priced.DiscountValue,
			DiscountedUnitPriceCents: priced.DiscountedUnitPriceCents,
			LineTotalCents:           priced.LineTotalCents,
			CreatedAt:                now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range sale.Items {
			if err := s.productRepo.AdjustStock(ctx, tx, branchID, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}

		if customerID != nil {
			visitAt := now
			if err := s.customerRepo.ApplyStats(ctx, tx, branchID, *customerID, sale.TotalCents, 1, &visitAt); err != nil {
				return err
			}
		}

		if invoiceType == domain.InvoiceStandard {
			number, err := s.branchSvc.NextInvoiceNumber(ctx, tx, branchID, now)
			if err != nil {
				return err
			}
			sale.InvoiceNumber = &number
		}

		return s.repo.Insert(ctx, tx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSaleCommitted(branchID.String(), string(invoiceType), sale.TotalCents)
	s.log.Info("sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("transaction_id", sale.TransactionID),
		zap.String("invoice_type", string(invoiceType)),
		zap.Int64("total_cents", sale.TotalCents),
		zap.Int("line_items", len(sale.Items)),
	)

	resp := s.toResponse(sale)
	return &resp, nil
}

// Void reverses a committed sale: stock comes back by the exact quantities
// originally sold and the customer's spend and visit count roll back by the
// sale's prior contribution. The guarded void-state update makes a second
// void lose even under concurrency. LastVisitAt is intentionally not
// restored.
func (s *Service) Void(ctx context.Context, req domain.VoidRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}
	saleID, err := snowflake.ParseString(strings.TrimSpace(req.SaleID))
	if err != nil || saleID == 0 {
		return nil, domain.ErrInvalidID
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.ErrInvalidReason
	}
	voidedBy, err := snowflake.ParseString(strings.TrimSpace(req.VoidedBy))
	if err != nil || voidedBy == 0 {
		return nil, domain.ErrInvalidCashier
	}

	sale, err := s.repo.FindByID(ctx, s.db, branchID, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	if sale.IsVoided {
		return nil, domain.ErrAlreadyVoided
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.MarkVoided(ctx, tx, branchID, saleID, voidedBy, reason, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrAlreadyVoided
		}

		for _, item := range sale.Items {
			if err := s.productRepo.AdjustStock(ctx, tx, branchID, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if sale.CustomerID != nil {
			if err := s.customerRepo.ApplyStats(ctx, tx, branchID, *sale.CustomerID, -sale.TotalCents, -1, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sale.IsVoided = true
	sale.VoidedAt = &now
	sale.VoidedBy = &voidedBy
	sale.VoidReason = &reason
	sale.UpdatedAt = now

	s.metrics.ObserveSaleVoided(branchID.String())
	s.log.Info("sale voided",
		zap.String("sale_id", sale.ID.String()),
		zap.String("voided_by", voidedBy.String()),
		zap.String("reason", reason),
	)

	resp := s.toResponse(sale)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return domain.ListResponse{}, err
	}

	filter := domain.ListFilter{
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		InvoiceType:   strings.TrimSpace(req.InvoiceType),
		Voided:        req.Voided,
		SoldFrom:      req.SoldFrom,
		SoldTo:        req.SoldTo,
		SortBy:        strings.TrimSpace(req.SortBy),
		OrderBy:       strings.TrimSpace(req.OrderBy),
	}
	if filter.SortBy == "" {
		filter.SortBy = "sold_at"
		filter.OrderBy = "desc"
	}
	if filter.PaymentMethod != "" {
		if _, ok := domain.ParsePaymentMethod(filter.PaymentMethod); !ok {
			return domain.ListResponse{}, domain.ErrInvalidPaymentMethod
		}
	}
	if filter.InvoiceType != "" {
		if _, ok := domain.ParseInvoiceType(filter.InvoiceType); !ok {
			return domain.ListResponse{}, domain.ErrInvalidInvoiceType
		}
	}
	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil || parsed == 0 {
			return domain.ListResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = &parsed
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, branchID, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{
		PageInfo: page.Info(total),
		Sales:    make([]domain.Response, 0, len(items)),
	}
	for _, item := range items {
		resp.Sales = append(resp.Sales, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.Response, error) {
	branchID, err := parseBranchID(req.BranchID)
	if err != nil {
		return nil, err
	}
	saleID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || saleID == 0 {
		return nil, domain.ErrInvalidID
	}

	sale, err := s.repo.FindByID(ctx, s.db, branchID, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(sale)
	return &resp, nil
}

func (s *Service) toResponse(sale *domain.Sale) domain.Response {
	resp := domain.Response{
		ID:                  sale.ID.String(),
		BranchID:            sale.BranchID.String(),
		TransactionID:       sale.TransactionID,
		InvoiceNumber:       sale.InvoiceNumber,
		InvoiceType:         string(sale.InvoiceType),
		OrderType:           sale.OrderType,
		CashierID:           sale.CashierID.String(),
		SoldAt:              sale.SoldAt,
		SubtotalCents:       sale.SubtotalCents,
		TotalDiscountCents:  sale.TotalDiscountCents,
		TaxAmountCents:      sale.TaxAmountCents,
		TotalCents:          sale.TotalCents,
		AmountPaidCents:     sale.AmountPaidCents,
		ChangeReturnedCents: sale.ChangeReturnedCents,
		PaymentMethod:       string(sale.PaymentMethod),
		Notes:               sale.Notes,
		IsVoided:            sale.IsVoided,
		VoidedAt:            sale.VoidedAt,
		VoidReason:          sale.VoidReason,
	}
	if sale.CustomerID != nil {
		id := sale.CustomerID.String()
		resp.CustomerID = &id
	}
	if sale.VoidedBy != nil {
		id := sale.VoidedBy.String()
		resp.VoidedBy = &id
	}
	for _, item := range sale.Items {
		resp.Items = append(resp.Items, domain.LineItemResponse{
			ID:                       item.ID.String(),
			ProductID:                item.ProductID.String(),
			ProductName:              item.ProductName,
			Quantity:                 item.Quantity,
			UnitPriceCents:           item.UnitPriceCents,
			DiscountType:             string(item.DiscountType),
			DiscountValue:            item.DiscountValue,
			DiscountedUnitPriceCents: item.DiscountedUnitPriceCents,
			LineTotalCents:           item.LineTotalCents,
		})
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
