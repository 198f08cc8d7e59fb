package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	branchrepo "github.com/smallbiznis/tillway/internal/branch/repository"
	branchservice "github.com/smallbiznis/tillway/internal/branch/service"
	"github.com/smallbiznis/tillway/internal/clock"
	customerdomain "github.com/smallbiznis/tillway/internal/customer/domain"
	customerrepo "github.com/smallbiznis/tillway/internal/customer/repository"
	productdomain "github.com/smallbiznis/tillway/internal/product/domain"
	productrepo "github.com/smallbiznis/tillway/internal/product/repository"
	"github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/smallbiznis/tillway/internal/sale/pricing"
	salerepo "github.com/smallbiznis/tillway/internal/sale/repository"
	"github.com/smallbiznis/tillway/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	svc          domain.Service
	clk          *clock.FakeClock
	node         *snowflake.Node
	branch       *branchdomain.Branch
	productRepo  productdomain.Repository
	customerRepo customerdomain.Repository
	saleRepo     domain.Repository
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// A single connection serializes writers; sqlite has no row locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(
		&branchdomain.Branch{},
		&productdomain.Product{},
		&customerdomain.Customer{},
		&domain.Sale{},
		&domain.SaleLineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	branch := &branchdomain.Branch{
		ID:             node.Generate(),
		Code:           "HQ",
		Name:           "Head Office",
		Currency:       "USD",
		TaxRatePercent: 15,
		Active:         true,
		CreatedAt:      clk.Now(),
		UpdatedAt:      clk.Now(),
	}
	require.NoError(t, gdb.Create(branch).Error)

	log := zap.NewNop()
	pRepo := productrepo.Provide()
	cRepo := customerrepo.Provide()
	sRepo := salerepo.Provide()
	branchSvc := branchservice.New(branchservice.Params{
		DB:    gdb,
		Log:   log,
		GenID: node,
		Repo:  branchrepo.Provide(),
	})

	svc := New(Params{
		DB:           gdb,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         sRepo,
		ProductRepo:  pRepo,
		CustomerRepo: cRepo,
		BranchSvc:    branchSvc,
	})

	return &fixture{
		db:           gdb,
		svc:          svc,
		clk:          clk,
		node:         node,
		branch:       branch,
		productRepo:  pRepo,
		customerRepo: cRepo,
		saleRepo:     sRepo,
	}
}

func (f *fixture) seedProduct(t *testing.T, sku string, priceCents, stock int64) *productdomain.Product {
	t.Helper()
	p := &productdomain.Product{
		ID:             f.node.Generate(),
		BranchID:       f.branch.ID,
		SKU:            sku,
		Name:           "Product " + sku,
		UnitPriceCents: priceCents,
		StockLevel:     stock,
		Active:         true,
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) seedCustomer(t *testing.T, name string) *customerdomain.Customer {
	t.Helper()
	c := &customerdomain.Customer{
		ID:        f.node.Generate(),
		BranchID:  f.branch.ID,
		Name:      name,
		CreatedAt: f.clk.Now(),
		UpdatedAt: f.clk.Now(),
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) reloadProduct(t *testing.T, id snowflake.ID) *productdomain.Product {
	t.Helper()
	p, err := f.productRepo.FindByID(context.Background(), f.db, f.branch.ID, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) reloadCustomer(t *testing.T, id snowflake.ID) *customerdomain.Customer {
	t.Helper()
	c, err := f.customerRepo.FindByID(context.Background(), f.db, f.branch.ID, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestCreateSaleTotals(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	coffee := f.seedProduct(t, "COF-01", 10_000, 10)
	beans := f.seedProduct(t, "BNS-01", 20_000, 10)

	resp, err := f.svc.Create(ctx, domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CashierID:     f.node.Generate().String(),
		AmountPaidCents: 50_000,
		Items: []domain.CreateLineItem{
			{ProductID: coffee.ID.String(), Quantity: 2, DiscountType: "percentage", DiscountValue: 10},
			{ProductID: beans.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(38_000), resp.SubtotalCents)
	assert.Equal(t, int64(2_000), resp.TotalDiscountCents)
	assert.Equal(t, int64(5_700), resp.TaxAmountCents)
	assert.Equal(t, int64(43_700), resp.TotalCents)
	assert.Equal(t, int64(50_000), resp.AmountPaidCents)
	assert.Equal(t, int64(6_300), resp.ChangeReturnedCents)
	assert.Equal(t, f.clk.Now(), resp.SoldAt)
	assert.Len(t, resp.TransactionID, 26)
	assert.Nil(t, resp.InvoiceNumber)
	assert.False(t, resp.IsVoided)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Product COF-01", resp.Items[0].ProductName)
	assert.Equal(t, int64(9_000), resp.Items[0].DiscountedUnitPriceCents)
	assert.Equal(t, int64(18_000), resp.Items[0].LineTotalCents)
	assert.Equal(t, int64(20_000), resp.Items[1].LineTotalCents)

	assert.Equal(t, int64(8), f.reloadProduct(t, coffee.ID).StockLevel)
	assert.Equal(t, int64(9), f.reloadProduct(t, beans.ID).StockLevel)
}

func TestCreateSaleExactPayment(t *testing.T) {
	f := setupFixture(t)

	p := f.seedProduct(t, "TEA-01", 1_000, 5)
	resp, err := f.svc.Create(context.Background(), domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "card",
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	// Zero tendered means charged exactly.
	assert.Equal(t, resp.TotalCents, resp.AmountPaidCents)
	assert.Equal(t, int64(0), resp.ChangeReturnedCents)
}

func TestCreateSaleInsufficientPayment(t *testing.T) {
	f := setupFixture(t)

	p := f.seedProduct(t, "TEA-01", 10_000, 5)
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		BranchID:        f.branch.ID.String(),
		InvoiceType:     "simplified",
		PaymentMethod:   "cash",
		CashierID:       f.node.Generate().String(),
		AmountPaidCents: 5_000,
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientPayment)

	assert.Equal(t, int64(5), f.reloadProduct(t, p.ID).StockLevel)
}

func TestCreateSaleOverselling(t *testing.T) {
	f := setupFixture(t)

	p := f.seedProduct(t, "MUG-01", 2_500, 1)
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	got := f.reloadProduct(t, p.ID)
	assert.Equal(t, int64(-2), got.StockLevel)
	assert.True(t, got.HasInventoryDiscrepancy)
}

func TestCreateSaleCustomerStats(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "COF-01", 10_000, 10)
	cust := f.seedCustomer(t, "Ada")

	first, err := f.svc.Create(ctx, domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CustomerID:    cust.ID.String(),
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	f.clk.Advance(2 * time.Hour)

	_, err = f.svc.Create(ctx, domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CustomerID:    cust.ID.String(),
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	got := f.reloadCustomer(t, cust.ID)
	assert.Equal(t, first.TotalCents+first.TotalCents*2, got.TotalPurchasesCents)
	assert.Equal(t, int64(2), got.VisitCount)
	require.NotNil(t, got.LastVisitAt)
	assert.WithinDuration(t, f.clk.Now(), *got.LastVisitAt, time.Second)
}

func TestCreateSaleUnknownCustomer(t *testing.T) {
	f := setupFixture(t)

	p := f.seedProduct(t, "COF-01", 10_000, 10)
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CustomerID:    f.node.Generate().String(),
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrInvalidCustomer)
	assert.Equal(t, int64(10), f.reloadProduct(t, p.ID).StockLevel)
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	known := f.seedProduct(t, "COF-01", 10_000, 10)
	_, err := f.svc.Create(ctx, domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: known.ID.String(), Quantity: 1},
			{ProductID: f.node.Generate().String(), Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrInvalidProduct)

	// The whole cart fails; the known line must not have been applied.
	assert.Equal(t, int64(10), f.reloadProduct(t, known.ID).StockLevel)

	_, total, err := f.saleRepo.List(ctx, f.db, f.branch.ID, domain.ListFilter{}, listPage())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestCreateSaleDiscountOutOfRange(t *testing.T) {
	f := setupFixture(t)

	p := f.seedProduct(t, "COF-01", 10_000, 10)
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 1, DiscountType: "percentage", DiscountValue: 150},
		},
	})

	var lineErr *pricing.LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 0, lineErr.Index)
	assert.Equal(t, int64(10), f.reloadProduct(t, p.ID).StockLevel)
}

func TestCreateSaleEmptyCart(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CashierID:     f.node.Generate().String(),
	})
	require.ErrorIs(t, err, domain.ErrNoLineItems)
}

func TestInvoiceNumbering(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "COF-01", 10_000, 100)

	create := func(invoiceType string) *domain.Response {
		resp, err := f.svc.Create(ctx, domain.CreateRequest{
			BranchID:      f.branch.ID.String(),
			InvoiceType:   invoiceType,
			PaymentMethod: "cash",
			CashierID:     f.node.Generate().String(),
			Items: []domain.CreateLineItem{
				{ProductID: p.ID.String(), Quantity: 1},
			},
		})
		require.NoError(t, err)
		return resp
	}

	first := create("standard")
	second := create("standard")
	simplified := create("simplified")

	require.NotNil(t, first.InvoiceNumber)
	require.NotNil(t, second.InvoiceNumber)
	assert.Equal(t, "INV-HQ-20260314-000001", *first.InvoiceNumber)
	assert.Equal(t, "INV-HQ-20260314-000002", *second.InvoiceNumber)
	assert.Nil(t, simplified.InvoiceNumber)
}

func TestVoidSale(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "COF-01", 10_000, 10)
	cust := f.seedCustomer(t, "Ada")

	sale, err := f.svc.Create(ctx, domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "standard",
		PaymentMethod: "cash",
		CustomerID:    cust.ID.String(),
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	soldAt := f.clk.Now()

	f.clk.Advance(30 * time.Minute)
	manager := f.node.Generate()

	voided, err := f.svc.Void(ctx, domain.VoidRequest{
		BranchID: f.branch.ID.String(),
		SaleID:   sale.ID,
		Reason:   "customer returned order",
		VoidedBy: manager.String(),
	})
	require.NoError(t, err)

	assert.True(t, voided.IsVoided)
	require.NotNil(t, voided.VoidedAt)
	assert.Equal(t, f.clk.Now(), voided.VoidedAt.UTC())
	require.NotNil(t, voided.VoidedBy)
	assert.Equal(t, manager.String(), *voided.VoidedBy)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "customer returned order", *voided.VoidReason)

	assert.Equal(t, int64(10), f.reloadProduct(t, p.ID).StockLevel)

	got := f.reloadCustomer(t, cust.ID)
	assert.Equal(t, int64(0), got.TotalPurchasesCents)
	assert.Equal(t, int64(0), got.VisitCount)
	// Voiding does not rewind the visit timestamp.
	require.NotNil(t, got.LastVisitAt)
	assert.WithinDuration(t, soldAt, *got.LastVisitAt, time.Second)
}

func TestVoidSaleTwice(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "COF-01", 10_000, 10)
	sale, err := f.svc.Create(ctx, domain.CreateRequest{
		BranchID:      f.branch.ID.String(),
		InvoiceType:   "simplified",
		PaymentMethod: "cash",
		CashierID:     f.node.Generate().String(),
		Items: []domain.CreateLineItem{
			{ProductID: p.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	void := domain.VoidRequest{
		BranchID: f.branch.ID.String(),
		SaleID:   sale.ID,
		Reason:   "test run entry",
		VoidedBy: f.node.Generate().String(),
	}
	_, err = f.svc.Void(ctx, void)
	require.NoError(t, err)

	_, err = f.svc.Void(ctx, void)
	require.ErrorIs(t, err, domain.ErrAlreadyVoided)

	// Stock restored exactly once.
	assert.Equal(t, int64(10), f.reloadProduct(t, p.ID).StockLevel)
}

func TestVoidUnknownSale(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.Void(context.Background(), domain.VoidRequest{
		BranchID: f.branch.ID.String(),
		SaleID:   f.node.Generate().String(),
		Reason:   "missing",
		VoidedBy: f.node.Generate().String(),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoidRequiresReason(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.Void(context.Background(), domain.VoidRequest{
		BranchID: f.branch.ID.String(),
		SaleID:   f.node.Generate().String(),
		Reason:   "   ",
		VoidedBy: f.node.Generate().String(),
	})
	require.ErrorIs(t, err, domain.ErrInvalidReason)
}

func TestConcurrentSalesOversell(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "COF-01", 10_000, 5)
	cashier := f.node.Generate().String()

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, domain.CreateRequest{
				BranchID:      f.branch.ID.String(),
				InvoiceType:   "simplified",
				PaymentMethod: "cash",
				CashierID:     cashier,
				Items: []domain.CreateLineItem{
					{ProductID: p.ID.String(), Quantity: 1},
				},
			})
		}(i)
	}
	wg.Wait()

	// Last-commit-wins: every sale commits, none is rejected for stock.
	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	got := f.reloadProduct(t, p.ID)
	assert.Equal(t, int64(-5), got.StockLevel)
	assert.True(t, got.HasInventoryDiscrepancy)

	_, total, err := f.saleRepo.List(ctx, f.db, f.branch.ID, domain.ListFilter{}, listPage())
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestListAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "COF-01", 10_000, 100)
	cashier := f.node.Generate().String()

	create := func(method string) *domain.Response {
		resp, err := f.svc.Create(ctx, domain.CreateRequest{
			BranchID:      f.branch.ID.String(),
			InvoiceType:   "simplified",
			PaymentMethod: method,
			CashierID:     cashier,
			Items: []domain.CreateLineItem{
				{ProductID: p.ID.String(), Quantity: 1},
			},
		})
		require.NoError(t, err)
		f.clk.Advance(time.Minute)
		return resp
	}

	cashSale := create("cash")
	create("card")
	create("cash")

	_, err := f.svc.Void(ctx, domain.VoidRequest{
		BranchID: f.branch.ID.String(),
		SaleID:   cashSale.ID,
		Reason:   "wrong order",
		VoidedBy: cashier,
	})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, domain.ListRequest{BranchID: f.branch.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalCount)

	cashOnly, err := f.svc.List(ctx, domain.ListRequest{
		BranchID:      f.branch.ID.String(),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cashOnly.TotalCount)

	voided := true
	voidedOnly, err := f.svc.List(ctx, domain.ListRequest{
		BranchID: f.branch.ID.String(),
		Voided:   &voided,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), voidedOnly.TotalCount)
	assert.Equal(t, cashSale.ID, voidedOnly.Sales[0].ID)

	got, err := f.svc.Get(ctx, domain.GetRequest{
		BranchID: f.branch.ID.String(),
		ID:       cashSale.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, cashSale.TransactionID, got.TransactionID)
	assert.True(t, got.IsVoided)
	require.Len(t, got.Items, 1)

	_, err = f.svc.Get(ctx, domain.GetRequest{
		BranchID: f.branch.ID.String(),
		ID:       f.node.Generate().String(),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func listPage() pagination.Pagination {
	return pagination.Pagination{Page: 1, PageSize: 50}
}
