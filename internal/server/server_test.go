package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	"github.com/smallbiznis/tillway/internal/config"
	customerdomain "github.com/smallbiznis/tillway/internal/customer/domain"
	productdomain "github.com/smallbiznis/tillway/internal/product/domain"
	saledomain "github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSaleService struct {
	lastCreate saledomain.CreateRequest
	lastVoid   saledomain.VoidRequest
	createErr  error
	voidErr    error
}

func (f *fakeSaleService) Create(ctx context.Context, req saledomain.CreateRequest) (*saledomain.Response, error) {
	_ = ctx
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &saledomain.Response{ID: "1", BranchID: req.BranchID, TransactionID: "01TEST"}, nil
}

func (f *fakeSaleService) Void(ctx context.Context, req saledomain.VoidRequest) (*saledomain.Response, error) {
	_ = ctx
	f.lastVoid = req
	if f.voidErr != nil {
		return nil, f.voidErr
	}
	return &saledomain.Response{ID: req.SaleID, IsVoided: true}, nil
}

func (f *fakeSaleService) List(ctx context.Context, req saledomain.ListRequest) (saledomain.ListResponse, error) {
	_ = ctx
	_ = req
	return saledomain.ListResponse{}, nil
}

func (f *fakeSaleService) Get(ctx context.Context, req saledomain.GetRequest) (*saledomain.Response, error) {
	_ = ctx
	_ = req
	return nil, saledomain.ErrNotFound
}

type fakeBranchService struct{}

func (f *fakeBranchService) Create(ctx context.Context, req branchdomain.CreateRequest) (*branchdomain.Response, error) {
	_ = ctx
	_ = req
	return &branchdomain.Response{}, nil
}

func (f *fakeBranchService) List(ctx context.Context) ([]branchdomain.Response, error) {
	_ = ctx
	return nil, nil
}

func (f *fakeBranchService) Get(ctx context.Context, id string) (*branchdomain.Response, error) {
	_ = ctx
	_ = id
	return nil, branchdomain.ErrNotFound
}

func (f *fakeBranchService) Update(ctx context.Context, req branchdomain.UpdateRequest) (*branchdomain.Response, error) {
	_ = ctx
	_ = req
	return &branchdomain.Response{}, nil
}

func (f *fakeBranchService) TaxRate(ctx context.Context, branchID snowflake.ID) (float64, error) {
	_ = ctx
	_ = branchID
	return 0, nil
}

func (f *fakeBranchService) NextInvoiceNumber(ctx context.Context, tx *gorm.DB, branchID snowflake.ID, issuedAt time.Time) (string, error) {
	_ = ctx
	_ = tx
	_ = branchID
	_ = issuedAt
	return "", nil
}

type fakeProductService struct{}

func (f *fakeProductService) Create(ctx context.Context, req productdomain.CreateRequest) (*productdomain.Response, error) {
	_ = ctx
	_ = req
	return &productdomain.Response{}, nil
}

func (f *fakeProductService) List(ctx context.Context, req productdomain.ListRequest) ([]productdomain.Response, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakeProductService) Get(ctx context.Context, req productdomain.GetRequest) (*productdomain.Response, error) {
	_ = ctx
	_ = req
	return nil, productdomain.ErrNotFound
}

func (f *fakeProductService) Update(ctx context.Context, req productdomain.UpdateRequest) (*productdomain.Response, error) {
	_ = ctx
	_ = req
	return &productdomain.Response{}, nil
}

func (f *fakeProductService) Restock(ctx context.Context, req productdomain.RestockRequest) (*productdomain.Response, error) {
	_ = ctx
	_ = req
	return &productdomain.Response{}, nil
}

type fakeCustomerService struct{}

func (f *fakeCustomerService) Create(ctx context.Context, req customerdomain.CreateRequest) (*customerdomain.Response, error) {
	_ = ctx
	_ = req
	return &customerdomain.Response{}, nil
}

func (f *fakeCustomerService) List(ctx context.Context, req customerdomain.ListRequest) ([]customerdomain.Response, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakeCustomerService) Get(ctx context.Context, req customerdomain.GetRequest) (*customerdomain.Response, error) {
	_ = ctx
	_ = req
	return nil, customerdomain.ErrNotFound
}

func newTestServer(t *testing.T, saleSvc saledomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewServer(ServerParams{
		Gin:         NewEngine(zap.NewNop(), nil),
		Cfg:         &config.Config{},
		Log:         zap.NewNop(),
		GenID:       node,
		BranchSvc:   &fakeBranchService{},
		ProductSvc:  &fakeProductService{},
		CustomerSvc: &fakeCustomerService{},
		SaleSvc:     saleSvc,
	})
}

func TestCreateSaleRequiresBranchHeader(t *testing.T) {
	srv := newTestServer(t, &fakeSaleService{})

	body := bytes.NewBufferString(`{"payment_method":"cash"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", body)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSaleThreadsBranchHeader(t *testing.T) {
	saleSvc := &fakeSaleService{}
	srv := newTestServer(t, saleSvc)

	branchID := snowflake.ID(42).String()
	body := bytes.NewBufferString(`{"payment_method":"cash","cashier_id":"7","items":[{"product_id":"9","quantity":1}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", body)
	req.Header.Set(HeaderBranch, branchID)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, branchID, saleSvc.lastCreate.BranchID)
	assert.Equal(t, "cash", saleSvc.lastCreate.PaymentMethod)
	require.Len(t, saleSvc.lastCreate.Items, 1)
}

func TestVoidSaleMapsAlreadyVoidedToConflict(t *testing.T) {
	saleSvc := &fakeSaleService{voidErr: saledomain.ErrAlreadyVoided}
	srv := newTestServer(t, saleSvc)

	body := bytes.NewBufferString(`{"reason":"duplicate","voided_by":"7"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sales/123/void", body)
	req.Header.Set(HeaderBranch, "42")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "123", saleSvc.lastVoid.SaleID)
	assert.Equal(t, "duplicate", saleSvc.lastVoid.Reason)
}

func TestCreateSaleMapsValidationErrors(t *testing.T) {
	saleSvc := &fakeSaleService{createErr: saledomain.ErrInsufficientPayment}
	srv := newTestServer(t, saleSvc)

	body := bytes.NewBufferString(`{"payment_method":"cash"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", body)
	req.Header.Set(HeaderBranch, "42")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var payload struct {
		Error struct {
			Type   string            `json:"type"`
			Errors []ValidationError `json:"errors"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "validation_error", payload.Error.Type)
	require.Len(t, payload.Error.Errors, 1)
	assert.Equal(t, "insufficient_payment", payload.Error.Errors[0].Code)
}

func TestGetSaleMapsNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeSaleService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sales/999", nil)
	req.Header.Set(HeaderBranch, "42")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDefaultBranchFallback(t *testing.T) {
	saleSvc := &fakeSaleService{}
	srv := newTestServer(t, saleSvc)
	srv.cfg.DefaultBranchID = 42

	body := bytes.NewBufferString(`{"payment_method":"cash","cashier_id":"7","items":[{"product_id":"9","quantity":1}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", body)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, snowflake.ID(42).String(), saleSvc.lastCreate.BranchID)
}
