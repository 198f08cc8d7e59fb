package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tillway/internal/product/domain"
	"github.com/smallbiznis/tillway/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *snowflake.Node, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, node, node.Generate().String()
}

func TestCreateProduct(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateRequest{
		BranchID:          branchID,
		SKU:               "COF-01",
		Name:              "Coffee",
		UnitPriceCents:    10_000,
		StockLevel:        3,
		MinStockThreshold: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, "COF-01", resp.SKU)
	assert.Equal(t, int64(3), resp.StockLevel)
	assert.True(t, resp.LowStock)
	assert.False(t, resp.HasInventoryDiscrepancy)
	assert.True(t, resp.Active)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{
		BranchID:       branchID,
		SKU:            "COF-01",
		Name:           "Coffee",
		UnitPriceCents: 10_000,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{
		BranchID:       branchID,
		SKU:            "COF-01",
		Name:           "Coffee again",
		UnitPriceCents: 12_000,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{
			name: "missing sku",
			req:  domain.CreateRequest{BranchID: branchID, Name: "Coffee"},
			want: domain.ErrInvalidSKU,
		},
		{
			name: "missing name",
			req:  domain.CreateRequest{BranchID: branchID, SKU: "COF-01"},
			want: domain.ErrInvalidName,
		},
		{
			name: "negative price",
			req:  domain.CreateRequest{BranchID: branchID, SKU: "COF-01", Name: "Coffee", UnitPriceCents: -1},
			want: domain.ErrInvalidPrice,
		},
		{
			name: "bad branch",
			req:  domain.CreateRequest{BranchID: "nope", SKU: "COF-01", Name: "Coffee"},
			want: domain.ErrInvalidBranch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRestockAddsStock(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		BranchID:       branchID,
		SKU:            "COF-01",
		Name:           "Coffee",
		UnitPriceCents: 10_000,
		StockLevel:     -3,
	})
	require.NoError(t, err)

	resp, err := svc.Restock(ctx, domain.RestockRequest{
		BranchID: branchID,
		ID:       created.ID,
		Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), resp.StockLevel)

	resp, err = svc.Restock(ctx, domain.RestockRequest{
		BranchID: branchID,
		ID:       created.ID,
		Quantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), resp.StockLevel)
}

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		BranchID:       branchID,
		SKU:            "COF-01",
		Name:           "Coffee",
		UnitPriceCents: 10_000,
	})
	require.NoError(t, err)

	_, err = svc.Restock(ctx, domain.RestockRequest{
		BranchID: branchID,
		ID:       created.ID,
		Quantity: 0,
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestUpdateProduct(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		BranchID:       branchID,
		SKU:            "COF-01",
		Name:           "Coffee",
		UnitPriceCents: 10_000,
	})
	require.NoError(t, err)

	newName := "House Blend"
	newPrice := int64(12_000)
	inactive := false
	updated, err := svc.Update(ctx, domain.UpdateRequest{
		BranchID:       branchID,
		ID:             created.ID,
		Name:           &newName,
		UnitPriceCents: &newPrice,
		Active:         &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "House Blend", updated.Name)
	assert.Equal(t, int64(12_000), updated.UnitPriceCents)
	assert.False(t, updated.Active)
	// SKU is immutable through update.
	assert.Equal(t, "COF-01", updated.SKU)
}

func TestListProductsFilters(t *testing.T) {
	svc, node, branchID := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{
		BranchID:          branchID,
		SKU:               "LOW-01",
		Name:              "Low stock",
		UnitPriceCents:    1_000,
		StockLevel:        1,
		MinStockThreshold: 5,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{
		BranchID:       branchID,
		SKU:            "OK-01",
		Name:           "Plenty",
		UnitPriceCents: 1_000,
		StockLevel:     50,
	})
	require.NoError(t, err)

	low, err := svc.List(ctx, domain.ListRequest{BranchID: branchID, LowStock: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "LOW-01", low[0].SKU)

	all, err := svc.List(ctx, domain.ListRequest{BranchID: branchID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Another branch sees nothing.
	other, err := svc.List(ctx, domain.ListRequest{BranchID: node.Generate().String()})
	require.NoError(t, err)
	assert.Empty(t, other)
}
