package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tillway/internal/customer/domain"
	"github.com/smallbiznis/tillway/internal/customer/repository"
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

	require.NoError(t, gdb.AutoMigrate(&domain.Customer{}))

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

func TestCreateCustomer(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateRequest{
		BranchID: branchID,
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", resp.Name)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, int64(0), resp.TotalPurchasesCents)
	assert.Equal(t, int64(0), resp.VisitCount)
	assert.Nil(t, resp.LastVisitAt)
}

func TestCreateCustomerRequiresName(t *testing.T) {
	svc, _, branchID := setupService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		BranchID: branchID,
		Name:     "   ",
	})
	require.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestGetCustomerScopedToBranch(t *testing.T) {
	svc, node, branchID := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		BranchID: branchID,
		Name:     "Ada",
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, domain.GetRequest{BranchID: branchID, ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, domain.GetRequest{BranchID: node.Generate().String(), ID: created.ID})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCustomers(t *testing.T) {
	svc, _, branchID := setupService(t)
	ctx := context.Background()

	for _, name := range []string{"Ada", "Grace", "Edsger"} {
		_, err := svc.Create(ctx, domain.CreateRequest{BranchID: branchID, Name: name})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, domain.ListRequest{BranchID: branchID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := svc.List(ctx, domain.ListRequest{BranchID: branchID, Name: "Grace"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Grace", byName[0].Name)
}
