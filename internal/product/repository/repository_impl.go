package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/product/domain"
	"github.com/smallbiznis/tillway/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (
			id, branch_id, sku, name, unit_price_cents, stock_level,
			min_stock_threshold, has_inventory_discrepancy, active, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.BranchID,
		product.SKU,
		product.Name,
		product.UnitPriceCents,
		product.StockLevel,
		product.MinStockThreshold,
		product.HasInventoryDiscrepancy,
		product.Active,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, sku, name, unit_price_cents, stock_level,
		        min_stock_threshold, has_inventory_discrepancy, active, metadata,
		        created_at, updated_at
		 FROM products WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, branchID snowflake.ID, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, sku, name, unit_price_cents, stock_level,
		        min_stock_threshold, has_inventory_discrepancy, active, metadata,
		        created_at, updated_at
		 FROM products WHERE branch_id = ? AND id IN ?`,
		branchID,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("branch_id = ?", branchID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.LowStock {
		stmt = stmt.Where("stock_level < min_stock_threshold")
	}
	if filter.Discrepancy != nil {
		stmt = stmt.Where("has_inventory_discrepancy = ?", *filter.Discrepancy)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"name":        true,
		"stock_level": true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, unit_price_cents = ?, min_stock_threshold = ?, active = ?, metadata = ?, updated_at = ?
		 WHERE branch_id = ? AND id = ?`,
		product.Name,
		product.UnitPriceCents,
		product.MinStockThreshold,
		product.Active,
		product.Metadata,
		product.UpdatedAt,
		product.BranchID,
		product.ID,
	).Error
}

// AdjustStock is the blind delta write behind every sale and void. The
// additive UPDATE keeps concurrent writers convergent (the final level is the
// sum of all applied deltas) without locking; the second statement raises the
// sticky discrepancy flag whenever the level lands below zero. Nothing here
// ever clears the flag.
func (r *repo) AdjustStock(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, delta int64) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock_level = stock_level + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE branch_id = ? AND id = ?`,
		delta,
		branchID,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET has_inventory_discrepancy = TRUE
		 WHERE branch_id = ? AND id = ? AND stock_level < 0`,
		branchID,
		id,
	).Error
}
