package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/customer/domain"
	"github.com/smallbiznis/tillway/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (
			id, branch_id, name, email, phone, total_purchases_cents,
			visit_count, last_visit_at, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.BranchID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.TotalPurchasesCents,
		customer.VisitCount,
		customer.LastVisitAt,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Customer, error) {
	var c domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, name, email, phone, total_purchases_cents,
		        visit_count, last_visit_at, metadata, created_at, updated_at
		 FROM customers WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListRequest) ([]domain.Customer, error) {
	var items []domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("branch_id = ?", branchID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":    true,
		"updated_at":    true,
		"name":          true,
		"last_visit_at": true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ApplyStats mirrors AdjustStock on the product side: a single additive
// UPDATE so concurrent sales against the same customer converge without
// locking. last_visit_at is only touched when visitAt is provided.
func (r *repo) ApplyStats(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, totalDeltaCents, visitDelta int64, visitAt *time.Time) error {
	var result *gorm.DB
	if visitAt != nil {
		result = db.WithContext(ctx).Exec(
			`UPDATE customers
			 SET total_purchases_cents = total_purchases_cents + ?,
			     visit_count = visit_count + ?,
			     last_visit_at = ?,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE branch_id = ? AND id = ?`,
			totalDeltaCents,
			visitDelta,
			*visitAt,
			branchID,
			id,
		)
	} else {
		result = db.WithContext(ctx).Exec(
			`UPDATE customers
			 SET total_purchases_cents = total_purchases_cents + ?,
			     visit_count = visit_count + ?,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE branch_id = ? AND id = ?`,
			totalDeltaCents,
			visitDelta,
			branchID,
			id,
		)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
