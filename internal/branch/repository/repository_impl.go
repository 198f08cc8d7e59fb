package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/branch/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, branch *domain.Branch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO branches (id, code, name, currency, tax_rate_percent, invoice_seq, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		branch.ID,
		branch.Code,
		branch.Name,
		branch.Currency,
		branch.TaxRatePercent,
		branch.InvoiceSeq,
		branch.Active,
		branch.CreatedAt,
		branch.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Branch, error) {
	var b domain.Branch
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, currency, tax_rate_percent, invoice_seq, active, created_at, updated_at
		 FROM branches WHERE id = ?`,
		id,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Branch, error) {
	var items []domain.Branch
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, currency, tax_rate_percent, invoice_seq, active, created_at, updated_at
		 FROM branches ORDER BY created_at ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, branch *domain.Branch) error {
	if branch == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE branches
		 SET name = ?, tax_rate_percent = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		branch.Name,
		branch.TaxRatePercent,
		branch.Active,
		branch.UpdatedAt,
		branch.ID,
	).Error
}

// NextInvoiceSeq is the atomic increment-and-read behind invoice numbering.
// Both statements run on the caller's transaction, so a rolled-back sale
// rolls the counter back with it.
func (r *repo) NextInvoiceSeq(ctx context.Context, tx *gorm.DB, id snowflake.ID) (int64, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE branches SET invoice_seq = invoice_seq + 1 WHERE id = ?`,
		id,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var seq int64
	err := tx.WithContext(ctx).Raw(
		`SELECT invoice_seq FROM branches WHERE id = ?`,
		id,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}
