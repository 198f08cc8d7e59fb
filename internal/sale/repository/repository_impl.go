package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/smallbiznis/tillway/pkg/db/option"
	"github.com/smallbiznis/tillway/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, sale *domain.Sale) error {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO sales (
			id, branch_id, transaction_id, invoice_number, invoice_type, order_type,
			customer_id, cashier_id, sold_at, subtotal_cents, total_discount_cents,
			tax_amount_cents, total_cents, amount_paid_cents, change_returned_cents,
			payment_method, notes, is_voided, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.BranchID,
		sale.TransactionID,
		sale.InvoiceNumber,
		sale.InvoiceType,
		sale.OrderType,
		sale.CustomerID,
		sale.CashierID,
		sale.SoldAt,
		sale.SubtotalCents,
		sale.TotalDiscountCents,
		sale.TaxAmountCents,
		sale.TotalCents,
		sale.AmountPaidCents,
		sale.ChangeReturnedCents,
		sale.PaymentMethod,
		sale.Notes,
		sale.IsVoided,
		sale.CreatedAt,
		sale.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, item := range sale.Items {
		err = tx.WithContext(ctx).Exec(
			`INSERT INTO sale_line_items (
				id, sale_id, branch_id, product_id, product_name, quantity,
				unit_price_cents, discount_type, discount_value,
				discounted_unit_price_cents, line_total_cents, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.SaleID,
			item.BranchID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPriceCents,
			item.DiscountType,
			item.DiscountValue,
			item.DiscountedUnitPriceCents,
			item.LineTotalCents,
			item.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Sale, error) {
	var s domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, transaction_id, invoice_number, invoice_type, order_type,
		        customer_id, cashier_id, sold_at, subtotal_cents, total_discount_cents,
		        tax_amount_cents, total_cents, amount_paid_cents, change_returned_cents,
		        payment_method, notes, is_voided, voided_at, voided_by, void_reason,
		        created_at, updated_at
		 FROM sales WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}

	items, err := r.findItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

func (r *repo) findItems(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]domain.SaleLineItem, error) {
	var items []domain.SaleLineItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, sale_id, branch_id, product_id, product_name, quantity,
		        unit_price_cents, discount_type, discount_value,
		        discounted_unit_price_cents, line_total_cents, created_at
		 FROM sale_line_items WHERE sale_id = ? ORDER BY id ASC`,
		saleID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkVoided(ctx context.Context, tx *gorm.DB, branchID, id, voidedBy snowflake.ID, reason string, at time.Time) (int64, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE sales
		 SET is_voided = TRUE, voided_at = ?, voided_by = ?, void_reason = ?, updated_at = ?
		 WHERE branch_id = ? AND id = ? AND is_voided = FALSE`,
		at,
		voidedBy,
		reason,
		at,
		branchID,
		id,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]domain.Sale, int64, error) {
	base := db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("branch_id = ?", branchID)

	if filter.PaymentMethod != "" {
		base = base.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.InvoiceType != "" {
		base = base.Where("invoice_type = ?", filter.InvoiceType)
	}
	if filter.CustomerID != nil {
		base = base.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Voided != nil {
		base = base.Where("is_voided = ?", *filter.Voided)
	}
	if filter.SoldFrom != nil {
		base = option.ApplyOperator(option.Condition{
			Field:    "sold_at",
			Operator: option.GTE,
			Value:    *filter.SoldFrom,
		}).Apply(base)
	}
	if filter.SoldTo != nil {
		base = option.ApplyOperator(option.Condition{
			Field:    "sold_at",
			Operator: option.LTE,
			Value:    *filter.SoldTo,
		}).Apply(base)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	stmt := option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"sold_at":     true,
		"created_at":  true,
		"total_cents": true,
	})).Apply(base.Session(&gorm.Session{}))
	stmt = page.Apply(stmt)

	var items []domain.Sale
	if err := stmt.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
