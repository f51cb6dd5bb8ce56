// Package orders reads the sales facts the order subsystem writes. Drawer
// reconciliation treats these rows as an external, already-priced source of
// truth and only aggregates them.
package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// SalesReader exposes the aggregated sales totals for a drawer session.
type SalesReader interface {
	SumSalesByMode(ctx context.Context, sessionID uuid.UUID) (map[enums.PaymentMode]decimal.Decimal, error)
	ListSales(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales reader bound to the provided DB.
func NewRepository(db *gorm.DB) SalesReader {
	return &repository{db: db}
}

func (r *repository) SumSalesByMode(ctx context.Context, sessionID uuid.UUID) (map[enums.PaymentMode]decimal.Decimal, error) {
	type saleSum struct {
		PaymentMode enums.PaymentMode `gorm:"column:payment_mode"`
		Total       decimal.Decimal   `gorm:"column:total"`
	}
	var rows []saleSum
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("payment_mode, COALESCE(SUM(amount), 0) AS total").
		Where("session_id = ?", sessionID).
		Group("payment_mode").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[enums.PaymentMode]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.PaymentMode] = row.Total
	}
	return sums, nil
}

func (r *repository) ListSales(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("completed_at ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}
