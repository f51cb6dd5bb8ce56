package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sessions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSession(ctx context.Context, session *models.DrawerSession) (*models.DrawerSession, error) {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) FindSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error) {
	var session models.DrawerSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindOpenSession(ctx context.Context, operatorID, locationID uuid.UUID) (*models.DrawerSession, error) {
	var session models.DrawerSession
	err := r.db.WithContext(ctx).
		Where("operator_id = ? AND location_id = ? AND status = ?", operatorID, locationID, enums.SessionStatusOpen).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) AppendMovement(ctx context.Context, movement *models.CashMovement) (*models.CashMovement, error) {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, err
	}
	return movement, nil
}

func (r *repository) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	var movements []models.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) SumMovementsByType(ctx context.Context, sessionID uuid.UUID) (map[enums.MovementType]decimal.Decimal, error) {
	type movementSum struct {
		Type  enums.MovementType `gorm:"column:type"`
		Total decimal.Decimal    `gorm:"column:total"`
	}
	var rows []movementSum
	err := r.db.WithContext(ctx).
		Model(&models.CashMovement{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("session_id = ?", sessionID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[enums.MovementType]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}

// CloseSession flips an open session to its final state in one conditional
// update. Zero rows affected means the session was missing or already
// closed; the caller re-reads to tell the two apart.
func (r *repository) CloseSession(ctx context.Context, id uuid.UUID, closure SessionClosure) (int64, error) {
	updates := map[string]any{
		"status":          closure.Status,
		"ended_at":        closure.EndedAt,
		"closing_balance": closure.ClosingBalance,
		"expected_cash":   closure.ExpectedCash,
		"variance":        closure.Variance,
	}
	if closure.Denominations != nil {
		updates["denominations"] = closure.Denominations
	}
	if closure.ClosingNotes != nil {
		updates["closing_notes"] = closure.ClosingNotes
	}
	res := r.db.WithContext(ctx).
		Model(&models.DrawerSession{}).
		Where("id = ? AND status = ?", id, enums.SessionStatusOpen).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
