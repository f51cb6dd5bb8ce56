package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// CashMovement is one immutable entry in a session's cash ledger. Rows are
// never updated or deleted; corrections are appended as offsetting entries.
// Amount is strictly positive, direction lives in Type.
type CashMovement struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID   uuid.UUID          `gorm:"column:session_id;type:uuid;not null;index" json:"session_id"`
	Type        enums.MovementType `gorm:"column:type;type:cash_movement_type_enum;not null" json:"type"`
	Amount      decimal.Decimal    `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Reason      *string            `gorm:"column:reason" json:"reason,omitempty"`
	Category    *string            `gorm:"column:category" json:"category,omitempty"`
	PerformedBy uuid.UUID          `gorm:"column:performed_by;type:uuid;not null" json:"performed_by"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the GORM default.
func (CashMovement) TableName() string {
	return "cash_movements"
}
