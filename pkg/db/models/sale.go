package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// Sale is the read model of a completed, already-priced order tagged to a
// drawer session. Rows are written by the order subsystem; this service only
// aggregates them per payment mode.
type Sale struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID   uuid.UUID         `gorm:"column:session_id;type:uuid;not null;index" json:"session_id"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	PaymentMode enums.PaymentMode `gorm:"column:payment_mode;type:payment_mode_enum;not null" json:"payment_mode"`
	Amount      decimal.Decimal   `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	CompletedAt time.Time         `gorm:"column:completed_at;autoCreateTime" json:"completed_at"`
}

// TableName overrides the GORM default.
func (Sale) TableName() string {
	return "sales"
}
