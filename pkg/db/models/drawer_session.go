package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// DrawerSession is one cashier's shift at a register: opened with a declared
// float, closed exactly once against a physical count. A partial unique index
// on (operator_id, location_id) WHERE status = 'open' guarantees at most one
// open session per operator per location.
type DrawerSession struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OperatorID     uuid.UUID           `gorm:"column:operator_id;type:uuid;not null" json:"operator_id"`
	LocationID     uuid.UUID           `gorm:"column:location_id;type:uuid;not null" json:"location_id"`
	OpeningBalance decimal.Decimal     `gorm:"column:opening_balance;type:decimal(12,2);not null" json:"opening_balance"`
	Status         enums.SessionStatus `gorm:"column:status;type:drawer_session_status_enum;not null;default:'open'" json:"status"`
	StartedAt      time.Time           `gorm:"column:started_at;autoCreateTime" json:"started_at"`
	EndedAt        *time.Time          `gorm:"column:ended_at" json:"ended_at,omitempty"`

	// ClosingBalance, ExpectedCash and Variance are written together in the
	// single close update and are never touched again.
	ClosingBalance *decimal.Decimal `gorm:"column:closing_balance;type:decimal(12,2)" json:"closing_balance,omitempty"`
	ExpectedCash   *decimal.Decimal `gorm:"column:expected_cash;type:decimal(12,2)" json:"expected_cash,omitempty"`
	Variance       *decimal.Decimal `gorm:"column:variance;type:decimal(12,2)" json:"variance,omitempty"`

	// Denominations is the raw physical-count breakdown, stored for audit and
	// never interpreted.
	Denominations json.RawMessage `gorm:"column:denominations;type:jsonb" json:"denominations,omitempty"`
	ClosingNotes  *string         `gorm:"column:closing_notes" json:"closing_notes,omitempty"`
}

// TableName overrides the GORM default.
func (DrawerSession) TableName() string {
	return "drawer_sessions"
}
