package sessions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// OpenSessionInput carries the fields required to open a drawer session.
type OpenSessionInput struct {
	OperatorID     uuid.UUID
	LocationID     uuid.UUID
	OpeningBalance decimal.Decimal
}

// MovementInput carries the fields required to append a cash movement.
type MovementInput struct {
	SessionID   uuid.UUID
	Type        enums.MovementType
	Amount      decimal.Decimal
	Reason      *string
	Category    *string
	PerformedBy uuid.UUID
}

// SessionClosure bundles the fields written in the single close update.
// Status is the final state, either closed or review.
type SessionClosure struct {
	Status         enums.SessionStatus
	EndedAt        time.Time
	ClosingBalance decimal.Decimal
	ExpectedCash   decimal.Decimal
	Variance       decimal.Decimal
	Denominations  json.RawMessage
	ClosingNotes   *string
}
