package reconcile

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// CloseInput carries the physical count and optional context for closing a
// drawer session.
type CloseInput struct {
	SessionID      uuid.UUID
	ClosingBalance decimal.Decimal
	Denominations  json.RawMessage
	Notes          *string
}

// SessionSummary aggregates the live financial picture of a session.
type SessionSummary struct {
	Session        *models.DrawerSession                  `json:"session"`
	SalesByMode    map[enums.PaymentMode]decimal.Decimal  `json:"sales_by_mode"`
	TotalSales     decimal.Decimal                        `json:"total_sales"`
	CashSales      decimal.Decimal                        `json:"cash_sales"`
	MovementTotals map[enums.MovementType]decimal.Decimal `json:"movement_totals"`
	ExpectedCash   decimal.Decimal                        `json:"expected_cash"`
}
