package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
)

// Repository defines persistence operations for drawer sessions and their
// cash movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSession(ctx context.Context, session *models.DrawerSession) (*models.DrawerSession, error)
	FindSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error)
	FindOpenSession(ctx context.Context, operatorID, locationID uuid.UUID) (*models.DrawerSession, error)
	AppendMovement(ctx context.Context, movement *models.CashMovement) (*models.CashMovement, error)
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
	SumMovementsByType(ctx context.Context, sessionID uuid.UUID) (map[enums.MovementType]decimal.Decimal, error)
	CloseSession(ctx context.Context, id uuid.UUID, closure SessionClosure) (int64, error)
}
