package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/tillworks/tillworks-backend/pkg/db"
	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillworks-backend/pkg/errors"
	"github.com/tillworks/tillworks-backend/pkg/logger"
	"github.com/tillworks/tillworks-backend/pkg/metrics"
)

const singleOpenSessionIndex = "idx_drawer_sessions_single_open"

// Service defines session lifecycle operations up to, but not including,
// reconciliation.
type Service interface {
	Open(ctx context.Context, input OpenSessionInput) (*models.DrawerSession, error)
	Current(ctx context.Context, operatorID, locationID uuid.UUID) (*models.DrawerSession, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*models.DrawerSession, error)
	AddMovement(ctx context.Context, input MovementInput) (*models.CashMovement, error)
	Movements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.DrawerMetrics
}

// NewService builds a session service with the required dependencies.
func NewService(repo Repository, logg *logger.Logger, drawerMetrics *metrics.DrawerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		logg:    logg,
		metrics: drawerMetrics,
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenSessionInput) (*models.DrawerSession, error) {
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id required")
	}
	if input.OpeningBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening balance must not be negative")
	}

	session := &models.DrawerSession{
		OperatorID:     input.OperatorID,
		LocationID:     input.LocationID,
		OpeningBalance: input.OpeningBalance,
		Status:         enums.SessionStatusOpen,
	}
	created, err := s.repo.CreateSession(ctx, session)
	if err != nil {
		// The partial unique index is the arbiter for concurrent opens.
		if pkgdb.IsUniqueViolation(err, singleOpenSessionIndex) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "operator already has an open session at this location")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create drawer session")
	}

	s.metrics.IncSessionOpened(created.LocationID.String())
	logCtx := s.logg.WithOperatorID(ctx, created.OperatorID.String())
	logCtx = s.logg.WithLocationID(logCtx, created.LocationID.String())
	logCtx = s.logg.WithSessionID(logCtx, created.ID.String())
	s.logg.Info(logCtx, "drawer session opened")
	return created, nil
}

func (s *service) Current(ctx context.Context, operatorID, locationID uuid.UUID) (*models.DrawerSession, error) {
	if operatorID == uuid.Nil || locationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator and location ids required")
	}
	session, err := s.repo.FindOpenSession(ctx, operatorID, locationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open session for operator at location")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open session")
	}
	return session, nil
}

func (s *service) Get(ctx context.Context, sessionID uuid.UUID) (*models.DrawerSession, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.repo.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return session, nil
}

func (s *service) AddMovement(ctx context.Context, input MovementInput) (*models.CashMovement, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown movement type")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement amount must be positive")
	}
	if input.PerformedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "performed_by required")
	}

	session, err := s.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is not open")
	}

	movement := &models.CashMovement{
		SessionID:   input.SessionID,
		Type:        input.Type,
		Amount:      input.Amount,
		Reason:      input.Reason,
		Category:    input.Category,
		PerformedBy: input.PerformedBy,
	}
	created, err := s.repo.AppendMovement(ctx, movement)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append cash movement")
	}

	s.metrics.IncMovement(string(created.Type))
	s.logg.Info(s.logg.WithSessionID(ctx, session.ID.String()), "cash movement recorded")
	return created, nil
}

func (s *service) Movements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	movements, err := s.repo.ListMovements(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cash movements")
	}
	return movements, nil
}
