// Package reconcile computes expected cash for a drawer session and settles
// the session against the operator's physical count.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillworks/tillworks-backend/internal/audit"
	"github.com/tillworks/tillworks-backend/internal/orders"
	"github.com/tillworks/tillworks-backend/internal/sessions"
	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillworks-backend/pkg/errors"
	"github.com/tillworks/tillworks-backend/pkg/logger"
	"github.com/tillworks/tillworks-backend/pkg/metrics"
)

// Service settles drawer sessions.
type Service interface {
	Summary(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error)
	Close(ctx context.Context, input CloseInput) (*models.DrawerSession, error)
}

type service struct {
	repo      sessions.Repository
	sales     orders.SalesReader
	audit     audit.Service
	logg      *logger.Logger
	metrics   *metrics.DrawerMetrics
	threshold decimal.Decimal
}

// NewService builds a reconciliation service. The threshold is the maximum
// absolute variance tolerated before a close lands in review.
func NewService(repo sessions.Repository, sales orders.SalesReader, auditSvc audit.Service, logg *logger.Logger, drawerMetrics *metrics.DrawerMetrics, threshold decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sales reader required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if threshold.IsNegative() {
		return nil, fmt.Errorf("variance threshold must not be negative")
	}
	return &service{
		repo:      repo,
		sales:     sales,
		audit:     auditSvc,
		logg:      logg,
		metrics:   drawerMetrics,
		threshold: threshold,
	}, nil
}

func (s *service) Summary(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, session)
}

func (s *service) buildSummary(ctx context.Context, session *models.DrawerSession) (*SessionSummary, error) {
	salesByMode, err := s.sales.SumSalesByMode(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate session sales")
	}
	movementTotals, err := s.repo.SumMovementsByType(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate cash movements")
	}

	totalSales := decimal.Zero
	for _, amount := range salesByMode {
		totalSales = totalSales.Add(amount)
	}
	cashSales := salesByMode[enums.PaymentModeCash]
	expected := expectedCash(session.OpeningBalance, cashSales, movementTotals)

	return &SessionSummary{
		Session:        session,
		SalesByMode:    salesByMode,
		TotalSales:     totalSales,
		CashSales:      cashSales,
		MovementTotals: movementTotals,
		ExpectedCash:   expected,
	}, nil
}

func (s *service) Close(ctx context.Context, input CloseInput) (*models.DrawerSession, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if input.ClosingBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "closing balance must not be negative")
	}

	session, err := s.loadSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is already settled")
	}

	summary, err := s.buildSummary(ctx, session)
	if err != nil {
		return nil, err
	}

	variance := input.ClosingBalance.Sub(summary.ExpectedCash)
	status := enums.SessionStatusClosed
	if variance.Abs().GreaterThan(s.threshold) {
		status = enums.SessionStatusReview
	}

	closure := sessions.SessionClosure{
		Status:         status,
		EndedAt:        time.Now().UTC(),
		ClosingBalance: input.ClosingBalance,
		ExpectedCash:   summary.ExpectedCash,
		Variance:       variance,
		Denominations:  input.Denominations,
		ClosingNotes:   input.Notes,
	}
	affected, err := s.repo.CloseSession(ctx, session.ID, closure)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close drawer session")
	}
	if affected == 0 {
		// Lost the race: the session was settled between our read and the
		// conditional update.
		if _, err := s.loadSession(ctx, session.ID); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is already settled")
	}

	settled, err := s.loadSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSessionClosed(string(settled.Status))
	varianceFloat, _ := variance.Abs().Float64()
	s.metrics.ObserveVariance(varianceFloat)

	endedAt := time.Now().UTC()
	if settled.EndedAt != nil {
		endedAt = *settled.EndedAt
	}
	s.audit.SessionClosed(ctx, audit.SessionClosedFact{
		SessionID:      settled.ID,
		OperatorID:     settled.OperatorID,
		LocationID:     settled.LocationID,
		Status:         settled.Status,
		ClosingBalance: input.ClosingBalance,
		ExpectedCash:   summary.ExpectedCash,
		Variance:       variance,
		EndedAt:        endedAt,
	})

	logCtx := s.logg.WithSessionID(ctx, settled.ID.String())
	logCtx = s.logg.WithField(logCtx, "status", string(settled.Status))
	logCtx = s.logg.WithField(logCtx, "variance", variance.StringFixed(2))
	if settled.Status == enums.SessionStatusReview {
		s.logg.Warn(logCtx, "drawer session flagged for review")
	} else {
		s.logg.Info(logCtx, "drawer session settled")
	}
	return settled, nil
}

func (s *service) loadSession(ctx context.Context, sessionID uuid.UUID) (*models.DrawerSession, error) {
	session, err := s.repo.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return session, nil
}

// expectedCash is the drawer arithmetic: the float the shift started with,
// plus cash taken in, minus cash taken out.
func expectedCash(openingBalance, cashSales decimal.Decimal, movements map[enums.MovementType]decimal.Decimal) decimal.Decimal {
	expected := openingBalance.Add(cashSales)
	for movementType, total := range movements {
		if movementType.Deducts() {
			expected = expected.Sub(total)
		} else {
			expected = expected.Add(total)
		}
	}
	return expected
}
