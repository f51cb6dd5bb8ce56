// Package audit emits immutable session facts to Pub/Sub for the back-office
// audit trail. Publishing is best effort: a drawer close must never fail
// because the broker is down.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/pkg/enums"
	"github.com/tillworks/tillworks-backend/pkg/logger"
)

const (
	publishTimeout = 10 * time.Second

	FactTypeSessionClosed = "drawer.session.closed"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherAdapter struct {
	pub *gcppubsub.Publisher
}

func (a publisherAdapter) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return a.pub.Publish(ctx, msg)
}

// SessionClosedFact is the payload published when a session reaches a
// terminal state.
type SessionClosedFact struct {
	SessionID      uuid.UUID           `json:"session_id"`
	OperatorID     uuid.UUID           `json:"operator_id"`
	LocationID     uuid.UUID           `json:"location_id"`
	Status         enums.SessionStatus `json:"status"`
	ClosingBalance decimal.Decimal     `json:"closing_balance"`
	ExpectedCash   decimal.Decimal     `json:"expected_cash"`
	Variance       decimal.Decimal     `json:"variance"`
	EndedAt        time.Time           `json:"ended_at"`
}

// Service publishes audit facts.
type Service interface {
	SessionClosed(ctx context.Context, fact SessionClosedFact)
}

type service struct {
	pub  publisher
	logg *logger.Logger
}

// NewService builds an audit publisher backed by the given Pub/Sub publisher.
// A nil publisher yields a no-op service, used when Pub/Sub is not configured.
func NewService(pub *gcppubsub.Publisher, logg *logger.Logger) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pub == nil {
		return &service{logg: logg}, nil
	}
	return &service{pub: publisherAdapter{pub: pub}, logg: logg}, nil
}

func newServiceWithPublisher(pub publisher, logg *logger.Logger) Service {
	return &service{pub: pub, logg: logg}
}

// A session flagged for review is an anomaly for the back office, so the
// fact is tagged with an elevated severity.
func factSeverity(status enums.SessionStatus) string {
	if status == enums.SessionStatusReview {
		return "warning"
	}
	return "info"
}

func (s *service) SessionClosed(ctx context.Context, fact SessionClosedFact) {
	if s.pub == nil {
		return
	}

	payload, err := json.Marshal(fact)
	if err != nil {
		s.logg.Error(ctx, "marshal session closed fact", err)
		return
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"fact_type":  FactTypeSessionClosed,
			"session_id": fact.SessionID.String(),
			"severity":   factSeverity(fact.Status),
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		s.logg.Error(ctx, "publish session closed fact", fmt.Errorf("publisher returned nil result"))
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		s.logg.Error(ctx, "publish session closed fact", err)
	}
}
