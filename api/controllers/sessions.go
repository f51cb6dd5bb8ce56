package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillworks-backend/api/middleware"
	"github.com/tillworks/tillworks-backend/api/responses"
	"github.com/tillworks/tillworks-backend/api/validators"
	"github.com/tillworks/tillworks-backend/internal/reconcile"
	"github.com/tillworks/tillworks-backend/internal/sessions"
	"github.com/tillworks/tillworks-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillworks-backend/pkg/errors"
	"github.com/tillworks/tillworks-backend/pkg/logger"
)

type openSessionPayload struct {
	OpeningBalance string `json:"opening_balance" validate:"required"`
}

type movementPayload struct {
	Type     string  `json:"type" validate:"required,oneof=cash_in cash_out cash_drop expense"`
	Amount   string  `json:"amount" validate:"required"`
	Reason   *string `json:"reason,omitempty"`
	Category *string `json:"category,omitempty"`
}

type closeSessionPayload struct {
	ClosingBalance string          `json:"closing_balance" validate:"required"`
	Denominations  json.RawMessage `json:"denominations,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

// DrawerSessionOpen opens a session for the authenticated operator.
func DrawerSessionOpen(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		operatorID, locationID, err := identityFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload openSessionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		openingBalance, err := parseAmount(payload.OpeningBalance, "opening_balance")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Open(ctx, sessions.OpenSessionInput{
			OperatorID:     operatorID,
			LocationID:     locationID,
			OpeningBalance: openingBalance,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// DrawerSessionCurrent returns the operator's open session at their location.
func DrawerSessionCurrent(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		operatorID, locationID, err := identityFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Current(ctx, operatorID, locationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// DrawerSessionDetail returns one session by id.
func DrawerSessionDetail(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Get(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// DrawerSessionSummary returns the live financial summary for a session.
func DrawerSessionSummary(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.Summary(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// DrawerMovementList returns the session's cash ledger in insertion order.
func DrawerMovementList(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movements, err := svc.Movements(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, movements)
	}
}

// DrawerMovementCreate appends a cash movement to an open session.
func DrawerMovementCreate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		operatorID, _, err := identityFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload movementPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := parseAmount(payload.Amount, "amount")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movement, err := svc.AddMovement(ctx, sessions.MovementInput{
			SessionID:   sessionID,
			Type:        enums.MovementType(payload.Type),
			Amount:      amount,
			Reason:      payload.Reason,
			Category:    payload.Category,
			PerformedBy: operatorID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, movement)
	}
}

// DrawerSessionClose settles a session against the declared count.
func DrawerSessionClose(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload closeSessionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		closingBalance, err := parseAmount(payload.ClosingBalance, "closing_balance")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Close(ctx, reconcile.CloseInput{
			SessionID:      sessionID,
			ClosingBalance: closingBalance,
			Denominations:  payload.Denominations,
			Notes:          payload.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func identityFromContext(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ctx := r.Context()
	rawOperator := middleware.OperatorIDFromContext(ctx)
	if rawOperator == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}
	operatorID, err := uuid.Parse(rawOperator)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid operator id")
	}

	rawLocation := middleware.LocationIDFromContext(ctx)
	if rawLocation == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "location context missing")
	}
	locationID, err := uuid.Parse(rawLocation)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid location id")
	}
	return operatorID, locationID, nil
}

func sessionIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id")
	}
	return sessionID, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string").WithDetails(map[string]any{"field": field})
	}
	if value.Exponent() < -2 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount precision is limited to cents").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
