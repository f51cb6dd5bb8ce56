package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/tillworks/tillworks-backend/pkg/db"
	"github.com/tillworks/tillworks-backend/pkg/db/models"
	"github.com/tillworks/tillworks-backend/pkg/enums"
)

func setupSessionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	drawerSessions := `
CREATE TABLE IF NOT EXISTS drawer_sessions (
  id TEXT PRIMARY KEY,
  operator_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  opening_balance DECIMAL(12,2) NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  started_at DATETIME,
  ended_at DATETIME,
  closing_balance DECIMAL(12,2),
  expected_cash DECIMAL(12,2),
  variance DECIMAL(12,2),
  denominations TEXT,
  closing_notes TEXT
);`
	singleOpen := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_drawer_sessions_single_open
  ON drawer_sessions (operator_id, location_id)
  WHERE status = 'open';`
	cashMovements := `
CREATE TABLE IF NOT EXISTS cash_movements (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount DECIMAL(12,2) NOT NULL,
  reason TEXT,
  category TEXT,
  performed_by TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(drawerSessions).Error)
	require.NoError(t, db.Exec(singleOpen).Error)
	require.NoError(t, db.Exec(cashMovements).Error)
	return db
}

func newSession(t *testing.T, db *gorm.DB, status enums.SessionStatus, opening string) *models.DrawerSession {
	t.Helper()

	session := &models.DrawerSession{
		ID:             uuid.New(),
		OperatorID:     uuid.New(),
		LocationID:     uuid.New(),
		OpeningBalance: decimal.RequireFromString(opening),
		Status:         status,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func newMovement(t *testing.T, db *gorm.DB, sessionID uuid.UUID, mt enums.MovementType, amount string, created time.Time) *models.CashMovement {
	t.Helper()

	movement := &models.CashMovement{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Type:        mt,
		Amount:      decimal.RequireFromString(amount),
		PerformedBy: uuid.New(),
		CreatedAt:   created,
	}
	require.NoError(t, db.Create(movement).Error)
	return movement
}

func TestCreateSessionEnforcesSingleOpenPerOperatorLocation(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.CreateSession(ctx, &models.DrawerSession{
		ID:             uuid.New(),
		OperatorID:     uuid.New(),
		LocationID:     uuid.New(),
		OpeningBalance: decimal.RequireFromString("100.00"),
		Status:         enums.SessionStatusOpen,
	})
	require.NoError(t, err)

	_, err = repo.CreateSession(ctx, &models.DrawerSession{
		ID:             uuid.New(),
		OperatorID:     first.OperatorID,
		LocationID:     first.LocationID,
		OpeningBalance: decimal.RequireFromString("50.00"),
		Status:         enums.SessionStatusOpen,
	})
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, "idx_drawer_sessions_single_open"))

	// Same operator at a different location is allowed.
	_, err = repo.CreateSession(ctx, &models.DrawerSession{
		ID:             uuid.New(),
		OperatorID:     first.OperatorID,
		LocationID:     uuid.New(),
		OpeningBalance: decimal.RequireFromString("75.00"),
		Status:         enums.SessionStatusOpen,
	})
	require.NoError(t, err)
}

func TestCreateSessionConcurrentOpensAdmitExactlyOne(t *testing.T) {
	db := setupSessionsTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Serialize writers on one connection so racing inserts surface as unique
	// violations rather than driver busy errors.
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	operatorID := uuid.New()
	locationID := uuid.New()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateSession(context.Background(), &models.DrawerSession{
				ID:             uuid.New(),
				OperatorID:     operatorID,
				LocationID:     locationID,
				OpeningBalance: decimal.RequireFromString("100.00"),
				Status:         enums.SessionStatusOpen,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, attemptErr := range errs {
		if attemptErr == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgdb.IsUniqueViolation(attemptErr, "idx_drawer_sessions_single_open"))
	}
	assert.Equal(t, 1, succeeded)
}

func TestCreateSessionAllowsReopenAfterClose(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	closed := newSession(t, db, enums.SessionStatusClosed, "100.00")

	_, err := repo.CreateSession(ctx, &models.DrawerSession{
		ID:             uuid.New(),
		OperatorID:     closed.OperatorID,
		LocationID:     closed.LocationID,
		OpeningBalance: decimal.RequireFromString("200.00"),
		Status:         enums.SessionStatusOpen,
	})
	require.NoError(t, err)
}

func TestFindOpenSession(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := newSession(t, db, enums.SessionStatusOpen, "150.00")

	found, err := repo.FindOpenSession(ctx, session.OperatorID, session.LocationID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, found.ID)
	assert.True(t, found.OpeningBalance.Equal(decimal.RequireFromString("150.00")))

	_, err = repo.FindOpenSession(ctx, uuid.New(), session.LocationID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListMovementsReturnsChronologicalOrder(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := newSession(t, db, enums.SessionStatusOpen, "100.00")
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	// Insert out of chronological order on purpose.
	second := newMovement(t, db, session.ID, enums.MovementTypeCashOut, "20.00", base.Add(10*time.Minute))
	first := newMovement(t, db, session.ID, enums.MovementTypeCashIn, "50.00", base)
	third := newMovement(t, db, session.ID, enums.MovementTypeExpense, "15.00", base.Add(25*time.Minute))

	movements, err := repo.ListMovements(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, movements, 3)
	assert.Equal(t, first.ID, movements[0].ID)
	assert.Equal(t, second.ID, movements[1].ID)
	assert.Equal(t, third.ID, movements[2].ID)
}

func TestSumMovementsByType(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := newSession(t, db, enums.SessionStatusOpen, "100.00")
	other := newSession(t, db, enums.SessionStatusOpen, "100.00")
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	newMovement(t, db, session.ID, enums.MovementTypeCashIn, "50.00", base)
	newMovement(t, db, session.ID, enums.MovementTypeCashIn, "25.00", base.Add(time.Minute))
	newMovement(t, db, session.ID, enums.MovementTypeCashDrop, "100.00", base.Add(2*time.Minute))
	newMovement(t, db, other.ID, enums.MovementTypeCashIn, "999.00", base)

	sums, err := repo.SumMovementsByType(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.True(t, sums[enums.MovementTypeCashIn].Equal(decimal.RequireFromString("75.00")))
	assert.True(t, sums[enums.MovementTypeCashDrop].Equal(decimal.RequireFromString("100.00")))
}

func TestCloseSessionIsConditionalOnOpenStatus(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := newSession(t, db, enums.SessionStatusOpen, "1000.00")
	closure := SessionClosure{
		Status:         enums.SessionStatusClosed,
		EndedAt:        time.Date(2026, 8, 30, 17, 0, 0, 0, time.UTC),
		ClosingBalance: decimal.RequireFromString("1250.00"),
		ExpectedCash:   decimal.RequireFromString("1230.00"),
		Variance:       decimal.RequireFromString("20.00"),
	}

	affected, err := repo.CloseSession(ctx, session.ID, closure)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reloaded, err := repo.FindSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SessionStatusClosed, reloaded.Status)
	require.NotNil(t, reloaded.ClosingBalance)
	require.NotNil(t, reloaded.ExpectedCash)
	require.NotNil(t, reloaded.Variance)
	assert.True(t, reloaded.ClosingBalance.Equal(decimal.RequireFromString("1250.00")))
	assert.True(t, reloaded.ExpectedCash.Equal(decimal.RequireFromString("1230.00")))
	assert.True(t, reloaded.Variance.Equal(decimal.RequireFromString("20.00")))
	require.NotNil(t, reloaded.EndedAt)

	// A second close is a no-op at the storage layer.
	affected, err = repo.CloseSession(ctx, session.ID, closure)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}
