package repo_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
	"github.com/Kdnmm11/TravPlanner-sub000/testutil"
)

// newTestTx opens a rolled-back-on-cleanup transaction; TestMain has
// already applied the migrations.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	return testutil.NewTx(t)
}

// payloadFixture returns a small valid payload. Callers can override fields.
func payloadFixture() domain.Payload {
	return domain.Payload{
		Version: domain.PayloadVersion,
		Trip:    domain.Trip{ID: "trip-1", Title: "Kyoto", StartDate: "2025-04-01", EndDate: "2025-04-05"},
		Schedules: []domain.Schedule{
			{ID: "s1", TripID: "trip-1", Date: "2025-04-01", Title: "Fushimi Inari", StartTime: "09:00"},
		},
		DayInfos:      []domain.DayInfo{{Date: "2025-04-01", Title: "Arrival"}},
		ExchangeRates: map[string]float64{"JPY": 0.0067},
	}
}

// createShare inserts a share owned by "owner" through the real repo.
func createShare(t *testing.T, tx pgx.Tx, password string) domain.Share {
	t.Helper()
	s, err := repo.NewShareRepo(tx).Create(context.Background(), domain.NewShare{
		Payload:      payloadFixture(),
		PasswordHash: password,
		OwnerID:      "owner",
		OwnerName:    "admin",
	})
	require.NoError(t, err)
	return s
}
