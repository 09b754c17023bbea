package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

func TestLogRepo_Create_GeneratesID(t *testing.T) {
	tx := newTestTx(t)
	share := createShare(t, tx, "")
	ts := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	got, err := repo.NewLogRepo(tx).Create(context.Background(), domain.LogEntry{
		ShareID:  share.ID.String(),
		User:     "Bob",
		Action:   "edited a schedule",
		ClientTS: ts,
	})

	require.NoError(t, err)
	_, err = uuid.Parse(got.ID)
	assert.NoError(t, err, "ID should be DB-generated UUID")
	assert.Equal(t, share.ID.String(), got.ShareID)
	assert.True(t, ts.Equal(got.ClientTS))
}

func TestLogRepo_Create_SameIDOverwrites(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewLogRepo(tx)
	ctx := context.Background()
	share := createShare(t, tx, "")
	id := uuid.NewString()

	_, err := r.Create(ctx, domain.LogEntry{ID: id, ShareID: share.ID.String(), User: "Bob", Action: "v1", ClientTS: time.Now()})
	require.NoError(t, err)
	_, err = r.Create(ctx, domain.LogEntry{ID: id, ShareID: share.ID.String(), User: "Bob", Action: "v2", ClientTS: time.Now()})
	require.NoError(t, err)

	list, total, err := r.ListByShare(ctx, share.ID, domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Action)
}

func TestLogRepo_Create_InvalidShareID(t *testing.T) {
	tx := newTestTx(t)

	_, err := repo.NewLogRepo(tx).Create(context.Background(), domain.LogEntry{ShareID: "nope", Action: "x", ClientTS: time.Now()})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLogRepo_ListByShare_PagesNewestFirst(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewLogRepo(tx)
	ctx := context.Background()
	share := createShare(t, tx, "")
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := r.Create(ctx, domain.LogEntry{
			ShareID:  share.ID.String(),
			User:     "Bob",
			Action:   "action",
			ClientTS: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	page, limit := 2, 2
	list, total, err := r.ListByShare(ctx, share.ID, domain.NewPaginationParams(&page, &limit))

	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, list, 2)
	assert.True(t, list[0].ClientTS.Equal(base.Add(2*time.Hour)), "page 2 starts at the third newest")
	assert.True(t, list[1].ClientTS.Equal(base.Add(time.Hour)))
}

func TestLogRepo_Create_UnknownShare(t *testing.T) {
	tx := newTestTx(t)

	_, err := repo.NewLogRepo(tx).Create(context.Background(), domain.LogEntry{
		ShareID: uuid.NewString(), User: "Bob", Action: "x", ClientTS: time.Now(),
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
