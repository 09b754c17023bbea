package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/repo"
)

func TestMemberRepo_Upsert_InsertsThenUpdates(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewMemberRepo(tx)
	ctx := context.Background()
	share := createShare(t, tx, "")

	first, err := r.Upsert(ctx, share.ID, domain.Member{ID: "bob", Name: "Bob", Role: domain.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, "Bob", first.Name)
	assert.False(t, first.JoinedAt.IsZero())

	second, err := r.Upsert(ctx, share.ID, domain.Member{ID: "bob", Name: "Robert", Role: domain.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, "Robert", second.Name, "heartbeat refreshes the display name")
	assert.True(t, first.JoinedAt.Equal(second.JoinedAt), "joined_at is kept on refresh")

	list, err := r.ListByShare(ctx, share.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2, "owner plus one member")
}

func TestMemberRepo_Remove(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewMemberRepo(tx)
	ctx := context.Background()
	share := createShare(t, tx, "")

	_, err := r.Upsert(ctx, share.ID, domain.Member{ID: "bob", Name: "Bob", Role: domain.RoleMember})
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, share.ID, "bob"))
	require.NoError(t, r.Remove(ctx, share.ID, "bob"), "removing an absent member is not an error")

	list, err := r.ListByShare(ctx, share.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "owner", list[0].ID)
}

func TestMemberRepo_PruneStale(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewMemberRepo(tx)
	ctx := context.Background()
	share := createShare(t, tx, "")

	// Nothing is older than an hour ago.
	ids, err := r.PruneStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, ids, share.ID)

	// Everything is older than an hour from now.
	ids, err = r.PruneStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Contains(t, ids, share.ID)

	list, err := r.ListByShare(ctx, share.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
