package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

func alert(id string, cycle int64, score float64) *domain.Alert {
	return &domain.Alert{
		ID:      id,
		CycleID: cycle,
		Chain:   domain.ChainSolana,
		PairID:  "pair-" + id,
		Symbol:  "SYM",
		Score:   score,
	}
}

func TestAlertStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(0)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Alert{alert("a1", 1, 3.2), alert("a2", 1, 4.1)}))

	got, err := store.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 3.2, got.Score)

	// Returned values are copies.
	got.Score = 0
	again, _ := store.GetByID(ctx, "a1")
	assert.Equal(t, 3.2, again.Score)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlertStore_DuplicateFailsWholeBatch(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(0)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Alert{alert("a1", 1, 3)}))

	err := store.InsertBulk(ctx, []*domain.Alert{alert("a2", 2, 3), alert("a1", 2, 3)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Equal(t, 1, store.Len())

	err = store.InsertBulk(ctx, []*domain.Alert{alert("b", 2, 3), alert("b", 2, 3)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.Alert{{ID: ""}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAlertStore_GetByCycleOrderedByScore(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(0)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Alert{
		alert("a1", 7, 3.0), alert("a2", 7, 4.5), alert("a3", 8, 5.0),
	}))

	got, err := store.GetByCycle(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
}

func TestAlertStore_RecentAndCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.InsertBulk(ctx, []*domain.Alert{alert(fmt.Sprintf("a%d", i), int64(i), 3)}))
	}

	assert.Equal(t, 3, store.Len())
	_, err := store.GetByID(ctx, "a1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "oldest evicted")

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a5", recent[0].ID)
	assert.Equal(t, "a4", recent[1].ID)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestObservationStore(t *testing.T) {
	ctx := context.Background()
	store := NewObservationStore()

	obs := []*domain.Observation{
		{CycleID: 1, ObservedAtMs: 2000, Chain: domain.ChainSolana, PairID: "p1", Score: 2.0},
		{CycleID: 1, ObservedAtMs: 2000, Chain: domain.ChainSolana, PairID: "p2", Score: 4.0, Passed: true},
		{CycleID: 2, ObservedAtMs: 1000, Chain: domain.ChainSolana, PairID: "p1", Score: 2.5},
		{CycleID: 2, ObservedAtMs: 1000, Chain: domain.ChainEthereum, PairID: "p1", Score: 1.0},
	}
	require.NoError(t, store.InsertBulk(ctx, obs))

	byCycle, err := store.GetByCycle(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byCycle, 2)
	assert.Equal(t, "p2", byCycle[0].PairID)

	byPair, err := store.GetByPair(ctx, domain.ChainSolana, "p1")
	require.NoError(t, err)
	require.Len(t, byPair, 2)
	assert.Equal(t, int64(1000), byPair[0].ObservedAtMs)
	assert.Equal(t, int64(2000), byPair[1].ObservedAtMs)

	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.Observation{{CycleID: 3}}), storage.ErrInvalidInput)
}
