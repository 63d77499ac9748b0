package storage

import (
	"testing"
	"time"

	"github.com/ferreirogomes/imobi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndReleaseSettlement(t *testing.T) {
	store := NewStore()
	key := SettlementKey("listing", 7)

	require.NoError(t, store.AcquireSettlement(key))

	err := store.AcquireSettlement(key)
	assert.ErrorIs(t, err, models.ErrBusy)

	_ = store.View(func(st *State) error {
		assert.True(t, st.InFlight(key))
		assert.False(t, st.InFlight(SettlementKey("listing", 8)))
		return nil
	})

	store.ReleaseSettlement(key)
	assert.NoError(t, store.AcquireSettlement(key))
}

func TestMoveRET(t *testing.T) {
	store := NewStore()

	_ = store.Update(func(st *State) error {
		st.EnsureHolder("alice").Balance = 500
		return nil
	})

	err := store.Update(func(st *State) error {
		return st.MoveRET("alice", "bob", 200)
	})
	require.NoError(t, err)

	_ = store.View(func(st *State) error {
		assert.Equal(t, uint64(300), st.RETBalances["alice"].Balance)
		assert.Equal(t, uint64(200), st.RETBalances["bob"].Balance)
		assert.Equal(t, uint64(1), st.RETStats.TotalTransactions)
		assert.Equal(t, uint64(2), st.RETStats.UniqueHolders)
		return nil
	})

	err = store.Update(func(st *State) error {
		return st.MoveRET("alice", "bob", 1_000)
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	err = store.Update(func(st *State) error {
		return st.MoveRET("carol", "bob", 1)
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
}

func TestMovePropertyToken(t *testing.T) {
	store := NewStore()
	now := time.Now()

	_ = store.Update(func(st *State) error {
		st.Tokens[1] = &models.PropertyToken{TokenID: 1, Owner: "alice"}
		st.TokenStats[1] = &models.PropertyTokenStats{}
		st.TokenOwners["alice"] = map[uint64]struct{}{1: {}}
		st.Approvals[ApprovalKey{Owner: "alice", TokenID: 1}] = models.Approval{Spender: "carol"}
		return nil
	})

	err := store.Update(func(st *State) error {
		return st.MovePropertyToken(1, "alice", "bob", now)
	})
	require.NoError(t, err)

	_ = store.View(func(st *State) error {
		assert.Equal(t, models.AccountID("bob"), st.Tokens[1].Owner)
		assert.NotNil(t, st.Tokens[1].LastTransfer)
		assert.NotContains(t, st.TokenOwners["alice"], uint64(1))
		assert.Contains(t, st.TokenOwners["bob"], uint64(1))
		assert.NotContains(t, st.Approvals, ApprovalKey{Owner: "alice", TokenID: 1})
		assert.Equal(t, uint64(1), st.TokenStats[1].TotalTransactions)
		return nil
	})

	err = store.Update(func(st *State) error {
		return st.MovePropertyToken(1, "alice", "carol", now)
	})
	assert.ErrorIs(t, err, models.ErrNotOwner)

	err = store.Update(func(st *State) error {
		return st.MovePropertyToken(99, "bob", "carol", now)
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
