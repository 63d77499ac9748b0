package services

import (
	"context"
	"testing"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newDistributionFixture monta dois donos: alice com um token de oferta
// 750 e bob com um de 250, de modo que a razão de posse seja 3:1.
func newDistributionFixture(t *testing.T) (*DistributionService, *MockLedger, *storage.Store) {
	t.Helper()
	store := storage.NewStore()
	logger := zap.NewNop()
	usdc := NewMockLedger()
	payments := NewPaymentManager(store, logger, usdc, NewMockLedger())

	_ = store.Update(func(st *storage.State) error {
		st.Tokens[1] = &models.PropertyToken{TokenID: 1, Owner: "alice", TotalSupply: 750}
		st.Tokens[2] = &models.PropertyToken{TokenID: 2, Owner: "bob", TotalSupply: 250}
		st.TokenOwners["alice"] = map[uint64]struct{}{1: {}}
		st.TokenOwners["bob"] = map[uint64]struct{}{2: {}}
		return nil
	})
	return NewDistributionService(store, payments, logger), usdc, store
}

func TestComputeDistributions(t *testing.T) {
	svc, _, _ := newDistributionFixture(t)

	distributions, err := svc.ComputeDistributions(1_000)
	require.NoError(t, err)
	require.Len(t, distributions, 2)

	// Ordem determinística por conta.
	assert.Equal(t, models.AccountID("alice"), distributions[0].Recipient)
	assert.Equal(t, uint64(750), distributions[0].Amount)
	assert.Equal(t, models.AccountID("bob"), distributions[1].Recipient)
	assert.Equal(t, uint64(250), distributions[1].Amount)
}

func TestComputeDistributionsTruncates(t *testing.T) {
	svc, _, _ := newDistributionFixture(t)

	// 100*750/1000 = 75; 100*250/1000 = 25. Com 10: 7 e 2, sobra 1 com o pagador.
	distributions, err := svc.ComputeDistributions(10)
	require.NoError(t, err)
	require.Len(t, distributions, 2)
	assert.Equal(t, uint64(7), distributions[0].Amount)
	assert.Equal(t, uint64(2), distributions[1].Amount)
}

func TestComputeDistributionsDropsZeroShares(t *testing.T) {
	svc, _, _ := newDistributionFixture(t)

	// 3*250/1000 = 0: bob fica fora do lote.
	distributions, err := svc.ComputeDistributions(3)
	require.NoError(t, err)
	require.Len(t, distributions, 1)
	assert.Equal(t, models.AccountID("alice"), distributions[0].Recipient)
	assert.Equal(t, uint64(2), distributions[0].Amount)
}

func TestComputeDistributionsRequiresTokens(t *testing.T) {
	store := storage.NewStore()
	payments := NewPaymentManager(store, zap.NewNop(), NewMockLedger(), NewMockLedger())
	svc := NewDistributionService(store, payments, zap.NewNop())

	_, err := svc.ComputeDistributions(1_000)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestDistributeTokenIncome(t *testing.T) {
	svc, usdc, _ := newDistributionFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.DistributeTokenIncome(ctx, "payer", 1_000, models.StableUSDC))

	aliceBalance, err := usdc.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_750), aliceBalance)

	bobBalance, err := usdc.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_250), bobBalance)
}

func TestDistributeTokenIncomeBusy(t *testing.T) {
	svc, _, store := newDistributionFixture(t)

	require.NoError(t, store.AcquireSettlement("income"))
	defer store.ReleaseSettlement("income")

	err := svc.DistributeTokenIncome(context.Background(), "payer", 1_000, models.StableUSDC)
	assert.ErrorIs(t, err, models.ErrBusy)
}

func TestDistributeTokenIncomeValidation(t *testing.T) {
	svc, _, _ := newDistributionFixture(t)

	err := svc.DistributeTokenIncome(context.Background(), "payer", 1_000, models.StableKind("EUR"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
