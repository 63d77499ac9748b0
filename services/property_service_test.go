package services

import (
	"context"
	"testing"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPropertyServiceForTest(t *testing.T) (*PropertyService, *MockLedger, *storage.Store) {
	t.Helper()
	store := storage.NewStore()
	logger := zap.NewNop()
	usdc := NewMockLedger()
	payments := NewPaymentManager(store, logger, usdc, NewMockLedger())
	return NewPropertyService(store, payments, logger), usdc, store
}

func mintTestToken(t *testing.T, svc *PropertyService, owner models.AccountID) uint64 {
	t.Helper()
	tokenID, err := svc.Mint(MintParams{
		Owner:         owner,
		Metadata:      models.PropertyMetadata{Name: "Edifício Central", Symbol: "EDC", RoyaltyBPS: 250},
		PropertyID:    1,
		TotalSupply:   1_000,
		PricePerToken: 50,
		Settlement:    models.StableUSDC,
	})
	require.NoError(t, err)
	return tokenID
}

func TestCollectionInitializeOnce(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)

	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{
		Name: "Imóveis", Symbol: "IMB", Treasury: "treasury",
	}))

	err := svc.InitializeCollection("admin", CollectionParams{Name: "Outra", Symbol: "OUT", Treasury: "t"})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	collection, ok := svc.GetCollectionInfo()
	require.True(t, ok)
	assert.Equal(t, models.AccountID("admin"), collection.Owner)
}

func TestMintRespectsSupplyCap(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)

	maxSupply := uint64(1)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{
		Name: "Imóveis", Symbol: "IMB", Treasury: "treasury", MaxSupply: &maxSupply,
	}))

	tokenID := mintTestToken(t, svc, "alice")
	assert.Equal(t, uint64(1), tokenID)

	_, err := svc.Mint(MintParams{
		Owner:         "bob",
		Metadata:      models.PropertyMetadata{Name: "Outro", Symbol: "OUT"},
		PropertyID:    2,
		TotalSupply:   100,
		PricePerToken: 10,
		Settlement:    models.StableUSDT,
	})
	assert.ErrorIs(t, err, models.ErrSupplyCapReached)
}

func TestMintRequiresCollection(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)

	_, err := svc.Mint(MintParams{
		Owner:         "alice",
		Metadata:      models.PropertyMetadata{Name: "X", Symbol: "X"},
		PropertyID:    1,
		TotalSupply:   10,
		PricePerToken: 1,
		Settlement:    models.StableUSDC,
	})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestPropertyTransferKeepsOwnerIndex(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	require.NoError(t, svc.Transfer("alice", models.PropertyTransferArgs{
		From: "alice", To: "bob", TokenID: tokenID,
	}))

	owner, ok := svc.OwnerOf(tokenID)
	require.True(t, ok)
	assert.Equal(t, models.AccountID("bob"), owner)
	assert.Equal(t, uint64(0), svc.BalanceOf("alice"))
	assert.Equal(t, uint64(1), svc.BalanceOf("bob"))

	tokens := svc.GetUserTokens("bob")
	require.Len(t, tokens, 1)
	assert.Equal(t, tokenID, tokens[0].TokenID)
	assert.Empty(t, svc.GetUserTokens("alice"))
}

func TestPropertyTransferRestricted(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))

	tokenID, err := svc.Mint(MintParams{
		Owner:              "alice",
		Metadata:           models.PropertyMetadata{Name: "Restrito", Symbol: "RST"},
		PropertyID:         3,
		TotalSupply:        10,
		PricePerToken:      1,
		Settlement:         models.StableUSDC,
		TransferRestricted: true,
	})
	require.NoError(t, err)

	err = svc.Transfer("alice", models.PropertyTransferArgs{From: "alice", To: "bob", TokenID: tokenID})
	assert.ErrorIs(t, err, models.ErrTransferRestricted)
}

func TestApprovalAllowsSpenderTransfer(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	// Sem aprovação, terceiro não transfere.
	err := svc.Transfer("carol", models.PropertyTransferArgs{From: "alice", To: "bob", TokenID: tokenID})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Só o dono aprova.
	err = svc.Approve("carol", models.ApprovalArgs{Spender: "carol", TokenID: tokenID})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	require.NoError(t, svc.Approve("alice", models.ApprovalArgs{Spender: "carol", TokenID: tokenID}))
	approval, ok := svc.GetApproved(tokenID)
	require.True(t, ok)
	assert.Equal(t, models.AccountID("carol"), approval.Spender)

	require.NoError(t, svc.Transfer("carol", models.PropertyTransferArgs{From: "alice", To: "bob", TokenID: tokenID}))

	owner, _ := svc.OwnerOf(tokenID)
	assert.Equal(t, models.AccountID("bob"), owner)

	// A transferência consome a aprovação.
	_, ok = svc.GetApproved(tokenID)
	assert.False(t, ok)
}

func TestApprovalExpires(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	expires := start.Add(time.Hour)
	require.NoError(t, svc.Approve("alice", models.ApprovalArgs{
		Spender: "carol", TokenID: tokenID, ExpiresAt: &expires,
	}))

	_, ok := svc.GetApproved(tokenID)
	assert.True(t, ok)

	// Passado o vencimento, a aprovação vira ausente.
	svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, ok = svc.GetApproved(tokenID)
	assert.False(t, ok)

	err := svc.Transfer("carol", models.PropertyTransferArgs{From: "alice", To: "bob", TokenID: tokenID})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPurchaseTokens(t *testing.T) {
	svc, usdc, store := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	require.NoError(t, svc.PurchaseTokens(context.Background(), "bob", tokenID, 10))

	token, ok := svc.GetToken(tokenID)
	require.True(t, ok)
	assert.Equal(t, uint64(990), token.AvailableSupply)
	assert.Equal(t, uint64(2), token.Holders)

	// 10 tokens a 50: o dono recebe 500 pelo trilho externo.
	balance, err := usdc.BalanceOf(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_500), balance)

	_ = store.View(func(st *storage.State) error {
		require.Len(t, st.Settlements, 1)
		assert.Equal(t, models.SettlementCompleted, st.Settlements[0].Status)
		assert.Equal(t, uint64(500), st.Settlements[0].Amount)
		return nil
	})
}

func TestPurchaseTokensRestoresReservationOnFailure(t *testing.T) {
	svc, usdc, _ := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	usdc.SetBalance("bob", 0)

	err := svc.PurchaseTokens(context.Background(), "bob", tokenID, 10)
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	token, ok := svc.GetToken(tokenID)
	require.True(t, ok)
	assert.Equal(t, uint64(1_000), token.AvailableSupply)
	assert.Equal(t, uint64(1), token.Holders)
}

func TestPurchaseTokensRejectsOversell(t *testing.T) {
	svc, _, _ := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	err := svc.PurchaseTokens(context.Background(), "bob", tokenID, 2_000)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

// blockingRail segura cada transferência externa até release ser
// fechado, para observar o que acontece durante a espera.
type blockingRail struct {
	inner   *MockLedger
	entered chan struct{}
	release chan struct{}
}

func newBlockingRail() *blockingRail {
	return &blockingRail{
		inner:   NewMockLedger(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingRail) BalanceOf(ctx context.Context, account models.AccountID) (uint64, error) {
	return b.inner.BalanceOf(ctx, account)
}

func (b *blockingRail) Transfer(ctx context.Context, from, to models.AccountID, amount uint64) (bool, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.inner.Transfer(ctx, from, to, amount)
}

func TestPurchaseTokensBlocksTokenMutations(t *testing.T) {
	store := storage.NewStore()
	logger := zap.NewNop()
	rail := newBlockingRail()
	payments := NewPaymentManager(store, logger, rail, NewMockLedger())
	svc := NewPropertyService(store, payments, logger)
	market := NewMarketplaceService(store, logger)

	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")
	_ = store.Update(func(st *storage.State) error {
		st.EnsureHolder("carol").Balance = 10_000
		return nil
	})

	// Anúncio e lance criados antes da compra começar.
	listingID, err := market.ListProperty("alice", tokenID, retPrice(100), 250)
	require.NoError(t, err)
	require.NoError(t, market.PlaceBid("carol", listingID, 100, models.TokenRET))

	done := make(chan error, 1)
	go func() {
		done <- svc.PurchaseTokens(context.Background(), "bob", tokenID, 10)
	}()
	<-rail.entered

	// Enquanto o pagamento aguarda o trilho externo, o token não pode
	// mudar de dono nem ganhar aprovações ou anúncios.
	err = svc.Transfer("alice", models.PropertyTransferArgs{From: "alice", To: "carol", TokenID: tokenID})
	assert.ErrorIs(t, err, models.ErrBusy)

	err = svc.Approve("alice", models.ApprovalArgs{Spender: "carol", TokenID: tokenID})
	assert.ErrorIs(t, err, models.ErrBusy)

	_, err = market.ListProperty("alice", tokenID, retPrice(200), 250)
	assert.ErrorIs(t, err, models.ErrBusy)

	err = market.AcceptBid("alice", listingID)
	assert.ErrorIs(t, err, models.ErrBusy)

	close(rail.release)
	require.NoError(t, <-done)

	// O pagamento foi para o dono observado no início da compra.
	owner, _ := svc.OwnerOf(tokenID)
	assert.Equal(t, models.AccountID("alice"), owner)
	balance, err := rail.inner.BalanceOf(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_500), balance)

	// Liberado o marcador, o token volta a aceitar mutações.
	require.NoError(t, svc.Transfer("alice", models.PropertyTransferArgs{From: "alice", To: "carol", TokenID: tokenID}))
}

func TestPurchaseTokensSerializedPerToken(t *testing.T) {
	store := storage.NewStore()
	logger := zap.NewNop()
	rail := newBlockingRail()
	payments := NewPaymentManager(store, logger, rail, NewMockLedger())
	svc := NewPropertyService(store, payments, logger)

	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	done := make(chan error, 1)
	go func() {
		done <- svc.PurchaseTokens(context.Background(), "bob", tokenID, 10)
	}()
	<-rail.entered

	// A segunda compra do mesmo token é rejeitada enquanto a primeira
	// liquida; a reserva da primeira já está visível.
	err := svc.PurchaseTokens(context.Background(), "carol", tokenID, 10)
	assert.ErrorIs(t, err, models.ErrBusy)

	token, ok := svc.GetToken(tokenID)
	require.True(t, ok)
	assert.Equal(t, uint64(990), token.AvailableSupply)

	close(rail.release)
	require.NoError(t, <-done)

	// Em sequência, a segunda compra passa e consome a própria reserva.
	require.NoError(t, svc.PurchaseTokens(context.Background(), "carol", tokenID, 10))

	token, ok = svc.GetToken(tokenID)
	require.True(t, ok)
	assert.Equal(t, uint64(980), token.AvailableSupply)
	assert.Equal(t, uint64(3), token.Holders)
}

func TestPurchaseTokensBusy(t *testing.T) {
	svc, _, store := newPropertyServiceForTest(t)
	require.NoError(t, svc.InitializeCollection("admin", CollectionParams{Name: "I", Symbol: "I", Treasury: "t"}))
	tokenID := mintTestToken(t, svc, "alice")

	require.NoError(t, store.AcquireSettlement(storage.SettlementKey("property", tokenID)))
	defer store.ReleaseSettlement(storage.SettlementKey("property", tokenID))

	err := svc.PurchaseTokens(context.Background(), "bob", tokenID, 1)
	assert.ErrorIs(t, err, models.ErrBusy)
}
