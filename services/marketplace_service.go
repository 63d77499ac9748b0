package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"go.uber.org/zap"
)

// Taxa de anúncio, em basis points sobre o preço pedido. A taxa é
// apenas apurada em TotalListingFees; nenhum débito é feito ao
// vendedor.
const ListingFeeBPS = 100

// Limite de preço e lance que mantém as contas em basis points dentro
// de uint64.
const maxBPSAmount = math.MaxUint64 / 10_000

// MarketplaceService implementa anúncios, lances, aceitação e a posse
// fracionária com distribuição de recompensas em RET.
type MarketplaceService struct {
	store  *storage.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewMarketplaceService cria o serviço do marketplace.
func NewMarketplaceService(store *storage.Store, logger *zap.Logger) *MarketplaceService {
	return &MarketplaceService{store: store, logger: logger, now: time.Now}
}

// ListProperty anuncia um token à venda e devolve o id do anúncio.
// Pode anunciar o dono direto do token ou quem detém uma fração dele.
// O royalty é fixado no anúncio e pago à tesouraria na venda.
func (s *MarketplaceService) ListProperty(caller models.AccountID, tokenID uint64, price models.ListingPrice, royaltyBPS uint16) (uint64, error) {
	if !price.Kind.Valid() {
		return 0, fmt.Errorf("%w: denominação de preço desconhecida: %s", models.ErrInvalidInput, price.Kind)
	}
	if price.Amount == 0 {
		return 0, fmt.Errorf("%w: preço deve ser maior que zero", models.ErrInvalidInput)
	}
	if price.Amount > maxBPSAmount {
		return 0, fmt.Errorf("%w: preço excede o máximo suportado", models.ErrInvalidInput)
	}
	if royaltyBPS > 10_000 {
		return 0, fmt.Errorf("%w: royalty acima de 10000 basis points", models.ErrInvalidInput)
	}

	var listingID uint64
	err := s.store.Update(func(st *storage.State) error {
		token, ok := st.Tokens[tokenID]
		if !ok {
			return fmt.Errorf("%w: token %d", models.ErrNotFound, tokenID)
		}
		if st.InFlight(storage.SettlementKey("property", tokenID)) {
			return fmt.Errorf("%w: token %d", models.ErrBusy, tokenID)
		}

		if token.Owner != caller && !holdsShare(st.PropertyShares[tokenID], caller) {
			return fmt.Errorf("%w: chamador não possui o token nem fração dele", models.ErrUnauthorized)
		}

		fee := price.Amount * ListingFeeBPS / 10_000

		st.ListingCounter++
		listingID = st.ListingCounter

		st.Listings[listingID] = &models.Listing{
			ID:              listingID,
			PropertyTokenID: tokenID,
			Seller:          caller,
			Price:           price,
			CreatedAt:       s.now(),
			Status:          models.ListingActive,
			RoyaltyBPS:      royaltyBPS,
			ListingFee:      fee,
		}

		st.MarketplaceStats.TotalListings++
		st.MarketplaceStats.ActiveListings++
		st.MarketplaceStats.TotalListingFees += fee
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("anúncio criado",
		zap.Uint64("listing_id", listingID),
		zap.Uint64("token_id", tokenID),
		zap.String("seller", string(caller)))
	return listingID, nil
}

func holdsShare(shares []models.PropertyShare, account models.AccountID) bool {
	for _, share := range shares {
		if share.Owner == account {
			return true
		}
	}
	return false
}

// PlaceBid registra um lance sobre um anúncio ativo. O primeiro lance
// precisa cobrir o preço pedido; lances seguintes precisam superar
// estritamente o lance vigente. O lance é validado contra o saldo RET
// do licitante no momento do lance.
func (s *MarketplaceService) PlaceBid(caller models.AccountID, listingID, amount uint64, kind models.TokenKind) error {
	if amount > maxBPSAmount {
		return fmt.Errorf("%w: lance excede o máximo suportado", models.ErrInvalidInput)
	}
	return s.store.Update(func(st *storage.State) error {
		listing, ok := st.Listings[listingID]
		if !ok {
			return fmt.Errorf("%w: anúncio %d", models.ErrNotFound, listingID)
		}
		if st.InFlight(storage.SettlementKey("listing", listingID)) {
			return fmt.Errorf("%w: anúncio %d", models.ErrBusy, listingID)
		}
		if listing.Status != models.ListingActive {
			return fmt.Errorf("%w: anúncio não está ativo", models.ErrInvalidState)
		}
		if kind != listing.Price.Kind {
			return models.ErrWrongSettlement
		}

		if listing.HighestBid == nil {
			if amount < listing.Price.Amount {
				return fmt.Errorf("%w: lance abaixo do preço pedido", models.ErrBidTooLow)
			}
		} else if amount <= listing.HighestBid.Amount {
			return fmt.Errorf("%w: lance não supera o vigente", models.ErrBidTooLow)
		}

		switch kind {
		case models.TokenRET:
			holder, ok := st.RETBalances[caller]
			if !ok || holder.Balance < amount {
				return models.ErrInsufficientBalance
			}
		case models.TokenICP:
			return fmt.Errorf("%w: pagamentos em ICP ainda não implementados", models.ErrInvalidInput)
		}

		listing.HighestBid = &models.Bid{
			Bidder:    caller,
			Amount:    amount,
			Kind:      kind,
			Timestamp: s.now(),
		}
		return nil
	})
}

// AcceptBid liquida o anúncio no lance vigente: o royalty vai para a
// tesouraria da coleção, o restante para o vendedor, e a posse do token
// passa ao licitante. As três mutações acontecem na mesma sub-etapa;
// ou a venda inteira se aplica, ou nada se aplica.
func (s *MarketplaceService) AcceptBid(caller models.AccountID, listingID uint64) error {
	key := storage.SettlementKey("listing", listingID)
	if err := s.store.AcquireSettlement(key); err != nil {
		return err
	}
	defer s.store.ReleaseSettlement(key)

	return s.store.Update(func(st *storage.State) error {
		listing, ok := st.Listings[listingID]
		if !ok {
			return fmt.Errorf("%w: anúncio %d", models.ErrNotFound, listingID)
		}
		if listing.Seller != caller {
			return fmt.Errorf("%w: somente o vendedor pode aceitar o lance", models.ErrUnauthorized)
		}
		if listing.Status != models.ListingActive {
			return fmt.Errorf("%w: anúncio não está ativo", models.ErrInvalidState)
		}
		bid := listing.HighestBid
		if bid == nil {
			return fmt.Errorf("%w: anúncio sem lance", models.ErrInvalidState)
		}
		if bid.Kind != models.TokenRET {
			return fmt.Errorf("%w: pagamentos em ICP ainda não implementados", models.ErrInvalidInput)
		}
		if st.Collection == nil {
			return fmt.Errorf("%w: coleção não inicializada", models.ErrInvalidState)
		}

		// Valida tudo antes de mutar: saldo do licitante e posse do
		// vendedor.
		bidder, ok := st.RETBalances[bid.Bidder]
		if !ok || bidder.Balance < bid.Amount {
			return models.ErrInsufficientBalance
		}
		token, ok := st.Tokens[listing.PropertyTokenID]
		if !ok {
			return fmt.Errorf("%w: token %d", models.ErrNotFound, listing.PropertyTokenID)
		}
		if st.InFlight(storage.SettlementKey("property", listing.PropertyTokenID)) {
			return fmt.Errorf("%w: token %d", models.ErrBusy, listing.PropertyTokenID)
		}
		if token.Owner != listing.Seller {
			return models.ErrNotOwner
		}

		royalty := bid.Amount * uint64(listing.RoyaltyBPS) / 10_000
		if royalty > 0 {
			if err := st.MoveRET(bid.Bidder, st.Collection.Treasury, royalty); err != nil {
				return err
			}
		}
		if err := st.MoveRET(bid.Bidder, listing.Seller, bid.Amount-royalty); err != nil {
			return err
		}
		if err := st.MovePropertyToken(listing.PropertyTokenID, listing.Seller, bid.Bidder, s.now()); err != nil {
			return err
		}

		listing.Status = models.ListingSold
		st.MarketplaceStats.TotalSales++
		st.MarketplaceStats.ActiveListings--
		switch bid.Kind {
		case models.TokenRET:
			st.MarketplaceStats.TotalVolumeRET += bid.Amount
		case models.TokenICP:
			st.MarketplaceStats.TotalVolumeICP += bid.Amount
		}

		s.logger.Info("venda liquidada",
			zap.Uint64("listing_id", listingID),
			zap.String("buyer", string(bid.Bidder)),
			zap.Uint64("amount", bid.Amount),
			zap.Uint64("royalty", royalty))
		return nil
	})
}

// CancelListing encerra um anúncio ativo sem venda. Só o vendedor pode
// cancelar, e nunca no meio de uma liquidação.
func (s *MarketplaceService) CancelListing(caller models.AccountID, listingID uint64) error {
	return s.store.Update(func(st *storage.State) error {
		listing, ok := st.Listings[listingID]
		if !ok {
			return fmt.Errorf("%w: anúncio %d", models.ErrNotFound, listingID)
		}
		if st.InFlight(storage.SettlementKey("listing", listingID)) {
			return fmt.Errorf("%w: anúncio %d", models.ErrBusy, listingID)
		}
		if listing.Seller != caller {
			return fmt.Errorf("%w: somente o vendedor pode cancelar", models.ErrUnauthorized)
		}
		if listing.Status != models.ListingActive {
			return fmt.Errorf("%w: anúncio não está ativo", models.ErrInvalidState)
		}

		listing.Status = models.ListingCancelled
		st.MarketplaceStats.ActiveListings--
		return nil
	})
}

// FractionalizeProperty substitui o conjunto de frações de um token.
// Somente o dono direto pode fracionar, e as frações precisam somar
// exatamente 10000 basis points.
func (s *MarketplaceService) FractionalizeProperty(caller models.AccountID, tokenID uint64, shares []models.PropertyShare) error {
	if len(shares) == 0 {
		return fmt.Errorf("%w: nenhuma fração informada", models.ErrInvalidInput)
	}
	var totalBPS uint32
	for _, share := range shares {
		totalBPS += uint32(share.ShareBPS)
	}
	if totalBPS != 10_000 {
		return models.ErrSharesNotComplete
	}

	return s.store.Update(func(st *storage.State) error {
		token, ok := st.Tokens[tokenID]
		if !ok {
			return fmt.Errorf("%w: token %d", models.ErrNotFound, tokenID)
		}
		if token.Owner != caller {
			return fmt.Errorf("%w: somente o dono pode fracionar", models.ErrUnauthorized)
		}

		now := s.now()
		fresh := make([]models.PropertyShare, len(shares))
		for i, share := range shares {
			fresh[i] = models.PropertyShare{
				Owner:            share.Owner,
				ShareBPS:         share.ShareBPS,
				LastDistribution: now,
			}
		}
		st.PropertyShares[tokenID] = fresh
		return nil
	})
}

// DistributeRETRewards reparte um valor em RET entre os donos de fração
// de um token, proporcional aos basis points de cada um, com divisão
// truncada. As parcelas saem do saldo do chamador; uma falha no meio do
// lote preserva as parcelas já creditadas e as relata como falha
// parcial.
func (s *MarketplaceService) DistributeRETRewards(caller models.AccountID, tokenID, totalAmount uint64) error {
	return s.store.Update(func(st *storage.State) error {
		shares, ok := st.PropertyShares[tokenID]
		if !ok || len(shares) == 0 {
			return fmt.Errorf("%w: token %d não está fracionado", models.ErrNotFound, tokenID)
		}

		now := s.now()
		completed := make([]models.Distribution, 0, len(shares))
		for i := range shares {
			amount := totalAmount * uint64(shares[i].ShareBPS) / 10_000
			if amount == 0 {
				continue
			}
			if err := st.MoveRET(caller, shares[i].Owner, amount); err != nil {
				if len(completed) > 0 {
					return &models.PartialFailureError{Completed: completed, Err: err}
				}
				return err
			}
			shares[i].LastDistribution = now
			completed = append(completed, models.Distribution{Recipient: shares[i].Owner, Amount: amount})
		}
		return nil
	})
}

// GetListing devolve uma cópia do anúncio, incluindo o lance vigente.
func (s *MarketplaceService) GetListing(listingID uint64) (models.Listing, bool) {
	var listing models.Listing
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		l, found := st.Listings[listingID]
		if !found {
			return nil
		}
		listing = *l
		if l.HighestBid != nil {
			bid := *l.HighestBid
			listing.HighestBid = &bid
		}
		ok = true
		return nil
	})
	return listing, ok
}

// GetActiveListings devolve os anúncios ativos, em ordem de id.
func (s *MarketplaceService) GetActiveListings() []models.Listing {
	return s.collectListings(func(l *models.Listing) bool {
		return l.Status == models.ListingActive
	})
}

// GetUserListings devolve os anúncios criados pela conta.
func (s *MarketplaceService) GetUserListings(account models.AccountID) []models.Listing {
	return s.collectListings(func(l *models.Listing) bool {
		return l.Seller == account
	})
}

// GetUserBids devolve os anúncios em que a conta detém o lance vigente.
func (s *MarketplaceService) GetUserBids(account models.AccountID) []models.Listing {
	return s.collectListings(func(l *models.Listing) bool {
		return l.HighestBid != nil && l.HighestBid.Bidder == account
	})
}

func (s *MarketplaceService) collectListings(keep func(*models.Listing) bool) []models.Listing {
	var out []models.Listing
	_ = s.store.View(func(st *storage.State) error {
		for _, l := range st.Listings {
			if !keep(l) {
				continue
			}
			listing := *l
			if l.HighestBid != nil {
				bid := *l.HighestBid
				listing.HighestBid = &bid
			}
			out = append(out, listing)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetStats devolve os contadores agregados do marketplace.
func (s *MarketplaceService) GetStats() models.MarketplaceStats {
	var stats models.MarketplaceStats
	_ = s.store.View(func(st *storage.State) error {
		stats = st.MarketplaceStats
		return nil
	})
	return stats
}

// GetPropertyShares devolve as frações vigentes de um token.
func (s *MarketplaceService) GetPropertyShares(tokenID uint64) []models.PropertyShare {
	var shares []models.PropertyShare
	_ = s.store.View(func(st *storage.State) error {
		shares = append(shares, st.PropertyShares[tokenID]...)
		return nil
	})
	return shares
}
