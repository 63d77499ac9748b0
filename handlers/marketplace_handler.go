package handlers

import (
	"net/http"
	"strconv"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/services"

	"github.com/go-chi/chi/v5"
)

// MarketplaceHandler lida com requisições HTTP do marketplace: anúncios,
// lances, posse fracionária e distribuições de renda.
type MarketplaceHandler struct {
	Service      *services.MarketplaceService
	Distribution *services.DistributionService
	Payments     *services.PaymentManager
}

// NewMarketplaceHandler cria uma nova instância do handler do marketplace.
func NewMarketplaceHandler(s *services.MarketplaceService, d *services.DistributionService, p *services.PaymentManager) *MarketplaceHandler {
	return &MarketplaceHandler{Service: s, Distribution: d, Payments: p}
}

func listingIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

// CreateListing anuncia um token à venda.
// POST /marketplace/listings
func (h *MarketplaceHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller     string           `json:"caller" validate:"required"`
		TokenID    uint64           `json:"token_id" validate:"required"`
		Amount     uint64           `json:"amount" validate:"required,gt=0"`
		Kind       models.TokenKind `json:"kind" validate:"required"`
		RoyaltyBPS uint16           `json:"royalty_bps" validate:"lte=10000"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	listingID, err := h.Service.ListProperty(
		models.AccountID(requestBody.Caller),
		requestBody.TokenID,
		models.ListingPrice{Amount: requestBody.Amount, Kind: requestBody.Kind},
		requestBody.RoyaltyBPS,
	)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]uint64{"listing_id": listingID})
}

// PlaceBid registra um lance sobre um anúncio.
// POST /marketplace/listings/{id}/bids
func (h *MarketplaceHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		http.Error(w, "id do anúncio inválido", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Caller string           `json:"caller" validate:"required"`
		Amount uint64           `json:"amount" validate:"required,gt=0"`
		Kind   models.TokenKind `json:"kind" validate:"required"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.PlaceBid(models.AccountID(requestBody.Caller), listingID, requestBody.Amount, requestBody.Kind); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "lance registrado"})
}

// AcceptBid liquida o anúncio no lance vigente.
// POST /marketplace/listings/{id}/accept
func (h *MarketplaceHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		http.Error(w, "id do anúncio inválido", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Caller string `json:"caller" validate:"required"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.AcceptBid(models.AccountID(requestBody.Caller), listingID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "venda liquidada"})
}

// CancelListing encerra um anúncio ativo sem venda.
// POST /marketplace/listings/{id}/cancel
func (h *MarketplaceHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		http.Error(w, "id do anúncio inválido", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Caller string `json:"caller" validate:"required"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.CancelListing(models.AccountID(requestBody.Caller), listingID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelado"})
}

// Fractionalize substitui o conjunto de frações de um token.
// POST /marketplace/properties/{id}/fractionalize
func (h *MarketplaceHandler) Fractionalize(w http.ResponseWriter, r *http.Request) {
	tokenID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Caller string `json:"caller" validate:"required"`
		Shares []struct {
			Owner    string `json:"owner" validate:"required"`
			ShareBPS uint16 `json:"share_bps" validate:"required,gt=0,lte=10000"`
		} `json:"shares" validate:"required,min=1,dive"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	shares := make([]models.PropertyShare, len(requestBody.Shares))
	for i, share := range requestBody.Shares {
		shares[i] = models.PropertyShare{
			Owner:    models.AccountID(share.Owner),
			ShareBPS: share.ShareBPS,
		}
	}

	if err := h.Service.FractionalizeProperty(models.AccountID(requestBody.Caller), tokenID, shares); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "fracionado"})
}

// DistributeRewards reparte RET do chamador entre os donos de fração.
// POST /marketplace/properties/{id}/distribute
func (h *MarketplaceHandler) DistributeRewards(w http.ResponseWriter, r *http.Request) {
	tokenID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Caller string `json:"caller" validate:"required"`
		Amount uint64 `json:"amount" validate:"required,gt=0"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.DistributeRETRewards(models.AccountID(requestBody.Caller), tokenID, requestBody.Amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recompensas distribuídas"})
}

// DistributeIncome reparte renda entre todos os donos de tokens de
// propriedade, pelo trilho externo informado.
// POST /marketplace/income/distribute
func (h *MarketplaceHandler) DistributeIncome(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller string            `json:"caller" validate:"required"`
		Amount uint64            `json:"amount" validate:"required,gt=0"`
		Kind   models.StableKind `json:"kind" validate:"required"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Distribution.DistributeTokenIncome(r.Context(), models.AccountID(requestBody.Caller), requestBody.Amount, requestBody.Kind); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "renda distribuída"})
}

// GetListing obtém um anúncio pelo id.
// GET /marketplace/listings/{id}
func (h *MarketplaceHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		http.Error(w, "id do anúncio inválido", http.StatusBadRequest)
		return
	}
	listing, ok := h.Service.GetListing(listingID)
	if !ok {
		http.Error(w, "anúncio não encontrado", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// GetActiveListings obtém os anúncios ativos.
// GET /marketplace/listings
func (h *MarketplaceHandler) GetActiveListings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.GetActiveListings())
}

// GetUserListings obtém os anúncios criados por uma conta.
// GET /marketplace/users/{account}/listings
func (h *MarketplaceHandler) GetUserListings(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.Service.GetUserListings(models.AccountID(account)))
}

// GetUserBids obtém os anúncios em que a conta detém o lance vigente.
// GET /marketplace/users/{account}/bids
func (h *MarketplaceHandler) GetUserBids(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.Service.GetUserBids(models.AccountID(account)))
}

// GetStats obtém os contadores agregados do marketplace.
// GET /marketplace/stats
func (h *MarketplaceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.GetStats())
}

// GetPropertyShares obtém as frações vigentes de um token.
// GET /marketplace/properties/{id}/shares
func (h *MarketplaceHandler) GetPropertyShares(w http.ResponseWriter, r *http.Request) {
	tokenID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.Service.GetPropertyShares(tokenID))
}

// GetSettlements obtém o diário de liquidações externas.
// GET /marketplace/settlements
func (h *MarketplaceHandler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Payments.GetSettlements())
}
