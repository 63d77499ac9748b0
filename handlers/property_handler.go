package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/services"

	"github.com/go-chi/chi/v5"
)

// PropertyHandler lida com requisições HTTP do ledger de propriedades.
type PropertyHandler struct {
	Service *services.PropertyService
}

// NewPropertyHandler cria uma nova instância do handler de propriedades.
func NewPropertyHandler(s *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{Service: s}
}

func tokenIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

// InitializeCollection cria a coleção de propriedades.
// POST /properties/collection
func (h *PropertyHandler) InitializeCollection(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller      string   `json:"caller" validate:"required"`
		Name        string   `json:"name" validate:"required"`
		Symbol      string   `json:"symbol" validate:"required"`
		Description string   `json:"description"`
		RoyaltyBPS  uint16   `json:"royalty_bps" validate:"lte=10000"`
		Treasury    string   `json:"treasury" validate:"required"`
		MaxSupply   *uint64  `json:"max_supply"`
		Website     string   `json:"website"`
		SocialLinks []string `json:"social_links"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.InitializeCollection(models.AccountID(requestBody.Caller), services.CollectionParams{
		Name:        requestBody.Name,
		Symbol:      requestBody.Symbol,
		Description: requestBody.Description,
		RoyaltyBPS:  requestBody.RoyaltyBPS,
		Treasury:    models.AccountID(requestBody.Treasury),
		MaxSupply:   requestBody.MaxSupply,
		Website:     requestBody.Website,
		SocialLinks: requestBody.SocialLinks,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "coleção criada"})
}

// GetCollection obtém a coleção.
// GET /properties/collection
func (h *PropertyHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.Service.GetCollectionInfo()
	if !ok {
		http.Error(w, "coleção não inicializada", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, collection)
}

// Mint emite um novo token de propriedade.
// POST /properties/mint
func (h *PropertyHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Owner              string            `json:"owner" validate:"required"`
		Name               string            `json:"name" validate:"required"`
		Symbol             string            `json:"symbol" validate:"required"`
		Description        string            `json:"description"`
		RoyaltyBPS         uint16            `json:"royalty_bps" validate:"lte=10000"`
		RoyaltyRecipient   string            `json:"royalty_recipient"`
		Tags               []string          `json:"tags"`
		PropertyID         uint64            `json:"property_id" validate:"required"`
		TotalSupply        uint64            `json:"total_supply" validate:"required,gt=0"`
		PricePerToken      uint64            `json:"price_per_token" validate:"required,gt=0"`
		Settlement         models.StableKind `json:"settlement" validate:"required"`
		TransferRestricted bool              `json:"transfer_restricted"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tokenID, err := h.Service.Mint(services.MintParams{
		Owner: models.AccountID(requestBody.Owner),
		Metadata: models.PropertyMetadata{
			Name:             requestBody.Name,
			Symbol:           requestBody.Symbol,
			Description:      requestBody.Description,
			RoyaltyBPS:       requestBody.RoyaltyBPS,
			RoyaltyRecipient: models.AccountID(requestBody.RoyaltyRecipient),
			Tags:             requestBody.Tags,
		},
		PropertyID:         requestBody.PropertyID,
		TotalSupply:        requestBody.TotalSupply,
		PricePerToken:      requestBody.PricePerToken,
		Settlement:         requestBody.Settlement,
		TransferRestricted: requestBody.TransferRestricted,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]uint64{"token_id": tokenID})
}

// Transfer transfere a posse de um token de propriedade.
// POST /properties/transfer
func (h *PropertyHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller  string `json:"caller" validate:"required"`
		From    string `json:"from" validate:"required"`
		To      string `json:"to" validate:"required"`
		TokenID uint64 `json:"token_id" validate:"required"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.Transfer(models.AccountID(requestBody.Caller), models.PropertyTransferArgs{
		From:    models.AccountID(requestBody.From),
		To:      models.AccountID(requestBody.To),
		TokenID: requestBody.TokenID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "transferido"})
}

// Approve autoriza um terceiro a transferir um token do chamador.
// POST /properties/approve
func (h *PropertyHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller    string     `json:"caller" validate:"required"`
		Spender   string     `json:"spender" validate:"required"`
		TokenID   uint64     `json:"token_id" validate:"required"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.Approve(models.AccountID(requestBody.Caller), models.ApprovalArgs{
		Spender:   models.AccountID(requestBody.Spender),
		TokenID:   requestBody.TokenID,
		ExpiresAt: requestBody.ExpiresAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "aprovado"})
}

// Purchase compra oferta fracionária de um token, liquidando pelo
// trilho externo configurado no mint.
// POST /properties/{id}/purchase
func (h *PropertyHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
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

	if err := h.Service.PurchaseTokens(r.Context(), models.AccountID(requestBody.Caller), tokenID, requestBody.Amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "compra liquidada"})
}

// GetToken obtém um token pelo id.
// GET /properties/{id}
func (h *PropertyHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}
	token, ok := h.Service.GetToken(tokenID)
	if !ok {
		http.Error(w, "token não encontrado", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

// GetOwner obtém o dono atual de um token.
// GET /properties/{id}/owner
func (h *PropertyHandler) GetOwner(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}
	owner, ok := h.Service.OwnerOf(tokenID)
	if !ok {
		http.Error(w, "token não encontrado", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"owner": string(owner)})
}

// GetMetadata obtém os metadados de um token.
// GET /properties/{id}/metadata
func (h *PropertyHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}
	meta, ok := h.Service.GetMetadata(tokenID)
	if !ok {
		http.Error(w, "token não encontrado", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// GetStats obtém os contadores de um token.
// GET /properties/{id}/stats
func (h *PropertyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}
	stats, ok := h.Service.GetTokenStats(tokenID)
	if !ok {
		http.Error(w, "token não encontrado", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetApproved obtém a aprovação vigente de um token.
// GET /properties/{id}/approved
func (h *PropertyHandler) GetApproved(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		http.Error(w, "id do token inválido", http.StatusBadRequest)
		return
	}
	approval, ok := h.Service.GetApproved(tokenID)
	if !ok {
		http.Error(w, "nenhuma aprovação vigente", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, approval)
}

// GetBalance obtém quantos tokens de propriedade a conta possui.
// GET /properties/balance/{account}
func (h *PropertyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint64{
		"balance": h.Service.BalanceOf(models.AccountID(account)),
	})
}

// GetUserTokens obtém os tokens de propriedade de uma conta.
// GET /properties/user/{account}
func (h *PropertyHandler) GetUserTokens(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.Service.GetUserTokens(models.AccountID(account)))
}
