package handlers

import (
	"net/http"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/services"

	"github.com/go-chi/chi/v5"
)

// RETHandler lida com requisições HTTP do ledger RET.
type RETHandler struct {
	Service *services.RETService
}

// NewRETHandler cria uma nova instância do handler do RET.
func NewRETHandler(s *services.RETService) *RETHandler {
	return &RETHandler{Service: s}
}

// Initialize inicializa o token RET.
// POST /ret/initialize
func (h *RETHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Owner       string   `json:"owner" validate:"required"`
		Website     string   `json:"website"`
		SocialLinks []string `json:"social_links"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Initialize(models.AccountID(requestBody.Owner), requestBody.Website, requestBody.SocialLinks); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "inicializado"})
}

// Transfer transfere RET entre contas.
// POST /ret/transfer
func (h *RETHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller string `json:"caller" validate:"required"`
		From   string `json:"from" validate:"required"`
		To     string `json:"to" validate:"required"`
		Amount uint64 `json:"amount" validate:"required,gt=0"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.Transfer(models.AccountID(requestBody.Caller), models.RETTransferArgs{
		From:   models.AccountID(requestBody.From),
		To:     models.AccountID(requestBody.To),
		Amount: requestBody.Amount,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "transferido"})
}

// Stake coloca saldo RET em stake.
// POST /ret/stake
func (h *RETHandler) Stake(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller       string `json:"caller" validate:"required"`
		Amount       uint64 `json:"amount" validate:"required,gt=0"`
		DurationDays uint64 `json:"duration_days" validate:"required,gt=0"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	duration := time.Duration(requestBody.DurationDays) * 24 * time.Hour
	if err := h.Service.Stake(models.AccountID(requestBody.Caller), requestBody.Amount, duration); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "em stake"})
}

// Unstake encerra o stake e devolve principal mais recompensa.
// POST /ret/unstake
func (h *RETHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller string `json:"caller" validate:"required"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	total, err := h.Service.Unstake(models.AccountID(requestBody.Caller))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint64{"total": total})
}

// Airdrop credita um lote de contas a partir da alocação reservada.
// POST /ret/airdrop
func (h *RETHandler) Airdrop(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller     string                `json:"caller" validate:"required"`
		Recipients []models.Distribution `json:"recipients" validate:"required,min=1,dive"`
	}
	if err := decodeAndValidate(r, &requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Airdrop(models.AccountID(requestBody.Caller), requestBody.Recipients); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "airdrop aplicado"})
}

// GetBalance obtém o saldo livre de uma conta.
// GET /ret/balance/{account}
func (h *RETHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint64{
		"balance": h.Service.BalanceOf(models.AccountID(account)),
	})
}

// GetStakedBalance obtém o saldo em stake de uma conta.
// GET /ret/staked/{account}
func (h *RETHandler) GetStakedBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint64{
		"staked_balance": h.Service.StakedBalanceOf(models.AccountID(account)),
	})
}

// GetMetadata obtém os metadados do token.
// GET /ret/metadata
func (h *RETHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.Service.GetMetadata()
	if !ok {
		http.Error(w, "token RET não inicializado", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// GetStats obtém os contadores agregados do ledger.
// GET /ret/stats
func (h *RETHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.GetStats())
}
