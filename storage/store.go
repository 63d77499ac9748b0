package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/ferreirogomes/imobi/models"

	"github.com/google/uuid"
)

// ApprovalKey identifica uma aprovação por (dono, token).
type ApprovalKey struct {
	Owner   models.AccountID
	TokenID uint64
}

// State reúne todas as tabelas mutáveis do sistema em um único dono.
// Nenhum componente guarda estado fora daqui; referências ao State só
// existem dentro de um bloco Update/View.
type State struct {
	// Ledger RET
	RETMetadata *models.RETMetadata
	RETBalances map[models.AccountID]*models.TokenHolder
	RETStats    models.RETStats

	// Ledger de propriedades
	Collection   *models.Collection
	Tokens       map[uint64]*models.PropertyToken
	TokenOwners  map[models.AccountID]map[uint64]struct{}
	Approvals    map[ApprovalKey]models.Approval
	TokenStats   map[uint64]*models.PropertyTokenStats
	TokenCounter uint64

	// Marketplace
	Listings         map[uint64]*models.Listing
	ListingCounter   uint64
	PropertyShares   map[uint64][]models.PropertyShare
	MarketplaceStats models.MarketplaceStats

	// Diário de liquidações externas
	Settlements []models.Settlement

	// Marcadores de liquidação em andamento, por recurso
	busy map[string]struct{}
}

// Store é o dono exclusivo do State. Cada bloco Update é uma sub-etapa
// atômica; chamadas a serviços externos acontecem ENTRE blocos, sob um
// marcador de liquidação adquirido antes da espera.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore cria um Store com todas as tabelas vazias.
func NewStore() *Store {
	return &Store{
		state: State{
			RETBalances:    make(map[models.AccountID]*models.TokenHolder),
			Tokens:         make(map[uint64]*models.PropertyToken),
			TokenOwners:    make(map[models.AccountID]map[uint64]struct{}),
			Approvals:      make(map[ApprovalKey]models.Approval),
			TokenStats:     make(map[uint64]*models.PropertyTokenStats),
			Listings:       make(map[uint64]*models.Listing),
			PropertyShares: make(map[uint64][]models.PropertyShare),
			busy:           make(map[string]struct{}),
		},
	}
}

// Update executa fn com acesso exclusivo ao State. Se fn retornar erro,
// mutações já aplicadas dentro do bloco NÃO são revertidas; fn deve
// validar antes de mutar.
func (s *Store) Update(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// View executa fn com acesso somente-leitura ao State. fn não deve
// reter referências após retornar.
func (s *Store) View(fn func(st *State) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

// SettlementKey compõe a chave de marcador para um recurso.
func SettlementKey(kind string, id uint64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// AcquireSettlement marca um recurso como em liquidação. Retorna
// ErrBusy se já houver uma liquidação em andamento para a chave.
func (s *Store) AcquireSettlement(key string) error {
	return s.Update(func(st *State) error {
		if _, held := st.busy[key]; held {
			return fmt.Errorf("%w: %s", models.ErrBusy, key)
		}
		st.busy[key] = struct{}{}
		return nil
	})
}

// ReleaseSettlement libera o marcador de um recurso.
func (s *Store) ReleaseSettlement(key string) {
	_ = s.Update(func(st *State) error {
		delete(st.busy, key)
		return nil
	})
}

// InFlight informa se o recurso está no meio de uma liquidação.
func (st *State) InFlight(key string) bool {
	_, held := st.busy[key]
	return held
}

// EnsureHolder devolve o registro de saldo RET da conta, criando um
// registro zerado na primeira referência.
func (st *State) EnsureHolder(account models.AccountID) *models.TokenHolder {
	holder, ok := st.RETBalances[account]
	if !ok {
		holder = &models.TokenHolder{Allowances: make(map[models.AccountID]uint64)}
		st.RETBalances[account] = holder
		st.RETStats.UniqueHolders++
	}
	return holder
}

// MoveRET debita from e credita to atomicamente, atualizando os
// contadores de transação e volume do ledger.
func (st *State) MoveRET(from, to models.AccountID, amount uint64) error {
	holder, ok := st.RETBalances[from]
	if !ok {
		return fmt.Errorf("%w: remetente sem saldo", models.ErrInsufficientBalance)
	}
	if holder.Balance < amount {
		return models.ErrInsufficientBalance
	}
	recipient := st.EnsureHolder(to)
	holder.Balance -= amount
	recipient.Balance += amount
	st.RETStats.TotalTransactions++
	st.RETStats.Volume24h += amount
	return nil
}

// MovePropertyToken troca a posse de um token de propriedade,
// mantendo o índice de posse como inverso exato de token→dono,
// carimbando a última transferência e limpando aprovações pendentes.
func (st *State) MovePropertyToken(tokenID uint64, from, to models.AccountID, now time.Time) error {
	token, ok := st.Tokens[tokenID]
	if !ok {
		return fmt.Errorf("%w: token %d", models.ErrNotFound, tokenID)
	}
	if token.Owner != from {
		return models.ErrNotOwner
	}

	token.Owner = to
	token.LastTransfer = &now

	if stats, ok := st.TokenStats[tokenID]; ok {
		stats.TotalTransactions++
	}

	if owned, ok := st.TokenOwners[from]; ok {
		delete(owned, tokenID)
	}
	if _, ok := st.TokenOwners[to]; !ok {
		st.TokenOwners[to] = make(map[uint64]struct{})
	}
	st.TokenOwners[to][tokenID] = struct{}{}

	delete(st.Approvals, ApprovalKey{Owner: from, TokenID: tokenID})
	return nil
}

// AppendSettlement registra no diário um movimento de valor tentado
// contra um trilho externo.
func (st *State) AppendSettlement(from, to models.AccountID, amount uint64, rail models.StableKind, status models.SettlementStatus, detail string, now time.Time) {
	st.Settlements = append(st.Settlements, models.Settlement{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Amount:    amount,
		Rail:      rail,
		Status:    status,
		Detail:    detail,
		CreatedAt: now,
	})
}
