package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"go.uber.org/zap"
)

// PropertyService implementa o ledger de tokens de propriedade: posse,
// aprovações, restrição de transferência e a compra de oferta
// fracionária liquidada em trilho externo.
type PropertyService struct {
	store    *storage.Store
	payments *PaymentManager
	logger   *zap.Logger
	now      func() time.Time
}

// CollectionParams agrupa os parâmetros de criação da coleção.
type CollectionParams struct {
	Name        string
	Symbol      string
	Description string
	RoyaltyBPS  uint16
	Treasury    models.AccountID
	MaxSupply   *uint64
	Website     string
	SocialLinks []string
}

// MintParams agrupa os parâmetros de emissão de um token de propriedade.
type MintParams struct {
	Owner              models.AccountID
	Metadata           models.PropertyMetadata
	PropertyID         uint64
	TotalSupply        uint64
	PricePerToken      uint64
	Settlement         models.StableKind
	TransferRestricted bool
}

// NewPropertyService cria o serviço do ledger de propriedades.
func NewPropertyService(store *storage.Store, payments *PaymentManager, logger *zap.Logger) *PropertyService {
	return &PropertyService{store: store, payments: payments, logger: logger, now: time.Now}
}

// InitializeCollection registra a coleção que limita a emissão.
// Só pode ser chamada uma vez; o chamador vira o dono da coleção.
func (s *PropertyService) InitializeCollection(caller models.AccountID, params CollectionParams) error {
	return s.store.Update(func(st *storage.State) error {
		if st.Collection != nil {
			return fmt.Errorf("%w: coleção já inicializada", models.ErrInvalidState)
		}
		st.Collection = &models.Collection{
			Name:        params.Name,
			Symbol:      params.Symbol,
			Description: params.Description,
			MaxSupply:   params.MaxSupply,
			RoyaltyBPS:  params.RoyaltyBPS,
			Owner:       caller,
			Treasury:    params.Treasury,
			CreatedAt:   s.now(),
			Website:     params.Website,
			SocialLinks: params.SocialLinks,
		}
		s.logger.Info("coleção inicializada",
			zap.String("name", params.Name),
			zap.String("owner", string(caller)))
		return nil
	})
}

// Mint emite um novo token de propriedade com id monotônico, respeita
// o teto da coleção e devolve o id atribuído.
func (s *PropertyService) Mint(params MintParams) (uint64, error) {
	if !params.Settlement.Valid() {
		return 0, fmt.Errorf("%w: trilho de liquidação desconhecido: %s", models.ErrInvalidInput, params.Settlement)
	}

	var tokenID uint64
	err := s.store.Update(func(st *storage.State) error {
		if st.Collection == nil {
			return fmt.Errorf("%w: coleção não inicializada", models.ErrInvalidState)
		}
		if st.Collection.MaxSupply != nil && st.Collection.TotalSupply >= *st.Collection.MaxSupply {
			return models.ErrSupplyCapReached
		}

		st.TokenCounter++
		tokenID = st.TokenCounter

		now := s.now()
		metadata := params.Metadata
		metadata.CreatedAt = now
		metadata.ModifiedAt = now

		st.Tokens[tokenID] = &models.PropertyToken{
			TokenID:            tokenID,
			Owner:              params.Owner,
			Metadata:           metadata,
			PropertyID:         params.PropertyID,
			TotalSupply:        params.TotalSupply,
			CirculatingSupply:  params.TotalSupply,
			AvailableSupply:    params.TotalSupply,
			PricePerToken:      params.PricePerToken,
			Settlement:         params.Settlement,
			Holders:            1,
			TransferRestricted: params.TransferRestricted,
		}
		st.TokenStats[tokenID] = &models.PropertyTokenStats{
			UniqueHolders: 1,
			MarketCap:     params.TotalSupply * params.PricePerToken,
		}

		if _, ok := st.TokenOwners[params.Owner]; !ok {
			st.TokenOwners[params.Owner] = make(map[uint64]struct{})
		}
		st.TokenOwners[params.Owner][tokenID] = struct{}{}

		st.Collection.TotalSupply++
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("token de propriedade emitido",
		zap.Uint64("token_id", tokenID),
		zap.String("owner", string(params.Owner)))
	return tokenID, nil
}

// Transfer muda a posse de um token. Autorizado quando o chamador é o
// remetente ou detém uma aprovação não vencida para o par
// (remetente, token).
func (s *PropertyService) Transfer(caller models.AccountID, args models.PropertyTransferArgs) error {
	return s.store.Update(func(st *storage.State) error {
		token, ok := st.Tokens[args.TokenID]
		if !ok {
			return fmt.Errorf("%w: token %d", models.ErrNotFound, args.TokenID)
		}
		if st.InFlight(storage.SettlementKey("property", args.TokenID)) {
			return fmt.Errorf("%w: token %d", models.ErrBusy, args.TokenID)
		}

		if args.From != caller {
			approval, ok := st.Approvals[storage.ApprovalKey{Owner: args.From, TokenID: args.TokenID}]
			authorized := ok && approval.Spender == caller &&
				(approval.ExpiresAt == nil || approval.ExpiresAt.After(s.now()))
			if !authorized {
				return fmt.Errorf("%w: sem aprovação para transferir", models.ErrUnauthorized)
			}
		}

		if token.Owner != args.From {
			return models.ErrNotOwner
		}
		if token.TransferRestricted {
			return models.ErrTransferRestricted
		}

		return st.MovePropertyToken(args.TokenID, args.From, args.To, s.now())
	})
}

// Approve autoriza um terceiro a transferir um token do chamador,
// sobrescrevendo qualquer aprovação anterior para o par (dono, token).
func (s *PropertyService) Approve(caller models.AccountID, args models.ApprovalArgs) error {
	return s.store.Update(func(st *storage.State) error {
		token, ok := st.Tokens[args.TokenID]
		if !ok {
			return fmt.Errorf("%w: token %d", models.ErrNotFound, args.TokenID)
		}
		if st.InFlight(storage.SettlementKey("property", args.TokenID)) {
			return fmt.Errorf("%w: token %d", models.ErrBusy, args.TokenID)
		}
		if token.Owner != caller {
			return fmt.Errorf("%w: somente o dono pode aprovar", models.ErrUnauthorized)
		}
		st.Approvals[storage.ApprovalKey{Owner: caller, TokenID: args.TokenID}] = models.Approval{
			Spender:   args.Spender,
			ExpiresAt: args.ExpiresAt,
		}
		return nil
	})
}

// PurchaseTokens compra oferta fracionária de um token, pagando o dono
// pelo trilho externo configurado. A oferta é reservada ANTES de emitir
// o pagamento; enquanto a liquidação aguarda o serviço externo, outras
// operações sobre o mesmo token são rejeitadas com ErrBusy.
func (s *PropertyService) PurchaseTokens(ctx context.Context, caller models.AccountID, tokenID, amount uint64) error {
	key := storage.SettlementKey("property", tokenID)
	if err := s.store.AcquireSettlement(key); err != nil {
		return err
	}
	defer s.store.ReleaseSettlement(key)

	var (
		owner models.AccountID
		total uint64
		rail  models.StableKind
	)
	err := s.store.Update(func(st *storage.State) error {
		token, ok := st.Tokens[tokenID]
		if !ok {
			return fmt.Errorf("%w: token %d", models.ErrNotFound, tokenID)
		}
		if token.AvailableSupply < amount {
			return fmt.Errorf("%w: oferta disponível insuficiente", models.ErrInvalidState)
		}
		// Reserva a oferta antes da espera externa.
		token.AvailableSupply -= amount
		owner = token.Owner
		total = token.PricePerToken * amount
		rail = token.Settlement
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.payments.ProcessPayment(ctx, caller, owner, total, rail); err != nil {
		// Pagamento não emitido ou rejeitado: devolve a reserva.
		_ = s.store.Update(func(st *storage.State) error {
			if token, ok := st.Tokens[tokenID]; ok {
				token.AvailableSupply += amount
			}
			return nil
		})
		return err
	}

	return s.store.Update(func(st *storage.State) error {
		token, ok := st.Tokens[tokenID]
		if !ok {
			// O pagamento já aconteceu; o chamador precisa saber disso.
			return &models.PartialFailureError{
				Completed: []models.Distribution{{Recipient: owner, Amount: total}},
				Err:       fmt.Errorf("%w: token %d", models.ErrNotFound, tokenID),
			}
		}
		token.Holders++
		if stats, ok := st.TokenStats[tokenID]; ok {
			stats.TotalTransactions++
			stats.UniqueHolders = token.Holders
			stats.Volume24h += total
		}
		return nil
	})
}

// OwnerOf devolve o dono atual do token.
func (s *PropertyService) OwnerOf(tokenID uint64) (models.AccountID, bool) {
	var owner models.AccountID
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		if token, found := st.Tokens[tokenID]; found {
			owner = token.Owner
			ok = true
		}
		return nil
	})
	return owner, ok
}

// BalanceOf devolve quantos tokens de propriedade a conta possui.
func (s *PropertyService) BalanceOf(account models.AccountID) uint64 {
	var count uint64
	_ = s.store.View(func(st *storage.State) error {
		count = uint64(len(st.TokenOwners[account]))
		return nil
	})
	return count
}

// GetApproved devolve a aprovação vigente do token. Uma aprovação cujo
// vencimento já passou é tratada como ausente, mesmo sem limpeza
// explícita.
func (s *PropertyService) GetApproved(tokenID uint64) (models.Approval, bool) {
	var approval models.Approval
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		token, found := st.Tokens[tokenID]
		if !found {
			return nil
		}
		a, found := st.Approvals[storage.ApprovalKey{Owner: token.Owner, TokenID: tokenID}]
		if !found {
			return nil
		}
		if a.ExpiresAt != nil && !a.ExpiresAt.After(s.now()) {
			return nil
		}
		approval = a
		ok = true
		return nil
	})
	return approval, ok
}

// GetMetadata devolve os metadados do token.
func (s *PropertyService) GetMetadata(tokenID uint64) (models.PropertyMetadata, bool) {
	var meta models.PropertyMetadata
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		if token, found := st.Tokens[tokenID]; found {
			meta = token.Metadata
			ok = true
		}
		return nil
	})
	return meta, ok
}

// GetToken devolve uma cópia do token.
func (s *PropertyService) GetToken(tokenID uint64) (models.PropertyToken, bool) {
	var token models.PropertyToken
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		if t, found := st.Tokens[tokenID]; found {
			token = *t
			ok = true
		}
		return nil
	})
	return token, ok
}

// GetTokenStats devolve os contadores do token.
func (s *PropertyService) GetTokenStats(tokenID uint64) (models.PropertyTokenStats, bool) {
	var stats models.PropertyTokenStats
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		if ts, found := st.TokenStats[tokenID]; found {
			stats = *ts
			ok = true
		}
		return nil
	})
	return stats, ok
}

// GetCollectionInfo devolve a coleção, se inicializada.
func (s *PropertyService) GetCollectionInfo() (models.Collection, bool) {
	var collection models.Collection
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		if st.Collection != nil {
			collection = *st.Collection
			ok = true
		}
		return nil
	})
	return collection, ok
}

// GetUserTokens devolve os tokens de propriedade da conta, em ordem de
// id.
func (s *PropertyService) GetUserTokens(account models.AccountID) []models.PropertyToken {
	var tokens []models.PropertyToken
	_ = s.store.View(func(st *storage.State) error {
		for tokenID := range st.TokenOwners[account] {
			if token, ok := st.Tokens[tokenID]; ok {
				tokens = append(tokens, *token)
			}
		}
		return nil
	})
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].TokenID < tokens[j].TokenID })
	return tokens
}
