package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"go.uber.org/zap"
)

// DistributionService calcula repartições de renda proporcionais à
// posse de tokens de propriedade e as liquida pelo trilho externo.
type DistributionService struct {
	store    *storage.Store
	payments *PaymentManager
	logger   *zap.Logger
}

// NewDistributionService cria o motor de distribuição de renda.
func NewDistributionService(store *storage.Store, payments *PaymentManager, logger *zap.Logger) *DistributionService {
	return &DistributionService{store: store, payments: payments, logger: logger}
}

// ComputeDistributions reparte totalAmount entre os donos de tokens de
// propriedade, proporcional à oferta total dos tokens que cada um
// possui, com divisão truncada. A ordem é determinística (conta
// crescente); sobras de arredondamento ficam com o pagador.
func (s *DistributionService) ComputeDistributions(totalAmount uint64) ([]models.Distribution, error) {
	var out []models.Distribution
	err := s.store.View(func(st *storage.State) error {
		var totalIssued uint64
		for _, token := range st.Tokens {
			totalIssued += token.TotalSupply
		}
		if totalIssued == 0 {
			return fmt.Errorf("%w: nenhum token de propriedade emitido", models.ErrInvalidState)
		}

		accounts := make([]models.AccountID, 0, len(st.TokenOwners))
		for account := range st.TokenOwners {
			accounts = append(accounts, account)
		}
		sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

		for _, account := range accounts {
			var owned uint64
			for tokenID := range st.TokenOwners[account] {
				if token, ok := st.Tokens[tokenID]; ok {
					owned += token.TotalSupply
				}
			}
			amount := totalAmount * owned / totalIssued
			if amount == 0 {
				continue
			}
			out = append(out, models.Distribution{Recipient: account, Amount: amount})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DistributeTokenIncome calcula a repartição e a liquida pelo trilho
// informado, a partir da conta do chamador. Apenas uma distribuição de
// renda pode estar em andamento por vez.
func (s *DistributionService) DistributeTokenIncome(ctx context.Context, caller models.AccountID, totalAmount uint64, kind models.StableKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: trilho de liquidação desconhecido: %s", models.ErrInvalidInput, kind)
	}

	if err := s.store.AcquireSettlement("income"); err != nil {
		return err
	}
	defer s.store.ReleaseSettlement("income")

	distributions, err := s.ComputeDistributions(totalAmount)
	if err != nil {
		return err
	}
	if len(distributions) == 0 {
		return fmt.Errorf("%w: nenhum recebedor com parcela acima de zero", models.ErrInvalidState)
	}

	s.logger.Info("distribuição de renda iniciada",
		zap.String("payer", string(caller)),
		zap.Int("recipients", len(distributions)),
		zap.Uint64("total", totalAmount))
	return s.payments.DistributeIncome(ctx, caller, distributions, kind)
}
