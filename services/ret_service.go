package services

import (
	"fmt"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"go.uber.org/zap"
)

// Política do token RET, fixada na gênese.
const (
	RETName          = "Real Estate Token"
	RETSymbol        = "RET"
	RETDecimals      = 8
	RETInitialSupply = 10_000_000
	RETMaxSupply     = 20_000_000

	// Metade da oferta inicial fica reservada para airdrops.
	RETAirdropAllocation = RETInitialSupply / 2

	MinStakeDuration = 30 * 24 * time.Hour
	StakeAPRPercent  = 10
)

// RETService implementa o ledger fungível do token de recompensa:
// saldos, allowances e posições de stake.
type RETService struct {
	store  *storage.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewRETService cria o serviço do ledger RET.
func NewRETService(store *storage.Store, logger *zap.Logger) *RETService {
	return &RETService{store: store, logger: logger, now: time.Now}
}

// Initialize registra os metadados do RET e credita ao dono a oferta
// inicial menos a alocação de airdrop. Só pode ser chamada uma vez.
func (s *RETService) Initialize(owner models.AccountID, website string, socialLinks []string) error {
	return s.store.Update(func(st *storage.State) error {
		if st.RETMetadata != nil {
			return fmt.Errorf("%w: token RET já inicializado", models.ErrInvalidState)
		}

		now := s.now()
		st.RETMetadata = &models.RETMetadata{
			Name:              RETName,
			Symbol:            RETSymbol,
			Description:       "Token de governança da plataforma de investimento imobiliário",
			Decimals:          RETDecimals,
			TotalSupply:       RETInitialSupply,
			CirculatingSupply: RETInitialSupply - RETAirdropAllocation,
			Owner:             owner,
			CreatedAt:         now,
			Website:           website,
			SocialLinks:       socialLinks,
		}

		holder := st.EnsureHolder(owner)
		holder.Balance = RETInitialSupply - RETAirdropAllocation

		s.logger.Info("token RET inicializado",
			zap.String("owner", string(owner)),
			zap.Uint64("circulating_supply", RETInitialSupply-RETAirdropAllocation))
		return nil
	})
}

// Transfer move saldo entre contas. Somente o titular pode transferir.
func (s *RETService) Transfer(caller models.AccountID, args models.RETTransferArgs) error {
	if args.From != caller {
		return fmt.Errorf("%w: somente o titular pode transferir", models.ErrUnauthorized)
	}
	return s.store.Update(func(st *storage.State) error {
		return st.MoveRET(args.From, args.To, args.Amount)
	})
}

// Stake move saldo livre para a posição de stake da conta. Uma única
// posição ativa por conta; re-stake antes do unstake falha.
func (s *RETService) Stake(caller models.AccountID, amount uint64, duration time.Duration) error {
	if duration < MinStakeDuration {
		return fmt.Errorf("%w: duração mínima de stake é 30 dias", models.ErrInvalidInput)
	}
	return s.store.Update(func(st *storage.State) error {
		holder, ok := st.RETBalances[caller]
		if !ok {
			return fmt.Errorf("%w: conta sem saldo", models.ErrInsufficientBalance)
		}
		if holder.StakedBalance > 0 {
			return models.ErrAlreadyStaked
		}
		if holder.Balance < amount {
			return models.ErrInsufficientBalance
		}

		now := s.now()
		holder.Balance -= amount
		holder.StakedBalance += amount
		holder.LastStakeTime = &now
		holder.StakeDuration = &duration

		st.RETStats.TotalStaked += amount
		return nil
	})
}

// Unstake devolve o valor em stake acrescido da recompensa, uma vez
// cumprido o período. A recompensa usa aritmética inteira truncada:
// staked * APR * dias / (365 * 100).
func (s *RETService) Unstake(caller models.AccountID) (uint64, error) {
	var total uint64
	err := s.store.Update(func(st *storage.State) error {
		holder, ok := st.RETBalances[caller]
		if !ok {
			return fmt.Errorf("%w: conta sem saldo", models.ErrInsufficientBalance)
		}
		if holder.StakedBalance == 0 {
			return models.ErrNothingStaked
		}
		if holder.LastStakeTime == nil || holder.StakeDuration == nil {
			return fmt.Errorf("%w: posição de stake sem carimbo de tempo", models.ErrInvalidState)
		}
		if s.now().Before(holder.LastStakeTime.Add(*holder.StakeDuration)) {
			return models.ErrLockNotElapsed
		}

		staked := holder.StakedBalance
		days := uint64(*holder.StakeDuration / (24 * time.Hour))
		reward := staked * StakeAPRPercent * days / (365 * 100)
		total = staked + reward

		holder.Balance += total
		// O agregado precisa ser decrementado pelo valor em stake ANTES
		// de zerar a posição.
		st.RETStats.TotalStaked -= staked

		holder.StakedBalance = 0
		holder.LastStakeTime = nil
		holder.StakeDuration = nil
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Airdrop credita um lote de contas a partir da alocação reservada na
// gênese. O teto agregado é validado antes de qualquer crédito: ou o
// lote inteiro é aplicado, ou nada é.
func (s *RETService) Airdrop(caller models.AccountID, recipients []models.Distribution) error {
	return s.store.Update(func(st *storage.State) error {
		if st.RETMetadata == nil {
			return fmt.Errorf("%w: token RET não inicializado", models.ErrInvalidState)
		}
		if caller != st.RETMetadata.Owner {
			return fmt.Errorf("%w: somente o dono do token pode fazer airdrop", models.ErrUnauthorized)
		}

		var total uint64
		for _, r := range recipients {
			total += r.Amount
		}
		if st.RETStats.TotalAirdropped+total > RETAirdropAllocation {
			return models.ErrAllocationExceeded
		}

		for _, r := range recipients {
			st.EnsureHolder(r.Recipient).Balance += r.Amount
		}
		st.RETStats.TotalAirdropped += total

		s.logger.Info("airdrop aplicado",
			zap.Int("recipients", len(recipients)),
			zap.Uint64("total", total))
		return nil
	})
}

// BalanceOf devolve o saldo livre da conta (zero se nunca creditada).
func (s *RETService) BalanceOf(account models.AccountID) uint64 {
	var balance uint64
	_ = s.store.View(func(st *storage.State) error {
		if holder, ok := st.RETBalances[account]; ok {
			balance = holder.Balance
		}
		return nil
	})
	return balance
}

// StakedBalanceOf devolve o saldo em stake da conta.
func (s *RETService) StakedBalanceOf(account models.AccountID) uint64 {
	var staked uint64
	_ = s.store.View(func(st *storage.State) error {
		if holder, ok := st.RETBalances[account]; ok {
			staked = holder.StakedBalance
		}
		return nil
	})
	return staked
}

// GetMetadata devolve os metadados do token, se inicializado.
func (s *RETService) GetMetadata() (models.RETMetadata, bool) {
	var meta models.RETMetadata
	var ok bool
	_ = s.store.View(func(st *storage.State) error {
		if st.RETMetadata != nil {
			meta = *st.RETMetadata
			ok = true
		}
		return nil
	})
	return meta, ok
}

// GetStats devolve os contadores agregados do ledger.
func (s *RETService) GetStats() models.RETStats {
	var stats models.RETStats
	_ = s.store.View(func(st *storage.State) error {
		stats = st.RETStats
		return nil
	})
	return stats
}
