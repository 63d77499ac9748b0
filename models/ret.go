package models

import "time"

// RETMetadata descreve o token fungível de recompensa (RET) da plataforma.
type RETMetadata struct {
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Description       string    `json:"description,omitempty"`
	Decimals          uint8     `json:"decimals"`
	TotalSupply       uint64    `json:"total_supply"`
	CirculatingSupply uint64    `json:"circulating_supply"`
	Owner             AccountID `json:"owner"`
	CreatedAt         time.Time `json:"created_at"`
	Website           string    `json:"website,omitempty"`
	SocialLinks       []string  `json:"social_links,omitempty"`
}

// TokenHolder é o registro de saldo de uma conta no ledger RET.
// Invariante: Balance + StakedBalance nunca excede o que a conta já
// recebeu em créditos.
type TokenHolder struct {
	Balance       uint64               `json:"balance"`
	Allowances    map[AccountID]uint64 `json:"allowances"`
	StakedBalance uint64               `json:"staked_balance"`
	LastStakeTime *time.Time           `json:"last_stake_time,omitempty"`
	StakeDuration *time.Duration       `json:"stake_duration,omitempty"`
}

// RETStats acumula contadores derivados das transições bem-sucedidas
// do ledger RET. Apenas TotalStaked é decrementado, no unstake.
type RETStats struct {
	TotalTransactions uint64 `json:"total_transactions"`
	UniqueHolders     uint64 `json:"unique_holders"`
	MarketCap         uint64 `json:"market_cap"`
	Volume24h         uint64 `json:"volume_24h"`
	TotalStaked       uint64 `json:"total_staked"`
	TotalAirdropped   uint64 `json:"total_airdropped"`
}

// RETTransferArgs são os argumentos de uma transferência no ledger RET.
type RETTransferArgs struct {
	From   AccountID `json:"from"`
	To     AccountID `json:"to"`
	Amount uint64    `json:"amount"`
	Memo   []byte    `json:"memo,omitempty"`
}
