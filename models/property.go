package models

import "time"

// PropertyMetadata descreve um token de propriedade. Imutável após o
// mint, exceto por atualização explícita.
type PropertyMetadata struct {
	Name             string    `json:"name"`
	Symbol           string    `json:"symbol"`
	Description      string    `json:"description,omitempty"`
	ContentType      string    `json:"content_type,omitempty"`
	Image            []byte    `json:"image,omitempty"`
	RoyaltyBPS       uint16    `json:"royalty_bps"`
	RoyaltyRecipient AccountID `json:"royalty_recipient,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ModifiedAt       time.Time `json:"modified_at"`
}

// PropertyToken é um token não fungível que representa um imóvel, com
// oferta fracionária negociável. Invariante: exatamente um dono a
// qualquer momento.
type PropertyToken struct {
	TokenID            uint64           `json:"token_id"`
	Owner              AccountID        `json:"owner"`
	Metadata           PropertyMetadata `json:"metadata"`
	PropertyID         uint64           `json:"property_id"`
	TotalSupply        uint64           `json:"total_supply"`
	CirculatingSupply  uint64           `json:"circulating_supply"`
	AvailableSupply    uint64           `json:"available_supply"`
	PricePerToken      uint64           `json:"price_per_token"`
	Settlement         StableKind       `json:"settlement"`
	Holders            uint64           `json:"holders"`
	TransferRestricted bool             `json:"transfer_restricted"`
	LastTransfer       *time.Time       `json:"last_transfer,omitempty"`
}

// Collection limita a emissão total de tokens de propriedade.
// Invariante: TotalSupply nunca excede MaxSupply quando definido.
type Collection struct {
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
	TotalSupply uint64    `json:"total_supply"`
	MaxSupply   *uint64   `json:"max_supply,omitempty"`
	RoyaltyBPS  uint16    `json:"royalty_bps"`
	Owner       AccountID `json:"owner"`
	Treasury    AccountID `json:"treasury"`
	CreatedAt   time.Time `json:"created_at"`
	Website     string    `json:"website,omitempty"`
	SocialLinks []string  `json:"social_links,omitempty"`
}

// PropertyTokenStats acumula contadores por token de propriedade.
type PropertyTokenStats struct {
	TotalTransactions uint64 `json:"total_transactions"`
	UniqueHolders     uint64 `json:"unique_holders"`
	MarketCap         uint64 `json:"market_cap"`
	Volume24h         uint64 `json:"volume_24h"`
}

// PropertyTransferArgs são os argumentos de uma transferência de token
// de propriedade.
type PropertyTransferArgs struct {
	From    AccountID `json:"from"`
	To      AccountID `json:"to"`
	TokenID uint64    `json:"token_id"`
	Memo    []byte    `json:"memo,omitempty"`
}

// ApprovalArgs são os argumentos de uma aprovação de transferência.
type ApprovalArgs struct {
	Spender   AccountID  `json:"spender"`
	TokenID   uint64     `json:"token_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Memo      []byte     `json:"memo,omitempty"`
}

// Approval registra quem pode transferir um token em nome do dono.
// Uma aprovação vencida é tratada como ausente.
type Approval struct {
	Spender   AccountID  `json:"spender"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
