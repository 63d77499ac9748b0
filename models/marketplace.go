package models

import "time"

// ListingStatus é o estado de um anúncio. Sold e Cancelled são
// terminais: um anúncio os atinge exatamente uma vez.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
)

// ListingPrice é o preço pedido de um anúncio, na denominação escolhida.
type ListingPrice struct {
	Amount uint64    `json:"amount"`
	Kind   TokenKind `json:"kind"`
}

// Bid é um lance sobre um anúncio ativo.
type Bid struct {
	Bidder    AccountID `json:"bidder"`
	Amount    uint64    `json:"amount"`
	Kind      TokenKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Listing anuncia um token de propriedade à venda. Apenas anúncios
// ativos aceitam lances ou aceitação.
type Listing struct {
	ID              uint64        `json:"id"`
	PropertyTokenID uint64        `json:"property_token_id"`
	Seller          AccountID     `json:"seller"`
	Price           ListingPrice  `json:"price"`
	CreatedAt       time.Time     `json:"created_at"`
	Status          ListingStatus `json:"status"`
	HighestBid      *Bid          `json:"highest_bid,omitempty"`
	RoyaltyBPS      uint16        `json:"royalty_bps"`
	ListingFee      uint64        `json:"listing_fee"`
}

// PropertyShare é uma fração de posse sobre um token de propriedade,
// em basis points. Invariante: as frações de um token somam 10000.
type PropertyShare struct {
	Owner            AccountID `json:"owner"`
	ShareBPS         uint16    `json:"share_bps"`
	LastDistribution time.Time `json:"last_distribution"`
}

// MarketplaceStats acumula contadores do marketplace. Apenas
// ActiveListings é decrementado, ao vender ou cancelar.
type MarketplaceStats struct {
	TotalListings    uint64 `json:"total_listings"`
	ActiveListings   uint64 `json:"active_listings"`
	TotalSales       uint64 `json:"total_sales"`
	TotalVolumeRET   uint64 `json:"total_volume_ret"`
	TotalVolumeICP   uint64 `json:"total_volume_icp"`
	TotalListingFees uint64 `json:"total_listing_fees"`
}
