package models

// AccountID identifica um ator de forma opaca e globalmente única.
// É usado como chave de saldos, posse e autorização; nenhum formato
// interno é assumido além de igualdade.
type AccountID string

// TokenKind indica em qual token um preço, lance ou pagamento do
// marketplace é denominado.
type TokenKind string

const (
	TokenRET TokenKind = "RET"
	TokenICP TokenKind = "ICP"
)

// Valid informa se o tipo de token é um dos valores conhecidos.
func (k TokenKind) Valid() bool {
	switch k {
	case TokenRET, TokenICP:
		return true
	}
	return false
}

// StableKind indica qual trilho externo de pagamento liquida um valor.
type StableKind string

const (
	StableUSDC StableKind = "USDC"
	StableUSDT StableKind = "USDT"
)

// Valid informa se o trilho de pagamento é um dos valores conhecidos.
func (k StableKind) Valid() bool {
	switch k {
	case StableUSDC, StableUSDT:
		return true
	}
	return false
}

// Distribution é uma parcela de um pagamento em lote destinada a um
// único recebedor.
type Distribution struct {
	Recipient AccountID `json:"recipient"`
	Amount    uint64    `json:"amount"`
}
