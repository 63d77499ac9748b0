package models

import "time"

// SettlementStatus é o desfecho de um movimento de valor em um trilho
// externo.
type SettlementStatus string

const (
	SettlementCompleted SettlementStatus = "completed"
	SettlementFailed    SettlementStatus = "failed"
)

// Settlement é o registro de auditoria de um movimento de valor
// tentado contra um trilho externo de pagamento.
type Settlement struct {
	ID        string           `json:"id"`
	From      AccountID        `json:"from"`
	To        AccountID        `json:"to"`
	Amount    uint64           `json:"amount"`
	Rail      StableKind       `json:"rail"`
	Status    SettlementStatus `json:"status"`
	Detail    string           `json:"detail,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
