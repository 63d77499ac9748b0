package models

import (
	"errors"
	"fmt"
)

// Classes de erro retornadas pelas operações do ledger e do
// marketplace. Toda falha é devolvida ao chamador como um erro tipado;
// use errors.Is contra estas sentinelas para classificar.
var (
	ErrUnauthorized        = errors.New("não autorizado")
	ErrNotFound            = errors.New("não encontrado")
	ErrInsufficientBalance = errors.New("saldo insuficiente")
	ErrInvalidState        = errors.New("estado inválido")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrAllocationExceeded  = errors.New("alocação de airdrop excedida")
	ErrTransferFailed      = errors.New("transferência externa falhou")
	ErrBusy                = errors.New("recurso em liquidação")
)

// Condições específicas embrulham a classe correspondente, de modo que
// errors.Is(err, ErrInvalidState) etc. continue funcionando.
var (
	ErrAlreadyStaked      = fmt.Errorf("%w: já existe stake ativo para a conta", ErrInvalidState)
	ErrLockNotElapsed     = fmt.Errorf("%w: período de stake ainda não cumprido", ErrInvalidState)
	ErrNothingStaked      = fmt.Errorf("%w: nenhum saldo em stake", ErrInvalidState)
	ErrSupplyCapReached   = fmt.Errorf("%w: limite de emissão da coleção atingido", ErrInvalidState)
	ErrTransferRestricted = fmt.Errorf("%w: transferências deste token estão restritas", ErrInvalidState)
	ErrBidTooLow          = fmt.Errorf("%w: lance abaixo do mínimo exigido", ErrInvalidInput)
	ErrWrongSettlement    = fmt.Errorf("%w: denominação não corresponde ao anúncio", ErrInvalidInput)
	ErrSharesNotComplete  = fmt.Errorf("%w: frações devem somar exatamente 10000 basis points", ErrInvalidInput)
	ErrNotOwner           = fmt.Errorf("%w: token não pertence ao remetente", ErrUnauthorized)
)

// PaymentErrorKind classifica falhas vindas da fronteira com os
// serviços externos de transferência de valor.
type PaymentErrorKind string

const (
	PaymentInsufficientBalance PaymentErrorKind = "insufficient_balance"
	PaymentTransferFailed      PaymentErrorKind = "transfer_failed"
	PaymentOther               PaymentErrorKind = "other"
)

// PaymentError carrega o código de máquina e a mensagem de uma falha
// de pagamento externo.
type PaymentError struct {
	Kind    PaymentErrorKind `json:"kind"`
	Message string           `json:"message"`
	Cause   error            `json:"-"`
}

func (e *PaymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pagamento falhou (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("pagamento falhou (%s): %s", e.Kind, e.Message)
}

// Unwrap mapeia o tipo da falha para a classe de erro correspondente.
func (e *PaymentError) Unwrap() error {
	switch e.Kind {
	case PaymentInsufficientBalance:
		return ErrInsufficientBalance
	default:
		return ErrTransferFailed
	}
}

// PartialFailureError sinaliza que uma operação de múltiplas etapas
// falhou depois de já ter aplicado parte do efeito. As etapas
// concluídas NÃO são revertidas; Completed descreve o que de fato
// aconteceu.
type PartialFailureError struct {
	Completed []Distribution
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("falha parcial após %d pagamento(s) concluído(s): %v", len(e.Completed), e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
