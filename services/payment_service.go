package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ferreirogomes/imobi/models"
	"github.com/ferreirogomes/imobi/storage"

	"go.uber.org/zap"
)

// Ledger é a fronteira com um serviço externo de transferência de
// valor. Cada serviço expõe exatamente duas operações; falhas de
// comunicação vêm como erro, rejeições como false.
type Ledger interface {
	Transfer(ctx context.Context, from, to models.AccountID, amount uint64) (bool, error)
	BalanceOf(ctx context.Context, account models.AccountID) (uint64, error)
}

// PaymentManager orquestra pagamentos contra os trilhos externos,
// um por denominação estável. Uma vez emitida, uma transferência
// externa não pode ser cancelada; o estado local reflete o progresso
// parcial que de fato ocorreu.
type PaymentManager struct {
	store   *storage.Store
	ledgers map[models.StableKind]Ledger
	logger  *zap.Logger
	now     func() time.Time
}

// NewPaymentManager registra os trilhos de pagamento disponíveis.
func NewPaymentManager(store *storage.Store, logger *zap.Logger, usdc, usdt Ledger) *PaymentManager {
	return &PaymentManager{
		store: store,
		ledgers: map[models.StableKind]Ledger{
			models.StableUSDC: usdc,
			models.StableUSDT: usdt,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (m *PaymentManager) ledger(kind models.StableKind) (Ledger, error) {
	led, ok := m.ledgers[kind]
	if !ok || led == nil {
		return nil, fmt.Errorf("%w: trilho de pagamento desconhecido: %s", models.ErrInvalidInput, kind)
	}
	return led, nil
}

func (m *PaymentManager) journal(from, to models.AccountID, amount uint64, kind models.StableKind, status models.SettlementStatus, detail string) {
	_ = m.store.Update(func(st *storage.State) error {
		st.AppendSettlement(from, to, amount, kind, status, detail, m.now())
		return nil
	})
}

// ProcessPayment verifica o saldo externo do pagador e emite uma única
// transferência. Rejeição do serviço externo ou falha de comunicação
// viram TransferFailed, com o detalhe subjacente preservado.
func (m *PaymentManager) ProcessPayment(ctx context.Context, from, to models.AccountID, amount uint64, kind models.StableKind) error {
	led, err := m.ledger(kind)
	if err != nil {
		return err
	}

	balance, err := led.BalanceOf(ctx, from)
	if err != nil {
		return &models.PaymentError{
			Kind:    models.PaymentTransferFailed,
			Message: "falha ao consultar saldo externo",
			Cause:   err,
		}
	}
	if balance < amount {
		return &models.PaymentError{
			Kind:    models.PaymentInsufficientBalance,
			Message: fmt.Sprintf("saldo externo %d abaixo do necessário %d", balance, amount),
		}
	}

	ok, err := led.Transfer(ctx, from, to, amount)
	if err != nil {
		m.journal(from, to, amount, kind, models.SettlementFailed, err.Error())
		return &models.PaymentError{
			Kind:    models.PaymentTransferFailed,
			Message: "erro de comunicação com o serviço externo",
			Cause:   err,
		}
	}
	if !ok {
		m.journal(from, to, amount, kind, models.SettlementFailed, "rejeitada pelo serviço externo")
		return &models.PaymentError{
			Kind:    models.PaymentTransferFailed,
			Message: "transferência rejeitada pelo serviço externo",
		}
	}

	m.journal(from, to, amount, kind, models.SettlementCompleted, "")
	return nil
}

// DistributeIncome emite transferências sequenciais para um lote de
// recebedores, após verificar uma única vez que o pagador cobre o
// total. A primeira falha aborta o restante do lote; transferências já
// emitidas não são revertidas e são relatadas como falha parcial.
func (m *PaymentManager) DistributeIncome(ctx context.Context, from models.AccountID, distributions []models.Distribution, kind models.StableKind) error {
	led, err := m.ledger(kind)
	if err != nil {
		return err
	}

	var total uint64
	for _, d := range distributions {
		total += d.Amount
	}

	balance, err := led.BalanceOf(ctx, from)
	if err != nil {
		return &models.PaymentError{
			Kind:    models.PaymentTransferFailed,
			Message: "falha ao consultar saldo externo",
			Cause:   err,
		}
	}
	if balance < total {
		return &models.PaymentError{
			Kind:    models.PaymentInsufficientBalance,
			Message: fmt.Sprintf("saldo externo %d abaixo do total da distribuição %d", balance, total),
		}
	}

	completed := make([]models.Distribution, 0, len(distributions))
	for _, d := range distributions {
		ok, err := led.Transfer(ctx, from, d.Recipient, d.Amount)
		var payErr *models.PaymentError
		switch {
		case err != nil:
			payErr = &models.PaymentError{
				Kind:    models.PaymentTransferFailed,
				Message: "erro de comunicação com o serviço externo",
				Cause:   err,
			}
		case !ok:
			payErr = &models.PaymentError{
				Kind:    models.PaymentTransferFailed,
				Message: "transferência rejeitada pelo serviço externo",
			}
		}

		if payErr != nil {
			m.journal(from, d.Recipient, d.Amount, kind, models.SettlementFailed, payErr.Message)
			m.logger.Warn("distribuição abortada",
				zap.String("recipient", string(d.Recipient)),
				zap.Int("completed", len(completed)),
				zap.Error(payErr))
			if len(completed) > 0 {
				return &models.PartialFailureError{Completed: completed, Err: payErr}
			}
			return payErr
		}

		m.journal(from, d.Recipient, d.Amount, kind, models.SettlementCompleted, "")
		completed = append(completed, d)
	}
	return nil
}

// GetSettlements devolve o diário de liquidações externas.
func (m *PaymentManager) GetSettlements() []models.Settlement {
	var out []models.Settlement
	_ = m.store.View(func(st *storage.State) error {
		out = append(out, st.Settlements...)
		return nil
	})
	return out
}
