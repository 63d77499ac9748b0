package services

import (
	"context"
	"sync"

	"github.com/ferreirogomes/imobi/models"
)

// MockLedger reproduz um serviço externo de transferência de valor em
// memória, para desenvolvimento e testes. Contas desconhecidas recebem
// um saldo inicial na primeira consulta, imitando o ledger de
// homologação.
type MockLedger struct {
	mu       sync.Mutex
	balances map[models.AccountID]uint64
	seed     uint64
}

// NewMockLedger cria o ledger simulado com o saldo inicial padrão.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		balances: make(map[models.AccountID]uint64),
		seed:     1_000_000,
	}
}

func (l *MockLedger) ensure(account models.AccountID) uint64 {
	if _, ok := l.balances[account]; !ok {
		l.balances[account] = l.seed
	}
	return l.balances[account]
}

// Transfer debita from e credita to; devolve false quando o saldo não
// cobre o valor, como faria o serviço real.
func (l *MockLedger) Transfer(ctx context.Context, from, to models.AccountID, amount uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ensure(from) < amount {
		return false, nil
	}
	l.balances[to] = l.ensure(to) + amount
	l.balances[from] -= amount
	return true, nil
}

// BalanceOf devolve o saldo externo da conta.
func (l *MockLedger) BalanceOf(ctx context.Context, account models.AccountID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensure(account), nil
}

// SetBalance fixa o saldo de uma conta (apenas para testes).
func (l *MockLedger) SetBalance(account models.AccountID, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = amount
}
