package services

import (
	"context"
	"fmt"

	"github.com/ferreirogomes/imobi/models"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// SolanaLedger implementa a fronteira Ledger sobre a rede Solana. As
// contas dos usuários são custodiadas pela plataforma: a chave de cada
// conta fica no chaveiro do serviço e o FeePayer paga as taxas de rede.
type SolanaLedger struct {
	rpcClient *rpc.Client
	feePayer  solana.PrivateKey
	custody   map[models.AccountID]solana.PrivateKey
	logger    *zap.Logger
}

// NewSolanaLedger conecta ao endpoint RPC e carrega o chaveiro de
// custódia (conta → chave privada em Base58).
func NewSolanaLedger(rpcEndpoint, feePayerKeyBase58 string, custodyKeys map[string]string, logger *zap.Logger) (*SolanaLedger, error) {
	feePayer, err := solana.PrivateKeyFromBase58(feePayerKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar chave privada do Fee Payer: %w", err)
	}

	custody := make(map[models.AccountID]solana.PrivateKey, len(custodyKeys))
	for account, key := range custodyKeys {
		pk, err := solana.PrivateKeyFromBase58(key)
		if err != nil {
			return nil, fmt.Errorf("falha ao carregar chave de custódia de %s: %w", account, err)
		}
		custody[models.AccountID(account)] = pk
	}

	return &SolanaLedger{
		rpcClient: rpc.New(rpcEndpoint),
		feePayer:  feePayer,
		custody:   custody,
		logger:    logger,
	}, nil
}

// BalanceOf consulta o saldo em lamports da conta na rede.
func (l *SolanaLedger) BalanceOf(ctx context.Context, account models.AccountID) (uint64, error) {
	pub, err := solana.PublicKeyFromBase58(string(account))
	if err != nil {
		return 0, fmt.Errorf("conta Solana inválida: %w", err)
	}

	resp, err := l.rpcClient.GetBalance(ctx, pub, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("falha ao consultar saldo na Solana: %w", err)
	}
	return resp.Value, nil
}

// Transfer constrói, assina e envia uma transferência de lamports da
// conta custodiada de origem para o destino, aguardando a confirmação
// como operação crítica.
func (l *SolanaLedger) Transfer(ctx context.Context, from, to models.AccountID, amount uint64) (bool, error) {
	fromKey, ok := l.custody[from]
	if !ok {
		return false, fmt.Errorf("conta %s sem chave custodiada", from)
	}
	toPub, err := solana.PublicKeyFromBase58(string(to))
	if err != nil {
		return false, fmt.Errorf("conta de destino inválida: %w", err)
	}

	recent, err := l.rpcClient.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return false, fmt.Errorf("falha ao obter blockhash: %w", err)
	}

	transferInstruction := system.NewTransferInstruction(
		amount,
		fromKey.PublicKey(),
		toPub,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(l.feePayer.PublicKey()),
	)
	if err != nil {
		return false, fmt.Errorf("falha ao criar transação de transferência: %w", err)
	}

	// O FeePayer assina como pagador; a conta de origem assina como
	// autoridade dos fundos.
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(l.feePayer.PublicKey()) {
			return &l.feePayer
		}
		if key.Equals(fromKey.PublicKey()) {
			return &fromKey
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("falha ao assinar transação: %w", err)
	}

	sig, err := l.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return false, fmt.Errorf("falha ao enviar transação: %w", err)
	}

	if _, err := l.rpcClient.GetSignatureStatuses(ctx, true, sig); err != nil {
		l.logger.Warn("erro ao verificar status da transação",
			zap.String("signature", sig.String()),
			zap.Error(err))
	}

	l.logger.Info("transferência enviada à Solana",
		zap.String("signature", sig.String()),
		zap.Uint64("lamports", amount))
	return true, nil
}
