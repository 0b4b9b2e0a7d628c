// Package wallet implementa as primitivas do ledger de carteiras: bloqueio
// de stake em escrow, devolução, perda e crédito de prêmio. Todas operam
// sobre uma transação aberta pelo chamador, de modo que a movimentação de
// saldo e a transição de estado da aposta são atômicas.
package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
)

// Tx é o recorte da unidade de trabalho que o ledger precisa: leitura da
// carteira com lock de linha, gravação e append no histórico imutável.
type Tx interface {
	WalletForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)
	SaveWallet(ctx context.Context, w *domain.Wallet) error
	AppendLedger(ctx context.Context, e *domain.LedgerEntry) error
}

// Lock move amount do saldo disponível para o escrow.
// Falha com ErrInsufficientFunds se o saldo não cobre o valor.
func Lock(ctx context.Context, tx Tx, userID string, amount int64, betID string) error {
	w, err := tx.WalletForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if w.BalanceCents < amount {
		return domain.ErrInsufficientFunds
	}
	w.BalanceCents -= amount
	w.LockedCents += amount
	return save(ctx, tx, w, betID, domain.OpLock, amount)
}

// UnlockRefund devolve amount do escrow ao saldo disponível.
// Usada em cancelamento e estorno; escrow insuficiente é violação de
// invariante, nunca erro de usuário.
func UnlockRefund(ctx context.Context, tx Tx, userID string, amount int64, betID string) error {
	w, err := tx.WalletForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if w.LockedCents < amount {
		return fmt.Errorf("%w: refund %d with locked %d (user %s)", domain.ErrInvariantViolation, amount, w.LockedCents, userID)
	}
	w.LockedCents -= amount
	w.BalanceCents += amount
	return save(ctx, tx, w, betID, domain.OpRefund, amount)
}

// UnlockForfeit retira amount do escrow sem devolver ao saldo: o stake do
// perdedor deixa a carteira em definitivo.
func UnlockForfeit(ctx context.Context, tx Tx, userID string, amount int64, betID string) error {
	w, err := tx.WalletForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if w.LockedCents < amount {
		return fmt.Errorf("%w: forfeit %d with locked %d (user %s)", domain.ErrInvariantViolation, amount, w.LockedCents, userID)
	}
	w.LockedCents -= amount
	w.TotalLostCents += amount
	return save(ctx, tx, w, betID, domain.OpForfeit, amount)
}

// ReleaseStake libera o stake do vencedor do escrow sem retorná-lo ao saldo;
// o prêmio calculado entra em seguida via Credit. O efeito líquido é o stake
// original substituído pelo payout, que pode ser maior ou menor que ele.
func ReleaseStake(ctx context.Context, tx Tx, userID string, amount int64, betID string) error {
	w, err := tx.WalletForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if w.LockedCents < amount {
		return fmt.Errorf("%w: release %d with locked %d (user %s)", domain.ErrInvariantViolation, amount, w.LockedCents, userID)
	}
	w.LockedCents -= amount
	return save(ctx, tx, w, betID, domain.OpRelease, amount)
}

// Credit adiciona amount ao saldo disponível sem tocar no escrow.
// Com won=true contabiliza também no total ganho (payout de vencedor).
func Credit(ctx context.Context, tx Tx, userID string, amount int64, betID string, won bool) error {
	w, err := tx.WalletForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	w.BalanceCents += amount
	op := domain.OpDrawRefund
	if won {
		w.TotalWonCents += amount
		op = domain.OpPayout
	}
	return save(ctx, tx, w, betID, op, amount)
}

func save(ctx context.Context, tx Tx, w *domain.Wallet, betID string, op domain.LedgerOp, amount int64) error {
	if w.BalanceCents < 0 || w.LockedCents < 0 {
		return fmt.Errorf("%w: negative balance after %s (user %s)", domain.ErrInvariantViolation, op, w.UserID)
	}
	if err := tx.SaveWallet(ctx, w); err != nil {
		return err
	}
	return tx.AppendLedger(ctx, &domain.LedgerEntry{
		ID:           uuid.NewString(),
		WalletID:     w.ID,
		UserID:       w.UserID,
		BetID:        betID,
		Op:           op,
		AmountCents:  amount,
		BalanceAfter: w.BalanceCents,
		LockedAfter:  w.LockedCents,
		Description:  string(op) + ":" + betID,
	})
}
