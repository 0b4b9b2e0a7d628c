package repo

import (
	"context"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wallet"
)

// BetFilter restringe listagens de apostas.
type BetFilter struct {
	UserID    string
	ContestID string
	Status    domain.BetStatus
	Limit     int
}

// UnitOfWork expõe as operações disponíveis dentro de uma transação de
// transição de estado. Leituras *ForUpdate seguram lock de linha até o
// commit, serializando transições concorrentes sobre a mesma aposta ou
// carteira.
type UnitOfWork interface {
	wallet.Tx

	BetForUpdate(ctx context.Context, betID string) (*domain.Bet, error)
	AcceptedByContestForUpdate(ctx context.Context, contestID string) ([]*domain.Bet, error)
	HasPendingOnSide(ctx context.Context, creatorID, contestID string, side domain.Side) (bool, error)
	InsertBet(ctx context.Context, b *domain.Bet) error
	SaveBet(ctx context.Context, b *domain.Bet) error
	InsertCommission(ctx context.Context, c *domain.CommissionRecord) error
}

// Store é a fronteira de persistência do núcleo de apostas: uma unidade de
// trabalho atômica por transição, mais leituras sem lock.
type Store interface {
	// ExecTx executa fn dentro de uma transação serializável. Se fn retorna
	// erro, nenhuma mutação sobrevive. Conflitos de lock/serialização do
	// banco chegam ao chamador como domain.ErrTransientContention.
	ExecTx(ctx context.Context, fn func(uow UnitOfWork) error) error

	Bet(ctx context.Context, betID string) (*domain.Bet, error)
	ListBets(ctx context.Context, f BetFilter) ([]*domain.Bet, error)
	GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error)
}
