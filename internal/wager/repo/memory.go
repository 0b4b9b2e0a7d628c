package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
)

// Memory implementa Store em memória. As escritas de uma transação ficam em
// staging e só entram no estado base no commit, então um erro em fn descarta
// tudo, como no Postgres. O mutex global serializa as transações, o que
// reproduz a semântica serializável por transição.
type Memory struct {
	mu          sync.Mutex
	wallets     map[string]*domain.Wallet // por userID
	bets        map[string]*domain.Bet
	ledger      []*domain.LedgerEntry
	commissions []*domain.CommissionRecord
}

// NewMemory retorna um store vazio.
func NewMemory() *Memory {
	return &Memory{
		wallets: make(map[string]*domain.Wallet),
		bets:    make(map[string]*domain.Bet),
	}
}

// SeedWallet cria/ajusta uma carteira com saldo inicial (apoio a testes e
// execução local; depósitos reais chegam por mecanismo externo).
func (m *Memory) SeedWallet(userID string, balanceCents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[userID] = &domain.Wallet{
		ID:           uuid.NewString(),
		UserID:       userID,
		BalanceCents: balanceCents,
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// LedgerEntries retorna uma cópia do histórico, para reconciliação em testes.
func (m *Memory) LedgerEntries() []*domain.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.LedgerEntry, len(m.ledger))
	copy(out, m.ledger)
	return out
}

// Commissions retorna uma cópia dos registros de comissão.
func (m *Memory) Commissions() []*domain.CommissionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CommissionRecord, len(m.commissions))
	copy(out, m.commissions)
	return out
}

func (m *Memory) ExecTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:       m,
		wallets: make(map[string]*domain.Wallet),
		bets:    make(map[string]*domain.Bet),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *Memory) Bet(ctx context.Context, betID string) (*domain.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bets[betID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyBet(b), nil
}

func (m *Memory) ListBets(ctx context.Context, f BetFilter) ([]*domain.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Bet
	for _, b := range m.bets {
		if f.UserID != "" && b.CreatorID != f.UserID && b.AcceptorID != f.UserID {
			continue
		}
		if f.ContestID != "" && b.ContestID != f.ContestID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, copyBet(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		w = &domain.Wallet{ID: uuid.NewString(), UserID: userID, Version: 1, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		m.wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

// memTx acumula escritas em staging até o commit.
type memTx struct {
	m           *Memory
	wallets     map[string]*domain.Wallet
	bets        map[string]*domain.Bet
	ledger      []*domain.LedgerEntry
	commissions []*domain.CommissionRecord
}

func (t *memTx) commit() {
	for id, w := range t.wallets {
		t.m.wallets[id] = w
	}
	for id, b := range t.bets {
		t.m.bets[id] = b
	}
	t.m.ledger = append(t.m.ledger, t.ledger...)
	t.m.commissions = append(t.m.commissions, t.commissions...)
}

func (t *memTx) WalletForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	if w, ok := t.wallets[userID]; ok {
		return w, nil
	}
	base, ok := t.m.wallets[userID]
	var w domain.Wallet
	if ok {
		w = *base
	} else {
		w = domain.Wallet{ID: uuid.NewString(), UserID: userID, Version: 1, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	}
	t.wallets[userID] = &w
	return &w, nil
}

func (t *memTx) SaveWallet(ctx context.Context, w *domain.Wallet) error {
	w.Version++
	w.UpdatedAt = time.Now()
	t.wallets[w.UserID] = w
	return nil
}

func (t *memTx) AppendLedger(ctx context.Context, e *domain.LedgerEntry) error {
	e.CreatedAt = time.Now()
	t.ledger = append(t.ledger, e)
	return nil
}

func (t *memTx) BetForUpdate(ctx context.Context, betID string) (*domain.Bet, error) {
	if b, ok := t.bets[betID]; ok {
		return b, nil
	}
	base, ok := t.m.bets[betID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b := copyBet(base)
	t.bets[betID] = b
	return b, nil
}

func (t *memTx) AcceptedByContestForUpdate(ctx context.Context, contestID string) ([]*domain.Bet, error) {
	var out []*domain.Bet
	for id, base := range t.m.bets {
		if _, staged := t.bets[id]; staged {
			continue
		}
		if base.ContestID == contestID && base.Status == domain.StatusAccepted {
			b := copyBet(base)
			t.bets[id] = b
			out = append(out, b)
		}
	}
	for _, b := range t.bets {
		if b.ContestID == contestID && b.Status == domain.StatusAccepted && !contains(out, b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func contains(bets []*domain.Bet, b *domain.Bet) bool {
	for _, x := range bets {
		if x.ID == b.ID {
			return true
		}
	}
	return false
}

func (t *memTx) HasPendingOnSide(ctx context.Context, creatorID, contestID string, side domain.Side) (bool, error) {
	check := func(b *domain.Bet) bool {
		return b.CreatorID == creatorID && b.ContestID == contestID &&
			b.ChosenSide == side && b.Status == domain.StatusPending
	}
	for _, b := range t.bets {
		if check(b) {
			return true, nil
		}
	}
	for id, b := range t.m.bets {
		if _, staged := t.bets[id]; staged {
			continue
		}
		if check(b) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertBet(ctx context.Context, b *domain.Bet) error {
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	t.bets[b.ID] = b
	return nil
}

func (t *memTx) SaveBet(ctx context.Context, b *domain.Bet) error {
	b.UpdatedAt = time.Now()
	t.bets[b.ID] = b
	return nil
}

func (t *memTx) InsertCommission(ctx context.Context, c *domain.CommissionRecord) error {
	c.CreatedAt = time.Now()
	t.commissions = append(t.commissions, c)
	return nil
}

func copyBet(b *domain.Bet) *domain.Bet {
	cp := *b
	if b.CancellationDeadline != nil {
		v := *b.CancellationDeadline
		cp.CancellationDeadline = &v
	}
	if b.AcceptedAt != nil {
		v := *b.AcceptedAt
		cp.AcceptedAt = &v
	}
	if b.CancelledAt != nil {
		v := *b.CancelledAt
		cp.CancelledAt = &v
	}
	if b.SettledAt != nil {
		v := *b.SettledAt
		cp.SettledAt = &v
	}
	if b.ActualPayoutCents != nil {
		v := *b.ActualPayoutCents
		cp.ActualPayoutCents = &v
	}
	return &cp
}
