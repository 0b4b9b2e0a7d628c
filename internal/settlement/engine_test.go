package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
)

type staticContests struct {
	contest domain.Contest
}

func (s *staticContests) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	if id != s.contest.ID {
		return nil, domain.ErrNotFound
	}
	c := s.contest
	return &c, nil
}

func newFixture(t *testing.T) (*Engine, *service.Service, *repo.Memory, func(time.Duration)) {
	t.Helper()
	store := repo.NewMemory()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }
	advance := func(d time.Duration) { now = now.Add(d) }

	contests := &staticContests{contest: domain.Contest{
		ID:             "match-1",
		Status:         domain.ContestScheduled,
		ScheduledStart: base.Add(2 * time.Hour),
	}}

	svc := service.New(zap.NewNop(), store, contests, nil, nil, service.DefaultParams()).WithClock(clock)
	eng := New(zap.NewNop(), store, svc, nil, nil, service.DefaultParams()).WithClock(clock)
	return eng, svc, store, advance
}

func balance(t *testing.T, store *repo.Memory, user string) *domain.Wallet {
	t.Helper()
	w, err := store.GetOrCreateWallet(context.Background(), user)
	require.NoError(t, err)
	return w
}

// Vitória direta: pote de 2000, comissão de 10%, vencedor recebe 1800.
func TestSettleContest_Outright(t *testing.T) {
	eng, svc, store, _ := newFixture(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("bob", 3000)

	bet, err := svc.Create(context.Background(), "alice", "match-1", domain.SideA, 1000)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "bob", bet.ID)
	require.NoError(t, err)

	summary, err := eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideA)
	require.NoError(t, err)
	require.Equal(t, 1, summary.BetsSettled)
	require.Equal(t, int64(2000), summary.TotalPotCents)
	require.Equal(t, int64(200), summary.CommissionCents)

	wa := balance(t, store, "alice")
	require.Equal(t, int64(5800), wa.BalanceCents)
	require.Zero(t, wa.LockedCents)
	require.Equal(t, int64(1800), wa.TotalWonCents)

	wb := balance(t, store, "bob")
	require.Equal(t, int64(2000), wb.BalanceCents)
	require.Zero(t, wb.LockedCents)
	require.Equal(t, int64(1000), wb.TotalLostCents)

	settled, err := svc.GetBet(context.Background(), bet.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusWon, settled.Status)
	require.NotNil(t, settled.SettledAt)
	require.NotNil(t, settled.ActualPayoutCents)
	require.Equal(t, int64(1800), *settled.ActualPayoutCents)

	records := store.Commissions()
	require.Len(t, records, 1)
	require.Equal(t, int64(200), records[0].CommissionCents)
	require.Equal(t, domain.OutcomeSideA, records[0].Outcome)
}

// O aceitante carrega implicitamente o lado oposto do criador.
func TestSettleContest_AcceptorWins(t *testing.T) {
	eng, svc, store, _ := newFixture(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("bob", 3000)

	bet, err := svc.Create(context.Background(), "alice", "match-1", domain.SideA, 1000)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "bob", bet.ID)
	require.NoError(t, err)

	_, err = eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideB)
	require.NoError(t, err)

	require.Equal(t, int64(4000), balance(t, store, "alice").BalanceCents)
	require.Equal(t, int64(3800), balance(t, store, "bob").BalanceCents)

	settled, _ := svc.GetBet(context.Background(), bet.ID)
	require.Equal(t, domain.StatusLost, settled.Status)
}

// Empate: cada parte recupera 97,5% do stake; 2,5% do pote vira comissão.
func TestSettleContest_Draw(t *testing.T) {
	eng, svc, store, _ := newFixture(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("bob", 3000)

	bet, err := svc.Create(context.Background(), "alice", "match-1", domain.SideA, 1000)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "bob", bet.ID)
	require.NoError(t, err)

	summary, err := eng.SettleContest(context.Background(), "match-1", domain.OutcomeDraw)
	require.NoError(t, err)
	require.Equal(t, int64(50), summary.CommissionCents)

	require.Equal(t, int64(4975), balance(t, store, "alice").BalanceCents)
	require.Equal(t, int64(2975), balance(t, store, "bob").BalanceCents)

	settled, _ := svc.GetBet(context.Background(), bet.ID)
	require.Equal(t, domain.StatusRefunded, settled.Status)
	require.Equal(t, int64(975), *settled.ActualPayoutCents)
}

// Reexecutar a liquidação não move dinheiro: apostas terminais ficam fora
// da seleção da segunda rodada.
func TestSettleContest_Idempotent(t *testing.T) {
	eng, svc, store, _ := newFixture(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("bob", 3000)

	bet, err := svc.Create(context.Background(), "alice", "match-1", domain.SideA, 1000)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "bob", bet.ID)
	require.NoError(t, err)

	_, err = eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideA)
	require.NoError(t, err)

	again, err := eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideA)
	require.NoError(t, err)
	require.Zero(t, again.BetsSettled)
	require.Zero(t, again.CommissionCents)

	require.Equal(t, int64(5800), balance(t, store, "alice").BalanceCents)
	require.Equal(t, int64(2000), balance(t, store, "bob").BalanceCents)
	require.Len(t, store.Commissions(), 1)
}

// Apostas PENDING de um confronto decidido são canceladas com estorno após
// a liquidação das ACCEPTED.
func TestSettleContest_CancelsPending(t *testing.T) {
	eng, svc, store, _ := newFixture(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("bob", 3000)
	store.SeedWallet("carol", 2000)

	bet, err := svc.Create(context.Background(), "alice", "match-1", domain.SideA, 1000)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "bob", bet.ID)
	require.NoError(t, err)

	orphan, err := svc.Create(context.Background(), "carol", "match-1", domain.SideB, 500)
	require.NoError(t, err)

	summary, err := eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideA)
	require.NoError(t, err)
	require.Equal(t, 1, summary.BetsSettled)
	require.Equal(t, 1, summary.PendingCancelled)

	wc := balance(t, store, "carol")
	require.Equal(t, int64(2000), wc.BalanceCents)
	require.Zero(t, wc.LockedCents)

	got, _ := svc.GetBet(context.Background(), orphan.ID)
	require.Equal(t, domain.StatusCancelled, got.Status)
}

// Várias apostas de lados mistos no mesmo confronto liquidam em uma única
// transação, e dinheiro nunca some: saldos + comissão = fundos iniciais.
func TestSettleContest_MixedSidesConservation(t *testing.T) {
	eng, svc, store, _ := newFixture(t)
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		store.SeedWallet(u, 10_000)
	}

	b1, err := svc.Create(context.Background(), "u1", "match-1", domain.SideA, 1200)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "u2", b1.ID)
	require.NoError(t, err)

	b2, err := svc.Create(context.Background(), "u3", "match-1", domain.SideB, 700)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), "u4", b2.ID)
	require.NoError(t, err)

	summary, err := eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideA)
	require.NoError(t, err)
	require.Equal(t, 2, summary.BetsSettled)
	require.Equal(t, int64(3800), summary.TotalPotCents)

	var total int64
	for _, u := range users {
		w := balance(t, store, u)
		require.Zero(t, w.LockedCents)
		total += w.BalanceCents
	}
	require.Equal(t, int64(40_000), total+summary.CommissionCents)

	// u1 apostou no lado A e venceu; u4 aceitou contra o lado B e venceu
	require.Greater(t, balance(t, store, "u1").BalanceCents, int64(10_000))
	require.Greater(t, balance(t, store, "u4").BalanceCents, int64(10_000))
	require.Equal(t, int64(8800), balance(t, store, "u2").BalanceCents)
	require.Equal(t, int64(9300), balance(t, store, "u3").BalanceCents)
}

func TestSettleContest_InvalidOutcome(t *testing.T) {
	eng, _, _, _ := newFixture(t)

	_, err := eng.SettleContest(context.Background(), "match-1", domain.Outcome("MAYBE"))
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSettleContest_NoAcceptedBets(t *testing.T) {
	eng, _, _, _ := newFixture(t)

	summary, err := eng.SettleContest(context.Background(), "match-1", domain.OutcomeSideA)
	require.NoError(t, err)
	require.Zero(t, summary.BetsSettled)
	require.Zero(t, summary.PendingCancelled)
}
