package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgres(db), mock
}

func betRows(b *domain.Bet) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "contest_id", "creator_id", "acceptor_id", "chosen_side",
		"amount_cents", "status", "cancellation_deadline", "accepted_at",
		"cancelled_at", "settled_at", "actual_payout_cents", "created_at", "updated_at",
	})
	rows.AddRow(b.ID, b.ContestID, b.CreatorID, b.AcceptorID, string(b.ChosenSide),
		b.AmountCents, string(b.Status), nullTime(b.CancellationDeadline), nullTime(b.AcceptedAt),
		nullTime(b.CancelledAt), nullTime(b.SettledAt), nullInt(b.ActualPayoutCents),
		b.CreatedAt, b.UpdatedAt)
	return rows
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func TestExecTx_Commit(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO commission_records`).
		WithArgs("c1", "match-1", "A", int64(2000), int64(200)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		return uow.InsertCommission(context.Background(), &domain.CommissionRecord{
			ID: "c1", ContestID: "match-1", Outcome: domain.OutcomeSideA,
			TotalPotCents: 2000, CommissionCents: 200,
		})
	})
	require.NoError(t, err)
}

func TestExecTx_RollbackOnError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestExecTx_SerializationFailureIsTransient(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE user_id=\$1 FOR UPDATE`).
		WithArgs("alice").
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		_, err := uow.WalletForUpdate(context.Background(), "alice")
		return err
	})
	require.ErrorIs(t, err, domain.ErrTransientContention)
	require.True(t, domain.Retryable(err))
}

func TestExecTx_LockNotAvailableIsTransient(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM bets WHERE id=\$1 FOR UPDATE`).
		WithArgs("b1").
		WillReturnError(&pq.Error{Code: "55P03"})
	mock.ExpectRollback()

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		_, err := uow.BetForUpdate(context.Background(), "b1")
		return err
	})
	require.ErrorIs(t, err, domain.ErrTransientContention)
}

func TestExecTx_CommitConflictIsTransient(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error { return nil })
	require.ErrorIs(t, err, domain.ErrTransientContention)
}

func TestWalletForUpdate_CreatesOnMissingRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE user_id=\$1 FOR UPDATE`).
		WithArgs("newcomer").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectExec(`INSERT INTO wallets`).
		WithArgs(sqlmock.AnyArg(), "newcomer").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var w *domain.Wallet
	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		var err error
		w, err = uow.WalletForUpdate(context.Background(), "newcomer")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "newcomer", w.UserID)
	require.Zero(t, w.BalanceCents)
	require.Zero(t, w.LockedCents)
	require.Equal(t, int64(1), w.Version)
	require.NotEmpty(t, w.ID)
}

func TestBet_NotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT .+ FROM bets WHERE id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := store.Bet(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBet_ScansNullableFields(t *testing.T) {
	store, mock := newMock(t)

	deadline := time.Date(2025, 6, 1, 12, 20, 0, 0, time.UTC)
	bet := &domain.Bet{
		ID: "b1", ContestID: "match-1", CreatorID: "alice",
		ChosenSide: domain.SideA, AmountCents: 1000, Status: domain.StatusPending,
		CancellationDeadline: &deadline,
		CreatedAt:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery(`SELECT .+ FROM bets WHERE id=\$1`).
		WithArgs("b1").
		WillReturnRows(betRows(bet))

	got, err := store.Bet(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, "b1", got.ID)
	require.Equal(t, domain.StatusPending, got.Status)
	require.NotNil(t, got.CancellationDeadline)
	require.True(t, deadline.Equal(*got.CancellationDeadline))
	require.Nil(t, got.AcceptedAt)
	require.Nil(t, got.ActualPayoutCents)
}

func TestListBets_BuildsFilters(t *testing.T) {
	store, mock := newMock(t)

	bet := &domain.Bet{
		ID: "b1", ContestID: "match-1", CreatorID: "alice",
		ChosenSide: domain.SideA, AmountCents: 1000, Status: domain.StatusPending,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(`SELECT .+ FROM bets WHERE 1=1 AND \(creator_id=\$1 OR acceptor_id=\$1\) AND contest_id=\$2 AND status=\$3 ORDER BY created_at DESC LIMIT \$4`).
		WithArgs("alice", "match-1", "PENDING", 10).
		WillReturnRows(betRows(bet))

	out, err := store.ListBets(context.Background(), BetFilter{
		UserID: "alice", ContestID: "match-1", Status: domain.StatusPending, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "b1", out[0].ID)
}

func TestListBets_NoFilters(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT .+ FROM bets WHERE 1=1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(nil))

	out, err := store.ListBets(context.Background(), BetFilter{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestHasPendingOnSide(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM bets`).
		WithArgs("alice", "match-1", "A").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM bets`).
		WithArgs("alice", "match-2", "A").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		dup, err := uow.HasPendingOnSide(context.Background(), "alice", "match-1", domain.SideA)
		require.NoError(t, err)
		require.True(t, dup)

		dup, err = uow.HasPendingOnSide(context.Background(), "alice", "match-2", domain.SideA)
		require.NoError(t, err)
		require.False(t, dup)
		return nil
	})
	require.NoError(t, err)
}

func TestAcceptedByContestForUpdate(t *testing.T) {
	store, mock := newMock(t)

	acceptedAt := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	bet := &domain.Bet{
		ID: "b1", ContestID: "match-1", CreatorID: "alice", AcceptorID: "bob",
		ChosenSide: domain.SideA, AmountCents: 1000, Status: domain.StatusAccepted,
		AcceptedAt: &acceptedAt, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM bets WHERE contest_id=\$1 AND status='ACCEPTED' ORDER BY id FOR UPDATE`).
		WithArgs("match-1").
		WillReturnRows(betRows(bet))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		bets, err := uow.AcceptedByContestForUpdate(context.Background(), "match-1")
		require.NoError(t, err)
		require.Len(t, bets, 1)
		require.Equal(t, "bob", bets[0].AcceptorID)
		require.NotNil(t, bets[0].AcceptedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestSaveBet_BindsNullables(t *testing.T) {
	store, mock := newMock(t)

	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	bet := &domain.Bet{
		ID: "b1", ContestID: "match-1", CreatorID: "alice", AcceptorID: "bob",
		ChosenSide: domain.SideA, AmountCents: 1000, Status: domain.StatusAccepted,
		AcceptedAt: &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bets`).
		WithArgs("bob", "ACCEPTED", nil, bet.AcceptedAt, nil, nil, nil, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(uow UnitOfWork) error {
		return uow.SaveBet(context.Background(), bet)
	})
	require.NoError(t, err)
}
