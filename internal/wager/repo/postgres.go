package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
)

// Postgres implementa Store sobre database/sql com locks pessimistas de
// linha (SELECT ... FOR UPDATE). Uma transação serializável por transição.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do store Postgres.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ExecTx abre a transação, executa fn e comita. Qualquer erro descarta
// todas as mutações. Conflitos de serialização e de lock viram
// domain.ErrTransientContention para o chamador decidir o retry.
func (p *Postgres) ExecTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapPQErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapPQErr(err)
	}
	return nil
}

// mapPQErr traduz falhas de serialização/deadlock/lock do Postgres no erro
// retryável do domínio; os demais erros passam intactos.
func mapPQErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %v", domain.ErrTransientContention, err)
		}
	}
	return err
}

const betColumns = `id, contest_id, creator_id, COALESCE(acceptor_id,''), chosen_side,
	amount_cents, status, cancellation_deadline, accepted_at, cancelled_at, settled_at,
	actual_payout_cents, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanBet(r rowScanner) (*domain.Bet, error) {
	var b domain.Bet
	var deadline, acceptedAt, cancelledAt, settledAt sql.NullTime
	var payout sql.NullInt64
	err := r.Scan(&b.ID, &b.ContestID, &b.CreatorID, &b.AcceptorID, &b.ChosenSide,
		&b.AmountCents, &b.Status, &deadline, &acceptedAt, &cancelledAt, &settledAt,
		&payout, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		b.CancellationDeadline = &deadline.Time
	}
	if acceptedAt.Valid {
		b.AcceptedAt = &acceptedAt.Time
	}
	if cancelledAt.Valid {
		b.CancelledAt = &cancelledAt.Time
	}
	if settledAt.Valid {
		b.SettledAt = &settledAt.Time
	}
	if payout.Valid {
		b.ActualPayoutCents = &payout.Int64
	}
	return &b, nil
}

// Bet retorna uma aposta sem lock (leitura de API).
func (p *Postgres) Bet(ctx context.Context, betID string) (*domain.Bet, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1`, betID)
	b, err := scanBet(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// ListBets lista apostas com filtros opcionais de usuário, confronto e status.
func (p *Postgres) ListBets(ctx context.Context, f BetFilter) ([]*domain.Bet, error) {
	q := `SELECT ` + betColumns + ` FROM bets WHERE 1=1`
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += ` AND (creator_id=$` + strconv.Itoa(len(args)) + ` OR acceptor_id=$` + strconv.Itoa(len(args)) + `)`
	}
	if f.ContestID != "" {
		args = append(args, f.ContestID)
		q += ` AND contest_id=$` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += ` AND status=$` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetOrCreateWallet retorna a carteira do usuário, criando-a zerada se não
// existir (mesma semântica do primeiro toque do wallet-service).
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w *domain.Wallet
	err := p.ExecTx(ctx, func(uow UnitOfWork) error {
		var err error
		w, err = uow.WalletForUpdate(ctx, userID)
		return err
	})
	return w, err
}

// pgTx é a UnitOfWork sobre uma transação aberta.
type pgTx struct{ tx *sql.Tx }

const walletColumns = `id, user_id, balance_cents, locked_cents, total_won_cents, total_lost_cents, version, created_at, updated_at`

func (t *pgTx) WalletForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := t.tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&w.ID, &w.UserID, &w.BalanceCents, &w.LockedCents, &w.TotalWonCents,
			&w.TotalLostCents, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		w = domain.Wallet{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		_, err = t.tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, locked_cents, total_won_cents, total_lost_cents, version)
			 VALUES($1,$2,0,0,0,0,1)`, w.ID, userID)
		if err != nil {
			return nil, err
		}
		w.Version = 1
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (t *pgTx) SaveWallet(ctx context.Context, w *domain.Wallet) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance_cents=$1, locked_cents=$2, total_won_cents=$3, total_lost_cents=$4,
		    version=version+1, updated_at=NOW()
		WHERE id=$5`,
		w.BalanceCents, w.LockedCents, w.TotalWonCents, w.TotalLostCents, w.ID)
	return err
}

func (t *pgTx) AppendLedger(ctx context.Context, e *domain.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO wager_ledger(id, wallet_id, user_id, bet_id, op, amount_cents, balance_after, locked_after, description)
		VALUES($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9)`,
		e.ID, e.WalletID, e.UserID, e.BetID, string(e.Op), e.AmountCents,
		e.BalanceAfter, e.LockedAfter, e.Description)
	return err
}

func (t *pgTx) BetForUpdate(ctx context.Context, betID string) (*domain.Bet, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1 FOR UPDATE`, betID)
	b, err := scanBet(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return b, err
}

func (t *pgTx) AcceptedByContestForUpdate(ctx context.Context, contestID string) ([]*domain.Bet, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE contest_id=$1 AND status='ACCEPTED' ORDER BY id FOR UPDATE`,
		contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *pgTx) HasPendingOnSide(ctx context.Context, creatorID, contestID string, side domain.Side) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `
		SELECT 1 FROM bets
		WHERE creator_id=$1 AND contest_id=$2 AND chosen_side=$3 AND status='PENDING'
		LIMIT 1`, creatorID, contestID, string(side)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (t *pgTx) InsertBet(ctx context.Context, b *domain.Bet) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bets(id, contest_id, creator_id, chosen_side, amount_cents, status, cancellation_deadline)
		VALUES($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.ContestID, b.CreatorID, string(b.ChosenSide), b.AmountCents, string(b.Status), b.CancellationDeadline)
	return err
}

func (t *pgTx) SaveBet(ctx context.Context, b *domain.Bet) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE bets
		SET acceptor_id=NULLIF($1,''), status=$2, cancellation_deadline=$3,
		    accepted_at=$4, cancelled_at=$5, settled_at=$6, actual_payout_cents=$7,
		    updated_at=NOW()
		WHERE id=$8`,
		b.AcceptorID, string(b.Status), b.CancellationDeadline,
		b.AcceptedAt, b.CancelledAt, b.SettledAt, b.ActualPayoutCents, b.ID)
	return err
}

func (t *pgTx) InsertCommission(ctx context.Context, c *domain.CommissionRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO commission_records(id, contest_id, outcome, total_pot_cents, commission_cents)
		VALUES($1,$2,$3,$4,$5)`,
		c.ID, c.ContestID, string(c.Outcome), c.TotalPotCents, c.CommissionCents)
	return err
}
