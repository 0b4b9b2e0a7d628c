// Package settlement liquida confrontos decididos: calcula payouts e
// comissão sobre todas as apostas ACCEPTED do confronto e aplica tudo em uma
// única transação. Reexecutar a liquidação de um confronto já liquidado é
// no-op: apostas em estado terminal não são selecionadas de novo.
package settlement

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/shared/metrics"
	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
	"github.com/radieske/p2p-wager-platform/internal/wallet"
	"github.com/radieske/p2p-wager-platform/pkg/contracts/events"
)

// Engine aplica a liquidação de um confronto sobre o mesmo store das demais
// transições. Apostas PENDING do confronto decidido não entram na
// liquidação: são canceladas pelo caminho único de devolução de escrow.
type Engine struct {
	log      *zap.Logger
	store    repo.Store
	bets     *service.Service
	notifier service.Notifier
	audit    service.Auditor
	params   service.Params
	now      func() time.Time
}

// New instancia a engine. notifier e audit podem ser nil.
func New(log *zap.Logger, store repo.Store, bets *service.Service, notifier service.Notifier, audit service.Auditor, params service.Params) *Engine {
	return &Engine{
		log:      log,
		store:    store,
		bets:     bets,
		notifier: notifier,
		audit:    audit,
		params:   params,
		now:      time.Now,
	}
}

// WithClock troca a fonte de tempo (testes).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SettleContest liquida todas as apostas ACCEPTED do confronto para o
// resultado validado. A transação cobre todas as carteiras afetadas, todos
// os status e o registro de comissão; aplicação parcial não existe — em caso
// de falha tudo é revertido e a operação pode ser repetida com segurança.
func (e *Engine) SettleContest(ctx context.Context, contestID string, outcome domain.Outcome) (*events.SettlementSummary, error) {
	if !outcome.Valid() {
		return nil, domain.ErrInvalidState
	}

	var plan domain.Plan
	var settled []*domain.Bet
	err := e.store.ExecTx(ctx, func(uow repo.UnitOfWork) error {
		bets, err := uow.AcceptedByContestForUpdate(ctx, contestID)
		if err != nil {
			return err
		}
		settled = bets
		if len(bets) == 0 {
			return nil // nada aceito (ou já liquidado): no-op
		}

		plan = domain.ComputePlan(bets, outcome, e.params.CommissionBps, e.params.DrawRefundBps)

		// Pré-trava as carteiras em ordem determinística para evitar
		// deadlock entre liquidações e transições concorrentes.
		for _, userID := range affectedUsers(bets) {
			if _, err := uow.WalletForUpdate(ctx, userID); err != nil {
				return err
			}
		}

		now := e.now()
		status := make(map[string]domain.BetStatus, len(bets))
		payout := make(map[string]int64, len(bets))

		for _, t := range plan.Transfers {
			if t.WinnerID != "" {
				if err := wallet.ReleaseStake(ctx, uow, t.WinnerID, t.StakeCents, t.BetID); err != nil {
					return err
				}
				if err := wallet.Credit(ctx, uow, t.WinnerID, t.PayoutCents, t.BetID, true); err != nil {
					return err
				}
				payout[t.BetID] = t.PayoutCents
				if t.CreatorWon {
					status[t.BetID] = domain.StatusWon
				} else {
					status[t.BetID] = domain.StatusLost
				}
			} else if _, ok := status[t.BetID]; !ok {
				status[t.BetID] = domain.StatusLost
			}
			if t.LoserID != "" {
				if err := wallet.UnlockForfeit(ctx, uow, t.LoserID, t.StakeCents, t.BetID); err != nil {
					return err
				}
			}
		}

		for _, r := range plan.Refunds {
			if err := wallet.ReleaseStake(ctx, uow, r.UserID, r.StakeCents, r.BetID); err != nil {
				return err
			}
			if err := wallet.Credit(ctx, uow, r.UserID, r.RefundCents, r.BetID, false); err != nil {
				return err
			}
			status[r.BetID] = domain.StatusRefunded
			payout[r.BetID] = r.RefundCents
		}

		for _, b := range bets {
			next := status[b.ID]
			if !b.Status.CanTransition(next) {
				return domain.ErrInvalidState
			}
			b.Status = next
			b.SettledAt = &now
			if p, ok := payout[b.ID]; ok {
				b.ActualPayoutCents = &p
			}
			if err := uow.SaveBet(ctx, b); err != nil {
				return err
			}
		}

		return uow.InsertCommission(ctx, &domain.CommissionRecord{
			ID:              uuid.NewString(),
			ContestID:       contestID,
			Outcome:         outcome,
			TotalPotCents:   plan.TotalPotCents,
			CommissionCents: plan.CommissionCents,
		})
	})
	if err != nil {
		return nil, err
	}

	// Apostas PENDING de um confronto decidido nunca entraram em escrow com
	// contraparte: caem no mesmo caminho de cancelamento/estorno.
	cancelled := e.cancelPending(ctx, contestID)

	summary := &events.SettlementSummary{
		ContestID:        contestID,
		Outcome:          string(outcome),
		BetsSettled:      len(settled),
		PendingCancelled: cancelled,
		TotalPotCents:    plan.TotalPotCents,
		CommissionCents:  plan.CommissionCents,
		Ts:               e.now(),
	}
	e.notifyParties(settled)
	if e.audit != nil {
		e.audit.Record("contest.settled", events.AuditEvent{Kind: "contest.settled", Payload: summary, Ts: summary.Ts})
	}
	return summary, nil
}

func (e *Engine) cancelPending(ctx context.Context, contestID string) int {
	pending, err := e.store.ListBets(ctx, repo.BetFilter{ContestID: contestID, Status: domain.StatusPending})
	if err != nil {
		e.log.Error("list pending after settlement", zap.String("contestId", contestID), zap.Error(err))
		return 0
	}
	var n int
	for _, b := range pending {
		if _, err := e.bets.Cancel(ctx, "settlement", b.ID, true); err != nil {
			e.log.Error("cancel pending after settlement", zap.String("betId", b.ID), zap.Error(err))
			continue
		}
		metrics.BetsCancelledTotal.WithLabelValues("settlement").Inc()
		n++
	}
	return n
}

func (e *Engine) notifyParties(settled []*domain.Bet) {
	if e.notifier == nil {
		return
	}
	for _, b := range settled {
		for _, userID := range []string{b.CreatorID, b.AcceptorID} {
			kind := "BET_LOST"
			switch {
			case b.Status == domain.StatusRefunded:
				kind = "BET_REFUNDED"
			case b.Status == domain.StatusWon && userID == b.CreatorID:
				kind = "BET_WON"
			case b.Status == domain.StatusLost && userID == b.AcceptorID:
				kind = "BET_WON"
			}
			ev := events.BetEvent{
				BetID: b.ID, ContestID: b.ContestID, UserID: userID,
				Kind: kind, Status: string(b.Status), AmountCents: b.AmountCents, Ts: e.now(),
			}
			if b.ActualPayoutCents != nil && kind != "BET_LOST" {
				ev.PayoutCents = *b.ActualPayoutCents
			}
			e.notifier.Notify(userID, kind, ev)
		}
	}
}

func affectedUsers(bets []*domain.Bet) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range bets {
		for _, u := range []string{b.CreatorID, b.AcceptorID} {
			if u != "" && !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	sort.Strings(out)
	return out
}
