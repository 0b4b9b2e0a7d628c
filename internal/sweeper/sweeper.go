// Package sweeper varre periodicamente as apostas PENDING: cancela e
// estorna as que ficaram sem aceite com o confronto próximo demais (ou já
// iniciado) e limpa prazos de cancelamento vencidos. Usa exatamente o mesmo
// caminho de cancelamento das requisições de usuário.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
)

// Bets é o recorte do serviço de apostas que o sweeper usa.
type Bets interface {
	ListBets(ctx context.Context, f repo.BetFilter) ([]*domain.Bet, error)
	Cancel(ctx context.Context, requesterID, betID string, adminOverride bool) (*domain.Bet, error)
	ClearLapsedDeadline(ctx context.Context, betID string) error
}

// SweeperActor identifica o sweeper nos registros de cancelamento.
const SweeperActor = "expiry-sweeper"

// Sweeper executa a varredura em intervalo fixo. Falha em uma aposta não
// aborta o lote: cada aposta é processada de forma independente e erros são
// apenas logados e contados.
type Sweeper struct {
	Log           *zap.Logger
	Bets          Bets
	Contests      service.ContestProvider
	PreLockWindow time.Duration
	Interval      time.Duration
	Now           func() time.Time

	OnCancelled func()       // métricas
	OnCleared   func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run dispara SweepOnce a cada Interval até o contexto ser cancelado.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cancelled, cleared := s.SweepOnce(ctx)
			if cancelled > 0 || cleared > 0 {
				s.Log.Info("sweep finished",
					zap.Int("cancelled", cancelled),
					zap.Int("deadlinesCleared", cleared),
				)
			}
		}
	}
}

// SweepOnce processa todas as apostas PENDING uma vez e retorna quantas
// foram canceladas e quantos prazos foram limpos.
func (s *Sweeper) SweepOnce(ctx context.Context) (cancelled, cleared int) {
	now := s.now()
	pending, err := s.Bets.ListBets(ctx, repo.BetFilter{Status: domain.StatusPending})
	if err != nil {
		s.Log.Error("list pending bets", zap.Error(err))
		s.emitError("list")
		return 0, 0
	}

	for _, bet := range pending {
		contest, err := s.Contests.GetContest(ctx, bet.ContestID)
		if err != nil {
			s.Log.Error("get contest", zap.String("betId", bet.ID), zap.String("contestId", bet.ContestID), zap.Error(err))
			s.emitError("contest")
			continue
		}

		// Confronto a menos de uma pré-janela do início, já iniciado ou fora
		// de SCHEDULED: a aposta não pode mais ser aceita, devolve o escrow.
		if contest.Status != domain.ContestScheduled || !now.Add(s.PreLockWindow).Before(contest.ScheduledStart) {
			if _, err := s.Bets.Cancel(ctx, SweeperActor, bet.ID, true); err != nil {
				s.Log.Error("sweep cancel", zap.String("betId", bet.ID), zap.Error(err))
				s.emitError("cancel")
				continue
			}
			cancelled++
			if s.OnCancelled != nil {
				s.OnCancelled()
			}
			continue
		}

		// Janela de cancelamento vencida: só limpa o prazo; o vencimento não
		// cancela a aposta, apenas encerra o direito unilateral do criador.
		if bet.CancellationDeadline != nil && now.After(*bet.CancellationDeadline) {
			if err := s.Bets.ClearLapsedDeadline(ctx, bet.ID); err != nil {
				s.Log.Error("clear deadline", zap.String("betId", bet.ID), zap.Error(err))
				s.emitError("deadline")
				continue
			}
			cleared++
			if s.OnCleared != nil {
				s.OnCleared()
			}
		}
	}
	return cancelled, cleared
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sweeper) emitError(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}
