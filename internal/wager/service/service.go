// Package service implementa a máquina de estados de apostas peer-to-peer:
// criação, aceite, cancelamento e leituras. Cada transição roda em uma única
// unidade de trabalho atômica junto com as movimentações de carteira que a
// acompanham; efeitos colaterais (notificação, auditoria) acontecem depois
// do commit e nunca revertem a transição já efetivada.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wallet"
	"github.com/radieske/p2p-wager-platform/pkg/contracts/events"
)

// ContestProvider fornece o estado atual de um confronto (colaborador
// externo, somente leitura, consistente no momento da chamada).
type ContestProvider interface {
	GetContest(ctx context.Context, contestID string) (*domain.Contest, error)
}

// Notifier dispara notificações fire-and-forget pós-commit.
type Notifier interface {
	Notify(userID, kind string, payload any)
}

// Auditor registra transições para compliance, também best-effort.
type Auditor interface {
	Record(kind string, payload any)
}

// Params reúne os parâmetros de negócio da máquina de estados.
type Params struct {
	PreLockWindow time.Duration // janela antes do início sem novas apostas/aceites
	CancelWindow  time.Duration // janela de cancelamento unilateral do criador
	CommissionBps int64
	DrawRefundBps int64
	MaxRetries    int // retries automáticos para contenção transitória
}

// DefaultParams retorna os parâmetros padrão da plataforma.
func DefaultParams() Params {
	return Params{
		PreLockWindow: 30 * time.Minute,
		CancelWindow:  20 * time.Minute,
		CommissionBps: domain.DefaultCommissionBps,
		DrawRefundBps: domain.DefaultDrawRefundBps,
		MaxRetries:    1,
	}
}

// Service é a máquina de estados de apostas. Todas as dependências entram
// por construtor; não há registro global.
type Service struct {
	log      *zap.Logger
	store    repo.Store
	contests ContestProvider
	notifier Notifier
	audit    Auditor
	params   Params
	now      func() time.Time
}

// New instancia o serviço. notifier e audit podem ser nil (viram no-op).
func New(log *zap.Logger, store repo.Store, contests ContestProvider, notifier Notifier, audit Auditor, params Params) *Service {
	return &Service{
		log:      log,
		store:    store,
		contests: contests,
		notifier: notifier,
		audit:    audit,
		params:   params,
		now:      time.Now,
	}
}

// WithClock troca a fonte de tempo (testes).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Store expõe o store para colaboradores que compartilham a persistência
// (engine de liquidação, sweeper).
func (s *Service) Store() repo.Store { return s.store }

// execTx roda fn com no máximo params.MaxRetries repetições automáticas,
// apenas para contenção transitória; erros de negócio nunca são repetidos.
func (s *Service) execTx(ctx context.Context, fn func(uow repo.UnitOfWork) error) error {
	err := s.store.ExecTx(ctx, fn)
	for i := 0; i < s.params.MaxRetries && domain.Retryable(err); i++ {
		s.log.Warn("transient contention, retrying", zap.Error(err))
		err = s.store.ExecTx(ctx, fn)
	}
	return err
}

// Create cria uma aposta PENDING, travando o stake do criador em escrow na
// mesma transação. O criador ganha uma janela de cancelamento unilateral.
func (s *Service) Create(ctx context.Context, creatorID, contestID string, side domain.Side, amount int64) (*domain.Bet, error) {
	if !side.Valid() || amount <= 0 {
		return nil, domain.ErrInvalidState
	}

	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if contest.Status != domain.ContestScheduled {
		return nil, domain.ErrInvalidState
	}
	if !now.Add(s.params.PreLockWindow).Before(contest.ScheduledStart) {
		return nil, domain.ErrInvalidState
	}

	deadline := now.Add(s.params.CancelWindow)
	bet := &domain.Bet{
		ID:                   uuid.NewString(),
		ContestID:            contestID,
		CreatorID:            creatorID,
		ChosenSide:           side,
		AmountCents:          amount,
		Status:               domain.StatusPending,
		CancellationDeadline: &deadline,
	}

	err = s.execTx(ctx, func(uow repo.UnitOfWork) error {
		dup, err := uow.HasPendingOnSide(ctx, creatorID, contestID, side)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateWager
		}
		if err := wallet.Lock(ctx, uow, creatorID, amount, bet.ID); err != nil {
			return err
		}
		return uow.InsertBet(ctx, bet)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit("bet.created", bet, events.BetEvent{
		BetID: bet.ID, ContestID: contestID, UserID: creatorID,
		Kind: "BET_CREATED", Status: string(bet.Status), AmountCents: amount, Ts: now,
	})
	return bet, nil
}

// Accept casa uma aposta PENDING: trava o stake do aceitante (lado oposto),
// encerra o direito de cancelamento do criador e muda o status para
// ACCEPTED. Dois aceites concorrentes sobre a mesma aposta são serializados
// pelo lock de linha: exatamente um vence, o outro observa InvalidState.
func (s *Service) Accept(ctx context.Context, acceptorID, betID string) (*domain.Bet, error) {
	contestOpen := func(contestID string) error {
		contest, err := s.contests.GetContest(ctx, contestID)
		if err != nil {
			return err
		}
		if contest.Status != domain.ContestScheduled {
			return domain.ErrTooLateToAccept
		}
		if !s.now().Add(s.params.PreLockWindow).Before(contest.ScheduledStart) {
			return domain.ErrTooLateToAccept
		}
		return nil
	}

	var bet *domain.Bet
	err := s.execTx(ctx, func(uow repo.UnitOfWork) error {
		var err error
		bet, err = uow.BetForUpdate(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status != domain.StatusPending {
			return domain.ErrInvalidState
		}
		if bet.CreatorID == acceptorID {
			return domain.ErrSelfMatch
		}
		if err := contestOpen(bet.ContestID); err != nil {
			return err
		}
		if err := wallet.Lock(ctx, uow, acceptorID, bet.AmountCents, bet.ID); err != nil {
			return err
		}
		now := s.now()
		bet.AcceptorID = acceptorID
		bet.Status = domain.StatusAccepted
		bet.AcceptedAt = &now
		bet.CancellationDeadline = nil
		return uow.SaveBet(ctx, bet)
	})
	if err != nil {
		return nil, err
	}

	for _, userID := range []string{bet.CreatorID, bet.AcceptorID} {
		s.afterCommit("bet.accepted", bet, events.BetEvent{
			BetID: bet.ID, ContestID: bet.ContestID, UserID: userID,
			Kind: "BET_ACCEPTED", Status: string(bet.Status), AmountCents: bet.AmountCents, Ts: s.now(),
		})
	}
	return bet, nil
}

// Cancel cancela uma aposta PENDING ou ACCEPTED e devolve o escrow de cada
// parte. É o único caminho de "devolver fundos em escrow": usuários, sweeper
// e a limpeza pós-resultado passam todos por aqui. adminOverride dispensa a
// janela de cancelamento e a checagem de início do confronto.
func (s *Service) Cancel(ctx context.Context, requesterID, betID string, adminOverride bool) (*domain.Bet, error) {
	var bet *domain.Bet
	err := s.execTx(ctx, func(uow repo.UnitOfWork) error {
		var err error
		bet, err = uow.BetForUpdate(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status.Terminal() {
			return domain.ErrInvalidState
		}
		if !adminOverride && !bet.IsParty(requesterID) {
			return domain.ErrForbidden
		}

		if !adminOverride {
			contest, err := s.contests.GetContest(ctx, bet.ContestID)
			if err != nil {
				return err
			}
			if contest.Status != domain.ContestScheduled || !s.now().Before(contest.ScheduledStart) {
				return domain.ErrContestAlreadyStarted
			}
			if bet.Status == domain.StatusPending && requesterID == bet.CreatorID {
				if bet.CancellationDeadline == nil || s.now().After(*bet.CancellationDeadline) {
					return domain.ErrCancellationWindowExpired
				}
			}
		}

		for _, userID := range bet.Parties() {
			if err := wallet.UnlockRefund(ctx, uow, userID, bet.AmountCents, bet.ID); err != nil {
				return err
			}
		}

		now := s.now()
		bet.Status = domain.StatusCancelled
		bet.CancelledAt = &now
		bet.CancellationDeadline = nil
		return uow.SaveBet(ctx, bet)
	})
	if err != nil {
		return nil, err
	}

	recipients := []string{bet.CreatorID}
	if bet.AcceptorID != "" {
		recipients = append(recipients, bet.AcceptorID)
	}
	for _, userID := range recipients {
		s.afterCommit("bet.cancelled", bet, events.BetEvent{
			BetID: bet.ID, ContestID: bet.ContestID, UserID: userID,
			Kind: "BET_CANCELLED", Status: string(bet.Status), AmountCents: bet.AmountCents, Ts: s.now(),
		})
	}
	return bet, nil
}

// ClearLapsedDeadline limpa o prazo de cancelamento de uma aposta PENDING
// cuja janela expirou. Informacional: não cancela a aposta, apenas remove o
// direito unilateral do criador. No-op se a janela ainda vale.
func (s *Service) ClearLapsedDeadline(ctx context.Context, betID string) error {
	return s.execTx(ctx, func(uow repo.UnitOfWork) error {
		bet, err := uow.BetForUpdate(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status != domain.StatusPending || bet.CancellationDeadline == nil {
			return nil
		}
		if !s.now().After(*bet.CancellationDeadline) {
			return nil
		}
		bet.CancellationDeadline = nil
		return uow.SaveBet(ctx, bet)
	})
}

// GetBet retorna uma aposta.
func (s *Service) GetBet(ctx context.Context, betID string) (*domain.Bet, error) {
	return s.store.Bet(ctx, betID)
}

// ListBets lista apostas pelos filtros informados.
func (s *Service) ListBets(ctx context.Context, f repo.BetFilter) ([]*domain.Bet, error) {
	return s.store.ListBets(ctx, f)
}

// WalletBalance retorna a carteira do usuário, criando-a no primeiro acesso.
func (s *Service) WalletBalance(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.store.GetOrCreateWallet(ctx, userID)
}

// afterCommit despacha notificação e auditoria após o commit. Best-effort:
// qualquer falha fica por conta do próprio colaborador, nunca volta aqui.
func (s *Service) afterCommit(auditKind string, bet *domain.Bet, ev events.BetEvent) {
	if s.notifier != nil {
		s.notifier.Notify(ev.UserID, ev.Kind, ev)
	}
	if s.audit != nil {
		s.audit.Record(auditKind, events.AuditEvent{
			Kind: auditKind, BetID: bet.ID, Actor: ev.UserID, Payload: ev, Ts: ev.Ts,
		})
	}
}
