package dto

import (
	"time"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
)

type BetResponse struct {
	BetID                string     `json:"betId"`
	ContestID            string     `json:"contestId"`
	CreatorID            string     `json:"creatorId"`
	AcceptorID           string     `json:"acceptorId,omitempty"`
	Side                 string     `json:"side"`
	AmountCents          int64      `json:"amount_cents"`
	Status               string     `json:"status"`
	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`
	AcceptedAt           *time.Time `json:"accepted_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	SettledAt            *time.Time `json:"settled_at,omitempty"`
	ActualPayoutCents    *int64     `json:"actual_payout_cents,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// FromBet converte o modelo de domínio para a resposta da API.
func FromBet(b *domain.Bet) BetResponse {
	return BetResponse{
		BetID:                b.ID,
		ContestID:            b.ContestID,
		CreatorID:            b.CreatorID,
		AcceptorID:           b.AcceptorID,
		Side:                 string(b.ChosenSide),
		AmountCents:          b.AmountCents,
		Status:               string(b.Status),
		CancellationDeadline: b.CancellationDeadline,
		AcceptedAt:           b.AcceptedAt,
		CancelledAt:          b.CancelledAt,
		SettledAt:            b.SettledAt,
		ActualPayoutCents:    b.ActualPayoutCents,
		CreatedAt:            b.CreatedAt,
	}
}

type WalletResponse struct {
	UserID         string `json:"userId"`
	WalletID       string `json:"walletId"`
	BalanceCents   int64  `json:"balance_cents"`
	LockedCents    int64  `json:"locked_cents"`
	TotalWonCents  int64  `json:"total_won_cents"`
	TotalLostCents int64  `json:"total_lost_cents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
