package events

import "time"

// BetEvent é publicado após cada transição de estado que afeta saldo ou
// status visível ao usuário. Consumido pelo pipeline de notificações.
type BetEvent struct {
	BetID       string    `json:"bet_id"`
	ContestID   string    `json:"contest_id"`
	UserID      string    `json:"user_id"` // destinatário da notificação
	Kind        string    `json:"kind"`    // BET_CREATED | BET_ACCEPTED | BET_CANCELLED | BET_WON | BET_LOST | BET_REFUNDED
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	PayoutCents int64     `json:"payout_cents,omitempty"`
	Ts          time.Time `json:"ts"`
}

// AuditEvent é o registro estruturado de toda transição, para compliance.
// Best-effort: falha de publicação é logada, nunca propagada.
type AuditEvent struct {
	Kind    string    `json:"kind"`
	BetID   string    `json:"bet_id,omitempty"`
	Actor   string    `json:"actor,omitempty"`
	Payload any       `json:"payload,omitempty"`
	Ts      time.Time `json:"ts"`
}
