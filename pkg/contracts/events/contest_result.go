package events

import "time"

// Evento emitido pelo fluxo administrativo quando o resultado de um
// confronto é validado. Dispara a liquidação no settlement-worker.
type ContestResult struct {
	ContestID string    `json:"contest_id"`
	Outcome   string    `json:"outcome"` // "A" | "B" | "DRAW"
	Ts        time.Time `json:"ts"`
}

// SettlementSummary resume uma liquidação concluída (publicado na auditoria).
type SettlementSummary struct {
	ContestID        string    `json:"contest_id"`
	Outcome          string    `json:"outcome"`
	BetsSettled      int       `json:"bets_settled"`
	PendingCancelled int       `json:"pending_cancelled"`
	TotalPotCents    int64     `json:"total_pot_cents"`
	CommissionCents  int64     `json:"commission_cents"`
	Ts               time.Time `json:"ts"`
}
