package domain

import "time"

// Wallet guarda o saldo disponível e o saldo bloqueado (escrow) de um usuário.
// Mutada somente pelas primitivas do ledger, sempre dentro da mesma transação
// da operação de aposta/liquidação que a originou.
type Wallet struct {
	ID             string
	UserID         string
	BalanceCents   int64 // saldo disponível, nunca negativo
	LockedCents    int64 // saldo em escrow, nunca negativo
	TotalWonCents  int64
	TotalLostCents int64
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LedgerOp é o tipo de movimentação registrada no ledger de carteira.
type LedgerOp string

const (
	OpLock       LedgerOp = "LOCK"       // stake saiu do saldo e entrou em escrow
	OpRefund     LedgerOp = "REFUND"     // escrow devolvido ao saldo
	OpForfeit    LedgerOp = "FORFEIT"    // escrow perdido (lado perdedor)
	OpRelease    LedgerOp = "RELEASE"    // escrow liberado sem retorno (stake do vencedor)
	OpPayout     LedgerOp = "PAYOUT"     // crédito do prêmio líquido
	OpDrawRefund LedgerOp = "DRAW_REFUND"
)

// LedgerEntry é o registro imutável de uma movimentação de fundos.
// Os campos *After são fotografias pós-operação, para reconciliação.
type LedgerEntry struct {
	ID           string
	WalletID     string
	UserID       string
	BetID        string // vazio para movimentações sem aposta associada
	Op           LedgerOp
	AmountCents  int64
	BalanceAfter int64
	LockedAfter  int64
	Description  string
	CreatedAt    time.Time
}

// CommissionRecord liga um confronto liquidado à comissão retida.
// Criado uma única vez por liquidação que produz comissão.
type CommissionRecord struct {
	ID              string
	ContestID       string
	Outcome         Outcome
	TotalPotCents   int64
	CommissionCents int64
	CreatedAt       time.Time
}

// ContestStatus é o estado de um confronto, mantido por fluxo externo.
type ContestStatus string

const (
	ContestScheduled ContestStatus = "SCHEDULED"
	ContestOngoing   ContestStatus = "ONGOING"
	ContestFinished  ContestStatus = "FINISHED"
	ContestCancelled ContestStatus = "CANCELLED"
)

// Contest é o confronto esportivo sobre o qual as apostas são feitas.
// Somente leitura para este núcleo; o resultado é validado externamente.
type Contest struct {
	ID             string
	SideA          string
	SideB          string
	Status         ContestStatus
	ScheduledStart time.Time
	Outcome        Outcome // vazio até o resultado ser validado
}
