package domain

import "time"

// Side identifica o lado escolhido de um confronto.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Valid informa se o lado é um dos dois aceitos.
func (s Side) Valid() bool { return s == SideA || s == SideB }

// Opposite retorna o lado contrário (o lado implícito do aceitante).
func (s Side) Opposite() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Outcome é o resultado validado de um confronto.
type Outcome string

const (
	OutcomeSideA Outcome = "A"
	OutcomeSideB Outcome = "B"
	OutcomeDraw  Outcome = "DRAW"
)

func (o Outcome) Valid() bool {
	return o == OutcomeSideA || o == OutcomeSideB || o == OutcomeDraw
}

// BetStatus é o estado de uma aposta na máquina de estados.
// PENDING -> {ACCEPTED, CANCELLED}
// ACCEPTED -> {WON, LOST, REFUNDED, CANCELLED}
// WON, LOST, REFUNDED e CANCELLED são terminais.
type BetStatus string

const (
	StatusPending   BetStatus = "PENDING"
	StatusAccepted  BetStatus = "ACCEPTED"
	StatusWon       BetStatus = "WON"
	StatusLost      BetStatus = "LOST"
	StatusRefunded  BetStatus = "REFUNDED"
	StatusCancelled BetStatus = "CANCELLED"
)

// Terminal informa se o status não admite mais transições.
func (s BetStatus) Terminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// CanTransition valida uma transição da máquina de estados.
func (s BetStatus) CanTransition(to BetStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusAccepted || to == StatusCancelled
	case StatusAccepted:
		return to == StatusWon || to == StatusLost || to == StatusRefunded || to == StatusCancelled
	}
	return false
}

// Bet é uma aposta peer-to-peer: criada por um usuário e, opcionalmente,
// aceita por um segundo usuário apostando o mesmo valor no lado oposto.
// Nunca é apagada fisicamente; estados terminais são definitivos.
type Bet struct {
	ID                   string
	ContestID            string
	CreatorID            string
	AcceptorID           string // vazio enquanto PENDING
	ChosenSide           Side   // lado do criador
	AmountCents          int64
	Status               BetStatus
	CancellationDeadline *time.Time // presente apenas enquanto PENDING
	AcceptedAt           *time.Time
	CancelledAt          *time.Time
	SettledAt            *time.Time
	ActualPayoutCents    *int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Parties retorna os usuários com fundos presos pela aposta no estado atual.
func (b *Bet) Parties() []string {
	if b.Status == StatusAccepted && b.AcceptorID != "" {
		return []string{b.CreatorID, b.AcceptorID}
	}
	return []string{b.CreatorID}
}

// IsParty informa se o usuário é criador ou aceitante da aposta.
func (b *Bet) IsParty(userID string) bool {
	return userID == b.CreatorID || (b.AcceptorID != "" && userID == b.AcceptorID)
}
