package domain

import "math/big"

// Parâmetros padrão de liquidação, em basis points (1/100 de %).
const (
	DefaultCommissionBps = 1000 // 10% do pote
	DefaultDrawRefundBps = 9750 // 97.5% devolvido em empate
)

// Transfer descreve a liquidação de uma aposta aceita com vencedor definido.
// O vencedor é o criador quando chosenSide == lado vencedor; caso contrário,
// o aceitante (que sempre ocupa o lado oposto).
type Transfer struct {
	BetID       string
	WinnerID    string
	LoserID     string
	StakeCents  int64
	PayoutCents int64
	CreatorWon  bool
}

// Refund descreve a devolução parcial de um stake em caso de empate.
// Gerado por parte (criador e aceitante), não por aposta.
type Refund struct {
	BetID       string
	UserID      string
	StakeCents  int64
	RefundCents int64
}

// Plan é o resultado do cálculo de liquidação de um confronto: todas as
// movimentações a aplicar em uma única transação. Apenas aritmética inteira;
// toda divisão trunca para baixo e o resto fica na comissão, nunca é
// descartado sem registro.
type Plan struct {
	Outcome         Outcome
	TotalPotCents   int64
	CommissionCents int64
	Transfers       []Transfer
	Refunds         []Refund
}

// ComputePlan calcula a liquidação de todas as apostas ACCEPTED de um
// confronto para o resultado informado. Não toca em carteiras; o chamador
// aplica o plano dentro da transação de liquidação.
func ComputePlan(bets []*Bet, outcome Outcome, commissionBps, drawRefundBps int64) Plan {
	if outcome == OutcomeDraw {
		return computeDraw(bets, drawRefundBps)
	}
	return computeOutright(bets, Side(outcome), commissionBps)
}

func computeOutright(bets []*Bet, winning Side, commissionBps int64) Plan {
	p := Plan{Outcome: Outcome(winning)}

	var winningPot int64
	for _, b := range bets {
		p.TotalPotCents += 2 * b.AmountCents // stake do criador + stake do aceitante
		winningPot += b.AmountCents
	}

	if winningPot == 0 {
		return p // sem apostas aceitas
	}
	p.CommissionCents = mulDiv(p.TotalPotCents, commissionBps, 10000)

	distributable := p.TotalPotCents - p.CommissionCents
	var distributed int64
	for _, b := range bets {
		t := Transfer{
			BetID:       b.ID,
			StakeCents:  b.AmountCents,
			PayoutCents: mulDiv(b.AmountCents, distributable, winningPot),
		}
		if b.ChosenSide == winning {
			t.WinnerID, t.LoserID, t.CreatorWon = b.CreatorID, b.AcceptorID, true
		} else {
			t.WinnerID, t.LoserID = b.AcceptorID, b.CreatorID
		}
		distributed += t.PayoutCents
		p.Transfers = append(p.Transfers, t)
	}

	// Resto do truncamento das divisões junta-se à comissão.
	p.CommissionCents += distributable - distributed
	return p
}

func computeDraw(bets []*Bet, refundBps int64) Plan {
	p := Plan{Outcome: OutcomeDraw}

	var refunded int64
	for _, b := range bets {
		p.TotalPotCents += 2 * b.AmountCents
		amount := mulDiv(b.AmountCents, refundBps, 10000)
		p.Refunds = append(p.Refunds,
			Refund{BetID: b.ID, UserID: b.CreatorID, StakeCents: b.AmountCents, RefundCents: amount},
			Refund{BetID: b.ID, UserID: b.AcceptorID, StakeCents: b.AmountCents, RefundCents: amount},
		)
		refunded += 2 * amount
	}

	p.CommissionCents = p.TotalPotCents - refunded
	return p
}

// mulDiv calcula floor(a*b/c) sem estourar int64 no produto intermediário.
func mulDiv(a, b, c int64) int64 {
	r := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	r.Quo(r, big.NewInt(c))
	return r.Int64()
}
