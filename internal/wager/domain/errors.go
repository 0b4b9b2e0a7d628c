package domain

import "errors"

// Erros de negócio retornados ao chamador sem retry automático.
var (
	ErrNotFound                  = errors.New("not found")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidState              = errors.New("invalid state for requested transition")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrDuplicateWager            = errors.New("duplicate wager on contest and side")
	ErrSelfMatch                 = errors.New("cannot accept own wager")
	ErrCancellationWindowExpired = errors.New("cancellation window expired")
	ErrContestAlreadyStarted     = errors.New("contest already started")
	ErrTooLateToAccept           = errors.New("too late to accept")
)

// ErrInvariantViolation indica inconsistência contábil no ledger.
// Nunca deve ocorrer com chamadores corretos; é logado em severidade máxima
// e tratado como falha fatal, não como erro de usuário.
var ErrInvariantViolation = errors.New("ledger invariant violation")

// ErrTransientContention indica conflito de lock/serialização no banco.
// Seguro de repetir; o próprio componente tenta novamente um número
// limitado de vezes antes de propagar.
var ErrTransientContention = errors.New("transient contention, retry")

// Retryable informa se o erro pode ser reapresentado automaticamente.
func Retryable(err error) bool { return errors.Is(err, ErrTransientContention) }
