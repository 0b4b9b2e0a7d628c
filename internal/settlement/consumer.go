package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/p2p-wager-platform/internal/shared/kafka"
	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/pkg/contracts/events"
)

// Consumer consome resultados validados de confrontos do Kafka e dispara a
// liquidação. Como a liquidação é idempotente, reentregas do mesmo evento
// são inofensivas. Callbacks de métricas por etapa.
type Consumer struct {
	Log    *zap.Logger
	Reader *kafka.Reader
	Engine *Engine
	DLQ    *kafka.Writer // opcional

	OnConsumed func()       // métricas (counter++)
	OnSettled  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e liquidação.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			c.Log.Warn("kafka read failed", zap.Error(err))
			c.emitError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		var ev events.ContestResult
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.Log.Warn("invalid message", zap.Error(err))
			c.emitError("decode")
			continue
		}

		if err := c.settleWithRetry(ctx, ev); err != nil {
			c.Log.Error("settlement failed", zap.String("contestId", ev.ContestID), zap.Error(err))
			c.emitError("settle")
			if c.DLQ != nil {
				if derr := sharedkafka.WriteJSON(ctx, c.DLQ, ev.ContestID, m.Value); derr != nil {
					c.Log.Error("dlq publish failed", zap.Error(derr))
				}
			}
			continue
		}
		if c.OnSettled != nil {
			c.OnSettled()
		}
	}
}

// settleWithRetry repete apenas erros transitórios; erro de negócio (evento
// malformado, resultado inválido) vai direto para a DLQ.
func (c *Consumer) settleWithRetry(ctx context.Context, ev events.ContestResult) error {
	const retries = 3
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
		}
		_, err = c.Engine.SettleContest(ctx, ev.ContestID, domain.Outcome(ev.Outcome))
		if err == nil || !domain.Retryable(err) {
			return err
		}
	}
	return err
}

func (c *Consumer) emitError(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
