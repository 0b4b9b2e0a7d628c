// Package notify publica notificações de usuário no Kafka após o commit das
// transições. Contrato at-most-effort: o despacho não bloqueia o chamador e
// falha de publicação é apenas logada — a mutação financeira já foi
// efetivada e não pode parecer ter falhado.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/p2p-wager-platform/internal/shared/kafka"
)

// KafkaNotifier publica no tópico de notificações com chave por usuário.
type KafkaNotifier struct {
	log     *zap.Logger
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafka instancia o notifier sobre um writer já configurado.
func NewKafka(log *zap.Logger, writer *kafka.Writer) *KafkaNotifier {
	return &KafkaNotifier{log: log, writer: writer, timeout: 2 * time.Second}
}

// Notify despacha a notificação em uma goroutine própria e retorna
// imediatamente; o broker indisponível não afeta o fluxo transacional.
func (n *KafkaNotifier) Notify(userID, kind string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		n.log.Warn("notify marshal", zap.String("kind", kind), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := sharedkafka.WriteJSON(ctx, n.writer, userID, b); err != nil {
			n.log.Warn("notify publish failed",
				zap.String("userId", userID),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	}()
}
