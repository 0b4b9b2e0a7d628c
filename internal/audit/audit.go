// Package audit grava o log estruturado de transições para compliance.
// Best-effort e fora da fronteira transacional: falha aqui é logada e nunca
// propagada ao chamador.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/p2p-wager-platform/internal/shared/kafka"
)

// KafkaSink publica eventos de auditoria no tópico de compliance.
type KafkaSink struct {
	log     *zap.Logger
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafka instancia o sink sobre um writer já configurado.
func NewKafka(log *zap.Logger, writer *kafka.Writer) *KafkaSink {
	return &KafkaSink{log: log, writer: writer, timeout: 2 * time.Second}
}

// Record publica o evento sem bloquear o chamador.
func (s *KafkaSink) Record(kind string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("audit marshal", zap.String("kind", kind), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := sharedkafka.WriteJSON(ctx, s.writer, kind, b); err != nil {
			s.log.Warn("audit publish failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}
