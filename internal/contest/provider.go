// Package contest fornece a visão somente-leitura dos confrontos para o
// núcleo de apostas. A tabela contests é mantida por fluxo administrativo
// externo; aqui só se lê, com um cache Redis de TTL curto na frente.
package contest

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
)

// Provider lê confrontos do Postgres com cache Redis.
type Provider struct {
	DB  *sql.DB
	Rdb *redis.Client // opcional; sem Redis, toda leitura vai ao banco
	TTL time.Duration
}

// NewProvider instancia o provider. ttl curto: o status do confronto muda
// fora deste processo.
func NewProvider(db *sql.DB, rdb *redis.Client, ttl time.Duration) *Provider {
	return &Provider{DB: db, Rdb: rdb, TTL: ttl}
}

func key(contestID string) string { return "contest:" + contestID }

// GetContest retorna o confronto pelo id. Cache é best-effort: falha de
// Redis não impede a leitura do banco.
func (p *Provider) GetContest(ctx context.Context, contestID string) (*domain.Contest, error) {
	if p.Rdb != nil {
		if raw, err := p.Rdb.Get(ctx, key(contestID)).Bytes(); err == nil {
			var c domain.Contest
			if jerr := json.Unmarshal(raw, &c); jerr == nil {
				return &c, nil
			}
		}
	}

	var c domain.Contest
	var outcome sql.NullString
	err := p.DB.QueryRowContext(ctx, `
		SELECT id, side_a, side_b, status, scheduled_start, outcome
		FROM contests WHERE id=$1`, contestID).
		Scan(&c.ID, &c.SideA, &c.SideB, &c.Status, &c.ScheduledStart, &outcome)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if outcome.Valid {
		c.Outcome = domain.Outcome(outcome.String)
	}

	if p.Rdb != nil {
		if b, jerr := json.Marshal(&c); jerr == nil {
			_ = p.Rdb.Set(ctx, key(contestID), b, p.TTL).Err()
		}
	}
	return &c, nil
}
