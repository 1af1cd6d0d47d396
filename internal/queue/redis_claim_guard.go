package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"pph-connect.com/pph-connect/internal/constants"
)

type RedisClaimGuard struct {
	client    rueidis.Client
	keyPrefix string
}

func NewRedisClaimGuard(client rueidis.Client, keyPrefix string) *RedisClaimGuard {
	return &RedisClaimGuard{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (g *RedisClaimGuard) key(workerID string, stage constants.Stage) string {
	return fmt.Sprintf("%s:%s:%s", g.keyPrefix, workerID, stage)
}

// Acquire takes the lane lock with SET NX and a TTL so a crashed client can
// never wedge its lane permanently.
func (g *RedisClaimGuard) Acquire(ctx context.Context, workerID string, stage constants.Stage, ttl time.Duration) error {
	cmd := g.client.B().Set().
		Key(g.key(workerID, stage)).
		Value("1").
		Nx().
		Px(ttl).
		Build()

	result := g.client.Do(ctx, cmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return ErrClaimInFlight
		}
		return err
	}
	return nil
}

func (g *RedisClaimGuard) Release(ctx context.Context, workerID string, stage constants.Stage) error {
	cmd := g.client.B().Del().Key(g.key(workerID, stage)).Build()
	return g.client.Do(ctx, cmd).Error()
}
