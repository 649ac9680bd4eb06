package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// dedupTTL outlives the sweep window so overlapping runs on adjacent
// hours cannot re-mark the same booking.
const dedupTTL = 26 * time.Hour

// RedisGuard suppresses duplicate reminders with a SET NX key per
// booking.
type RedisGuard struct {
	rdb *redis.Client
}

// NewRedisGuard creates a RedisGuard.
func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb}
}

func dedupKey(bookingID uuid.UUID) string {
	return "reminder:sent:" + bookingID.String()
}

// MarkSent marks the booking as reminded. It returns true only for the
// first call within the retention window.
func (g *RedisGuard) MarkSent(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, dedupKey(bookingID), 1, dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("marking reminder sent: %w", err)
	}
	return ok, nil
}

// Unmark deletes the booking's marker so a later sweep can retry a
// failed send.
func (g *RedisGuard) Unmark(ctx context.Context, bookingID uuid.UUID) error {
	if err := g.rdb.Del(ctx, dedupKey(bookingID)).Err(); err != nil {
		return fmt.Errorf("releasing reminder marker: %w", err)
	}
	return nil
}
