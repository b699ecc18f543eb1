package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/payout"
)

// Period renders the calendar-month ranking window for a point in time.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Leaderboard tracks completed cycles per participant per period and
// produces the monthly top producer standings. Record takes the absolute
// cycle count so a replayed settlement converges instead of double counting.
type Leaderboard interface {
	Record(ctx context.Context, period, participantID string, cycles int) error
	Top(ctx context.Context, period string, n int) ([]payout.Standing, error)
}

// RedisLeaderboard keeps one sorted set per period.
type RedisLeaderboard struct {
	client *redis.Client
	prefix string
}

var _ Leaderboard = (*RedisLeaderboard)(nil)

// NewRedis creates a leaderboard over an existing redis client.
func NewRedis(client *redis.Client, prefix string) *RedisLeaderboard {
	if prefix == "" {
		prefix = "sigme:rank"
	}
	return &RedisLeaderboard{client: client, prefix: prefix}
}

func (l *RedisLeaderboard) key(period string) string {
	return fmt.Sprintf("%s:%s", l.prefix, period)
}

func (l *RedisLeaderboard) Record(ctx context.Context, period, participantID string, cycles int) error {
	member := &redis.Z{Score: float64(cycles), Member: participantID}
	if err := l.client.ZAdd(ctx, l.key(period), member).Err(); err != nil {
		return fmt.Errorf("record leaderboard %s: %w", period, err)
	}
	return nil
}

func (l *RedisLeaderboard) Top(ctx context.Context, period string, n int) ([]payout.Standing, error) {
	if n <= 0 {
		return nil, nil
	}
	entries, err := l.client.ZRevRangeWithScores(ctx, l.key(period), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard %s: %w", period, err)
	}
	standings := make([]payout.Standing, 0, len(entries))
	for i, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		standings = append(standings, payout.Standing{ParticipantID: member, Position: i + 1})
	}
	return standings, nil
}

// MemoryLeaderboard is the in-process fallback used by tests and local runs.
// Ties break toward the participant who reached the score first.
type MemoryLeaderboard struct {
	mu      sync.RWMutex
	scores  map[string]map[string]int
	arrival map[string]map[string]int
	seq     int
}

var _ Leaderboard = (*MemoryLeaderboard)(nil)

// NewMemory creates an empty in-process leaderboard.
func NewMemory() *MemoryLeaderboard {
	return &MemoryLeaderboard{
		scores:  make(map[string]map[string]int),
		arrival: make(map[string]map[string]int),
	}
}

func (l *MemoryLeaderboard) Record(_ context.Context, period, participantID string, cycles int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.scores[period] == nil {
		l.scores[period] = make(map[string]int)
		l.arrival[period] = make(map[string]int)
	}
	if _, ok := l.scores[period][participantID]; !ok {
		l.seq++
		l.arrival[period][participantID] = l.seq
	}
	l.scores[period][participantID] = cycles
	return nil
}

func (l *MemoryLeaderboard) Top(_ context.Context, period string, n int) ([]payout.Standing, error) {
	if n <= 0 {
		return nil, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	type row struct {
		id      string
		score   int
		arrival int
	}
	rows := make([]row, 0, len(l.scores[period]))
	for id, score := range l.scores[period] {
		rows = append(rows, row{id: id, score: score, arrival: l.arrival[period][id]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].arrival < rows[j].arrival
	})

	if len(rows) > n {
		rows = rows[:n]
	}
	standings := make([]payout.Standing, len(rows))
	for i, r := range rows {
		standings[i] = payout.Standing{ParticipantID: r.id, Position: i + 1}
	}
	return standings, nil
}
