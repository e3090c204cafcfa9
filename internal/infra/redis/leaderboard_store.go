package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
)

// DefaultLeaderboardKey is the hash holding every player's score.
const DefaultLeaderboardKey = "leaderboard:scores"

// keepBest writes ARGV[2] for field ARGV[1] only when it beats the stored score.
var keepBest = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if current == false or tonumber(current) < tonumber(ARGV[2]) then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// LeaderboardStore keeps scores in a Redis hash:
//
//	HSET leaderboard:scores {playerName} {score}
//
// Each commit touches a single field server-side, so sessions on any number
// of instances can commit concurrently without a read-modify-write race.
type LeaderboardStore struct {
	client *redis.Client
	key    string
	policy app.Policy
}

func NewLeaderboardStore(client *redis.Client, key string, policy app.Policy) *LeaderboardStore {
	if key == "" {
		key = DefaultLeaderboardKey
	}
	return &LeaderboardStore{client: client, key: key, policy: policy}
}

func (s *LeaderboardStore) Load(ctx context.Context) (domain.Scores, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	scores := make(domain.Scores, len(raw))
	for name, value := range raw {
		score, err := strconv.Atoi(value)
		if err != nil {
			log.Warn().Str("player", name).Str("value", value).Msg("skipping corrupt leaderboard entry")
			continue
		}
		scores[name] = score
	}
	return scores, nil
}

func (s *LeaderboardStore) Save(ctx context.Context, scores domain.Scores) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(scores) == 0 {
			return nil
		}
		fields := make([]interface{}, 0, 2*len(scores))
		for name, score := range scores {
			fields = append(fields, name, score)
		}
		pipe.HSet(ctx, s.key, fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save leaderboard: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Commit(ctx context.Context, playerName string, score int) error {
	var err error
	if s.policy == app.PolicyBest {
		err = keepBest.Run(ctx, s.client, []string{s.key}, playerName, score).Err()
	} else {
		err = s.client.HSet(ctx, s.key, playerName, score).Err()
	}
	if err != nil {
		return fmt.Errorf("commit score: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("reset leaderboard: %w", err)
	}
	return nil
}
