package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Online flags live in Redis under online:<userID> with a TTL, set when a
// user's first live connection registers and refreshed from the socket pong
// path. Without Redis every lookup reports offline.

func presenceKey(userID uint) string {
	return fmt.Sprintf("online:%d", userID)
}

func (s *Service) SetOnline(ctx context.Context, userID uint) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Set(ctx, presenceKey(userID), "1", s.PresenceTTL).Err()
}

func (s *Service) SetOffline(ctx context.Context, userID uint) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, presenceKey(userID)).Err()
}

func (s *Service) IsOnline(ctx context.Context, userID uint) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	n, err := s.Redis.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineSet resolves flags for many users in one round trip.
func (s *Service) OnlineSet(ctx context.Context, userIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(userIDs))
	if s.Redis == nil || len(userIDs) == 0 {
		return out, nil
	}

	cmds := make([]*redis.IntCmd, len(userIDs))
	pipe := s.Redis.Pipeline()
	for i, id := range userIDs {
		cmds[i] = pipe.Exists(ctx, presenceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	for i, id := range userIDs {
		out[id] = cmds[i].Val() > 0
	}
	return out, nil
}
