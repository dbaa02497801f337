package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisLinkStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLinkStore keeps one JSON link per session under encounter:link:<session>.
// Links expire after ttl so abandoned workspaces do not hold an appointment forever.
func NewRedisLinkStore(client *redis.Client, ttl time.Duration) *RedisLinkStore {
	return &RedisLinkStore{
		client: client,
		ttl:    ttl,
	}
}

func linkKey(sessionID string) string {
	return fmt.Sprintf("encounter:link:%s", sessionID)
}

func (s *RedisLinkStore) Get(ctx context.Context, sessionID string) (*Link, error) {
	raw, err := s.client.Get(ctx, linkKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get link: %w", ErrLinkUnavailable, err)
	}

	var link Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	return &link, nil
}

func (s *RedisLinkStore) Set(ctx context.Context, link Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}
	if err := s.client.Set(ctx, linkKey(link.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set link: %w", ErrLinkUnavailable, err)
	}
	return nil
}

func (s *RedisLinkStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, linkKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: clear link: %w", ErrLinkUnavailable, err)
	}
	return nil
}

// deletes KEYS[1] only if it still holds exactly ARGV[1]
var releaseScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (s *RedisLinkStore) ClearIf(ctx context.Context, sessionID string, appointmentID uuid.UUID) (bool, error) {
	key := linkKey(sessionID)

	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: get link: %w", ErrLinkUnavailable, err)
	}

	var link Link
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return false, fmt.Errorf("decode link: %w", err)
	}
	if !link.Links(appointmentID) {
		return false, nil
	}

	// another tab may have replaced the link since the read; only the exact value we saw is released
	n, err := releaseScript.Run(ctx, s.client, []string{key}, raw).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("%w: release link: %w", ErrLinkUnavailable, err)
	}
	return n == 1, nil
}
