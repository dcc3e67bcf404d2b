package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/region"
)

const redisKeyPrefix = "geotarget:session:"

// RedisStore keeps whitelists as Redis sets with a sliding TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "session: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "session: redis ping")
	}
	return client, nil
}

// NewRedisStore creates a RedisStore. A ttl <= 0 keeps keys until cleared.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id + ":states"
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (region.Whitelist, error) {
	key := redisKey(id)
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return region.Whitelist{}, eris.Wrapf(err, "session: read whitelist %s", id)
	}
	if len(members) > 0 && s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return region.Whitelist{}, eris.Wrapf(err, "session: refresh ttl %s", id)
		}
	}
	w, err := region.Replace(members)
	if err != nil {
		return region.Whitelist{}, eris.Wrapf(err, "session: stored whitelist %s", id)
	}
	return w, nil
}

// Replace implements Store. Validation happens before any write.
func (s *RedisStore) Replace(ctx context.Context, id string, codes []string) (region.Whitelist, error) {
	w, err := region.Replace(codes)
	if err != nil {
		return region.Whitelist{}, err
	}

	key := redisKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if w.AnySelected() {
			members := make([]any, 0, w.Len())
			for _, c := range w.Codes() {
				members = append(members, c)
			}
			pipe.SAdd(ctx, key, members...)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return region.Whitelist{}, eris.Wrapf(err, "session: write whitelist %s", id)
	}
	return w, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, id string) (region.Whitelist, error) {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return region.Whitelist{}, eris.Wrapf(err, "session: clear whitelist %s", id)
	}
	return region.Clear(), nil
}
