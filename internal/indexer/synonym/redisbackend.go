package synonym

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const redisKeyPrefix = "synonyms:"

// SetClient is the subset of pkg/redis.Client the Redis backend needs.
type SetClient interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// RedisBackend stores each token's learned synonyms as a Redis set under
// "synonyms:<token>".
type RedisBackend struct {
	client SetClient
}

func NewRedisBackend(client SetClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) LoadAll(ctx context.Context) ([]Pair, error) {
	keys, err := b.client.ScanKeys(ctx, redisKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scanning synonym keys: %w", err)
	}
	sort.Strings(keys)
	var pairs []Pair
	for _, key := range keys {
		members, err := b.client.SMembers(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		sort.Strings(members)
		token := strings.TrimPrefix(key, redisKeyPrefix)
		for _, m := range members {
			pairs = append(pairs, Pair{Token: token, Synonym: m})
		}
	}
	return pairs, nil
}

func (b *RedisBackend) Save(ctx context.Context, pairs []Pair) error {
	grouped := make(map[string][]string)
	order := make([]string, 0)
	for _, p := range pairs {
		if _, ok := grouped[p.Token]; !ok {
			order = append(order, p.Token)
		}
		grouped[p.Token] = append(grouped[p.Token], p.Synonym)
	}
	for _, token := range order {
		if err := b.client.SAdd(ctx, redisKeyPrefix+token, grouped[token]...); err != nil {
			return fmt.Errorf("adding synonyms for %s: %w", token, err)
		}
	}
	return nil
}
