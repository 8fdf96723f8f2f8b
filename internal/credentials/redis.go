package credentials

import (
	"context"
	"fmt"

	pkgredis "github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/redis"
)

type secretGetter interface {
	Get(ctx context.Context, key string) (string, error)
}

// RedisProvider reads the key stored as a plain string under key.
type RedisProvider struct {
	client secretGetter
	key    string
}

func NewRedisProvider(client *pkgredis.Client, key string) *RedisProvider {
	return &RedisProvider{client: client, key: key}
}

func (p *RedisProvider) APIKey(ctx context.Context) (string, error) {
	v, err := p.client.Get(ctx, p.key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return "", fmt.Errorf("%w: redis key %s", ErrSecretNotFound, p.key)
		}
		return "", fmt.Errorf("reading redis key %s: %w", p.key, err)
	}
	return normalize(p.key, v)
}
