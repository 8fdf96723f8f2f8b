// Package credentials supplies the Guardian API key from a configurable
// secret store. Callers treat every failure identically, so providers only
// need to say what went wrong, not classify it.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/redis"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrEmptySecret    = errors.New("secret is empty")
)

// Provider returns the API key used to authenticate upstream requests.
type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) APIKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// New builds the provider selected by cfg.Source. The redis and postgres
// clients are only required for their respective sources.
func New(cfg config.CredentialsConfig, rdb *pkgredis.Client, db *postgres.Client) (Provider, error) {
	var p Provider
	switch cfg.Source {
	case config.SourceEnv:
		p = NewEnvProvider(cfg.EnvVar)
	case config.SourceRedis:
		if rdb == nil {
			return nil, fmt.Errorf("credentials source %q requires a redis client", cfg.Source)
		}
		p = NewRedisProvider(rdb, cfg.SecretName)
	case config.SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("credentials source %q requires a postgres client", cfg.Source)
		}
		p = NewPostgresProvider(db.DB, cfg.SecretName)
	default:
		return nil, fmt.Errorf("unknown credentials source %q", cfg.Source)
	}
	return NewShared(p), nil
}

func normalize(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return value, nil
}
