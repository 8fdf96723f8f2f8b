package credentials

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider reads the key from an environment variable on every call.
type EnvProvider struct {
	name   string
	lookup func(string) (string, bool)
}

func NewEnvProvider(name string) *EnvProvider {
	return &EnvProvider{name: name, lookup: os.LookupEnv}
}

func (p *EnvProvider) APIKey(ctx context.Context) (string, error) {
	v, ok := p.lookup(p.name)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, p.name)
	}
	return normalize(p.name, v)
}
