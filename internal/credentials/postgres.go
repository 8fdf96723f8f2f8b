package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const selectSecret = `SELECT secret_value FROM secrets WHERE name = $1`

// PostgresProvider reads the key from the secrets table:
//
//	CREATE TABLE secrets (name TEXT PRIMARY KEY, secret_value TEXT NOT NULL);
type PostgresProvider struct {
	db   *sql.DB
	name string
}

func NewPostgresProvider(db *sql.DB, name string) *PostgresProvider {
	return &PostgresProvider{db: db, name: name}
}

func (p *PostgresProvider) APIKey(ctx context.Context) (string, error) {
	var v string
	err := p.db.QueryRowContext(ctx, selectSecret, p.name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: secrets.%s", ErrSecretNotFound, p.name)
	}
	if err != nil {
		return "", fmt.Errorf("querying secret %s: %w", p.name, err)
	}
	return normalize(p.name, v)
}
