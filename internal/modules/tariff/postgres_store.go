package tariff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps settings in a two-column key/value table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the app_settings table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS app_settings (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (s *PostgresStore) Load(ctx context.Context) (Tariff, bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, SettingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tariff{}, false, nil
	}
	if err != nil {
		return Tariff{}, false, fmt.Errorf("loading %s: %w", SettingsKey, err)
	}
	t, err := decode(raw)
	if err != nil {
		return Tariff{}, false, err
	}
	return t, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, t Tariff) error {
	raw, err := encode(t)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, SettingsKey, raw)
	if err != nil {
		return fmt.Errorf("saving %s: %w", SettingsKey, err)
	}
	return nil
}
