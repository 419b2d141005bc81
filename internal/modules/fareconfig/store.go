// README: Widget config store backed by PostgreSQL.
package fareconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("widget config not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadRaw returns the raw source stored for widgetKey.
func (s *Store) LoadRaw(ctx context.Context, widgetKey string) (RawConfig, error) {
	row := s.db.QueryRow(ctx, `
		SELECT attributes, config_json
		FROM widget_configs
		WHERE widget_key = $1`, widgetKey,
	)
	var attrs []byte
	var blob *string
	err := row.Scan(&attrs, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return RawConfig{}, ErrNotFound
	}
	if err != nil {
		return RawConfig{}, err
	}

	raw := RawConfig{Attributes: map[string]string{}}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &raw.Attributes); err != nil {
			return RawConfig{}, fmt.Errorf("widget %s attributes: %w", widgetKey, err)
		}
	}
	if blob != nil {
		raw.JSON = *blob
	}
	return raw, nil
}

// SaveRaw upserts the raw source for widgetKey.
func (s *Store) SaveRaw(ctx context.Context, widgetKey string, raw RawConfig) error {
	attrs, err := json.Marshal(raw.Attributes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO widget_configs (widget_key, attributes, config_json, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (widget_key) DO UPDATE
		SET attributes = EXCLUDED.attributes,
		    config_json = EXCLUDED.config_json,
		    updated_at = NOW()`,
		widgetKey, string(attrs), raw.JSON,
	)
	return err
}
