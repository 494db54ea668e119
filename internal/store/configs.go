package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"unityarchitect/internal/models"
)

// ProviderConfig returns the user's provider settings, or the store defaults
// when the user has saved none.
func (s *Store) ProviderConfig(ctx context.Context, userID string) (models.ProviderConfig, error) {
	var providerType, model, key string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT provider_type, model_name, api_key FROM ai_configs WHERE user_id = ?`),
		userID,
	).Scan(&providerType, &model, &key)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return models.ProviderConfig{}, fmt.Errorf("failed to load provider config: %w", err)
	}
	return models.ParseProviderConfig(providerType, model, key), nil
}

// SaveProviderConfig inserts or replaces the user's provider settings.
func (s *Store) SaveProviderConfig(ctx context.Context, userID string, cfg models.ProviderConfig) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO ai_configs (user_id, provider_type, model_name, api_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			provider_type = excluded.provider_type,
			model_name = excluded.model_name,
			api_key = excluded.api_key`),
		userID, cfg.ProviderType(), cfg.ModelName, cfg.Credential,
	)
	if err != nil {
		return fmt.Errorf("failed to save provider config: %w", err)
	}
	return nil
}

// Static serves one fixed configuration to every user. It is used when no
// database is configured.
type Static struct {
	Config models.ProviderConfig
}

func (s Static) ProviderConfig(context.Context, string) (models.ProviderConfig, error) {
	return s.Config, nil
}
