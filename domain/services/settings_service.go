package services

import (
	"context"
	"encoding/json"
	"fmt"

	"betledger/domain/entities"
	"betledger/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// settingsService implements the SettingsService interface
type settingsService struct {
	uowFactory interfaces.UnitOfWorkFactory
	cache      interfaces.SettingsCache
}

// NewSettingsService creates a new settings service. cache may be nil, in
// which case every snapshot is read from the database.
func NewSettingsService(uowFactory interfaces.UnitOfWorkFactory, cache interfaces.SettingsCache) interfaces.SettingsService {
	return &settingsService{
		uowFactory: uowFactory,
		cache:      cache,
	}
}

// Snapshot returns the current settings of a game. A cache failure is logged
// and falls through to the database.
func (s *settingsService) Snapshot(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, error) {
	if !gameType.IsValid() {
		return nil, entities.ValidationErrorf("unknown game %q", gameType)
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, gameType)
		if err != nil {
			log.WithError(err).WithField("game", gameType).Warn("Settings cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.GameSettingsRepository().Get(ctx, gameType)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s settings: %w", gameType, err)
	}
	if settings == nil {
		return nil, entities.NotFoundErrorf("settings for %s", gameType)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settings); err != nil {
			log.WithError(err).WithField("game", gameType).Warn("Settings cache write failed")
		}
	}
	return settings, nil
}

// UpdateSettings validates and stores a new settings document. Sessions keep
// the version they started under.
func (s *settingsService) UpdateSettings(ctx context.Context, gameType entities.GameType, settings json.RawMessage) (*entities.GameSettings, error) {
	if !gameType.IsValid() {
		return nil, entities.ValidationErrorf("unknown game %q", gameType)
	}
	if err := entities.ValidateSettingsJSON(gameType, settings); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	updated, err := uow.GameSettingsRepository().Update(ctx, gameType, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s settings: %w", gameType, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Write the new version through; the cache refuses older snapshots, so a
	// concurrent reader still holding the previous version cannot put it back
	if s.cache != nil {
		if err := s.cache.Set(ctx, updated); err != nil {
			log.WithError(err).WithField("game", gameType).Warn("Settings cache write failed, invalidating")
			if err := s.cache.Invalidate(ctx, gameType); err != nil {
				log.WithError(err).WithField("game", gameType).Warn("Settings cache invalidation failed")
			}
		}
	}

	log.WithFields(log.Fields{
		"game":    gameType,
		"version": updated.Version,
	}).Info("Game settings updated")

	return updated, nil
}
