package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
)

type staffingSettingsSource interface {
	GetStaffingSettings(ctx context.Context, studioID string) (*models.StudioStaffingSettings, error)
}

type settingsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SettingsService serves studio staffing settings through a short-lived
// cache. Settings change rarely and gate every swap and coverage decision,
// so stale reads within the TTL are acceptable.
type SettingsService struct {
	studios staffingSettingsSource
	cache   settingsCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSettingsService creates the service. A nil cache disables caching and
// every read goes to the database.
func NewSettingsService(studios staffingSettingsSource, cache settingsCache, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{studios: studios, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

func settingsCacheKey(studioID string) string {
	return fmt.Sprintf("staffing_settings:%s", studioID)
}

// Get returns the studio's staffing settings, from cache when fresh.
func (s *SettingsService) Get(ctx context.Context, studioID string) (*models.StudioStaffingSettings, error) {
	if s.cache != nil {
		start := time.Now()
		var cached models.StudioStaffingSettings
		err := s.cache.Get(ctx, settingsCacheKey(studioID), &cached)
		if err == nil {
			s.recordCache(true, time.Since(start))
			return &cached, nil
		}
		s.recordCache(false, time.Since(start))
		if err != appErrors.ErrCacheMiss {
			s.logger.Warn("staffing settings cache read failed", zap.String("studio_id", studioID), zap.Error(err))
		}
	}

	settings, err := s.studios.GetStaffingSettings(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staffing settings")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settingsCacheKey(studioID), settings, s.ttl); err != nil {
			s.logger.Warn("staffing settings cache write failed", zap.String("studio_id", studioID), zap.Error(err))
		}
	}
	return settings, nil
}

// Invalidate drops the studio's cached settings.
func (s *SettingsService) Invalidate(ctx context.Context, studioID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, settingsCacheKey(studioID)); err != nil {
		s.logger.Warn("staffing settings cache invalidation failed", zap.String("studio_id", studioID), zap.Error(err))
	}
}

func (s *SettingsService) recordCache(hit bool, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, elapsed)
	}
}
