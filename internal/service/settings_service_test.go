package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
)

type countingSettingsSource struct {
	settings models.StudioStaffingSettings
	calls    int
}

func (c *countingSettingsSource) GetStaffingSettings(ctx context.Context, studioID string) (*models.StudioStaffingSettings, error) {
	c.calls++
	out := c.settings
	out.StudioID = studioID
	out.ApplyDefaults()
	return &out, nil
}

type fakeCache struct {
	values map[string]models.StudioStaffingSettings
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]models.StudioStaffingSettings)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := f.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.StudioStaffingSettings) = v
	return nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.sets++
	f.values[key] = *value.(*models.StudioStaffingSettings)
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func TestSettingsServiceCachesReads(t *testing.T) {
	source := &countingSettingsSource{settings: models.StudioStaffingSettings{RequireApproval: true, MaxWeeklyHours: 30}}
	cache := newFakeCache()
	svc := NewSettingsService(source, cache, 5*time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Get(ctx, "studio-1")
	require.NoError(t, err)
	assert.True(t, first.RequireApproval)
	assert.Equal(t, 30, first.MaxWeeklyHours)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Get(ctx, "studio-1")
	require.NoError(t, err)
	assert.Equal(t, first.MaxWeeklyHours, second.MaxWeeklyHours)
	assert.Equal(t, 1, source.calls, "second read must come from cache")

	svc.Invalidate(ctx, "studio-1")
	_, err = svc.Get(ctx, "studio-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestSettingsServiceWorksWithoutCache(t *testing.T) {
	source := &countingSettingsSource{}
	svc := NewSettingsService(source, nil, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	settings, err := svc.Get(ctx, "studio-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMaxWeeklyHours, settings.MaxWeeklyHours)

	_, err = svc.Get(ctx, "studio-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
	svc.Invalidate(ctx, "studio-1")
}
