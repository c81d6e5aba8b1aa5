package settings

import (
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvider_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback_when_missing", func(t *testing.T) {
		provider := NewProvider(memory.New(), 0, zap.NewNop())

		value, err := provider.Get(ctx, "missing", "default")
		require.NoError(t, err)
		assert.Equal(t, "default", value)
	})

	t.Run("reads_stored_value", func(t *testing.T) {
		storage := memory.New()
		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaxClientsPerIP, "6"))
		provider := NewProvider(storage, 0, zap.NewNop())

		value, err := provider.MaxClientsPerIP(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, value)
	})

	t.Run("non_integer_falls_back", func(t *testing.T) {
		storage := memory.New()
		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaxClientsPerIP, "not-a-number"))
		provider := NewProvider(storage, 0, zap.NewNop())

		value, err := provider.MaxClientsPerIP(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxClientsPerIP, value)
	})
}

func TestProvider_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("serves_stale_until_ttl", func(t *testing.T) {
		storage := memory.New()
		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaxClientsPerIP, "5"))
		provider := NewProvider(storage, time.Minute, zap.NewNop())

		value, err := provider.MaxClientsPerIP(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, value)

		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaxClientsPerIP, "99"))
		value, err = provider.MaxClientsPerIP(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, value)
	})

	t.Run("invalidate_drops_cache", func(t *testing.T) {
		storage := memory.New()
		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaxClientsPerIP, "5"))
		provider := NewProvider(storage, time.Minute, zap.NewNop())

		_, err := provider.MaxClientsPerIP(ctx)
		require.NoError(t, err)

		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaxClientsPerIP, "99"))
		provider.Invalidate()

		value, err := provider.MaxClientsPerIP(ctx)
		require.NoError(t, err)
		assert.Equal(t, 99, value)
	})

	t.Run("caches_missing_keys", func(t *testing.T) {
		storage := memory.New()
		provider := NewProvider(storage, time.Minute, zap.NewNop())

		value, err := provider.Get(ctx, domain.SettingMaintenanceMode, "0")
		require.NoError(t, err)
		assert.Equal(t, "0", value)

		// appears only after the cache is dropped
		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaintenanceMode, "1"))
		value, err = provider.Get(ctx, domain.SettingMaintenanceMode, "0")
		require.NoError(t, err)
		assert.Equal(t, "0", value)

		provider.Invalidate()
		maintenance, err := provider.MaintenanceMode(ctx)
		require.NoError(t, err)
		assert.True(t, maintenance)
	})
}

func TestProvider_TypedGetters(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		provider := NewProvider(memory.New(), 0, zap.NewNop())

		timeout, err := provider.SessionTimeout(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultSessionTimeout, timeout)

		hwids, err := provider.MaxHWIDsPerIP(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxHWIDsPerIP, hwids)

		maintenance, err := provider.MaintenanceMode(ctx)
		require.NoError(t, err)
		assert.False(t, maintenance)

		down, err := provider.DownFlag(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultDownFlag, down)
	})

	t.Run("launcher_secret_required", func(t *testing.T) {
		storage := memory.New()
		provider := NewProvider(storage, 0, zap.NewNop())

		_, err := provider.LauncherSecret(ctx)
		assert.ErrorIs(t, err, ErrSecretNotConfigured)

		require.NoError(t, storage.SetSetting(ctx, domain.SettingLauncherSecret, "topsecret"))
		secret, err := provider.LauncherSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, "topsecret", secret)
	})
}
