package service

import (
	"LaunchGate-Backend/internal/config"
	"LaunchGate-Backend/internal/domain"
	"LaunchGate-Backend/internal/repository"
	"LaunchGate-Backend/internal/repository/memory"
	"LaunchGate-Backend/internal/settings"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAdmission() (*AdmissionService, *memory.MemStorage) {
	storage := memory.New()
	log := zap.NewNop()
	provider := settings.NewProvider(storage, 0, log)
	cfg := &config.Launcher{HWIDWindowHours: 24}

	return NewAdmissionService(storage, provider, cfg, log), storage
}

func TestAdmissionService_RequestLaunch(t *testing.T) {
	ctx := context.Background()

	t.Run("admitted_under_cap", func(t *testing.T) {
		svc, _ := setupAdmission()

		result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "hash-1")
		require.NoError(t, err)
		assert.Len(t, result.SessionID, 64)
		assert.Equal(t, 1, result.ActiveSessions)
		assert.Equal(t, settings.DefaultMaxClientsPerIP, result.MaxAllowed)
	})

	t.Run("max_clients_denied", func(t *testing.T) {
		svc, _ := setupAdmission()

		for i := 0; i < settings.DefaultMaxClientsPerIP; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			require.NoError(t, err)
		}

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.Error(t, err)

		denial, ok := AsDenial(err)
		require.True(t, ok)
		assert.Equal(t, DenialMaxClientsReached, denial.Code)
		assert.Equal(t, settings.DefaultMaxClientsPerIP, denial.ActiveSessions)
		assert.Equal(t, settings.DefaultMaxClientsPerIP, denial.MaxAllowed)
	})

	t.Run("other_ip_unaffected_by_cap", func(t *testing.T) {
		svc, _ := setupAdmission()

		for i := 0; i < settings.DefaultMaxClientsPerIP; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			require.NoError(t, err)
		}

		_, err := svc.RequestLaunch(ctx, "10.0.0.2", "hwid-2", "")
		assert.NoError(t, err)
	})

	t.Run("blacklisted_ip_denied", func(t *testing.T) {
		svc, storage := setupAdmission()
		require.NoError(t, storage.UpsertIPRule(ctx, &domain.IpRule{
			IPAddress: "10.0.0.1",
			RuleType:  domain.RuleTypeBlacklist,
		}))

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		denial, ok := AsDenial(err)
		require.True(t, ok)
		assert.Equal(t, DenialIPBlocked, denial.Code)
	})

	t.Run("blacklist_checked_before_device_limit", func(t *testing.T) {
		svc, storage := setupAdmission()

		// fill the device window first, then blacklist the IP
		for i := 0; i < settings.DefaultMaxHWIDsPerIP; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", fmt.Sprintf("hwid-%d", i), "")
			require.NoError(t, err)
		}
		require.NoError(t, storage.UpsertIPRule(ctx, &domain.IpRule{
			IPAddress: "10.0.0.1",
			RuleType:  domain.RuleTypeBlacklist,
		}))

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-new", "")
		denial, ok := AsDenial(err)
		require.True(t, ok)
		assert.Equal(t, DenialIPBlocked, denial.Code)
	})

	t.Run("device_limit_denied", func(t *testing.T) {
		svc, _ := setupAdmission()

		for i := 0; i < settings.DefaultMaxHWIDsPerIP; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", fmt.Sprintf("hwid-%d", i), "")
			require.NoError(t, err)
		}

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-extra", "")
		denial, ok := AsDenial(err)
		require.True(t, ok)
		assert.Equal(t, DenialHWIDLimitExceeded, denial.Code)
	})

	t.Run("known_device_bypasses_device_limit", func(t *testing.T) {
		svc, _ := setupAdmission()

		for i := 0; i < settings.DefaultMaxHWIDsPerIP; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", fmt.Sprintf("hwid-%d", i), "")
			require.NoError(t, err)
		}

		// hwid-0 is already in the window, so it does not count as a new device
		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-0", "")
		assert.NoError(t, err)
	})

	t.Run("empty_hwid_skips_device_check", func(t *testing.T) {
		svc, _ := setupAdmission()

		for i := 0; i < settings.DefaultMaxHWIDsPerIP; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", fmt.Sprintf("hwid-%d", i), "")
			require.NoError(t, err)
		}

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "", "")
		assert.NoError(t, err)
	})

	t.Run("whitelist_override_raises_cap", func(t *testing.T) {
		svc, storage := setupAdmission()
		override := 10
		require.NoError(t, storage.UpsertIPRule(ctx, &domain.IpRule{
			IPAddress:  "10.0.0.1",
			RuleType:   domain.RuleTypeWhitelist,
			MaxClients: &override,
		}))

		for i := 0; i < 10; i++ {
			result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			require.NoError(t, err)
			assert.Equal(t, 10, result.MaxAllowed)
		}

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		denial, ok := AsDenial(err)
		require.True(t, ok)
		assert.Equal(t, DenialMaxClientsReached, denial.Code)
	})

	t.Run("zero_override_blocks_all_launches", func(t *testing.T) {
		svc, storage := setupAdmission()
		override := 0
		require.NoError(t, storage.UpsertIPRule(ctx, &domain.IpRule{
			IPAddress:  "10.0.0.1",
			RuleType:   domain.RuleTypeWhitelist,
			MaxClients: &override,
		}))

		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		denial, ok := AsDenial(err)
		require.True(t, ok)
		assert.Equal(t, DenialMaxClientsReached, denial.Code)
		assert.Equal(t, 0, denial.MaxAllowed)
	})

	t.Run("heartbeat_interval_is_half_timeout", func(t *testing.T) {
		svc, storage := setupAdmission()
		require.NoError(t, storage.SetSetting(ctx, domain.SettingSessionTimeout, "90"))

		result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.NoError(t, err)
		assert.Equal(t, 45, result.HeartbeatInterval)
	})

	t.Run("session_ids_are_unique", func(t *testing.T) {
		svc, _ := setupAdmission()

		seen := make(map[string]struct{})
		for i := 0; i < settings.DefaultMaxClientsPerIP; i++ {
			result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			require.NoError(t, err)
			_, dup := seen[result.SessionID]
			assert.False(t, dup)
			seen[result.SessionID] = struct{}{}
		}
	})
}

func TestAdmissionService_Heartbeat(t *testing.T) {
	ctx := context.Background()

	t.Run("active_session", func(t *testing.T) {
		svc, _ := setupAdmission()
		result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.NoError(t, err)

		assert.NoError(t, svc.Heartbeat(ctx, result.SessionID))
	})

	t.Run("unknown_session", func(t *testing.T) {
		svc, _ := setupAdmission()
		err := svc.Heartbeat(ctx, "no-such-session")
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("closed_session", func(t *testing.T) {
		svc, _ := setupAdmission()
		result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.NoError(t, err)
		require.NoError(t, svc.Close(ctx, result.SessionID))

		err = svc.Heartbeat(ctx, result.SessionID)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})
}

func TestAdmissionService_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		svc, _ := setupAdmission()
		result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.NoError(t, err)

		assert.NoError(t, svc.Close(ctx, result.SessionID))
		assert.NoError(t, svc.Close(ctx, result.SessionID))
		assert.NoError(t, svc.Close(ctx, "never-existed"))
	})

	t.Run("frees_a_slot", func(t *testing.T) {
		svc, _ := setupAdmission()

		var last *LaunchResult
		for i := 0; i < settings.DefaultMaxClientsPerIP; i++ {
			result, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			require.NoError(t, err)
			last = result
		}
		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.Error(t, err)

		require.NoError(t, svc.Close(ctx, last.SessionID))

		_, err = svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		assert.NoError(t, err)
	})
}

func TestAdmissionService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("reports_quota", func(t *testing.T) {
		svc, _ := setupAdmission()
		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.NoError(t, err)

		status, err := svc.Status(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 1, status.ActiveSessions)
		assert.Equal(t, settings.DefaultMaxClientsPerIP, status.MaxAllowed)
		assert.Equal(t, settings.DefaultMaxClientsPerIP-1, status.SlotsAvailable)
		assert.False(t, status.Maintenance)
	})

	t.Run("does_not_mutate", func(t *testing.T) {
		svc, storage := setupAdmission()
		_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err := svc.Status(ctx, "10.0.0.1")
			require.NoError(t, err)
		}

		active, err := storage.CountActiveSessions(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 1, active)
	})

	t.Run("slots_never_negative", func(t *testing.T) {
		svc, storage := setupAdmission()
		for i := 0; i < 3; i++ {
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			require.NoError(t, err)
		}

		// lower the cap below current usage
		override := 1
		require.NoError(t, storage.UpsertIPRule(ctx, &domain.IpRule{
			IPAddress:  "10.0.0.1",
			RuleType:   domain.RuleTypeWhitelist,
			MaxClients: &override,
		}))

		status, err := svc.Status(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 0, status.SlotsAvailable)
	})

	t.Run("maintenance_flag", func(t *testing.T) {
		svc, storage := setupAdmission()
		require.NoError(t, storage.SetSetting(ctx, domain.SettingMaintenanceMode, "1"))

		status, err := svc.Status(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, status.Maintenance)
	})
}

func TestAdmissionService_ConcurrentLaunches(t *testing.T) {
	ctx := context.Background()
	svc, storage := setupAdmission()

	override := 1
	require.NoError(t, storage.UpsertIPRule(ctx, &domain.IpRule{
		IPAddress:  "10.0.0.1",
		RuleType:   domain.RuleTypeWhitelist,
		MaxClients: &override,
	}))

	const workers = 16
	var wg sync.WaitGroup
	results := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := svc.RequestLaunch(ctx, "10.0.0.1", "hwid-1", "")
			results[idx] = err
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range results {
		if err == nil {
			admitted++
			continue
		}
		denial, ok := AsDenial(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, DenialMaxClientsReached, denial.Code)
	}
	assert.Equal(t, 1, admitted)

	active, err := storage.CountActiveSessions(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}
