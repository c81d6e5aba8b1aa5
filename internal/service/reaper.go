package service

import (
	"LaunchGate-Backend/internal/repository"
	"LaunchGate-Backend/internal/settings"
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper периодически закрывает сессии, переставшие слать heartbeat.
// Это единственное место, где происходит очистка: пути чтения и допуска
// никогда не делают ее попутно.
type Reaper struct {
	storage  repository.Storage
	settings *settings.Provider
	interval time.Duration
	log      *zap.Logger
}

// NewReaper создает новый reaper с заданным интервалом обхода
func NewReaper(storage repository.Storage, provider *settings.Provider, interval time.Duration, log *zap.Logger) *Reaper {
	return &Reaper{
		storage:  storage,
		settings: provider,
		interval: interval,
		log:      log,
	}
}

// ReapOnce выполняет один проход очистки и возвращает число закрытых сессий
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	timeout, err := r.settings.SessionTimeout(ctx)
	if err != nil {
		return 0, err
	}

	reaped, err := r.storage.ReapExpiredSessions(ctx, timeout)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, session := range reaped {
		r.log.Info("reaped expired session",
			zap.String("session_id", session.SessionID),
			zap.String("ip", session.IPAddress),
			zap.Duration("idle", session.IdleFor(now)))
	}

	return len(reaped), nil
}

// Run запускает периодическую очистку до отмены контекста
func (r *Reaper) Run(ctx context.Context) {
	r.log.Info("session reaper started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("session reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.ReapOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("reap pass failed", zap.Error(err))
			}
		}
	}
}
