package portal

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called for every session removed by the TTL worker.
type CleanupCallback func(sessionID string)

// StartTTLWorker runs a background goroutine that periodically removes
// sessions idle for longer than ttl. It stops when ctx is done.
func StartTTLWorker(ctx context.Context, svc *Service, interval, ttl time.Duration, onCleanup CleanupCallback) {
	if interval <= 0 || ttl <= 0 {
		slog.Info("TTL worker disabled", "interval", interval, "ttl", ttl)
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				CleanupExpiredSessions(ctx, svc, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// CleanupExpiredSessions performs one sweep and returns how many sessions
// were removed. Each candidate is re-checked under its session lock, so a
// session touched since the listing survives.
func CleanupExpiredSessions(ctx context.Context, svc *Service, ttl time.Duration, onCleanup CleanupCallback) int {
	expired, err := svc.repo.GetExpiredSessions(ctx, ttl)
	if err != nil {
		slog.Error("TTL worker failed to get expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))

	cleaned := 0
	for _, rec := range expired {
		removed, err := svc.Expire(ctx, rec.SessionID, ttl)
		if err != nil {
			slog.Warn("TTL worker failed to expire session",
				"error", err,
				"session_id", rec.SessionID)
			continue
		}
		if !removed {
			slog.Debug("TTL worker kept refreshed session", "session_id", rec.SessionID)
			continue
		}
		cleaned++
		slog.Debug("TTL worker removed session",
			"session_id", rec.SessionID,
			"idle", rec.IdleFor(time.Now()))
		if onCleanup != nil {
			onCleanup(rec.SessionID)
		}
	}

	slog.Info("TTL worker cleanup completed", "cleaned", cleaned)
	return cleaned
}
