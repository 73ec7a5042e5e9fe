package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// slowQueryHook logs queries slower than threshold, for both drivers.
type slowQueryHook struct {
	log       *zerolog.Logger
	threshold time.Duration
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	if elapsed < h.threshold {
		return
	}

	// Prefer the request scoped logger so the request id is attached.
	log := h.log
	if ctxLog := zerolog.Ctx(ctx); ctxLog.GetLevel() != zerolog.Disabled {
		log = ctxLog
	}

	log.Warn().
		Str("operation", event.Operation()).
		Dur("duration", elapsed).
		Dur("threshold", h.threshold).
		Str("query", truncate(event.Query, 500)).
		Msg("slow query")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
