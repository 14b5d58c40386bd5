package usecase

import (
	"context"
	"errors"
	"log/slog"

	"dispatch-backend/internal/domain"
)

// Result is the outcome of a best-effort cross-system call. It is logged at
// the boundary and never turned into a caller-visible error.
type Result struct {
	OK      bool
	Skipped bool
	Err     error
}

// Mirror propagates a local transition to the upstream system.
type Mirror struct {
	Upstream UpstreamClient
	Log      *slog.Logger
}

// Mirror writes status upstream unless upstream already reports it.
func (m *Mirror) Mirror(ctx context.Context, orderID string, status domain.UpstreamStatus, reason string) Result {
	if m == nil || m.Upstream == nil {
		slog.Default().Error("upstream mirror not configured", "order_id", orderID)
		return Result{Err: errors.New("upstream mirror not configured")}
	}
	log := logger(m.Log).With("order_id", orderID, "upstream_status", string(status), "reason", reason)

	current, err := m.Upstream.CurrentStatus(ctx, orderID)
	switch {
	case err != nil:
		log.Warn("upstream status lookup failed, writing anyway", "error", err)
	case current == string(status):
		log.Debug("upstream already in target status, skipping write")
		return Result{OK: true, Skipped: true}
	}

	if err := m.Upstream.PatchStatus(ctx, orderID, string(status)); err != nil {
		log.Error("upstream mirror failed", "error", err)
		return Result{Err: err}
	}
	log.Info("upstream status mirrored", "previous", current)
	return Result{OK: true}
}
