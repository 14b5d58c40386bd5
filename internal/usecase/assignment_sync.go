package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dispatch-backend/internal/domain"
)

type MirrorMode int

const (
	// LocalOnly writes the assignment and nothing else.
	LocalOnly MirrorMode = iota
	// MirrorOnTransition also mirrors upstream when the status changed into
	// one listed by domain.TransitionMirror.
	MirrorOnTransition
)

// AssignmentSync is the single writer of assignment rows.
type AssignmentSync struct {
	Repo   AssignmentRepo
	Mirror *Mirror
	Log    *slog.Logger
}

// Update reads the assignment for orderID (or starts a fresh one), applies
// mutate and writes it back. It returns the stored row and the status it
// replaced, empty for a new row.
func (s *AssignmentSync) Update(ctx context.Context, orderID string, mode MirrorMode, mutate func(a *domain.Assignment)) (*domain.Assignment, domain.AssignmentStatus, error) {
	cur, ok, err := s.Repo.GetAssignment(ctx, orderID)
	if err != nil {
		return nil, "", fmt.Errorf("read assignment %s: %w", orderID, err)
	}
	now := time.Now().UTC()
	var prev domain.AssignmentStatus
	a := &domain.Assignment{OrderID: orderID, CreatedAt: now}
	if ok {
		cp := *cur
		a = &cp
		prev = cur.Status
	}
	mutate(a)
	a.OrderID = orderID
	a.UpdatedAt = now
	if err := s.Repo.PutAssignment(ctx, a); err != nil {
		return nil, prev, fmt.Errorf("write assignment %s: %w", orderID, err)
	}

	if mode == MirrorOnTransition && prev != a.Status {
		if target, ok := domain.TransitionMirror(a.Status); ok {
			res := s.Mirror.Mirror(ctx, orderID, target, fmt.Sprintf("assignment %s -> %s", statusOrNew(prev), a.Status))
			if !res.OK {
				logger(s.Log).Warn("assignment saved but upstream mirror failed", "order_id", orderID, "error", res.Err)
			}
		}
	}
	return a, prev, nil
}

func statusOrNew(s domain.AssignmentStatus) string {
	if s == "" {
		return "new"
	}
	return string(s)
}
