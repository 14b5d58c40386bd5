package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dispatch-backend/internal/domain"

	"github.com/google/uuid"
)

type StoreService struct {
	Repo StoreRepo
	Log  *slog.Logger
}

func (s *StoreService) List(ctx context.Context) ([]domain.StoreAddress, error) {
	return s.Repo.ListStores(ctx)
}

// Create stores a new address. A new default first clears the flag on the
// others; that step is best effort and not transactional.
func (s *StoreService) Create(ctx context.Context, in domain.StoreAddress) (*domain.StoreAddress, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Line1 = strings.TrimSpace(in.Line1)
	if in.Name == "" || in.Line1 == "" {
		return nil, ErrBadRequest("name and line1 required")
	}
	now := time.Now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt = now
	in.UpdatedAt = now
	if in.IsDefault {
		if err := s.Repo.ClearDefaultStores(ctx); err != nil {
			logger(s.Log).Warn("clearing previous default store failed", "error", err)
		}
	}
	if err := s.Repo.PutStore(ctx, &in); err != nil {
		return nil, fmt.Errorf("put store: %w", err)
	}
	return &in, nil
}
