package usecase

import (
	"context"
	"fmt"
	"sort"

	"dispatch-backend/internal/domain"
)

type CourierService struct {
	Repo CourierRepo
}

// Available lists couriers whose active and available flags are not false.
func (s *CourierService) Available(ctx context.Context) ([]domain.Courier, error) {
	all, err := s.Repo.ListCouriers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list couriers: %w", err)
	}
	out := make([]domain.Courier, 0, len(all))
	for _, c := range all {
		if c.Assignable() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out, nil
}
