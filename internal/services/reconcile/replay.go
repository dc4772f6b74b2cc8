package reconcile

import (
	"context"
	"time"

	"vaultpay/internal/store/repositories"
)

// ReplayService requeues stored events for reprocessing. This is the
// recovery path for skipped and failed events once the underlying data
// problem (missing assignment, commission rule) is fixed.
type ReplayService struct {
	events repositories.EventRepository
}

func NewReplayService(events repositories.EventRepository) *ReplayService {
	return &ReplayService{events: events}
}

type ReplayRequest struct {
	EventIDs []int64    `json:"eventIds,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
	Max      int        `json:"max,omitempty"`
}

type ReplayResponse struct {
	RequeuedCount int `json:"requeued"`
}

func (s *ReplayService) ReplayEvents(ctx context.Context, req ReplayRequest) (*ReplayResponse, error) {
	count := 0

	if len(req.EventIDs) > 0 {
		for _, id := range req.EventIDs {
			if err := s.events.MarkForReprocessing(ctx, id); err == nil {
				count++
			}
		}
		return &ReplayResponse{RequeuedCount: count}, nil
	}

	max := req.Max
	if max <= 0 || max > 1000 {
		max = 200
	}
	ids, err := s.events.FindIDsByWindow(ctx, req.Since, req.Until, max)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := s.events.MarkForReprocessing(ctx, id); err == nil {
			count++
		}
	}
	return &ReplayResponse{RequeuedCount: count}, nil
}
