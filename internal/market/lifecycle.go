package market

import (
	"fmt"

	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/schema"
)

// Accept moves a pending request to accepted and records the helper.
// Nothing stops an owner from accepting their own request; the original
// behavior is preserved as observed.
func (s *Service) Accept(id string, actor schema.Actor) (schema.Request, error) {
	return s.transition(id, func(r *schema.Request) error {
		if r.Status != schema.StatusPending {
			return fmt.Errorf("%w: cannot accept a %s request", ErrInvalidState, r.Status)
		}
		r.Status = schema.StatusAccepted
		r.AcceptedBy = actor.ID
		r.AcceptedByName = actor.DisplayName
		return nil
	})
}

// Reject moves a pending request to rejected, a terminal state.
func (s *Service) Reject(id string, actor schema.Actor) (schema.Request, error) {
	return s.transition(id, func(r *schema.Request) error {
		if r.Status != schema.StatusPending {
			return fmt.Errorf("%w: cannot reject a %s request", ErrInvalidState, r.Status)
		}
		r.Status = schema.StatusRejected
		r.RejectedBy = actor.ID
		return nil
	})
}

// complete is the only way into the completed state. It is invoked
// internally after a successful passcode verification, never directly.
// Callers must hold s.mu.
func (s *Service) complete(reqs []schema.Request, idx int) error {
	r := &reqs[idx]
	if r.Status != schema.StatusAccepted {
		return fmt.Errorf("%w: cannot complete a %s request", ErrInvalidState, r.Status)
	}
	now := s.now()
	r.Status = schema.StatusCompleted
	r.CompletedAt = &now
	return s.saveRequests(reqs)
}

// transition applies a status mutation under the lock, persisting only on
// success so a failed operation leaves prior state unchanged.
func (s *Service) transition(id string, mutate func(*schema.Request) error) (schema.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return schema.Request{}, err
	}
	idx, _, err := findRequest(reqs, id)
	if err != nil {
		return schema.Request{}, err
	}
	if err := mutate(&reqs[idx]); err != nil {
		return schema.Request{}, err
	}
	if err := s.saveRequests(reqs); err != nil {
		return schema.Request{}, err
	}
	return reqs[idx], nil
}

// Mine returns the actor's own requests in every status, in creation order.
func (s *Service) Mine(actor schema.Actor) ([]schema.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	mine := make([]schema.Request, 0)
	for _, r := range reqs {
		if r.OwnerID == actor.ID {
			mine = append(mine, r)
		}
	}
	return mine, nil
}

// Nearby returns other actors' requests within radiusMeters of origin.
// Already-accepted and completed requests stay visible; the UI
// distinguishes them, the lifecycle does not hide them.
func (s *Service) Nearby(actor schema.Actor, origin geo.Point, radiusMeters float64) ([]schema.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	others := make([]schema.Request, 0)
	for _, r := range reqs {
		if r.OwnerID != actor.ID {
			others = append(others, r)
		}
	}
	return geo.FilterWithinRadius(others, origin, radiusMeters), nil
}
