package market

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

func (s *Service) loadRequests() ([]schema.Request, error) {
	return kv.Load[[]schema.Request](s.store, schema.CollectionRequests)
}

func (s *Service) saveRequests(reqs []schema.Request) error {
	return kv.Save(s.store, schema.CollectionRequests, reqs)
}

// CreateInput carries everything needed to raise a request. CustomKind is
// only consulted when Category is CategoryOther, and must be non-empty in
// that case. Location may be nil when acquisition failed; creation then
// fails with ErrLocationUnavailable.
type CreateInput struct {
	Owner       schema.Actor
	Category    schema.Category
	CustomKind  string
	Description string
	Amount      string
	Location    *geo.Point
}

// Create raises a new request in state pending. It becomes visible to
// the nearby view of every other actor immediately.
func (s *Service) Create(in CreateInput) (schema.Request, error) {
	if in.Owner.ID == "" {
		return schema.Request{}, fmt.Errorf("%w: owner", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return schema.Request{}, fmt.Errorf("%w: description", ErrValidation)
	}
	if _, err := schema.ParseCategory(string(in.Category)); err != nil {
		return schema.Request{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	kind := in.Category.Label()
	if in.Category == schema.CategoryOther {
		kind = strings.TrimSpace(in.CustomKind)
		if kind == "" {
			return schema.Request{}, fmt.Errorf("%w: custom request kind", ErrValidation)
		}
	}
	if in.Location == nil {
		return schema.Request{}, ErrLocationUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return schema.Request{}, err
	}

	now := s.now()
	lat, lon := in.Location.Lat, in.Location.Lon
	req := schema.Request{
		ID:          s.nextID(reqs, now.UnixMilli()),
		OwnerID:     in.Owner.ID,
		OwnerName:   in.Owner.DisplayName,
		Category:    in.Category,
		Kind:        kind,
		Description: strings.TrimSpace(in.Description),
		Amount:      strings.TrimSpace(in.Amount),
		CreatedAt:   now,
		Lat:         &lat,
		Lon:         &lon,
		Status:      schema.StatusPending,
	}

	reqs = append(reqs, req)
	if err := s.saveRequests(reqs); err != nil {
		return schema.Request{}, err
	}
	return req, nil
}

// nextID derives a creation-time id (milliseconds since epoch) and bumps
// it past any collision so ids stay globally unique.
func (s *Service) nextID(reqs []schema.Request, millis int64) string {
	taken := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		taken[r.ID] = true
	}
	for {
		id := strconv.FormatInt(millis, 10)
		if !taken[id] {
			return id
		}
		millis++
	}
}

// Get returns a single request by id.
func (s *Service) Get(id string) (schema.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqs, err := s.loadRequests()
	if err != nil {
		return schema.Request{}, err
	}
	_, req, err := findRequest(reqs, id)
	return req, err
}

func findRequest(reqs []schema.Request, id string) (int, schema.Request, error) {
	for i, r := range reqs {
		if r.ID == id {
			return i, r, nil
		}
	}
	return -1, schema.Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
