package market

import (
	"fmt"

	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

// IssuePasscode generates a fresh 4-digit completion code for an accepted
// request. Only the request's owner may issue. Issuing supersedes any prior
// code for the request regardless of its state: the passcode slot holds at
// most one record. The code is announced in-channel as a system notice, so
// both parties can read it; that mirrors the original app's behavior and is
// preserved as observed.
func (s *Service) IssuePasscode(requestID string, actor schema.Actor) (schema.Passcode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return schema.Passcode{}, err
	}
	_, req, err := findRequest(reqs, requestID)
	if err != nil {
		return schema.Passcode{}, err
	}
	if req.OwnerID != actor.ID {
		return schema.Passcode{}, fmt.Errorf("%w: only the requester can issue a passcode", ErrPermission)
	}
	if req.Status != schema.StatusAccepted {
		return schema.Passcode{}, fmt.Errorf("%w: passcodes are only issued while accepted, not %s", ErrInvalidState, req.Status)
	}

	now := s.now()
	code := schema.Passcode{
		RequestID: requestID,
		Code:      s.passcode(),
		IssuedAt:  now,
		ExpiresAt: now.Add(PasscodeTTL),
	}
	if err := kv.Save(s.store, schema.PasscodeCollection(requestID), code); err != nil {
		return schema.Passcode{}, err
	}

	if _, err := s.postSystem(requestID, fmt.Sprintf("Passcode issued: %s (valid for 5 minutes)", code.Code)); err != nil {
		return schema.Passcode{}, err
	}
	return code, nil
}

// ActivePasscode returns the current passcode record for countdown display.
// The record is advisory; VerifyPasscode always re-checks the wall clock.
func (s *Service) ActivePasscode(requestID string) (schema.Passcode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := kv.Load[schema.Passcode](s.store, schema.PasscodeCollection(requestID))
	if err != nil {
		return schema.Passcode{}, err
	}
	if code.Code == "" || !code.Active(s.now()) {
		return schema.Passcode{}, ErrNoActiveCode
	}
	return code, nil
}

// VerifyPasscode is the completion gate. The intended caller is the helper
// who accepted the request; that is a UI convention, not a hard
// precondition. On success the request transitions to completed, a system
// notice is posted, and the code is consumed (single use).
func (s *Service) VerifyPasscode(requestID string, actor schema.Actor, submitted string) (schema.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return schema.Request{}, err
	}
	idx, _, err := findRequest(reqs, requestID)
	if err != nil {
		return schema.Request{}, err
	}

	code, err := kv.Load[schema.Passcode](s.store, schema.PasscodeCollection(requestID))
	if err != nil {
		return schema.Request{}, err
	}
	if code.Code == "" {
		return schema.Request{}, ErrNoActiveCode
	}
	if submitted != code.Code {
		return schema.Request{}, ErrCodeMismatch
	}
	if !code.Active(s.now()) {
		return schema.Request{}, ErrCodeExpired
	}

	// The status write lands first. The consume and the notice below can
	// still fail, in which case the caller sees an error for a request
	// that is already completed; completion itself is never rolled back.
	if err := s.complete(reqs, idx); err != nil {
		return schema.Request{}, err
	}
	if err := s.store.DeleteCollection(schema.PasscodeCollection(requestID)); err != nil {
		return schema.Request{}, err
	}
	if _, err := s.postSystem(requestID, "Payment completed (simulated)"); err != nil {
		return schema.Request{}, err
	}
	return reqs[idx], nil
}
