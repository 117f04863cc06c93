package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

func (s *Service) loadMessages() ([]schema.ChatMessage, error) {
	return kv.Load[[]schema.ChatMessage](s.store, schema.CollectionMessages)
}

func (s *Service) saveMessages(msgs []schema.ChatMessage) error {
	return kv.Save(s.store, schema.CollectionMessages, msgs)
}

// Messages returns the conversation log for one request in append order.
func (s *Service) Messages(requestID string) ([]schema.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	if _, _, err := findRequest(reqs, requestID); err != nil {
		return nil, err
	}

	all, err := s.loadMessages()
	if err != nil {
		return nil, err
	}
	msgs := make([]schema.ChatMessage, 0)
	for _, m := range all {
		if m.RequestID == requestID {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// PostMessage appends a text message to the request's conversation.
// Messaging is closed before acceptance: the request must be accepted or
// completed.
func (s *Service) PostMessage(requestID string, sender schema.Actor, body string) (schema.ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return schema.ChatMessage{}, fmt.Errorf("%w: message body", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMessage(requestID, sender.ID, sender.DisplayName, strings.TrimSpace(body), schema.MessageText)
}

// ShareLocation posts a location-share message carrying a coordinate. The
// reading may be coarse; it never touches the request's own stored location.
func (s *Service) ShareLocation(requestID string, sender schema.Actor, p geo.Point) (schema.ChatMessage, error) {
	body := fmt.Sprintf("Location shared (lat %.6f, lon %.6f)", p.Lat, p.Lon)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMessage(requestID, sender.ID, sender.DisplayName, body, schema.MessageLocation)
}

// appendMessage enforces the status gate and ordering. Callers must hold s.mu.
func (s *Service) appendMessage(requestID, senderID, senderName, body string, kind schema.MessageKind) (schema.ChatMessage, error) {
	reqs, err := s.loadRequests()
	if err != nil {
		return schema.ChatMessage{}, err
	}
	_, req, err := findRequest(reqs, requestID)
	if err != nil {
		return schema.ChatMessage{}, err
	}
	if req.Status != schema.StatusAccepted && req.Status != schema.StatusCompleted {
		return schema.ChatMessage{}, fmt.Errorf("%w: chat is closed while the request is %s", ErrInvalidState, req.Status)
	}

	msgs, err := s.loadMessages()
	if err != nil {
		return schema.ChatMessage{}, err
	}

	// Message order is strictly increasing even when the clock is coarse.
	ts := s.now()
	if n := len(msgs); n > 0 && !msgs[n-1].CreatedAt.Before(ts) {
		ts = msgs[n-1].CreatedAt.Add(time.Millisecond)
	}

	msg := schema.ChatMessage{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		Kind:       kind,
		CreatedAt:  ts,
	}
	msgs = append(msgs, msg)
	if err := s.saveMessages(msgs); err != nil {
		return schema.ChatMessage{}, err
	}
	return msg, nil
}

// postSystem appends a system-notice message. Callers must hold s.mu.
func (s *Service) postSystem(requestID, body string) (schema.ChatMessage, error) {
	return s.appendMessage(requestID, schema.SystemSender, "System", body, schema.MessageSystem)
}
