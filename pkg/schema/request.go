// Package schema defines universal data structures used across the Liquex platform.
package schema

import (
	"fmt"
	"time"

	"github.com/liquex-dev/liquex/pkg/geo"
)

// Logical collection names in the durable store.
const (
	CollectionRequests = "requests"
	CollectionMessages = "chat_messages"
	CollectionUsers    = "users"
)

// PasscodeCollection returns the single-slot collection holding the active
// passcode for one request.
func PasscodeCollection(requestID string) string {
	return "otp:" + requestID
}

// Status is the lifecycle state of a request.
// Transitions are monotonic: pending -> accepted -> completed, or
// pending -> rejected. Nothing leaves completed or rejected.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// ParseStatus rejects anything outside the closed status set.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown request status %q", raw)
}

// Category is the closed set of request categories. The original UI used
// free-form type strings as map keys; here unknown values are rejected at
// construction and only CategoryOther carries custom text.
type Category string

const (
	CategoryMoneyTransfer Category = "money_transfer"
	CategoryFoodDelivery  Category = "food_delivery"
	CategoryGrocery       Category = "grocery"
	CategoryTransport     Category = "transport"
	CategoryEmergency     Category = "emergency_help"
	CategoryOther         Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryMoneyTransfer: "Money Transfer",
	CategoryFoodDelivery:  "Food Delivery",
	CategoryGrocery:       "Grocery",
	CategoryTransport:     "Transport",
	CategoryEmergency:     "Emergency Help",
	CategoryOther:         "Other",
}

// Label returns the human-readable name for the category.
func (c Category) Label() string {
	return categoryLabels[c]
}

// ParseCategory rejects anything outside the closed category set. It accepts
// both the stored form ("food_delivery") and the display label
// ("Food Delivery") so CLI and API inputs parse the same way.
func ParseCategory(raw string) (Category, error) {
	if _, ok := categoryLabels[Category(raw)]; ok {
		return Category(raw), nil
	}
	for c, label := range categoryLabels {
		if raw == label {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown request category %q", raw)
}

// Request is the central entity: a help-seeking post with a location, a
// category and a lifecycle status.
type Request struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	OwnerName      string     `json:"owner_name"`
	Category       Category   `json:"category"`
	Kind           string     `json:"kind"` // display label, or the custom text for CategoryOther
	Description    string     `json:"description"`
	Amount         string     `json:"amount,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Lat            *float64   `json:"lat,omitempty"`
	Lon            *float64   `json:"lon,omitempty"`
	Status         Status     `json:"status"`
	AcceptedBy     string     `json:"accepted_by,omitempty"`
	AcceptedByName string     `json:"accepted_by_name,omitempty"`
	RejectedBy     string     `json:"rejected_by,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Location returns the recorded coordinate, or false when the request has
// none and must be excluded from proximity filtering.
func (r Request) Location() (geo.Point, bool) {
	if r.Lat == nil || r.Lon == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *r.Lat, Lon: *r.Lon}, true
}
