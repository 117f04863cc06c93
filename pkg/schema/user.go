package schema

import "time"

// Actor is the opaque identity acting on a request: the requester or the
// helper depending on role. Identity resolution itself is an external
// concern; the core only references actors.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// UserRecord represents a registered user within the Liquex ecosystem.
// It is stored in the 'users' collection.
type UserRecord struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Actor returns the identity view of the user record. The username doubles
// as the display name.
func (u UserRecord) Actor() Actor {
	return Actor{ID: u.ID, DisplayName: u.Username}
}
