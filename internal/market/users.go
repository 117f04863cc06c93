package market

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

// Login finds or creates a user by username and phone number, mirroring the
// original app's registry. It is the backing for the external identity
// provider; the core itself only ever sees the resulting Actor.
func (s *Service) Login(username, phoneNumber string) (schema.UserRecord, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return schema.UserRecord{}, fmt.Errorf("%w: username", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := kv.Load[[]schema.UserRecord](s.store, schema.CollectionUsers)
	if err != nil {
		return schema.UserRecord{}, err
	}

	for _, u := range users {
		if u.Username == username && u.PhoneNumber == phoneNumber {
			return u, nil
		}
	}

	user := schema.UserRecord{
		ID:          strconv.FormatInt(s.now().UnixMilli(), 10),
		Username:    username,
		PhoneNumber: phoneNumber,
		CreatedAt:   s.now(),
	}
	users = append(users, user)
	if err := kv.Save(s.store, schema.CollectionUsers, users); err != nil {
		return schema.UserRecord{}, err
	}
	return user, nil
}

// Users returns every registered user.
func (s *Service) Users() ([]schema.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return kv.Load[[]schema.UserRecord](s.store, schema.CollectionUsers)
}
