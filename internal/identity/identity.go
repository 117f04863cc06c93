// Package identity supplies the external capabilities the core consumes:
// the current actor and the current position. Both are thin adapters; the
// marketplace never resolves identity or coordinates itself.
package identity

import (
	"errors"
	"os"
	"strconv"

	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/schema"
)

// Provider resolves the acting user, or reports that nobody is signed in.
type Provider interface {
	Current() (schema.Actor, bool)
}

// Static is a fixed actor, for tests and single-user sessions.
type Static schema.Actor

func (s Static) Current() (schema.Actor, bool) {
	if s.ID == "" {
		return schema.Actor{}, false
	}
	return schema.Actor(s), true
}

// Env resolves the actor from LIQUEX_ACTOR_ID and LIQUEX_ACTOR_NAME.
type Env struct{}

func (Env) Current() (schema.Actor, bool) {
	id := os.Getenv("LIQUEX_ACTOR_ID")
	if id == "" {
		return schema.Actor{}, false
	}
	name := os.Getenv("LIQUEX_ACTOR_NAME")
	if name == "" {
		name = id
	}
	return schema.Actor{ID: id, DisplayName: name}, true
}

// ErrNoPosition is returned when no position can be resolved. Callers map
// it to the core's location-unavailable failure.
var ErrNoPosition = errors.New("no position available")

// Locator resolves the viewer's current position.
type Locator func() (geo.Point, error)

// EnvLocator reads a fixed position from LIQUEX_LAT and LIQUEX_LON.
func EnvLocator() (geo.Point, error) {
	latRaw, lonRaw := os.Getenv("LIQUEX_LAT"), os.Getenv("LIQUEX_LON")
	if latRaw == "" || lonRaw == "" {
		return geo.Point{}, ErrNoPosition
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return geo.Point{}, ErrNoPosition
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return geo.Point{}, ErrNoPosition
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}
