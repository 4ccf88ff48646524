/*
Package location provides geolocation readings and per-user location privacy
preferences for geospatial discovery.

The Provider abstraction supplies one-shot coordinate readings; any failure is
expected to degrade discovery to the full room list at the consuming boundary,
never to be fatal. Preferences are stored per user with merge semantics and
defaults applied on read.
*/
package location

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
)

// Privacy levels for location sharing.
const (
	PrivacyPrivate    = "private"
	PrivacyNearbyOnly = "nearby-only"
	PrivacyPublic     = "public"
)

// Sentinel errors a Provider may return.
var (
	// ErrUnavailable indicates no location source could produce a reading.
	ErrUnavailable = errors.New("location: unavailable")

	// ErrPermissionDenied indicates location access was refused.
	ErrPermissionDenied = errors.New("location: permission denied")

	// ErrTimeout indicates the reading did not complete in time.
	ErrTimeout = errors.New("location: timeout")
)

// Coordinates is a single latitude/longitude reading.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Provider supplies a one-shot geolocation reading.
type Provider interface {
	Current(ctx context.Context) (Coordinates, error)
}

// FixedProvider always reports the same coordinates. Server deployments use
// it with configured fallback coordinates. The zero value is an unconfigured
// provider reporting ErrUnavailable; (0,0) itself is a legal reading, so
// Configured, not the coordinate pair, decides availability.
type FixedProvider struct {
	Configured  bool
	Coordinates Coordinates
}

// NewFixedProvider returns a configured provider pinned to the given reading.
func NewFixedProvider(lat, lon float64) FixedProvider {
	return FixedProvider{
		Configured:  true,
		Coordinates: Coordinates{Latitude: lat, Longitude: lon},
	}
}

// Current implements Provider.
func (p FixedProvider) Current(ctx context.Context) (Coordinates, error) {
	if !p.Configured {
		return Coordinates{}, ErrUnavailable
	}
	return p.Coordinates, nil
}

// Preferences are a user's location privacy settings.
type Preferences struct {
	Privacy              string `json:"locationPrivacy"`
	ShareForDiscovery    bool   `json:"shareLocationForDiscovery"`
	VisibleToRoomMembers bool   `json:"locationVisibleToRoomMembers"`
}

// DefaultPreferences returns the settings assumed when a user has no stored record.
func DefaultPreferences() Preferences {
	return Preferences{
		Privacy:              PrivacyNearbyOnly,
		ShareForDiscovery:    true,
		VisibleToRoomMembers: false,
	}
}

// PreferencesUpdate is a partial preferences change; nil fields are left untouched.
type PreferencesUpdate struct {
	Privacy              *string `json:"locationPrivacy,omitempty"`
	ShareForDiscovery    *bool   `json:"shareLocationForDiscovery,omitempty"`
	VisibleToRoomMembers *bool   `json:"locationVisibleToRoomMembers,omitempty"`
}

// Service reads and writes per-user location preferences.
type Service struct {
	store  store.Client
	logger zerolog.Logger
}

// NewService constructs a preferences Service over the given store client.
func NewService(client store.Client) *Service {
	return &Service{
		store:  client,
		logger: logx.Logger().With().Str("component", "Location").Logger(),
	}
}

// usersCollection holds per-user records keyed by user identity.
const usersCollection = "users"

// storedPreferences mirrors Preferences with optional fields, so a partial
// record (e.g. written before a new setting existed) still reads correctly.
type storedPreferences struct {
	Privacy              *string `json:"locationPrivacy"`
	ShareForDiscovery    *bool   `json:"shareLocationForDiscovery"`
	VisibleToRoomMembers *bool   `json:"locationVisibleToRoomMembers"`
}

// Preferences returns the user's stored preferences with defaults applied
// per missing field. Store failures degrade to the defaults rather than
// blocking the caller; the failure is logged.
func (s *Service) Preferences(ctx context.Context, userID string) Preferences {
	prefs := DefaultPreferences()

	doc, err := s.store.Get(ctx, usersCollection, userID)
	if errors.Is(err, store.ErrNotFound) {
		return prefs
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Preference read failed; using defaults.")
		return prefs
	}

	var stored storedPreferences
	if err := doc.Decode(&stored); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Undecodable preference record; using defaults.")
		return prefs
	}

	if stored.Privacy != nil {
		prefs.Privacy = *stored.Privacy
	}
	if stored.ShareForDiscovery != nil {
		prefs.ShareForDiscovery = *stored.ShareForDiscovery
	}
	if stored.VisibleToRoomMembers != nil {
		prefs.VisibleToRoomMembers = *stored.VisibleToRoomMembers
	}

	return prefs
}

// UpdatePreferences merge-writes the provided fields onto the user's record,
// preserving everything not named in the update.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, update PreferencesUpdate) *errs.CustomError {
	fields := make(map[string]any)

	if update.Privacy != nil {
		switch *update.Privacy {
		case PrivacyPrivate, PrivacyNearbyOnly, PrivacyPublic:
			fields["locationPrivacy"] = *update.Privacy
		default:
			return errs.NewError(errs.ErrInvalidParams)
		}
	}
	if update.ShareForDiscovery != nil {
		fields["shareLocationForDiscovery"] = *update.ShareForDiscovery
	}
	if update.VisibleToRoomMembers != nil {
		fields["locationVisibleToRoomMembers"] = *update.VisibleToRoomMembers
	}

	if len(fields) == 0 {
		return nil
	}

	if err := s.store.Merge(ctx, usersCollection, userID, fields); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update preferences.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// CanShareForDiscovery reports whether the user's coordinates may feed nearby
// discovery. A private privacy level overrides the share flag regardless of
// its stored value; that policy lives here, at the consuming boundary.
func (s *Service) CanShareForDiscovery(ctx context.Context, userID string) bool {
	prefs := s.Preferences(ctx, userID)
	return prefs.ShareForDiscovery && prefs.Privacy != PrivacyPrivate
}
