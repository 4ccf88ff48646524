package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
)

func newTestService(t *testing.T) (*Service, *store.MemStore) {
	t.Helper()

	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	return NewService(m), m
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestPreferencesDefaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	prefs := s.Preferences(ctx, "unknown-user")
	assert.Equal(t, PrivacyNearbyOnly, prefs.Privacy)
	assert.True(t, prefs.ShareForDiscovery)
	assert.False(t, prefs.VisibleToRoomMembers)
}

func TestUpdatePreferencesPartial(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	customErr := s.UpdatePreferences(ctx, "u1", PreferencesUpdate{
		Privacy: strptr(PrivacyPublic),
	})
	require.Nil(t, customErr)

	prefs := s.Preferences(ctx, "u1")
	assert.Equal(t, PrivacyPublic, prefs.Privacy)
	assert.True(t, prefs.ShareForDiscovery, "untouched fields keep their defaults")

	// A second partial update leaves the first intact.
	customErr = s.UpdatePreferences(ctx, "u1", PreferencesUpdate{
		VisibleToRoomMembers: boolptr(true),
	})
	require.Nil(t, customErr)

	prefs = s.Preferences(ctx, "u1")
	assert.Equal(t, PrivacyPublic, prefs.Privacy)
	assert.True(t, prefs.VisibleToRoomMembers)
}

func TestUpdatePreferencesInvalidPrivacy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	customErr := s.UpdatePreferences(ctx, "u1", PreferencesUpdate{
		Privacy: strptr("everyone"),
	})
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
}

func TestPreferencesPartialStoredRecord(t *testing.T) {
	ctx := context.Background()
	s, m := newTestService(t)

	// A record written before some settings existed.
	require.NoError(t, m.Put(ctx, usersCollection, "u1", map[string]any{
		"locationPrivacy": PrivacyPrivate,
	}))

	prefs := s.Preferences(ctx, "u1")
	assert.Equal(t, PrivacyPrivate, prefs.Privacy)
	assert.True(t, prefs.ShareForDiscovery, "missing fields take their defaults")
	assert.False(t, prefs.VisibleToRoomMembers)
}

func TestCanShareForDiscovery(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	// Defaults: nearby-only with sharing on.
	assert.True(t, s.CanShareForDiscovery(ctx, "u1"))

	// Private privacy overrides the share flag.
	require.Nil(t, s.UpdatePreferences(ctx, "u1", PreferencesUpdate{
		Privacy: strptr(PrivacyPrivate),
	}))
	assert.False(t, s.CanShareForDiscovery(ctx, "u1"))

	// Sharing disabled explicitly.
	require.Nil(t, s.UpdatePreferences(ctx, "u2", PreferencesUpdate{
		ShareForDiscovery: boolptr(false),
	}))
	assert.False(t, s.CanShareForDiscovery(ctx, "u2"))
}

func TestFixedProvider(t *testing.T) {
	ctx := context.Background()

	p := NewFixedProvider(52.37, 4.89)
	got, err := p.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 52.37, got.Latitude)

	// (0,0) is in the Gulf of Guinea, not a missing reading.
	origin := NewFixedProvider(0, 0)
	got, err = origin.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Latitude)
	assert.Equal(t, 0.0, got.Longitude)

	unconfigured := FixedProvider{}
	_, err = unconfigured.Current(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}
