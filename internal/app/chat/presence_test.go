package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geochat/internal/app/store"
)

func waitForPresence(t *testing.T, snapshots <-chan []PresenceRecord, ok func([]PresenceRecord) bool) []PresenceRecord {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-snapshots:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for presence snapshot")
			return nil
		}
	}
}

func TestPresenceOnlineOffline(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	p := NewPresence(m)

	p.SetPresence(ctx, "room1", "u1", "Alice", StatusOnline)

	doc, err := m.Get(ctx, PresenceCollection("room1"), "u1")
	require.NoError(t, err)

	var record PresenceRecord
	require.NoError(t, doc.Decode(&record))
	assert.Equal(t, StatusOnline, record.Status)
	assert.Equal(t, "Alice", record.UserName)
	assert.NotEmpty(t, record.LastSeen)

	p.SetPresence(ctx, "room1", "u1", "Alice", StatusOffline)

	doc, err = m.Get(ctx, PresenceCollection("room1"), "u1")
	require.NoError(t, err)
	require.NoError(t, doc.Decode(&record))
	assert.Equal(t, StatusOffline, record.Status)

	// Going offline never deletes the record.
	_, err = m.Get(ctx, PresenceCollection("room1"), "u1")
	assert.NoError(t, err)
}

func TestPresenceOfflineMergePreservesExtraFields(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	p := NewPresence(m)

	// A record carrying a field this version does not know about.
	require.NoError(t, m.Put(ctx, PresenceCollection("room1"), "u1", map[string]any{
		"userId":   "u1",
		"userName": "Alice",
		"status":   StatusOnline,
		"lastSeen": store.FormatTime(time.Now()),
		"device":   "mobile",
	}))

	p.SetPresence(ctx, "room1", "u1", "Alice", StatusOffline)

	doc, err := m.Get(ctx, PresenceCollection("room1"), "u1")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, doc.Decode(&body))
	assert.Equal(t, StatusOffline, body["status"])
	assert.Equal(t, "mobile", body["device"], "offline is a merge, not an overwrite")
}

func TestPresenceOnlineOverwrites(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	p := NewPresence(m)

	require.NoError(t, m.Put(ctx, PresenceCollection("room1"), "u1", map[string]any{
		"userId": "u1",
		"status": StatusOffline,
		"device": "mobile",
	}))

	p.SetPresence(ctx, "room1", "u1", "Alice", StatusOnline)

	doc, err := m.Get(ctx, PresenceCollection("room1"), "u1")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, doc.Decode(&body))
	assert.Equal(t, StatusOnline, body["status"])
	_, hasDevice := body["device"]
	assert.False(t, hasDevice, "online is a full overwrite")
}

func TestPresenceSubscribe(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	p := NewPresence(m)

	snapshots := make(chan []PresenceRecord, 8)
	cancel, customErr := p.Subscribe(ctx, "room1", func(records []PresenceRecord) {
		snapshots <- records
	})
	require.Nil(t, customErr)
	defer cancel()

	waitForPresence(t, snapshots, func(records []PresenceRecord) bool { return len(records) == 0 })

	p.SetPresence(ctx, "room1", "u1", "Alice", StatusOnline)
	snap := waitForPresence(t, snapshots, func(records []PresenceRecord) bool { return len(records) == 1 })
	assert.Equal(t, "u1", snap[0].UserID)
	assert.Equal(t, StatusOnline, snap[0].Status)

	// A second room's presence does not leak in.
	p.SetPresence(ctx, "room2", "u2", "Bob", StatusOnline)
	p.SetPresence(ctx, "room1", "u1", "Alice", StatusOffline)

	snap = waitForPresence(t, snapshots, func(records []PresenceRecord) bool {
		return len(records) == 1 && records[0].Status == StatusOffline
	})
	assert.Equal(t, "u1", snap[0].UserID)
}
