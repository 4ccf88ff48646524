package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geochat/internal/app/store"
)

func waitForTyping(t *testing.T, snapshots <-chan []TypingRecord, ok func([]TypingRecord) bool) []TypingRecord {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-snapshots:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for typing snapshot")
			return nil
		}
	}
}

func TestSetTyping(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	typing.SetTyping(ctx, "room1", "u1", "Alice", true)

	doc, err := m.Get(ctx, TypingCollection("room1"), "u1")
	require.NoError(t, err)

	var record TypingRecord
	require.NoError(t, doc.Decode(&record))
	assert.Equal(t, "Alice", record.UserName)
	assert.NotEmpty(t, record.Timestamp)

	typing.SetTyping(ctx, "room1", "u1", "Alice", false)

	_, err = m.Get(ctx, TypingCollection("room1"), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Stopping when no record exists is fine.
	typing.SetTyping(ctx, "room1", "u1", "Alice", false)
}

func TestTypingSubscribeFiltersStaleRecords(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	// One fresh record and one a writer failed to clean up.
	require.NoError(t, m.Put(ctx, TypingCollection("room1"), "fresh", TypingRecord{
		UserID:    "fresh",
		UserName:  "Alice",
		Timestamp: store.FormatTime(time.Now().Add(-time.Second)),
	}))
	require.NoError(t, m.Put(ctx, TypingCollection("room1"), "stale", TypingRecord{
		UserID:    "stale",
		UserName:  "Bob",
		Timestamp: store.FormatTime(time.Now().Add(-6 * time.Second)),
	}))

	snapshots := make(chan []TypingRecord, 8)
	cancel, customErr := typing.Subscribe(ctx, "room1", func(records []TypingRecord) {
		snapshots <- records
	})
	require.Nil(t, customErr)
	defer cancel()

	snap := waitForTyping(t, snapshots, func(records []TypingRecord) bool { return len(records) == 1 })
	assert.Equal(t, "fresh", snap[0].UserID)
}

func TestTypingSubscribeDeliversChanges(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	snapshots := make(chan []TypingRecord, 8)
	cancel, customErr := typing.Subscribe(ctx, "room1", func(records []TypingRecord) {
		snapshots <- records
	})
	require.Nil(t, customErr)
	defer cancel()

	waitForTyping(t, snapshots, func(records []TypingRecord) bool { return len(records) == 0 })

	typing.SetTyping(ctx, "room1", "u1", "Alice", true)
	waitForTyping(t, snapshots, func(records []TypingRecord) bool { return len(records) == 1 })

	typing.SetTyping(ctx, "room1", "u1", "Alice", false)
	waitForTyping(t, snapshots, func(records []TypingRecord) bool { return len(records) == 0 })
}

func TestDebouncerTouchAndStop(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	d := NewDebouncer(typing, "room1", "u1", "Alice")

	d.Touch(ctx)

	_, err := m.Get(ctx, TypingCollection("room1"), "u1")
	require.NoError(t, err, "a touch writes the record immediately")

	d.Stop(ctx)

	_, err = m.Get(ctx, TypingCollection("room1"), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound, "stop clears the record without waiting out the debounce")
}

func TestDebouncerExpiresAfterQuiet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	d := NewDebouncer(typing, "room1", "u1", "Alice")
	d.delay = 50 * time.Millisecond

	d.Touch(ctx)

	assert.Eventually(t, func() bool {
		_, err := m.Get(ctx, TypingCollection("room1"), "u1")
		return err != nil
	}, time.Second, 10*time.Millisecond, "quiet period must clear the record")
}

func TestDebouncerTouchReArmsTimer(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	d := NewDebouncer(typing, "room1", "u1", "Alice")
	d.delay = 80 * time.Millisecond

	d.Touch(ctx)
	time.Sleep(50 * time.Millisecond)
	d.Touch(ctx)
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first touch, but only 50ms after the second: still typing.
	_, err := m.Get(ctx, TypingCollection("room1"), "u1")
	assert.NoError(t, err, "each touch restarts the quiet period")

	d.Stop(ctx)
}

func TestDebouncerStopWithoutTouch(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	typing := NewTyping(m)

	d := NewDebouncer(typing, "room1", "u1", "Alice")

	// Must not panic or error.
	d.Stop(ctx)
	d.Stop(ctx)
}
