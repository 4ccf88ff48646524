package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
)

func newTestChannel(t *testing.T) (*Channel, *Directory, *store.MemStore) {
	t.Helper()

	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })
	return NewChannel(m), NewDirectory(m), m
}

func createTestRoom(t *testing.T, d *Directory) Room {
	t.Helper()

	room, customErr := d.Create(context.Background(), CreateRoomInput{
		Name: "r", CreatedBy: "u1", Latitude: 0, Longitude: 0.000001, RadiusKm: 5,
	})
	require.Nil(t, customErr)
	return room
}

// waitForMessages blocks until a delivered message snapshot satisfies the predicate.
func waitForMessages(t *testing.T, snapshots <-chan []Message, ok func([]Message) bool) []Message {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-snapshots:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for message snapshot")
			return nil
		}
	}
}

func TestChannelSend(t *testing.T) {
	ctx := context.Background()
	c, d, _ := newTestChannel(t)
	room := createTestRoom(t, d)

	id, customErr := c.Send(ctx, room.ID, "u1", "Alice", "hello", nil)
	require.Nil(t, customErr)
	require.NotEmpty(t, id)

	// Sending bumps the room's activity marker.
	got, getErr := d.Get(ctx, room.ID)
	require.Nil(t, getErr)
	assert.NotEmpty(t, got.LastActivity)
}

func TestChannelSendAbsentRoom(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestChannel(t)

	_, customErr := c.Send(ctx, "no-such-room", "u1", "Alice", "hello", nil)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrRoomNotFound, customErr.Code)
}

func TestChannelSubscribeChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	c, d, m := newTestChannel(t)
	room := createTestRoom(t, d)

	// Insert out of chronological order; the delivered view must be ascending.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, offset := range []int{3, 1, 2} {
		require.NoError(t, m.Put(ctx, MessagesCollection, fmt.Sprintf("m%d", offset), Message{
			RoomID:    room.ID,
			UserID:    "u1",
			UserName:  "Alice",
			Text:      fmt.Sprintf("msg %d", offset),
			Timestamp: store.FormatTime(base.Add(time.Duration(offset) * time.Second)),
		}))
	}

	snapshots := make(chan []Message, 8)
	cancel, customErr := c.Subscribe(ctx, room.ID, func(messages []Message) {
		snapshots <- messages
	})
	require.Nil(t, customErr)
	defer cancel()

	snap := waitForMessages(t, snapshots, func(messages []Message) bool { return len(messages) == 3 })
	assert.Equal(t, "msg 1", snap[0].Text)
	assert.Equal(t, "msg 2", snap[1].Text)
	assert.Equal(t, "msg 3", snap[2].Text)
}

func TestChannelSubscribeBounded(t *testing.T) {
	ctx := context.Background()
	c, d, m := newTestChannel(t)
	room := createTestRoom(t, d)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	total := MessageLimit + 5
	for i := 0; i < total; i++ {
		require.NoError(t, m.Put(ctx, MessagesCollection, fmt.Sprintf("m%03d", i), Message{
			RoomID:    room.ID,
			UserID:    "u1",
			UserName:  "Alice",
			Text:      fmt.Sprintf("msg %d", i),
			Timestamp: store.FormatTime(base.Add(time.Duration(i) * time.Second)),
		}))
	}

	snapshots := make(chan []Message, 8)
	cancel, customErr := c.Subscribe(ctx, room.ID, func(messages []Message) {
		snapshots <- messages
	})
	require.Nil(t, customErr)
	defer cancel()

	snap := waitForMessages(t, snapshots, func(messages []Message) bool { return len(messages) == MessageLimit })

	// The most recent MessageLimit messages survive; the oldest are dropped.
	assert.Equal(t, "msg 5", snap[0].Text)
	assert.Equal(t, fmt.Sprintf("msg %d", total-1), snap[len(snap)-1].Text)
}

func TestChannelSubscribeFiltersOtherRooms(t *testing.T) {
	ctx := context.Background()
	c, d, m := newTestChannel(t)
	room := createTestRoom(t, d)
	other := createTestRoom(t, d)

	require.NoError(t, m.Put(ctx, MessagesCollection, "mine", Message{
		RoomID: room.ID, UserID: "u1", UserName: "Alice", Text: "mine",
		Timestamp: store.FormatTime(time.Now()),
	}))
	require.NoError(t, m.Put(ctx, MessagesCollection, "theirs", Message{
		RoomID: other.ID, UserID: "u2", UserName: "Bob", Text: "theirs",
		Timestamp: store.FormatTime(time.Now()),
	}))

	snapshots := make(chan []Message, 8)
	cancel, customErr := c.Subscribe(ctx, room.ID, func(messages []Message) {
		snapshots <- messages
	})
	require.Nil(t, customErr)
	defer cancel()

	snap := waitForMessages(t, snapshots, func(messages []Message) bool { return len(messages) > 0 })
	require.Len(t, snap, 1)
	assert.Equal(t, "mine", snap[0].Text)
}

// mergeFailingStore wraps a Client and fails Merge on one collection, to
// exercise the non-transactional activity marker path.
type mergeFailingStore struct {
	store.Client
	failCollection string
}

func (s *mergeFailingStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == s.failCollection {
		return errors.New("merge refused")
	}
	return s.Client.Merge(ctx, collection, id, fields)
}

func TestChannelSendSurvivesMarkerFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	t.Cleanup(func() { m.Close() })

	d := NewDirectory(m)
	room := createTestRoom(t, d)

	c := NewChannel(&mergeFailingStore{Client: m, failCollection: RoomsCollection})

	id, customErr := c.Send(ctx, room.ID, "u1", "Alice", "hello", nil)
	require.Nil(t, customErr, "a failed activity marker must not fail the send")
	require.NotEmpty(t, id)

	// The message itself is stored.
	_, err := m.Get(ctx, MessagesCollection, id)
	assert.NoError(t, err)
}

func TestValidateMessageText(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		hasAttachments bool
		expectedCode   int
	}{
		{"plain text", "hello", false, 0},
		{"empty", "", false, errs.ErrEmptyMessage},
		{"whitespace only", "   \t\n", false, errs.ErrEmptyMessage},
		{"empty with attachments", "", true, 0},
		{"at length limit", strings.Repeat("a", MaxMessageLength), false, 0},
		{"over length limit", strings.Repeat("a", MaxMessageLength+1), false, errs.ErrMessageContentTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customErr := ValidateMessageText(tt.text, tt.hasAttachments)
			if tt.expectedCode == 0 {
				assert.Nil(t, customErr)
			} else {
				require.NotNil(t, customErr)
				assert.Equal(t, tt.expectedCode, customErr.Code)
			}
		})
	}
}
