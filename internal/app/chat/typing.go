/*
Package chat contains the core synchronization logic for geolocated chat rooms.

This file defines the Typing tracker and the caller-side Debouncer. Typing
records are doubly bounded: writers delete them on stop, and readers filter out
any record older than TypingTTL, so a client that crashes mid-type can leave a
stale indicator for at most five seconds.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
)

const (
	// TypingTTL is the hard upper bound on a visible typing indication.
	// Readers drop records at or past this age regardless of physical presence.
	TypingTTL = 5 * time.Second

	// TypingDebounce is how long after the last keystroke the Debouncer waits
	// before signalling stop.
	TypingDebounce = 2 * time.Second
)

// Typing tracks ephemeral is-typing state per user per room.
type Typing struct {
	store  store.Client
	logger zerolog.Logger
}

// NewTyping constructs a Typing tracker over the given store client.
func NewTyping(client store.Client) *Typing {
	return &Typing{
		store:  client,
		logger: logx.Logger().With().Str("component", "Typing").Logger(),
	}
}

// SetTyping upserts a fresh record when isTyping is true and deletes it when
// false (deleting an absent record is success). Writes are fire-and-forget
// best-effort signals: failures are logged, never surfaced.
func (t *Typing) SetTyping(ctx context.Context, roomID, userID, userName string, isTyping bool) {
	var err error
	if isTyping {
		err = t.store.Put(ctx, TypingCollection(roomID), userID, TypingRecord{
			UserID:    userID,
			UserName:  userName,
			Timestamp: store.FormatTime(time.Now()),
		})
	} else {
		err = t.store.Delete(ctx, TypingCollection(roomID), userID)
	}

	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("room_id", roomID).
			Str("user_id", userID).
			Bool("is_typing", isTyping).
			Msg("Typing update failed; signal dropped.")
	}
}

// Subscribe delivers the room's typing records on every change, filtered to
// those younger than TypingTTL. A record written at T is visible at T+1s and
// gone from the delivered view by T+5s even if never deleted. The cancel
// function is idempotent.
func (t *Typing) Subscribe(ctx context.Context, roomID string, fn func(records []TypingRecord)) (store.CancelFunc, *errs.CustomError) {
	cancel, err := t.store.Subscribe(ctx, store.Query{Collection: TypingCollection(roomID)}, func(docs []store.Document) {
		now := time.Now()

		records := make([]TypingRecord, 0, len(docs))
		for _, doc := range docs {
			var record TypingRecord
			if decodeErr := doc.Decode(&record); decodeErr != nil {
				t.logger.Error().Err(decodeErr).Str("room_id", roomID).Msg("Skipping undecodable typing record.")
				continue
			}

			if now.Sub(record.Time()) < TypingTTL {
				records = append(records, record)
			}
		}

		fn(records)
	})

	if err != nil {
		t.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to establish typing subscription.")
		return nil, errs.NewError(errs.ErrSubscriptionFailed)
	}

	return cancel, nil
}

// Debouncer implements the caller-side keystroke pattern for one user in one
// room: every keystroke refreshes the typing record and re-arms a stop timer;
// quiet for TypingDebounce, or an explicit Stop (e.g. on message send), clears
// the record immediately.
type Debouncer struct {
	typing   *Typing
	roomID   string
	userID   string
	userName string
	delay    time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer constructs a Debouncer bound to one (room, user) pair.
func NewDebouncer(typing *Typing, roomID, userID, userName string) *Debouncer {
	return &Debouncer{
		typing:   typing,
		roomID:   roomID,
		userID:   userID,
		userName: userName,
		delay:    TypingDebounce,
	}
}

// Touch signals a keystroke: the typing record is refreshed and the pending
// stop timer replaced.
func (d *Debouncer) Touch(ctx context.Context) {
	d.typing.SetTyping(ctx, d.roomID, d.userID, d.userName, true)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.typing.SetTyping(context.Background(), d.roomID, d.userID, d.userName, false)
	})
}

// Stop cancels any pending timer and clears the typing record immediately.
// Safe to call repeatedly and without a preceding Touch.
func (d *Debouncer) Stop(ctx context.Context) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.typing.SetTyping(ctx, d.roomID, d.userID, d.userName, false)
}
