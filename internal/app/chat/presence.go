/*
Package chat contains the core synchronization logic for geolocated chat rooms.

This file defines the Presence tracker: the per-user, per-room online/offline
signal. Records are only ever overwritten or merged, never deleted; there is no
heartbeat or TTL, so a client that dies without calling offline leaves a stale
online record whose lastSeen timestamp is the only tell.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
)

// Presence tracks ephemeral online/offline state per user per room.
type Presence struct {
	store  store.Client
	logger zerolog.Logger
}

// NewPresence constructs a Presence tracker over the given store client.
func NewPresence(client store.Client) *Presence {
	return &Presence{
		store:  client,
		logger: logx.Logger().With().Str("component", "Presence").Logger(),
	}
}

// SetPresence transitions the user's record. Online overwrites the record
// wholesale with a fresh lastSeen; offline merges status and lastSeen into the
// existing record, preserving any other fields. Writes are fire-and-forget
// best-effort signals: failures are logged, never surfaced.
func (p *Presence) SetPresence(ctx context.Context, roomID, userID, userName, status string) {
	now := store.FormatTime(time.Now())

	var err error
	if status == StatusOnline {
		err = p.store.Put(ctx, PresenceCollection(roomID), userID, PresenceRecord{
			UserID:   userID,
			UserName: userName,
			Status:   StatusOnline,
			LastSeen: now,
		})
	} else {
		err = p.store.Merge(ctx, PresenceCollection(roomID), userID, map[string]any{
			"userId":   userID,
			"userName": userName,
			"status":   StatusOffline,
			"lastSeen": now,
		})
	}

	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("room_id", roomID).
			Str("user_id", userID).
			Str("status", status).
			Msg("Presence update failed; signal dropped.")
	}
}

// Subscribe delivers the full set of presence records for the room on every
// change, starting with one immediate snapshot. The cancel function is idempotent.
func (p *Presence) Subscribe(ctx context.Context, roomID string, fn func(records []PresenceRecord)) (store.CancelFunc, *errs.CustomError) {
	cancel, err := p.store.Subscribe(ctx, store.Query{Collection: PresenceCollection(roomID)}, func(docs []store.Document) {
		records := make([]PresenceRecord, 0, len(docs))
		for _, doc := range docs {
			var record PresenceRecord
			if decodeErr := doc.Decode(&record); decodeErr != nil {
				p.logger.Error().Err(decodeErr).Str("room_id", roomID).Msg("Skipping undecodable presence record.")
				continue
			}
			records = append(records, record)
		}

		fn(records)
	})

	if err != nil {
		p.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to establish presence subscription.")
		return nil, errs.NewError(errs.ErrSubscriptionFailed)
	}

	return cancel, nil
}
