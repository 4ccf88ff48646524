/*
Package chat contains the core synchronization logic for geolocated chat rooms.

This file defines the Channel, the live, time-ordered view of one room's
messages. Every store-side change re-delivers the full bounded snapshot rather
than a diff; subscribers replace their entire view on each delivery.
*/
package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
)

// MessageLimit bounds every delivered snapshot to the most recent messages.
const MessageLimit = 100

// MaxMessageLength bounds the accepted message body, enforced at the caller
// boundary alongside the non-empty check.
const MaxMessageLength = 2000

// Channel produces live message views and accepts sends for rooms.
type Channel struct {
	store  store.Client
	logger zerolog.Logger
}

// NewChannel constructs a Channel over the given store client.
func NewChannel(client store.Client) *Channel {
	return &Channel{
		store:  client,
		logger: logx.Logger().With().Str("component", "Channel").Logger(),
	}
}

// Subscribe establishes a live view of the room's most recent messages.
// The callback fires once immediately with the current snapshot and again on
// every subsequent change, each time with at most MessageLimit messages sorted
// ascending by timestamp. The sort happens here because the store's own query
// order under a composite filter is arrival order, not guaranteed chronology.
// The returned cancel function is idempotent.
func (c *Channel) Subscribe(ctx context.Context, roomID string, fn func(messages []Message)) (store.CancelFunc, *errs.CustomError) {
	query := store.Query{
		Collection: MessagesCollection,
		Field:      "roomId",
		Equals:     roomID,
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      MessageLimit,
	}

	cancel, err := c.store.Subscribe(ctx, query, func(docs []store.Document) {
		messages, decodeErr := decodeMessages(docs)
		if decodeErr != nil {
			c.logger.Error().Err(decodeErr).Str("room_id", roomID).Msg("Dropping snapshot with undecodable message.")
			return
		}

		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].Time().Before(messages[j].Time())
		})

		fn(messages)
	})

	if err != nil {
		c.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to establish message subscription.")
		return nil, errs.NewError(errs.ErrSubscriptionFailed)
	}

	return cancel, nil
}

// Send persists a new message with a fresh write timestamp and returns its
// store-generated identity. Afterwards it best-effort merges the parent room's
// lastActivity marker: the marker update and the message write are not
// transactional, so a marker failure is logged while the message stands.
// Empty-text rejection belongs to the caller boundary, not here.
func (c *Channel) Send(ctx context.Context, roomID, userID, userName, text string, attachments []string) (string, *errs.CustomError) {
	if _, customErr := c.roomExists(ctx, roomID); customErr != nil {
		return "", customErr
	}

	now := store.FormatTime(time.Now())

	message := Message{
		RoomID:      roomID,
		UserID:      userID,
		UserName:    userName,
		Text:        text,
		Timestamp:   now,
		Attachments: attachments,
	}

	id, err := c.store.Add(ctx, MessagesCollection, message)
	if err != nil {
		c.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to persist message.")
		return "", errs.NewError(errs.ErrStoreUnavailable)
	}

	if err := c.store.Merge(ctx, RoomsCollection, roomID, map[string]any{
		"lastActivity": now,
	}); err != nil {
		c.logger.Warn().
			Err(err).
			Str("room_id", roomID).
			Str("message_id", id).
			Msg("Message stored but room activity marker update failed.")
	}

	return id, nil
}

// ValidateMessageText enforces the caller-boundary rules on a message body:
// the trimmed text must be non-empty unless the message carries attachments,
// and must not exceed MaxMessageLength.
func ValidateMessageText(text string, hasAttachments bool) *errs.CustomError {
	if strings.TrimSpace(text) == "" && !hasAttachments {
		return errs.NewError(errs.ErrEmptyMessage)
	}

	if len(text) > MaxMessageLength {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	return nil
}

// roomExists verifies the parent room before a send.
func (c *Channel) roomExists(ctx context.Context, roomID string) (store.Document, *errs.CustomError) {
	doc, err := c.store.Get(ctx, RoomsCollection, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Document{}, errs.NewError(errs.ErrRoomNotFound)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to verify room before send.")
		return store.Document{}, errs.NewError(errs.ErrStoreUnavailable)
	}
	return doc, nil
}
