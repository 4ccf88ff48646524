/*
Package chat contains the core synchronization logic for geolocated chat rooms.

This file defines the Reactions aggregator: per-message emoji reaction state
with toggle semantics. The toggle runs through the store's atomic update
primitive, so two users toggling the same emoji concurrently both land — the
naive read-then-write variant would let one overwrite the other.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
)

// Reactions maintains per-message emoji → user-set state.
type Reactions struct {
	store  store.Client
	logger zerolog.Logger
}

// NewReactions constructs a Reactions aggregator over the given store client.
func NewReactions(client store.Client) *Reactions {
	return &Reactions{
		store:  client,
		logger: logx.Logger().With().Str("component", "Reactions").Logger(),
	}
}

// Toggle flips the user's membership in the emoji's reaction set: add when
// absent, remove when present. An emoji whose set empties is pruned from the
// map, and a user appears at most once per emoji. The updated reaction map is
// returned. Fails with a not-found error when the message does not exist.
func (r *Reactions) Toggle(ctx context.Context, messageID, emoji, userID string) (map[string][]string, *errs.CustomError) {
	var updated map[string][]string

	err := r.store.Update(ctx, MessagesCollection, messageID, func(current json.RawMessage) (json.RawMessage, error) {
		var message Message
		if err := json.Unmarshal(current, &message); err != nil {
			return nil, err
		}

		message.Reactions = toggleReaction(message.Reactions, emoji, userID)
		updated = message.Reactions

		return json.Marshal(message)
	})

	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NewError(errs.ErrMessageNotFound)
	}
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("message_id", messageID).
			Str("emoji", emoji).
			Msg("Failed to toggle reaction.")
		return nil, errs.NewError(errs.ErrStoreUnavailable)
	}

	return updated, nil
}

// toggleReaction computes the post-toggle reaction map. The input map is not
// mutated; user order within a set is preserved.
func toggleReaction(reactions map[string][]string, emoji, userID string) map[string][]string {
	result := make(map[string][]string, len(reactions)+1)
	for key, users := range reactions {
		result[key] = append([]string(nil), users...)
	}

	users := result[emoji]

	present := false
	for _, id := range users {
		if id == userID {
			present = true
			break
		}
	}

	if present {
		kept := make([]string, 0, len(users)-1)
		for _, id := range users {
			if id != userID {
				kept = append(kept, id)
			}
		}
		users = kept
	} else {
		users = append(users, userID)
	}

	if len(users) == 0 {
		delete(result, emoji)
	} else {
		result[emoji] = users
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
