/*
Package chat contains the core synchronization logic for geolocated chat rooms:
the room directory with geospatial discovery, the live message channel, the
presence and typing trackers, and the reaction aggregator.

All state lives in the backing document store; this package holds nothing
beyond what a live subscription mirrors. Collections: "rooms" and "messages"
are global (messages carry a roomId field), while presence, typing, and
membership records live in per-room collections.
*/
package chat

import (
	"time"

	"geochat/internal/app/store"
)

// Store collection names and per-room collection prefixes.
const (
	RoomsCollection    = "rooms"
	MessagesCollection = "messages"

	presenceCollectionPrefix = "presence/"
	typingCollectionPrefix   = "typing/"
	membersCollectionPrefix  = "members/"
)

// PresenceCollection returns the per-room presence collection name.
func PresenceCollection(roomID string) string {
	return presenceCollectionPrefix + roomID
}

// TypingCollection returns the per-room typing collection name.
func TypingCollection(roomID string) string {
	return typingCollectionPrefix + roomID
}

// MembersCollection returns the per-room membership collection name.
func MembersCollection(roomID string) string {
	return membersCollectionPrefix + roomID
}

// Room is a named, geolocated chat channel.
// Timestamps are stored in store.TimeLayout so their encoded order is chronological.
type Room struct {
	ID           string  `json:"-"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	CreatedBy    string  `json:"createdBy"`
	CreatedAt    string  `json:"createdAt"`
	MemberCount  int     `json:"memberCount"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusKm     float64 `json:"radius"`
	LastActivity string  `json:"lastActivity,omitempty"`
}

// CreatedAtTime returns the parsed creation timestamp.
func (r Room) CreatedAtTime() time.Time {
	return store.ParseTime(r.CreatedAt)
}

// Message is a single chat message. Immutable after send except for Reactions.
type Message struct {
	ID          string              `json:"-"`
	RoomID      string              `json:"roomId"`
	UserID      string              `json:"userId"`
	UserName    string              `json:"userName"`
	Text        string              `json:"text"`
	Timestamp   string              `json:"timestamp"`
	Attachments []string            `json:"attachments,omitempty"`
	Reactions   map[string][]string `json:"reactions,omitempty"`
}

// Time returns the parsed write timestamp.
func (m Message) Time() time.Time {
	return store.ParseTime(m.Timestamp)
}

// Presence status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceRecord is the per-user, per-room online/offline signal.
// Records are overwritten, never deleted.
type PresenceRecord struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Status   string `json:"status"`
	LastSeen string `json:"lastSeen"`
}

// TypingRecord is the ephemeral per-user, per-room composing signal.
// Readers treat it as expired once its timestamp is TypingTTL old, whether or
// not the writer cleaned it up.
type TypingRecord struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Timestamp string `json:"timestamp"`
}

// Time returns the parsed record timestamp.
func (t TypingRecord) Time() time.Time {
	return store.ParseTime(t.Timestamp)
}

// decodeRooms converts store documents into Room values.
func decodeRooms(docs []store.Document) ([]Room, error) {
	rooms := make([]Room, 0, len(docs))
	for _, doc := range docs {
		var room Room
		if err := doc.Decode(&room); err != nil {
			return nil, err
		}
		room.ID = doc.ID
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// decodeMessages converts store documents into Message values.
func decodeMessages(docs []store.Document) ([]Message, error) {
	messages := make([]Message, 0, len(docs))
	for _, doc := range docs {
		var msg Message
		if err := doc.Decode(&msg); err != nil {
			return nil, err
		}
		msg.ID = doc.ID
		messages = append(messages, msg)
	}
	return messages, nil
}
