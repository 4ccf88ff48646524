/*
Package chat contains the core synchronization logic for geolocated chat rooms.

This file defines the Directory, which owns room metadata: creation, listing,
join/leave membership accounting, and geospatial discovery of nearby rooms.
*/
package chat

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"geochat/internal/app/geo"
	"geochat/internal/app/store"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
)

// Directory lists, creates, and discovers room records.
type Directory struct {
	store  store.Client
	logger zerolog.Logger
}

// NewDirectory constructs a Directory over the given store client.
func NewDirectory(client store.Client) *Directory {
	return &Directory{
		store:  client,
		logger: logx.Logger().With().Str("component", "Directory").Logger(),
	}
}

// CreateRoomInput carries the caller-supplied fields of a new room.
type CreateRoomInput struct {
	Name        string
	Description string
	CreatedBy   string
	Latitude    float64
	Longitude   float64
	RadiusKm    float64
}

// Create validates the coordinates and persists a new room record.
// The creator counts as the first member.
func (d *Directory) Create(ctx context.Context, input CreateRoomInput) (Room, *errs.CustomError) {
	if !geo.ValidCoordinate(input.Latitude, input.Longitude) {
		return Room{}, errs.NewError(errs.ErrInvalidCoordinate)
	}

	if input.RadiusKm <= 0 || math.IsNaN(input.RadiusKm) || math.IsInf(input.RadiusKm, 0) {
		return Room{}, errs.NewError(errs.ErrInvalidRadius)
	}

	room := Room{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   store.FormatTime(time.Now()),
		MemberCount: 1,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		RadiusKm:    input.RadiusKm,
	}

	id, err := d.store.Add(ctx, RoomsCollection, room)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to create room.")
		return Room{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	room.ID = id

	d.logger.Info().
		Str("room_id", id).
		Str("created_by", input.CreatedBy).
		Msg("Room created.")

	return room, nil
}

// List returns all rooms, newest first.
func (d *Directory) List(ctx context.Context) ([]Room, *errs.CustomError) {
	docs, err := d.store.Find(ctx, store.Query{
		Collection: RoomsCollection,
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to list rooms.")
		return nil, errs.NewError(errs.ErrStoreUnavailable)
	}

	rooms, err := decodeRooms(docs)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to decode room records.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	return rooms, nil
}

// Get performs a point read of one room.
func (d *Directory) Get(ctx context.Context, roomID string) (Room, *errs.CustomError) {
	doc, err := d.store.Get(ctx, RoomsCollection, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return Room{}, errs.NewError(errs.ErrRoomNotFound)
	}
	if err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to fetch room.")
		return Room{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	var room Room
	if err := doc.Decode(&room); err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to decode room record.")
		return Room{}, errs.NewError(errs.ErrUnknown)
	}
	room.ID = doc.ID

	return room, nil
}

// Join records the user's membership marker and bumps the member count.
func (d *Directory) Join(ctx context.Context, roomID, userID string) *errs.CustomError {
	room, customErr := d.Get(ctx, roomID)
	if customErr != nil {
		return customErr
	}

	if err := d.store.Put(ctx, MembersCollection(roomID), userID, map[string]any{
		"joinedAt": store.FormatTime(time.Now()),
	}); err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("Failed to record membership.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	if err := d.store.Merge(ctx, RoomsCollection, roomID, map[string]any{
		"memberCount": room.MemberCount + 1,
	}); err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to increment member count.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// Leave marks the user's membership record as left and decrements the member
// count, never below zero.
func (d *Directory) Leave(ctx context.Context, roomID, userID string) *errs.CustomError {
	room, customErr := d.Get(ctx, roomID)
	if customErr != nil {
		return customErr
	}

	if err := d.store.Merge(ctx, MembersCollection(roomID), userID, map[string]any{
		"leftAt": store.FormatTime(time.Now()),
	}); err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("Failed to record departure.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	count := room.MemberCount - 1
	if count < 0 {
		count = 0
	}

	if err := d.store.Merge(ctx, RoomsCollection, roomID, map[string]any{
		"memberCount": count,
	}); err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to decrement member count.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// Nearby scans the full directory and returns the rooms within radiusKm of the
// query point (inclusive boundary), sorted ascending by member count. The
// member-count ordering ranks rooms by vibrancy rather than proximity; callers
// wanting distance order derive the distance per room and re-sort themselves.
// The scan is linear in total room count, which fits small directories.
func (d *Directory) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]Room, *errs.CustomError) {
	if !geo.ValidCoordinate(lat, lon) {
		return nil, errs.NewError(errs.ErrInvalidCoordinate)
	}

	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, errs.NewError(errs.ErrInvalidRadius)
	}

	docs, err := d.store.Find(ctx, store.Query{Collection: RoomsCollection})
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to scan rooms for discovery.")
		return nil, errs.NewError(errs.ErrStoreUnavailable)
	}

	rooms, err := decodeRooms(docs)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to decode room records.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	nearby := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		if geo.Distance(lat, lon, room.Latitude, room.Longitude) <= radiusKm {
			nearby = append(nearby, room)
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].MemberCount < nearby[j].MemberCount
	})

	return nearby, nil
}
