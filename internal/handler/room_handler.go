/*
Package handler provides HTTP handler functions for room listing, creation,
membership, and geospatial discovery.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"geochat/internal/app/chat"
	"geochat/internal/app/geo"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
	"geochat/internal/pkg/randx"
	"geochat/internal/pkg/req"
	"geochat/internal/pkg/resp"
)

// DefaultDiscoveryRadiusKm applies when a nearby query names no radius.
const DefaultDiscoveryRadiusKm = 10.0

// roomPayload is the wire shape of a room record.
type roomPayload struct {
	ID           string  `json:"id"`
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

func toRoomPayload(room chat.Room) roomPayload {
	return roomPayload{
		ID:           room.ID,
		Name:         room.Name,
		Description:  room.Description,
		CreatedBy:    room.CreatedBy,
		CreatedAt:    room.CreatedAt,
		MemberCount:  room.MemberCount,
		Latitude:     room.Latitude,
		Longitude:    room.Longitude,
		RadiusKm:     room.RadiusKm,
		LastActivity: room.LastActivity,
	}
}

// nearbyRoomPayload decorates a room with its derived distance from the query
// point. Distance is derivable, so callers wanting proximity order can re-sort
// on it; the list itself stays in the member-count order the directory returns.
type nearbyRoomPayload struct {
	roomPayload
	DistanceKm    float64 `json:"distanceKm"`
	DistanceLabel string  `json:"distanceLabel"`
}

// CreateRoomInput defines the JSON input structure for room creation.
type CreateRoomInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatedBy   string  `json:"createdBy"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RadiusKm    float64 `json:"radius"`
}

// HandleCreateRoom creates an HTTP HandlerFunc to process room creation requests.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput

		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Name == "" || input.CreatedBy == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		room, customErr := deps.Directory.Create(r.Context(), chat.CreateRoomInput{
			Name:        input.Name,
			Description: input.Description,
			CreatedBy:   input.CreatedBy,
			Latitude:    input.Latitude,
			Longitude:   input.Longitude,
			RadiusKm:    input.RadiusKm,
		})
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, toRoomPayload(room))
	}
}

// HandleListRooms returns the full room directory, newest first.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, customErr := deps.Directory.List(r.Context())
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		payload := make([]roomPayload, 0, len(rooms))
		for _, room := range rooms {
			payload = append(payload, toRoomPayload(room))
		}

		resp.RespondSuccess(w, r, map[string]any{"rooms": payload})
	}
}

// HandleNearbyRooms answers "which rooms are near me". The query point comes
// from lat/lon query parameters, falling back to the configured geolocation
// provider. A provider failure degrades the response to the full room list;
// it is never fatal.
func HandleNearbyRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		radius, customErr := req.QueryFloatDefault(r, "radius", DefaultDiscoveryRadiusKm)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var lat, lon float64
		haveOrigin := false

		if r.URL.Query().Get("lat") != "" || r.URL.Query().Get("lon") != "" {
			if lat, customErr = req.QueryFloat(r, "lat"); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			if lon, customErr = req.QueryFloat(r, "lon"); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			haveOrigin = true
		} else if deps.Locator != nil {
			reading, err := deps.Locator.Current(r.Context())
			if err != nil {
				logx.Warn("Geolocation unavailable; degrading to full room list.", "error", err.Error())
			} else {
				lat, lon = reading.Latitude, reading.Longitude
				haveOrigin = true
			}
		}

		if !haveOrigin {
			rooms, customErr := deps.Directory.List(r.Context())
			if customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}

			payload := make([]roomPayload, 0, len(rooms))
			for _, room := range rooms {
				payload = append(payload, toRoomPayload(room))
			}

			resp.RespondSuccess(w, r, map[string]any{"rooms": payload, "degraded": true})
			return
		}

		rooms, customErr := deps.Directory.Nearby(r.Context(), lat, lon, radius)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		payload := make([]nearbyRoomPayload, 0, len(rooms))
		for _, room := range rooms {
			distance := geo.Distance(lat, lon, room.Latitude, room.Longitude)
			payload = append(payload, nearbyRoomPayload{
				roomPayload:   toRoomPayload(room),
				DistanceKm:    distance,
				DistanceLabel: geo.FormatDistance(distance),
			})
		}

		resp.RespondSuccess(w, r, map[string]any{"rooms": payload})
	}
}

// MembershipInput identifies the user joining or leaving a room.
type MembershipInput struct {
	UserID string `json:"userId"`
}

// HandleJoinRoom processes the request to join a room.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if !randx.IsValidDocID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input MembershipInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := deps.Directory.Join(r.Context(), roomID, input.UserID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleLeaveRoom processes the request to leave a room.
func HandleLeaveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if !randx.IsValidDocID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input MembershipInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := deps.Directory.Leave(r.Context(), roomID, input.UserID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
