/*
This file contains the HandleWebSocket function, which is responsible for
validating room and user parameters, upgrading the HTTP connection to
WebSocket, and running the session lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"geochat/internal/app/chat"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
	"geochat/internal/pkg/randx"
	"geochat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if !randx.IsValidDocID(roomID) {
			logx.Warn("WebSocket request rejected: Invalid room id", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		query := r.URL.Query()
		userID := query.Get("uid")
		userName := query.Get("nn")

		if userID == "" || userName == "" {
			logx.Warn("WebSocket request rejected: Missing uid or nn query parameters", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, customErr := deps.Directory.Get(r.Context(), roomID); customErr != nil {
			logx.Info("WebSocket connection rejected: Room lookup failed.", "room_id", roomID, "code", customErr.Code)
			resp.RespondError(w, r, customErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Info("WebSocket connection established", "user_id", userID, "room_id", roomID)

		session := chat.NewSession(conn, roomID, userID, userName, deps.Channel, deps.Presence, deps.Typing)
		session.Run(r.Context())
	}
}
