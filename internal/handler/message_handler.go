package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"geochat/internal/app/chat"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/randx"
	"geochat/internal/pkg/req"
	"geochat/internal/pkg/resp"
)

// SendMessageInput defines the JSON input structure for posting a message.
type SendMessageInput struct {
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

// HandleSendMessage creates an HTTP HandlerFunc to post a message into a room.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if !randx.IsValidDocID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" || input.UserName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := chat.ValidateMessageText(input.Text, len(input.Attachments) > 0); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := chat.ValidateAttachmentKeys(roomID, input.Attachments); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		messageID, customErr := deps.Channel.Send(
			r.Context(), roomID, input.UserID, input.UserName, input.Text, input.Attachments,
		)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"messageId": messageID})
	}
}

// ToggleReactionInput defines the JSON input structure for a reaction toggle.
type ToggleReactionInput struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"userId"`
}

// HandleToggleReaction flips the calling user's reaction on a message and
// responds with the message's resulting reaction map.
func HandleToggleReaction(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := chi.URLParam(r, "messageID")
		if !randx.IsValidDocID(messageID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input ToggleReactionInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Emoji == "" || input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		reactions, customErr := deps.Reactions.Toggle(r.Context(), messageID, input.Emoji, input.UserID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if reactions == nil {
			reactions = map[string][]string{}
		}

		resp.RespondSuccess(w, r, map[string]any{"reactions": reactions})
	}
}
