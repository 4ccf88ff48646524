package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"geochat/internal/app/chat"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/logx"
	"geochat/internal/pkg/randx"
	"geochat/internal/pkg/req"
	"geochat/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for requesting an
// attachment upload URL.
type PresignUploadInput struct {
	RoomID   string `json:"roomId"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUploadURL validates the attachment and mints a time-limited
// upload URL. The object key is server-chosen so clients cannot place objects
// outside their room's prefix.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidDocID(input.RoomID) || input.FileName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := chat.ValidateFileSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := chat.ValidateFileType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if _, customErr := deps.Directory.Get(r.Context(), input.RoomID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ext := strings.ToLower(filepath.Ext(input.FileName))
		key := input.RoomID + "/" + randx.DocID() + ext

		url, err := deps.StorageService.PresignUpload(
			r.Context(), key, input.MimeType, input.FileSize, chat.PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, "Failed to presign upload URL.", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"key":       key,
			"uploadUrl": url,
			"expiresIn": int(chat.PresignedURLDuration.Seconds()),
		})
	}
}

// HandlePresignDownloadURL redirects the caller to a time-limited download
// URL for an attachment key.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")

		// Keys are always roomID/objectID; anything else is not ours.
		parts := strings.SplitN(key, "/", 2)
		if len(parts) != 2 || !randx.IsValidDocID(parts[0]) || parts[1] == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), key, chat.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "Failed to presign download URL.", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}
