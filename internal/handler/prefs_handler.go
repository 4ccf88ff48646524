package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"geochat/internal/app/location"
	"geochat/internal/pkg/errs"
	"geochat/internal/pkg/req"
	"geochat/internal/pkg/resp"
)

// HandleGetLocationPreferences returns a user's location privacy settings.
// Users without a stored record get the defaults.
func HandleGetLocationPreferences(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		prefs := deps.Location.Preferences(r.Context(), userID)
		resp.RespondSuccess(w, r, prefs)
	}
}

// HandleUpdateLocationPreferences applies a partial preferences change and
// responds with the settings now in effect.
func HandleUpdateLocationPreferences(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var update location.PreferencesUpdate
		if customErr := req.BindJSON(r, &update); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Location.UpdatePreferences(r.Context(), userID, update); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, deps.Location.Preferences(r.Context(), userID))
	}
}
