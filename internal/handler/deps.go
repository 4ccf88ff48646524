package handler

import (
	"geochat/internal/app/chat"
	"geochat/internal/app/location"
	"geochat/internal/app/storage"
	"geochat/internal/app/store"
	"geochat/internal/configs"
)

// AppDeps bundles the wired components handlers depend on. The process that
// assembles the system owns every lifecycle here; handlers only borrow.
type AppDeps struct {
	Config    *configs.AppConfig
	Store     store.Client
	Directory *chat.Directory
	Channel   *chat.Channel
	Presence  *chat.Presence
	Typing    *chat.Typing
	Reactions *chat.Reactions
	Location  *location.Service
	Locator   location.Provider

	// StorageService is nil when no attachment bucket is configured; the
	// presign endpoints are not mounted in that case.
	StorageService storage.StorageService
}
