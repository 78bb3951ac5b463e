package handler

import (
	"time"

	"randomcall/backend/internal/callhub"
	"randomcall/backend/internal/localization"
	"randomcall/backend/internal/storage"
)

// Handler містить посилання на координатор, хаб і сховище
type Handler struct {
	Coordinator *callhub.Coordinator
	Hub         *callhub.ManagerService
	Store       storage.SessionStore
	Localizer   *localization.Localizer

	auth AuthConfig
}

// AuthConfig holds the JWT signing settings.
type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

func NewHandler(coord *callhub.Coordinator, hub *callhub.ManagerService, store storage.SessionStore, loc *localization.Localizer, auth AuthConfig) *Handler {
	if auth.TokenTTL <= 0 {
		auth.TokenTTL = 72 * time.Hour
	}
	return &Handler{
		Coordinator: coord,
		Hub:         hub,
		Store:       store,
		Localizer:   loc,
		auth:        auth,
	}
}
