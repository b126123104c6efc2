package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/creatorhub-backend/api/middleware"
	"github.com/angelmondragon/creatorhub-backend/api/responses"
)

type pingResponse struct {
	Scope      string    `json:"scope"`
	UserID     string    `json:"userId,omitempty"`
	ServerTime time.Time `json:"serverTime"`
}

// PublicPing answers without credentials so clients can check reachability.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingResponse{Scope: "public", ServerTime: time.Now().UTC()})
	}
}

// PrivatePing confirms a bearer token resolves to a user.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingResponse{
			Scope:      "private",
			UserID:     middleware.UserIDFromContext(r.Context()).Hex(),
			ServerTime: time.Now().UTC(),
		})
	}
}
