package controllers

import (
	"net/http"

	"github.com/angelmondragon/creatorhub-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

func requireActor(r *http.Request) (types.ObjectID, error) {
	actor := middleware.UserIDFromContext(r.Context())
	if actor.IsZero() {
		return types.NilObjectID, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}
