package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/creatorhub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/creatorhub-backend/pkg/auth"
	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, true)
}

// OptionalAuth identifies the actor when a bearer token is present and lets
// anonymous requests through untouched. Invalid tokens are still rejected.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, false)
}

func authenticate(cfg config.JWTConfig, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, err error) {
		responses.WriteError(r.Context(), logg, w, err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			switch {
			case header == "" && required:
				reject(w, r, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			case header == "":
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgAuth.ActorFromBearer(cfg, header)
			if err != nil {
				reject(w, r, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			// ActorFromBearer guarantees the claims resolve.
			actorID, _ := claims.ActorID()

			ctx := WithUserID(r.Context(), actorID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actorID.Hex())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
