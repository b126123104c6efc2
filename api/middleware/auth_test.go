package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/creatorhub-backend/pkg/auth"
	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

// actorRecorder records the actor each request reached the handler with.
type actorRecorder struct {
	calls int
	actor types.ObjectID
}

func (p *actorRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.calls++
	p.actor = UserIDFromContext(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func withAuthorization(value string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if value != "" {
		req.Header.Set("Authorization", value)
	}
	return req
}

func TestAuth(t *testing.T) {
	userID := types.NewObjectID()
	expired, err := auth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), auth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)

	cases := map[string]struct {
		header   string
		required int
		optional int
	}{
		"valid token":    {header: "Bearer " + mintTestToken(t, testJWT, userID), required: http.StatusNoContent, optional: http.StatusNoContent},
		"no header":      {required: http.StatusUnauthorized, optional: http.StatusNoContent},
		"garbage token":  {header: "Bearer invalid", required: http.StatusUnauthorized, optional: http.StatusUnauthorized},
		"expired token":  {header: "Bearer " + expired, required: http.StatusUnauthorized, optional: http.StatusUnauthorized},
		"wrong scheme":   {header: "Token abc", required: http.StatusUnauthorized, optional: http.StatusUnauthorized},
		"blank scheme":   {header: "   ", required: http.StatusUnauthorized, optional: http.StatusNoContent},
		"foreign issuer": {header: "Bearer " + mintTestToken(t, config.JWTConfig{Secret: "secret", Issuer: "other", ExpirationMinutes: 5}, userID), required: http.StatusUnauthorized, optional: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			for mode, mw := range map[string]func(http.Handler) http.Handler{
				"required": Auth(testJWT, nil),
				"optional": OptionalAuth(testJWT, nil),
			} {
				want := tc.required
				if mode == "optional" {
					want = tc.optional
				}
				recorder := &actorRecorder{}
				rec := httptest.NewRecorder()
				mw(recorder).ServeHTTP(rec, withAuthorization(tc.header))

				require.Equal(t, want, rec.Code, mode)
				if want != http.StatusNoContent {
					assert.Zero(t, recorder.calls, mode)
					continue
				}
				if tc.header == "" || tc.header == "   " {
					assert.True(t, recorder.actor.IsZero(), "%s: anonymous request carried an actor", mode)
				} else {
					assert.Equal(t, userID, recorder.actor, mode)
				}
			}
		})
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID types.ObjectID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)
	return token
}
