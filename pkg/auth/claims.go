package auth

import (
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID types.ObjectID
	JTI    string
}

// AccessTokenClaims represents the typed JWT presented by clients. The user
// id doubles as the subject so third-party issuers can populate either.
type AccessTokenClaims struct {
	UserID types.ObjectID `json:"user_id"`
	jwt.RegisteredClaims
}

// ActorID resolves the acting user from the claims.
func (c *AccessTokenClaims) ActorID() (types.ObjectID, error) {
	if c == nil {
		return types.NilObjectID, errMissingActor
	}
	if !c.UserID.IsZero() {
		return c.UserID, nil
	}
	if c.Subject == "" {
		return types.NilObjectID, errMissingActor
	}
	return types.ParseObjectID(c.Subject)
}
