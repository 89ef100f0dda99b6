package middleware

import (
	"errors"
	"strings"

	"store-ratings-api/apperror"
	"store-ratings-api/auth"
	"store-ratings-api/models"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Messages for the two distinguishable 401 causes.
const (
	MsgMissingToken = "Authorization header required (Bearer <token>)"
	MsgInvalidToken = "Invalid or expired token"
)

func authenticate(c *gin.Context, issuer *auth.Issuer) error {
	tokenStr, err := auth.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return err
	}
	id, err := issuer.Verify(tokenStr)
	if err != nil {
		return err
	}
	c.Set(identityKey, id)
	return nil
}

func unauthorized(err error) *apperror.Error {
	msg := MsgInvalidToken
	if errors.Is(err, auth.ErrMissingToken) {
		msg = MsgMissingToken
	}
	e := apperror.Unauthorized(msg)
	e.Err = err
	return e
}

// AuthRequired validates the bearer token and injects the identity into context
func AuthRequired(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c, issuer); err != nil {
			RespondError(c, unauthorized(err))
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func OptionalAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if err := authenticate(c, issuer); err != nil {
			RespondError(c, unauthorized(err))
			return
		}
		c.Next()
	}
}

// RoleRequired enforces that caller has one of the allowed roles.
// It must run after AuthRequired.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			RespondError(c, apperror.Unauthorized(MsgMissingToken))
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			RespondError(c, apperror.Forbidden("Access denied. Required role(s): "+rolesString(roles)))
			return
		}
		c.Next()
	}
}

func rolesString(roles []models.Role) string {
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, ", ")
}

// GetIdentity returns the caller identity, if the request was authenticated.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// MustIdentity is for handlers mounted behind AuthRequired.
func MustIdentity(c *gin.Context) auth.Identity {
	id, ok := GetIdentity(c)
	if !ok {
		panic("middleware: identity missing; route is not behind AuthRequired")
	}
	return id
}

// RespondError renders err with the shared error body and aborts the chain.
func RespondError(c *gin.Context, err error) {
	e := apperror.From(err)
	_ = c.Error(err)
	body := e.Body()
	c.AbortWithStatusJSON(e.Status, body)
}
