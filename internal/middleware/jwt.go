// Package middleware holds the Echo middleware of the booking API.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by the JWT middleware.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

var errNoToken = errors.New("missing bearer token")

// JWTAuth validates a Bearer access token signed with secret (HS256)
// and stores the subject and role claims in the context.  Requests
// without a valid token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, secret); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for routes open to guests: a request without an
// Authorization header passes through anonymously, while a present but
// invalid token is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, secret); err != nil && !errors.Is(err, errNoToken) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, secret string) error {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if auth == "" {
		return errNoToken
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return errors.New("malformed authorization header")
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	uid, ok := parseSubject(claims["sub"])
	if !ok {
		return errors.New("invalid subject")
	}
	c.Set(ctxUserID, uid)
	if role, ok := claims["role"].(string); ok {
		c.Set(ctxRole, role)
	}
	return nil
}
