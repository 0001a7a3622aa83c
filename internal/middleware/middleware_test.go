package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/config"
)

const secret = "test-secret"

func token(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func ownerToken(t *testing.T) string {
	return token(t, jwt.MapClaims{"sub": "17", "role": RoleOwner, "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(secret))
}

// serve runs mw in front of a handler that echoes the caller identity.
func serve(mws []echo.MiddlewareFunc, authorization string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		id, ok := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "authenticated": ok})
	}, mws...)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(secret)}

	rec := serve(mw, "Bearer "+ownerToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 17, "authenticated": true}`, rec.Body.String())

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic Zm9vOmJhcg==",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": "Bearer " + token(t, jwt.MapClaims{"sub": "17"}, jwt.SigningMethodHS256, []byte("other")),
		"expired":      "Bearer " + token(t, jwt.MapClaims{"sub": "17", "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256, []byte(secret)),
		"bad subject":  "Bearer " + token(t, jwt.MapClaims{"sub": "alice"}, jwt.SigningMethodHS256, []byte(secret)),
		"wrong alg":    "Bearer " + token(t, jwt.MapClaims{"sub": "17"}, jwt.SigningMethodHS512, []byte(secret)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(mw, header).Code)
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	mw := []echo.MiddlewareFunc{OptionalJWT(secret)}

	rec := serve(mw, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 0, "authenticated": false}`, rec.Body.String())

	rec = serve(mw, "Bearer "+token(t, jwt.MapClaims{"sub": float64(8)}, jwt.SigningMethodHS256, []byte(secret)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 8, "authenticated": true}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(mw, "Bearer broken").Code)
}

func TestRequireRole(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole(RoleOwner)}

	assert.Equal(t, http.StatusOK, serve(mw, "Bearer "+ownerToken(t)).Code)

	customer := token(t, jwt.MapClaims{"sub": "3", "role": RoleCustomer}, jwt.SigningMethodHS256, []byte(secret))
	assert.Equal(t, http.StatusForbidden, serve(mw, "Bearer "+customer).Code)

	noRole := token(t, jwt.MapClaims{"sub": "3"}, jwt.SigningMethodHS256, []byte(secret))
	assert.Equal(t, http.StatusForbidden, serve(mw, "Bearer "+noRole).Code)
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, log)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve([]echo.MiddlewareFunc{mw}, "").Code)
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())

	cfg := config.RateLimitConfig{Prefix: "rl:booking", KeyStrategy: "ip_user"}
	assert.Equal(t, "rl:booking:ip:10.0.0.1:user:guest", rateKey(cfg, c))

	c.Set(ctxUserID, uint64(12))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:booking:user:12", rateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:booking:ip:10.0.0.1", rateKey(cfg, c))
}

func TestParseSubject(t *testing.T) {
	for _, tc := range []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{"42", 42, true},
		{float64(42), 42, true},
		{"0", 0, false},
		{float64(-1), 0, false},
		{float64(1.5), 0, false},
		{"x", 0, false},
		{nil, 0, false},
	} {
		got, ok := parseSubject(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}
