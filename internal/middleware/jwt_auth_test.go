package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, userID uint, expires time.Time) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func run(t *testing.T, header string) (*httptest.ResponseRecorder, *models.JwtCustomClaims, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *models.JwtCustomClaims
	err := JWTAuthMiddleware(testSecret)(func(c echo.Context) error {
		seen, _ = c.Get(ContextUserKey).(*models.JwtCustomClaims)
		return c.NoContent(http.StatusNoContent)
	})(c)
	return rec, seen, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	rec, claims, err := run(t, "Bearer "+signToken(t, testSecret, 42, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestJWTAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other", 42, time.Now().Add(time.Hour))},
		{"expired", "Bearer " + signToken(t, testSecret, 42, time.Now().Add(-time.Hour))},
		{"no subject", "Bearer " + signToken(t, testSecret, 0, time.Now().Add(time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, claims, err := run(t, tt.header)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
			assert.Nil(t, claims)
		})
	}
}
