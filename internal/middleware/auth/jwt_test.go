package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func createValidJWT(accountID, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   accountID,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})

	tokenString, _ := token.SignedString([]byte(testSecret))
	return tokenString
}

func newTestContext(authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	accountID := uuid.New()
	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop()}

	c, rec := newTestContext("Bearer " + createValidJWT(accountID.String(), "alice@example.com"))

	handler := JWTMiddleware(config)(func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		require.NoError(t, err)
		assert.Equal(t, accountID, user.AccountID)
		assert.Equal(t, "alice@example.com", user.Email)
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop()}
	c, rec := newTestContext("")

	require.NoError(t, JWTMiddleware(config)(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop()}
	c, rec := newTestContext("Token abc123")

	require.NoError(t, JWTMiddleware(config)(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	config := JWTConfig{Secret: "a-different-secret", Logger: zap.NewNop()}
	c, rec := newTestContext("Bearer " + createValidJWT(uuid.New().String(), ""))

	require.NoError(t, JWTMiddleware(config)(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop()}
	c, rec := newTestContext("Bearer " + tokenString)

	require.NoError(t, JWTMiddleware(config)(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_NonUUIDSubject(t *testing.T) {
	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop()}
	c, rec := newTestContext("Bearer " + createValidJWT("not-a-uuid", ""))

	require.NoError(t, JWTMiddleware(config)(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SUBJECT_FORMAT")
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	config := JWTConfig{
		Secret:    testSecret,
		Logger:    zap.NewNop(),
		SkipPaths: []string{"/health"},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, JWTMiddleware(config)(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
