package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signed(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": UserID(c)})
	})

	userID := "0b6a2c3e-1f4d-4e5a-9b8c-7d6e5f4a3b2c"
	token := func(sub any, exp time.Duration) string {
		return signed(t, jwt.MapClaims{
			"sub": sub,
			"exp": time.Now().Add(exp).Unix(),
		}, jwt.SigningMethodHS256, []byte(testSecret))
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID string
	}{
		{"Happy Path", "Bearer " + token(userID, time.Hour), http.StatusOK, userID},
		{"Missing Header", "", http.StatusUnauthorized, ""},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"Malformed Token", "Bearer malformed.token.here", http.StatusUnauthorized, ""},
		{"Expired Token", "Bearer " + token(userID, -time.Hour), http.StatusUnauthorized, ""},
		{"Numeric Subject", "Bearer " + token(42, time.Hour), http.StatusUnauthorized, ""},
		{"Wrong Secret", "Bearer " + signed(t, jwt.MapClaims{"sub": userID}, jwt.SigningMethodHS256, []byte("another-secret")), http.StatusUnauthorized, ""},
		{"HS512 Rejected", "Bearer " + signed(t, jwt.MapClaims{"sub": userID}, jwt.SigningMethodHS512, []byte(testSecret)), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body["userID"])
			} else {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, models.CodeUnauthorized, body.Code)
			}
		})
	}
}

func TestParseToken_IssuerAndAudience(t *testing.T) {
	c := &config.Config{JWTSecret: testSecret, JWTIssuer: "teenybox", JWTAudience: "teenybox-api"}
	InitMiddleware(c)
	t.Cleanup(func() { InitMiddleware(&config.Config{JWTSecret: testSecret}) })

	good, err := IssueToken(c, "user-1", time.Minute)
	require.NoError(t, err)
	sub, err := ParseToken(good)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	other := *c
	other.JWTIssuer = "someone-else"
	bad, err := IssueToken(&other, "user-1", time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(bad)
	assert.Error(t, err)

	noAud := *c
	noAud.JWTAudience = ""
	bad, err = IssueToken(&noAud, "user-1", time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(bad)
	assert.Error(t, err)
}
