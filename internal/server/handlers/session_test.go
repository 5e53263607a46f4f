package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrasnov/pagemark/pkg/api"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: time.Hour,
	}
}

func openSession(t *testing.T, h *SessionHandler, req api.SessionRequest) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))

	w := httptest.NewRecorder()
	h.OpenSession(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/session", &buf))
	return w
}

func TestSessionHandler_OpenSession(t *testing.T) {
	h := NewSessionHandler(setupTestLogger(), testJWTConfig(), "")

	w := openSession(t, h, api.SessionRequest{Name: "Alice"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.UserID)
	assert.Equal(t, "Alice", resp.Owner.Name)

	// Токен валиден и несет имя читателя
	claims, err := ValidateAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
}

func TestSessionHandler_EmptyNameRejected(t *testing.T) {
	h := NewSessionHandler(setupTestLogger(), testJWTConfig(), "")

	w := openSession(t, h, api.SessionRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_AccessCode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	h := NewSessionHandler(setupTestLogger(), testJWTConfig(), string(hash))

	// Неверный код
	w := openSession(t, h, api.SessionRequest{Name: "Alice", AccessCode: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Верный код
	w = openSession(t, h, api.SessionRequest{Name: "Alice", AccessCode: "letmein"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	cfg := JWTConfig{Secret: []byte("test-secret"), AccessTokenTTL: -time.Hour}

	token, err := GenerateAccessToken(cfg, "user-1", "Alice")
	require.NoError(t, err)

	_, err = ValidateAccessToken(cfg, token)
	assert.Error(t, err)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(testJWTConfig(), "user-1", "Alice")
	require.NoError(t, err)

	_, err = ValidateAccessToken(JWTConfig{Secret: []byte("other"), AccessTokenTTL: time.Hour}, token)
	assert.Error(t, err)
}
