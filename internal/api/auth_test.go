package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/github-ma-intel/internal/config"
)

func testAuthenticator(now time.Time) *Authenticator {
	a := NewAuthenticator(&config.AuthConfig{
		Username:  "admin",
		Password:  "hunter2",
		JWTSecret: "signing-key",
		TokenTTL:  time.Hour,
	})
	a.now = func() time.Time { return now }
	return a
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestNewAuthenticator_Disabled(t *testing.T) {
	assert.Nil(t, NewAuthenticator(nil))
	assert.Nil(t, NewAuthenticator(config.DefaultAuthConfig()))
	assert.Nil(t, NewAuthenticator(&config.AuthConfig{Username: "admin", Password: "x"}))
}

func TestAuthenticator_LoginAndVerify(t *testing.T) {
	a := testAuthenticator(time.Now())

	token, expires, err := a.Login("admin", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)
	assert.NoError(t, a.Verify(token))

	_, _, err = a.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login("root", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticator_VerifyRejects(t *testing.T) {
	issued := time.Now()
	a := testAuthenticator(issued)
	token, _, err := a.Login("admin", "hunter2")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := testAuthenticator(issued.Add(2 * time.Hour))
		assert.Error(t, later.Verify(token))
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewAuthenticator(&config.AuthConfig{Username: "admin", Password: "hunter2", JWTSecret: "another", TokenTTL: time.Hour})
		assert.Error(t, other.Verify(token))
	})

	t.Run("unsigned", func(t *testing.T) {
		none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		})
		raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.Error(t, a.Verify(raw))
	})

	t.Run("no expiry", func(t *testing.T) {
		forever := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "admin"})
		raw, err := forever.SignedString([]byte("signing-key"))
		require.NoError(t, err)
		assert.Error(t, a.Verify(raw))
	})

	t.Run("other subject", func(t *testing.T) {
		stranger := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		})
		raw, err := stranger.SignedString([]byte("signing-key"))
		require.NoError(t, err)
		assert.Error(t, a.Verify(raw))
	})
}

func TestLogin(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		router, _ := setupTestHandler()
		w := postJSON(router, "/api/auth/login", `{"username":"admin","password":"hunter2"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		router, _ := setupTestHandler(WithAuthenticator(testAuthenticator(time.Now())))
		w := postJSON(router, "/api/auth/login", `{"username":"admin"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		router, _ := setupTestHandler(WithAuthenticator(testAuthenticator(time.Now())))
		w := postJSON(router, "/api/auth/login", `{"username":"admin","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("issued token opens the refresh endpoint", func(t *testing.T) {
		router, svc := setupTestHandler(WithAdminToken("s3cret"), WithAuthenticator(testAuthenticator(time.Now())))
		svc.On("Trigger", mock.Anything).Return(true)

		w := postJSON(router, "/api/auth/login", `{"username":"admin","password":"hunter2"}`)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[LoginResponse](t, w)
		assert.Equal(t, "Bearer", body.TokenType)
		require.NotEmpty(t, body.AccessToken)

		w = doRequest(router, "POST", "/api/refresh?async=true", http.Header{"Authorization": []string{"Bearer " + body.AccessToken}})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = doRequest(router, "POST", "/api/refresh?async=true", http.Header{"Authorization": []string{"Bearer s3cret"}})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = doRequest(router, "POST", "/api/refresh?async=true", http.Header{"Authorization": []string{"Bearer " + body.AccessToken + "x"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = doRequest(router, "POST", "/api/refresh?async=true", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNumberOfCalls(t, "Trigger", 2)
	})
}
