package v1_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/manageq/internal/models"
	"github.com/adanyl0v/manageq/internal/services"
)

func loginResult() *services.LoginResult {
	return &services.LoginResult{
		User: &models.User{
			ID:       testUserID,
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "$argon2id$hash",
		},
		SessionID:             testSessionID,
		AccessToken:           "signed-access",
		AccessTokenExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshToken:          "opaque-refresh",
		RefreshTokenExpiresAt: time.Now().Add(time.Hour),
	}
}

type authBody struct {
	Message string         `json:"message"`
	Token   string         `json:"token"`
	User    map[string]any `json:"user"`
}

func TestHandleRegister_Created(t *testing.T) {
	s := newTestServer(t, nil)
	s.auth.On("Register", mock.Anything, services.RegisterParams{
		Name:        "Ada",
		Email:       "ada@example.com",
		Password:    "secret1",
		Fingerprint: testFingerprint,
	}).Return(loginResult(), nil).Once()

	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "secret1",
	}, false)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[authBody](t, rec)
	assert.Equal(t, "User registered successfully", body.Message)
	assert.Equal(t, "signed-access", body.Token)
	assert.Equal(t, "ada@example.com", body.User["email"])
	assert.NotContains(t, body.User, "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
	assert.Equal(t, "opaque-refresh", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestHandleRegister_EmailTaken(t *testing.T) {
	s := newTestServer(t, nil)
	s.auth.On("Register", mock.Anything, mock.Anything).
		Return(nil, services.ErrUserAlreadyExists).Once()

	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "secret1",
	}, false)

	requireError(t, rec, http.StatusBadRequest, "User already exists with this email")
}

func TestHandleRegister_Validation(t *testing.T) {
	cases := map[string]any{
		"missing name":   map[string]string{"email": "ada@example.com", "password": "secret1"},
		"blank name":     map[string]string{"name": "   ", "email": "ada@example.com", "password": "secret1"},
		"bad email":      map[string]string{"name": "Ada", "email": "ada", "password": "secret1"},
		"short password": map[string]string{"name": "Ada", "email": "ada@example.com", "password": "12345"},
		"malformed json": `{"name":`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, nil)

			rec := s.do(t, http.MethodPost, "/api/auth/register", payload, false)

			body := requireError(t, rec, http.StatusBadRequest, "Validation failed")
			assert.NotEmpty(t, body.Error)
			s.auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleLogin_OK(t *testing.T) {
	s := newTestServer(t, nil)
	s.auth.On("Login", mock.Anything, services.LoginParams{
		Email:       "ada@example.com",
		Password:    "secret1",
		Fingerprint: testFingerprint,
	}).Return(loginResult(), nil).Once()

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret1",
	}, false)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[authBody](t, rec)
	assert.Equal(t, "Login successful", body.Message)
	assert.Equal(t, "signed-access", body.Token)
	assert.Equal(t, testUserID, body.User["id"])
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	for _, err := range []error{services.ErrUserNotFound, services.ErrUserPasswordMismatch} {
		t.Run(err.Error(), func(t *testing.T) {
			s := newTestServer(t, nil)
			s.auth.On("Login", mock.Anything, mock.Anything).Return(nil, err).Once()

			rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
				"email":    "ada@example.com",
				"password": "wrong-password",
			}, false)

			requireError(t, rec, http.StatusBadRequest, "Invalid credentials")
		})
	}
}

func TestHandleLogin_ServerError(t *testing.T) {
	s := newTestServer(t, nil)
	s.auth.On("Login", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret1",
	}, false)

	body := requireError(t, rec, http.StatusInternalServerError, "Server error")
	assert.Equal(t, "connection reset", body.Error)
}

func TestHandleRefresh(t *testing.T) {
	t.Run("missing cookie", func(t *testing.T) {
		s := newTestServer(t, nil)

		rec := s.do(t, http.MethodPost, "/api/auth/refresh", nil, false)

		requireError(t, rec, http.StatusUnauthorized, "Refresh token required")
	})

	t.Run("rotates token", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.auth.On("Refresh", mock.Anything, services.RefreshParams{
			RefreshToken: "old-refresh",
			Fingerprint:  testFingerprint,
		}).Return(loginResult(), nil).Once()

		req := newRequest(t, http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "old-refresh"})
		rec := serve(s, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "signed-access", decode[map[string]string](t, rec)["token"])
		assert.Equal(t, "opaque-refresh", rec.Result().Cookies()[0].Value)
	})

	t.Run("expired session", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.auth.On("Refresh", mock.Anything, mock.Anything).
			Return(nil, services.ErrSessionExpired).Once()

		req := newRequest(t, http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "old-refresh"})

		requireError(t, serve(s, req), http.StatusUnauthorized, "Session expired")
	})
}

func TestHandleLogout(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn()
	s.auth.On("Logout", mock.Anything, testUserID).Return(nil).Once()

	rec := s.do(t, http.MethodPost, "/api/auth/logout", nil, true)

	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestHandleProfile(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn()
	s.users.On("GetUserByID", mock.Anything, testUserID).
		Return(&models.User{ID: testUserID, Name: "Ada", Email: "ada@example.com"}, nil).Once()

	rec := s.do(t, http.MethodGet, "/api/auth/profile", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "Ada", body["user"]["name"])
}
