package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/manageq/internal/delivery/http/v1"
	"github.com/adanyl0v/manageq/internal/metrics"
	"github.com/adanyl0v/manageq/internal/models"
	"github.com/adanyl0v/manageq/internal/ratelimit"
	"github.com/adanyl0v/manageq/internal/services"
)

const (
	testUserID    = "0190b8f4-0000-7000-8000-00000000000a"
	testSessionID = "0190b8f4-0000-7000-8000-00000000000b"
	testToken     = "access-token"
	// httptest requests come from 192.0.2.1 without a user agent.
	testFingerprint = `{"client_ip":"192.0.2.1","user_agent":""}`
)

type authServiceMock struct {
	mock.Mock
}

func (m *authServiceMock) Login(ctx context.Context, params services.LoginParams) (*services.LoginResult, error) {
	args := m.Called(ctx, params)
	result, _ := args.Get(0).(*services.LoginResult)
	return result, args.Error(1)
}

func (m *authServiceMock) Refresh(ctx context.Context, params services.RefreshParams) (*services.LoginResult, error) {
	args := m.Called(ctx, params)
	result, _ := args.Get(0).(*services.LoginResult)
	return result, args.Error(1)
}

func (m *authServiceMock) Register(ctx context.Context, params services.RegisterParams) (*services.LoginResult, error) {
	args := m.Called(ctx, params)
	result, _ := args.Get(0).(*services.LoginResult)
	return result, args.Error(1)
}

func (m *authServiceMock) Logout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *authServiceMock) ParseJWTToken(token string) (*jwt.RegisteredClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*jwt.RegisteredClaims)
	return claims, args.Error(1)
}

type sessionServiceMock struct {
	mock.Mock
}

func (m *sessionServiceMock) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

type userServiceMock struct {
	mock.Mock
}

func (m *userServiceMock) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type taskServiceMock struct {
	mock.Mock
}

func (m *taskServiceMock) CreateTask(ctx context.Context, params services.CreateTaskParams) (*models.Task, error) {
	args := m.Called(ctx, params)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *taskServiceMock) GetTasksByUserID(ctx context.Context, userID string) ([]*models.Task, error) {
	args := m.Called(ctx, userID)
	tasks, _ := args.Get(0).([]*models.Task)
	return tasks, args.Error(1)
}

func (m *taskServiceMock) UpdateTask(ctx context.Context, params services.UpdateTaskParams) (*models.Task, error) {
	args := m.Called(ctx, params)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *taskServiceMock) DeleteTask(ctx context.Context, params services.DeleteTaskParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *taskServiceMock) GetTaskStats(ctx context.Context, userID string) (models.TaskStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(models.TaskStats)
	return stats, args.Error(1)
}

type chatServiceMock struct {
	mock.Mock
}

func (m *chatServiceMock) GetMessages(ctx context.Context, userID string) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, userID)
	messages, _ := args.Get(0).([]*models.ChatMessage)
	return messages, args.Error(1)
}

func (m *chatServiceMock) SendMessage(ctx context.Context, params services.SendMessageParams) (*services.SendMessageResult, error) {
	args := m.Called(ctx, params)
	result, _ := args.Get(0).(*services.SendMessageResult)
	return result, args.Error(1)
}

type limiterMock struct {
	mock.Mock
}

func (m *limiterMock) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

type testServer struct {
	router   *gin.Engine
	auth     *authServiceMock
	sessions *sessionServiceMock
	users    *userServiceMock
	tasks    *taskServiceMock
	chat     *chatServiceMock
	limiter  *limiterMock
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T, checks map[string]v1.HealthCheck) *testServer {
	t.Helper()

	s := &testServer{
		auth:     new(authServiceMock),
		sessions: new(sessionServiceMock),
		users:    new(userServiceMock),
		tasks:    new(taskServiceMock),
		chat:     new(chatServiceMock),
		limiter:  new(limiterMock),
		metrics:  metrics.New(),
	}

	handler := v1.New(zerolog.Nop(), v1.Deps{
		Auth:         s.auth,
		Sessions:     s.sessions,
		Users:        s.users,
		Tasks:        s.tasks,
		Chat:         s.chat,
		Limiter:      s.limiter,
		Metrics:      s.metrics,
		HealthChecks: checks,
	})

	s.router = gin.New()
	v1.RegisterRoutes(s.router.Group("/api"), handler)

	t.Cleanup(func() {
		s.auth.AssertExpectations(t)
		s.sessions.AssertExpectations(t)
		s.users.AssertExpectations(t)
		s.tasks.AssertExpectations(t)
		s.chat.AssertExpectations(t)
		s.limiter.AssertExpectations(t)
	})
	return s
}

// signIn makes testToken resolve to testUserID.
func (s *testServer) signIn() {
	s.auth.On("ParseJWTToken", testToken).
		Return(&jwt.RegisteredClaims{Subject: testSessionID}, nil)
	s.sessions.On("GetSessionByID", mock.Anything, testSessionID).
		Return(&models.Session{
			ID:          testSessionID,
			UserID:      testUserID,
			Fingerprint: testFingerprint,
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil)
}

func newRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) do(t *testing.T, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	t.Helper()

	req := newRequest(t, method, path, body)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	return serve(s, req)
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, code int, message string) errorBody {
	t.Helper()

	require.Equal(t, code, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	require.Equal(t, message, body.Message)
	return body
}

func ptr[T any](v T) *T {
	return &v
}
