//go:build integration

package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/adanyl0v/manageq/internal/assistant"
	"github.com/adanyl0v/manageq/internal/models"
	"github.com/adanyl0v/manageq/internal/services"
	"github.com/adanyl0v/manageq/migrations"
)

type ServicesSuite struct {
	suite.Suite

	ctx      context.Context
	pool     *pgxpool.Pool
	auth     services.AuthService
	sessions services.SessionService
	users    services.UserService
	tasks    services.TaskService
	chat     services.ChatService
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesSuite))
}

func (s *ServicesSuite) SetupSuite() {
	s.ctx = context.Background()

	connURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envOrDefault("POSTGRES_USERNAME", "postgres"),
		envOrDefault("POSTGRES_PASSWORD", "postgres"),
		envOrDefault("POSTGRES_HOST", "127.0.0.1"),
		envOrDefault("POSTGRES_PORT", "5432"),
		envOrDefault("POSTGRES_TEST_DATABASE", "manageq_test"),
	)

	pool, err := pgxpool.New(s.ctx, connURL)
	s.Require().NoError(err)

	pingCtx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		s.T().Skipf("skipping integration suite: could not connect to postgres: %v", err)
	}
	s.pool = pool

	_, err = migrations.Apply(s.ctx, s.pool)
	s.Require().NoError(err)

	logger := zerolog.Nop()
	s.auth = services.NewAuthService(logger, s.pool, "manageq-test", []byte("test-key"), time.Minute, time.Hour)
	s.sessions = services.NewSessionService(logger, s.pool)
	s.users = services.NewUserService(logger, s.pool)
	s.tasks = services.NewTaskService(logger, s.pool)
	s.chat = services.NewChatService(logger, s.pool, s.tasks,
		assistant.NewStatsAwarePolicy(assistant.NewRandomPolicy()))
}

func (s *ServicesSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *ServicesSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE chat_messages, tasks, sessions, users`)
	s.Require().NoError(err)
}

func (s *ServicesSuite) register(email string) *services.LoginResult {
	result, err := s.auth.Register(s.ctx, services.RegisterParams{
		Name:        "User " + email,
		Email:       email,
		Password:    "secret1",
		Fingerprint: "fp",
	})
	s.Require().NoError(err)
	return result
}

func (s *ServicesSuite) TestAuthLifecycle() {
	registered := s.register("Ada@Example.com ")
	s.Equal("ada@example.com", registered.User.Email)

	_, err := s.auth.Register(s.ctx, services.RegisterParams{
		Name: "Dup", Email: "ada@example.com", Password: "secret1", Fingerprint: "fp",
	})
	s.ErrorIs(err, services.ErrUserAlreadyExists)

	_, err = s.auth.Login(s.ctx, services.LoginParams{Email: "ada@example.com", Password: "nope", Fingerprint: "fp"})
	s.ErrorIs(err, services.ErrUserPasswordMismatch)

	_, err = s.auth.Login(s.ctx, services.LoginParams{Email: "bob@example.com", Password: "secret1", Fingerprint: "fp"})
	s.ErrorIs(err, services.ErrUserNotFound)

	loggedIn, err := s.auth.Login(s.ctx, services.LoginParams{Email: "ada@example.com", Password: "secret1", Fingerprint: "fp"})
	s.Require().NoError(err)
	s.Equal(registered.User.ID, loggedIn.User.ID)

	// Login replaces previous sessions.
	_, err = s.sessions.GetSessionByID(s.ctx, registered.SessionID)
	s.ErrorIs(err, services.ErrSessionNotFound)

	claims, err := s.auth.ParseJWTToken(loggedIn.AccessToken)
	s.Require().NoError(err)
	session, err := s.sessions.GetSessionByID(s.ctx, claims.Subject)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, session.UserID)

	refreshed, err := s.auth.Refresh(s.ctx, services.RefreshParams{RefreshToken: loggedIn.RefreshToken, Fingerprint: "fp"})
	s.Require().NoError(err)
	s.NotEqual(loggedIn.RefreshToken, refreshed.RefreshToken)
	s.Equal("ada@example.com", refreshed.User.Email)

	_, err = s.auth.Refresh(s.ctx, services.RefreshParams{RefreshToken: loggedIn.RefreshToken, Fingerprint: "fp"})
	s.ErrorIs(err, services.ErrSessionNotFound)

	profile, err := s.users.GetUserByID(s.ctx, registered.User.ID)
	s.Require().NoError(err)
	s.Equal("User Ada@Example.com", profile.Name)

	s.Require().NoError(s.auth.Logout(s.ctx, registered.User.ID))
	_, err = s.sessions.GetSessionByID(s.ctx, session.ID)
	s.ErrorIs(err, services.ErrSessionNotFound)
}

func (s *ServicesSuite) TestTaskRoundTrip() {
	owner := s.register("owner@example.com").User.ID
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	created, err := s.tasks.CreateTask(s.ctx, services.CreateTaskParams{
		UserID:      owner,
		Title:       "  Write report ",
		Description: "quarterly numbers",
		DueDate:     due,
	})
	s.Require().NoError(err)
	s.Equal(models.PriorityMedium, created.Priority)
	s.Equal(models.StatusTodo, created.Status)

	tasks, err := s.tasks.GetTasksByUserID(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)

	fetched := tasks[0]
	s.Equal(created.ID, fetched.ID)
	s.Equal("Write report", fetched.Title)
	s.Equal("quarterly numbers", fetched.Description)
	s.Equal(models.PriorityMedium, fetched.Priority)
	s.Equal(models.StatusTodo, fetched.Status)
	s.True(due.Equal(fetched.DueDate))
}

func (s *ServicesSuite) TestCreatedTaskSerializesLikeFetched() {
	owner := s.register("owner@example.com").User.ID
	due := time.Date(2024, 5, 1, 14, 30, 0, 123456789, time.FixedZone("CEST", 2*60*60))

	created, err := s.tasks.CreateTask(s.ctx, services.CreateTaskParams{
		UserID: owner, Title: "Write report", Description: "numbers", DueDate: due,
	})
	s.Require().NoError(err)

	tasks, err := s.tasks.GetTasksByUserID(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)

	want, err := json.Marshal(created)
	s.Require().NoError(err)
	got, err := json.Marshal(tasks[0])
	s.Require().NoError(err)
	s.JSONEq(string(want), string(got))
	s.Equal(time.UTC, created.DueDate.Location())
}

func (s *ServicesSuite) TestPartialUpdate() {
	owner := s.register("owner@example.com").User.ID
	created, err := s.tasks.CreateTask(s.ctx, services.CreateTaskParams{
		UserID: owner, Title: "Write report", Description: "numbers",
		Priority: models.PriorityHigh, DueDate: time.Now(),
	})
	s.Require().NoError(err)

	status := models.StatusCompleted
	updated, err := s.tasks.UpdateTask(s.ctx, services.UpdateTaskParams{
		ID: created.ID, UserID: owner, Status: &status,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, updated.Status)
	s.Equal("Write report", updated.Title)
	s.Equal(models.PriorityHigh, updated.Priority)
	s.False(updated.UpdatedAt.Before(created.UpdatedAt))

	bad := "archived"
	_, err = s.tasks.UpdateTask(s.ctx, services.UpdateTaskParams{ID: created.ID, UserID: owner, Status: &bad})
	s.ErrorIs(err, services.ErrInvalidTaskStatus)
}

func (s *ServicesSuite) TestOwnershipIsolation() {
	alice := s.register("alice@example.com").User.ID
	bob := s.register("bob@example.com").User.ID

	task, err := s.tasks.CreateTask(s.ctx, services.CreateTaskParams{
		UserID: alice, Title: "Private", Description: "alice only", DueDate: time.Now(),
	})
	s.Require().NoError(err)

	bobsTasks, err := s.tasks.GetTasksByUserID(s.ctx, bob)
	s.Require().NoError(err)
	s.Empty(bobsTasks)

	title := "stolen"
	_, err = s.tasks.UpdateTask(s.ctx, services.UpdateTaskParams{ID: task.ID, UserID: bob, Title: &title})
	s.ErrorIs(err, services.ErrTaskNotFound)

	err = s.tasks.DeleteTask(s.ctx, services.DeleteTaskParams{ID: task.ID, UserID: bob})
	s.ErrorIs(err, services.ErrTaskNotFound)

	err = s.tasks.DeleteTask(s.ctx, services.DeleteTaskParams{ID: "not-a-uuid", UserID: alice})
	s.ErrorIs(err, services.ErrTaskNotFound)

	alicesTasks, err := s.tasks.GetTasksByUserID(s.ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(alicesTasks, 1)
	s.Equal("Private", alicesTasks[0].Title)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, services.DeleteTaskParams{ID: task.ID, UserID: alice}))
	err = s.tasks.DeleteTask(s.ctx, services.DeleteTaskParams{ID: task.ID, UserID: alice})
	s.ErrorIs(err, services.ErrTaskNotFound)
}

func (s *ServicesSuite) TestTaskStats() {
	owner := s.register("owner@example.com").User.ID

	empty, err := s.tasks.GetTaskStats(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(models.TaskStats{}, empty)

	for _, status := range []string{models.StatusCompleted, models.StatusTodo, models.StatusInProgress} {
		_, err = s.tasks.CreateTask(s.ctx, services.CreateTaskParams{
			UserID: owner, Title: status, Description: status, Status: status, DueDate: time.Now(),
		})
		s.Require().NoError(err)
	}

	stats, err := s.tasks.GetTaskStats(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(1, stats.Completed)
	s.Equal(1, stats.InProgress)
	s.Equal(1, stats.Todo)
	s.InDelta(33.333333, stats.CompletionRate, 1e-4)
}

func (s *ServicesSuite) TestChatHistory() {
	owner := s.register("owner@example.com").User.ID
	_, err := s.tasks.CreateTask(s.ctx, services.CreateTaskParams{
		UserID: owner, Title: "Write report", Description: "numbers",
		Status: models.StatusCompleted, DueDate: time.Now(),
	})
	s.Require().NoError(err)

	result, err := s.chat.SendMessage(s.ctx, services.SendMessageParams{UserID: owner, Message: "show my progress stats"})
	s.Require().NoError(err)
	s.Equal("stats", result.Policy)
	s.Equal("Your progress: 1/1 tasks completed (100% completion rate). 0 tasks in progress, 0 tasks to do.",
		result.AIMessage.Message)

	_, err = s.chat.SendMessage(s.ctx, services.SendMessageParams{UserID: owner, Message: "   "})
	s.ErrorIs(err, services.ErrInvalidChatMessage)

	for i := range 55 {
		_, err = s.chat.SendMessage(s.ctx, services.SendMessageParams{UserID: owner, Message: fmt.Sprintf("message %d", i)})
		s.Require().NoError(err)
	}

	messages, err := s.chat.GetMessages(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(messages, services.ChatHistoryLimit)
	for i := 1; i < len(messages); i++ {
		s.False(messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
	s.Equal("message 5", messages[0].Message)
	s.True(messages[0].IsUser)
	s.False(messages[len(messages)-1].IsUser)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
