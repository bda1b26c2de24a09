package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/manageq/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrTaskNotFound         = errors.New("task not found")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidTaskPriority  = errors.New("invalid task priority")
	ErrInvalidChatMessage   = errors.New("invalid chat message")
)

type AuthService interface {
	// Login authenticates the user by email and password.
	//
	// It deletes all sessions with the same user ID and creates
	// a new session and generates a new JWT token pair.
	//
	// It returns ErrUserNotFound if the user with the given
	// email doesn't exist or ErrUserPasswordMismatch if the
	// given password doesn't match the user's password.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh updates the session with the given refresh token.
	//
	// It returns ErrSessionNotFound if the session with the
	// given refresh token doesn't exist or ErrSessionExpired
	// if the session is expired.
	Refresh(ctx context.Context, params RefreshParams) (*LoginResult, error)

	// Register a user with the given name, email and password.
	//
	// It hashes the password, generates a unique ID and creates a
	// session with the given fingerprint and a fresh JWT token pair.
	//
	// It returns ErrUserAlreadyExists if the user
	// with the given email already exists.
	Register(ctx context.Context, params RegisterParams) (*LoginResult, error)

	// Logout invalidates all sessions with the given user ID.
	Logout(ctx context.Context, userID string) error

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type SessionService interface {
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
}

type UserService interface {
	// GetUserByID returns ErrUserNotFound if there is no such user.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// TaskService is the owner-scoped task store. Every method filters by
// the user ID, so a task of another user behaves as if it didn't exist.
type TaskService interface {
	// CreateTask applies the default priority and status and returns
	// ErrInvalidTaskStatus or ErrInvalidTaskPriority for unknown values.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// GetTasksByUserID returns all tasks of the user, newest first.
	// A user without tasks gets an empty slice.
	GetTasksByUserID(ctx context.Context, userID string) ([]*models.Task, error)

	// UpdateTask replaces the non-nil fields of params atomically.
	// It returns ErrTaskNotFound if the task doesn't exist or isn't owned by the user.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// DeleteTask returns ErrTaskNotFound if the task doesn't exist or isn't owned by the user.
	DeleteTask(ctx context.Context, params DeleteTaskParams) error

	// GetTaskStats counts the user's tasks per status in the store.
	GetTaskStats(ctx context.Context, userID string) (models.TaskStats, error)
}

type ChatService interface {
	// GetMessages returns the 100 most recent messages, oldest first.
	GetMessages(ctx context.Context, userID string) ([]*models.ChatMessage, error)

	// SendMessage stores the user's message together with the assistant reply.
	SendMessage(ctx context.Context, params SendMessageParams) (*SendMessageResult, error)
}

type LoginParams struct {
	Email       string
	Password    string
	Fingerprint string
}

type RegisterParams struct {
	Name        string
	Email       string
	Password    string
	Fingerprint string
}

type LoginResult struct {
	User                  *models.User
	SessionID             string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type RefreshParams struct {
	RefreshToken string
	Fingerprint  string
}

type CreateTaskParams struct {
	UserID      string
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     time.Time
}

type UpdateTaskParams struct {
	ID          string
	UserID      string
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	DueDate     *time.Time
}

type DeleteTaskParams struct {
	ID     string
	UserID string
}

type SendMessageParams struct {
	UserID  string
	Message string
}

type SendMessageResult struct {
	UserMessage *models.ChatMessage
	AIMessage   *models.ChatMessage
	// Policy is the name of the ResponsePolicy that produced the reply.
	Policy string
}
