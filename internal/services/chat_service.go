package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/manageq/internal/assistant"
	"github.com/adanyl0v/manageq/internal/models"
)

// ChatHistoryLimit is the number of most recent messages GetMessages returns.
const ChatHistoryLimit = 100

const maxChatMessageLength = 1000

type chatServiceImpl struct {
	logger      zerolog.Logger
	pgPool      *pgxpool.Pool
	taskService TaskService
	policy      assistant.ResponsePolicy
}

// NewChatService builds replies with policy. The user's tasks are
// loaded through taskService, so a cached TaskService is reused here.
func NewChatService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	taskService TaskService,
	policy assistant.ResponsePolicy,
) ChatService {
	return &chatServiceImpl{
		logger:      logger,
		pgPool:      pgPool,
		taskService: taskService,
		policy:      policy,
	}
}

func (s *chatServiceImpl) GetMessages(ctx context.Context, userID string) ([]*models.ChatMessage, error) {
	const selectRecentMessagesQuery = `
SELECT id,
       message,
       is_user,
       created_at
FROM chat_messages
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`
	rows, err := s.pgPool.Query(
		ctx,
		selectRecentMessagesQuery,
		userID,
		ChatHistoryLimit,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select chat messages")
		return nil, fmt.Errorf("failed to select chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		message := &models.ChatMessage{UserID: userID}
		err = rows.Scan(
			&message.ID,
			&message.Message,
			&message.IsUser,
			&message.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan chat message")
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		message.CreatedAt = storedTime(message.CreatedAt)
		messages = append(messages, message)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, fmt.Errorf("failed to iterate over chat messages: %w", err)
	}

	// Selected newest first to apply the limit, returned oldest first.
	slices.Reverse(messages)

	s.logger.Info().
		Int("count", len(messages)).
		Str("user_id", userID).
		Msg("selected chat messages")
	return messages, nil
}

func (s *chatServiceImpl) SendMessage(ctx context.Context, params SendMessageParams) (*SendMessageResult, error) {
	text := strings.TrimSpace(params.Message)
	if text == "" || len([]rune(text)) > maxChatMessageLength {
		return nil, ErrInvalidChatMessage
	}

	tasks, err := s.taskService.GetTasksByUserID(ctx, params.UserID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("failed to load tasks for reply")
		return nil, err
	}
	reply := s.policy.Respond(text, tasks)
	s.logger.Debug().
		Str("policy", s.policy.Name()).
		Int("tasks", len(tasks)).
		Msg("built assistant reply")

	now := storedTime(time.Now())
	userMessage, err := newChatMessage(params.UserID, text, true, now)
	if err != nil {
		return nil, err
	}
	// The reply must sort after the question even on coarse clocks.
	aiMessage, err := newChatMessage(params.UserID, reply, false, now.Add(time.Microsecond))
	if err != nil {
		return nil, err
	}

	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, message := range []*models.ChatMessage{userMessage, aiMessage} {
		err = s.insertMessage(ctx, tx, message)
		if err != nil {
			return nil, err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Str("user_id", params.UserID).
		Str("policy", s.policy.Name()).
		Msg("sent chat message")
	return &SendMessageResult{
		UserMessage: userMessage,
		AIMessage:   aiMessage,
		Policy:      s.policy.Name(),
	}, nil
}

func (s *chatServiceImpl) insertMessage(ctx context.Context, tx pgx.Tx, message *models.ChatMessage) error {
	const insertChatMessageQuery = `
INSERT INTO chat_messages (id,
                           user_id,
                           message,
                           is_user,
                           created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := tx.Exec(
		ctx,
		insertChatMessageQuery,
		message.ID,
		message.UserID,
		message.Message,
		message.IsUser,
		message.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Bool("is_user", message.IsUser).
			Msg("failed to insert chat message")
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	s.logger.Debug().
		Str("message_id", message.ID).
		Bool("is_user", message.IsUser).
		Msg("inserted chat message")
	return nil
}

func newChatMessage(userID, text string, isUser bool, createdAt time.Time) (*models.ChatMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	return &models.ChatMessage{
		ID:        id.String(),
		UserID:    userID,
		Message:   text,
		IsUser:    isUser,
		CreatedAt: createdAt,
	}, nil
}
