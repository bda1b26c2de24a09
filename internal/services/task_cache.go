package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/manageq/internal/metrics"
	"github.com/adanyl0v/manageq/internal/models"
)

const taskCacheName = "tasks"

// A fill only lands if no mutation bumped the version since the reader
// looked it up, so a list loaded before a write can't outlive that write.
const fillTaskCacheLua = `
local version = redis.call("GET", KEYS[2]) or "0"
if version ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var fillTaskCacheScript = redis.NewScript(fillTaskCacheLua)

// cachedTaskService keeps each user's task list in redis. The store stays
// the source of truth: every successful mutation bumps the user's version
// and evicts the entry, and any redis failure falls through to the wrapped
// service.
type cachedTaskService struct {
	TaskService

	logger  zerolog.Logger
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCachedTaskService(
	logger zerolog.Logger,
	base TaskService,
	client *redis.Client,
	ttl time.Duration,
	m *metrics.Metrics,
) TaskService {
	if base == nil {
		panic("services.NewCachedTaskService: base task service is nil")
	}
	if client == nil || ttl <= 0 {
		return base
	}
	return &cachedTaskService{
		TaskService: base,
		logger:      logger,
		redis:       client,
		ttl:         ttl,
		metrics:     m,
	}
}

func (s *cachedTaskService) GetTasksByUserID(ctx context.Context, userID string) ([]*models.Task, error) {
	if tasks, ok := s.load(ctx, userID); ok {
		return tasks, nil
	}

	// The version is read before loading so a concurrent mutation fails the fill.
	version, versionErr := s.version(ctx, userID)

	tasks, err := s.TaskService.GetTasksByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if versionErr == nil {
		s.store(ctx, userID, version, tasks)
	}
	return tasks, nil
}

func (s *cachedTaskService) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	task, err := s.TaskService.CreateTask(ctx, params)
	if err != nil {
		return nil, err
	}

	s.evict(ctx, params.UserID)
	return task, nil
}

func (s *cachedTaskService) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	task, err := s.TaskService.UpdateTask(ctx, params)
	if err != nil {
		return nil, err
	}

	s.evict(ctx, params.UserID)
	return task, nil
}

func (s *cachedTaskService) DeleteTask(ctx context.Context, params DeleteTaskParams) error {
	err := s.TaskService.DeleteTask(ctx, params)
	if err != nil {
		return err
	}

	s.evict(ctx, params.UserID)
	return nil
}

func (s *cachedTaskService) load(ctx context.Context, userID string) ([]*models.Task, bool) {
	key := taskCacheKey(userID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.metrics.ObserveCacheLookup(taskCacheName, metrics.CacheMiss)
			return nil, false
		}

		s.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("failed to get cached tasks")
		s.metrics.ObserveCacheLookup(taskCacheName, metrics.CacheError)
		return nil, false
	}

	var tasks []*models.Task
	err = json.Unmarshal(data, &tasks)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("dropping malformed cached tasks")
		s.metrics.ObserveCacheLookup(taskCacheName, metrics.CacheError)
		_ = s.redis.Del(ctx, key).Err()
		return nil, false
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("count", len(tasks)).
		Msg("cached tasks hit")
	s.metrics.ObserveCacheLookup(taskCacheName, metrics.CacheHit)
	return tasks, true
}

func (s *cachedTaskService) version(ctx context.Context, userID string) (string, error) {
	version, err := s.redis.Get(ctx, taskCacheVersionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("failed to get cached tasks version")
		return "", err
	}
	return version, nil
}

func (s *cachedTaskService) store(ctx context.Context, userID, version string, tasks []*models.Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}

	filled, err := fillTaskCacheScript.Run(
		ctx,
		s.redis,
		[]string{taskCacheKey(userID), taskCacheVersionKey(userID)},
		version,
		data,
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("failed to cache tasks")
		return
	}
	if filled == 0 {
		s.logger.Debug().
			Str("user_id", userID).
			Str("version", version).
			Msg("skipped caching tasks changed during load")
	}
}

func (s *cachedTaskService) evict(ctx context.Context, userID string) {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, taskCacheVersionKey(userID))
		pipe.Del(ctx, taskCacheKey(userID))
		return nil
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("failed to evict cached tasks")
	}
}

func taskCacheKey(userID string) string {
	return "manageq:tasks:" + userID
}

func taskCacheVersionKey(userID string) string {
	return taskCacheKey(userID) + ":v"
}
