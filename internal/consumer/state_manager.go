package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mindguard-analyzer/internal/config"
	"mindguard-analyzer/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrStateNotFound 状态不存在或已过期
var ErrStateNotFound = errors.New("state not found")

// StateManager 用户基线快照管理器
// 内存中的基线缓存随进程重启丢失，快照写入 Redis 供查询接口和其他实例读取
type StateManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewStateManager 创建状态管理器
func NewStateManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *StateManager {
	return &StateManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// BaselineKey 构建基线快照键
func (s *StateManager) BaselineKey(userID string) string {
	return s.config.Analysis.Cache.BaselineKeyPrefix + userID
}

// SaveBaseline 保存基线快照（带 TTL）
func (s *StateManager) SaveBaseline(ctx context.Context, baseline models.UserBaseline) error {
	ttl := time.Duration(s.config.Analysis.Cache.BaselineTTL) * time.Second
	return s.setState(ctx, s.BaselineKey(baseline.UserID), baseline, ttl)
}

// GetBaseline 读取基线快照
func (s *StateManager) GetBaseline(ctx context.Context, userID string) (*models.UserBaseline, error) {
	var baseline models.UserBaseline
	if err := s.getState(ctx, s.BaselineKey(userID), &baseline); err != nil {
		return nil, err
	}
	return &baseline, nil
}

// DeleteBaseline 删除基线快照
func (s *StateManager) DeleteBaseline(ctx context.Context, userID string) error {
	if err := s.redisClient.Del(ctx, s.BaselineKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

func (s *StateManager) setState(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}

	s.logger.Debug("Saved state", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (s *StateManager) getState(ctx context.Context, key string, dest interface{}) error {
	val, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrStateNotFound, key)
		}
		return fmt.Errorf("failed to get state: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return nil
}
