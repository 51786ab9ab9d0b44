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

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// CacheManager 最新评估结果缓存
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// AssessmentKey 构建评估缓存键
func (c *CacheManager) AssessmentKey(userID string) string {
	return c.config.Analysis.Cache.AssessmentKeyPrefix + userID
}

// SetLatestAssessment 更新用户最新评估
func (c *CacheManager) SetLatestAssessment(ctx context.Context, record models.AssessmentRecord) error {
	key := c.AssessmentKey(record.UserID)

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	err = c.redisClient.Set(
		ctx,
		key,
		jsonData,
		time.Duration(c.config.Analysis.Cache.AssessmentTTL)*time.Second,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set assessment cache: %w", err)
	}

	c.logger.Debug("Updated assessment cache",
		zap.String("user_id", record.UserID),
		zap.String("key", key),
		zap.Float64("score", record.Score),
	)
	return nil
}

// GetLatestAssessment 读取用户最新评估
func (c *CacheManager) GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error) {
	val, err := c.redisClient.Get(ctx, c.AssessmentKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var record models.AssessmentRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	return &record, nil
}

// InvalidateAssessment 删除用户评估缓存
func (c *CacheManager) InvalidateAssessment(ctx context.Context, userID string) error {
	if err := c.redisClient.Del(ctx, c.AssessmentKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete assessment cache: %w", err)
	}
	return nil
}
