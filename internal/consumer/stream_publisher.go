package consumer

import (
	"context"
	"fmt"

	"mindguard-analyzer/internal/config"
	commonredis "mindguard-analyzer/internal/common/redis"
	"mindguard-analyzer/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamPublisher 将评估记录发布到 Redis Streams，供下游服务消费
type StreamPublisher struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewStreamPublisher 创建 stream 发布器
func NewStreamPublisher(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *StreamPublisher {
	return &StreamPublisher{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishAssessment 发布评估记录，返回消息 ID
func (p *StreamPublisher) PublishAssessment(ctx context.Context, record models.AssessmentRecord) (string, error) {
	stream := p.config.Analysis.Stream.Name
	id, err := commonredis.PublishJSONToStream(ctx, p.redisClient, stream, record, p.config.Analysis.Stream.MaxLen)
	if err != nil {
		return "", fmt.Errorf("failed to publish assessment %s: %w", record.AssessmentID, err)
	}

	p.logger.Debug("Assessment published to stream",
		zap.String("stream", stream),
		zap.String("message_id", id),
		zap.String("assessment_id", record.AssessmentID),
	)
	return id, nil
}
