// Package notifier 高风险评估的监护人提醒
package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/privacy"

	"go.uber.org/zap"
)

// Publisher 消息发布（由 common/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// GuardianAlert 监护人提醒消息
type GuardianAlert struct {
	AssessmentID   string           `json:"assessment_id"`
	UserID         string           `json:"user_id"`
	Score          float64          `json:"score"`
	Tier           models.RiskLevel `json:"tier"`
	Factors        []string         `json:"factors"`
	Recommendation string           `json:"recommendation"`
	AssessedAt     time.Time        `json:"assessed_at"`
}

// Notifier 监护人提醒
type Notifier struct {
	publisher   Publisher
	topicPrefix string
	logger      *zap.Logger
}

// NewNotifier 创建提醒器
func NewNotifier(publisher Publisher, topicPrefix string, logger *zap.Logger) *Notifier {
	return &Notifier{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// Topic 用户提醒主题
func (n *Notifier) Topic(userID string) string {
	return n.topicPrefix + userID
}

// NotifyIfHighRisk 仅在高风险时发布提醒，返回是否已发布
func (n *Notifier) NotifyIfHighRisk(record models.AssessmentRecord) (bool, error) {
	if record.Tier != models.RiskHigh {
		return false, nil
	}

	payload, err := json.Marshal(GuardianAlert{
		AssessmentID:   record.AssessmentID,
		UserID:         record.UserID,
		Score:          record.Score,
		Tier:           record.Tier,
		Factors:        record.Assessment.Factors,
		Recommendation: record.Assessment.Recommendation,
		AssessedAt:     record.CreatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal guardian alert: %w", err)
	}

	if err := n.publisher.Publish(n.Topic(record.UserID), payload); err != nil {
		return false, fmt.Errorf("failed to publish guardian alert: %w", err)
	}

	n.logger.Info("Guardian alert published",
		zap.String("assessment_id", record.AssessmentID),
		zap.String("user", privacy.AnonymizeUserID(record.UserID)),
		zap.Float64("score", record.Score),
	)
	return true, nil
}
