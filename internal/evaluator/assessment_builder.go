package evaluator

import (
	"encoding/json"
	"fmt"

	"mindguard-analyzer/internal/models"

	"github.com/google/uuid"
)

// assessmentDetails 写入 details 列的各引擎完整结果
type assessmentDetails struct {
	Emotion   *models.EmotionResult   `json:"emotion,omitempty"`
	Music     *models.MusicResult     `json:"music,omitempty"`
	Anomaly   *models.AnomalyResult   `json:"anomaly,omitempty"`
	Resonance *models.ResonanceResult `json:"resonance,omitempty"`
}

// AssessmentBuilder 评估记录构建器
type AssessmentBuilder struct {
	userID string
}

// NewAssessmentBuilder 创建评估记录构建器
func NewAssessmentBuilder(userID string) *AssessmentBuilder {
	return &AssessmentBuilder{userID: userID}
}

// BuildRecord 由评估结果构建待持久化的记录
func (b *AssessmentBuilder) BuildRecord(evaluation Evaluation) (*models.AssessmentRecord, error) {
	details, err := json.Marshal(assessmentDetails{
		Emotion:   evaluation.Emotion,
		Music:     evaluation.Music,
		Anomaly:   evaluation.Anomaly,
		Resonance: evaluation.Resonance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assessment details: %w", err)
	}

	return &models.AssessmentRecord{
		AssessmentID: uuid.New().String(),
		UserID:       b.userID,
		Score:        evaluation.Assessment.Score,
		Tier:         evaluation.Assessment.Tier,
		Assessment:   evaluation.Assessment,
		Details:      string(details),
		CreatedAt:    evaluation.Assessment.Timestamp,
	}, nil
}
