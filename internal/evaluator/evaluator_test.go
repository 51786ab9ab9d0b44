package evaluator

import (
	"encoding/json"
	"testing"
	"time"

	"mindguard-analyzer/internal/baseline"
	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(policy.Default(), baseline.NewMemoryStore(16), zap.NewNop())
}

// 辅助函数

// decliningHistory 情绪线性下降，最近 7 天作息紊乱、停止发帖与互动
func decliningHistory(days int) []models.BehaviorEvent {
	start := fixedTime.AddDate(0, 0, -days)
	events := make([]models.BehaviorEvent, days)
	for i := range events {
		events[i] = models.BehaviorEvent{
			Date:             start.AddDate(0, 0, i),
			EmotionScore:     70 - float64(i)*2,
			ActivityHour:     14,
			PostCount:        2,
			InteractionCount: 20,
		}
		if i >= days-7 {
			events[i].ActivityHour = 2
			events[i].PostCount = 0
			events[i].InteractionCount = 0
		}
	}
	return events
}

func threeShares() []models.InteractionEvent {
	events := make([]models.InteractionEvent, 3)
	for i := range events {
		events[i] = models.InteractionEvent{ContentID: "c1", ActionType: models.ActionShare, ContentText: "好痛苦"}
	}
	return events
}

func TestEvaluate_AllSignals(t *testing.T) {
	e := newTestEvaluator()

	result := e.Evaluate(Request{
		UserID:       "u1",
		Text:         "不想活了",
		EmotionProbs: map[models.EmotionLabel]float64{models.EmotionSuicidal: 1},
		Behavior:     decliningHistory(30),
		Interactions: threeShares(),
		At:           fixedTime,
	})

	require.NotNil(t, result.Emotion)
	require.NotNil(t, result.Anomaly)
	require.NotNil(t, result.Resonance)
	assert.Nil(t, result.Music)

	assert.Equal(t, 50.0, *result.Assessment.Components.Emotion)
	assert.Equal(t, 87.4, *result.Assessment.Components.Anomaly)
	assert.Equal(t, 100.0, *result.Assessment.Components.Resonance)
	assert.Nil(t, result.Assessment.Components.Music)

	// (50×0.30 + 87.4×0.25 + 100×0.20) / 0.75
	assert.InDelta(t, 75.8, result.Assessment.Score, 1e-9)
	assert.Equal(t, models.RiskHigh, result.Assessment.Tier)
	assert.Equal(t, fixedTime, result.Assessment.Timestamp)
	assert.Contains(t, result.Assessment.Factors, "文本出现高危词：不想活")
	assert.Contains(t, result.Assessment.Factors, "与1条高危内容产生共鸣")
	assert.Contains(t, result.Assessment.Factors, "情绪下降64.0%")
}

func TestEvaluate_MusicOnly(t *testing.T) {
	e := newTestEvaluator()
	listening := make([]models.ListeningEvent, 10)
	for i := range listening {
		listening[i] = models.ListeningEvent{TrackID: "a", Timestamp: time.Date(2025, 2, 28, 23, i, 0, 0, time.UTC)}
	}

	result := e.Evaluate(Request{UserID: "u1", Listening: listening, At: fixedTime})

	require.NotNil(t, result.Music)
	// 失眠 25 + 循环 20
	assert.Equal(t, 45.0, result.Assessment.Score)
	assert.Equal(t, models.RiskMedium, result.Assessment.Tier)
	assert.Equal(t, []string{"深夜听歌占比100.0%", "单曲循环（占比100.0%）"}, result.Assessment.Factors)
}

func TestEvaluate_Empty(t *testing.T) {
	e := newTestEvaluator()

	result := e.Evaluate(Request{UserID: "u1", At: fixedTime})

	assert.Nil(t, result.Emotion)
	assert.Nil(t, result.Music)
	assert.Nil(t, result.Anomaly)
	assert.Nil(t, result.Resonance)
	assert.Equal(t, 0.0, result.Assessment.Score)
	assert.Equal(t, models.RiskLow, result.Assessment.Tier)
}

func TestEvaluate_InsufficientBehaviorExcluded(t *testing.T) {
	e := newTestEvaluator()

	result := e.Evaluate(Request{UserID: "u1", Behavior: decliningHistory(5), At: fixedTime})

	require.NotNil(t, result.Anomaly)
	assert.True(t, result.Anomaly.InsufficientData)
	assert.Nil(t, result.Assessment.Components.Anomaly)
	assert.Equal(t, 0.0, result.Assessment.Score)
}

func TestEvaluate_InvalidEmotionSkipped(t *testing.T) {
	e := newTestEvaluator()

	result := e.Evaluate(Request{
		UserID:       "u1",
		EmotionProbs: map[models.EmotionLabel]float64{"angry": 1},
		Interactions: threeShares(),
		At:           fixedTime,
	})

	assert.Nil(t, result.Emotion)
	assert.Nil(t, result.Assessment.Components.Emotion)
	assert.Equal(t, 100.0, result.Assessment.Score)
}

func TestEvaluate_ZeroTimeUsesNow(t *testing.T) {
	e := newTestEvaluator()

	result := e.Evaluate(Request{UserID: "u1"})

	assert.False(t, result.Assessment.Timestamp.IsZero())
}

func TestAssessmentBuilder_BuildRecord(t *testing.T) {
	e := newTestEvaluator()
	evaluation := e.Evaluate(Request{UserID: "u1", Interactions: threeShares(), At: fixedTime})

	record, err := NewAssessmentBuilder("u1").BuildRecord(evaluation)
	require.NoError(t, err)

	_, err = uuid.Parse(record.AssessmentID)
	assert.NoError(t, err)
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, evaluation.Assessment.Score, record.Score)
	assert.Equal(t, evaluation.Assessment.Tier, record.Tier)
	assert.Equal(t, fixedTime, record.CreatedAt)

	var details map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(record.Details), &details))
	assert.Contains(t, details, "resonance")
	assert.NotContains(t, details, "music")
}

func TestAssessmentBuilder_UniqueIDs(t *testing.T) {
	builder := NewAssessmentBuilder("u1")

	a, err := builder.BuildRecord(Evaluation{UserID: "u1"})
	require.NoError(t, err)
	b, err := builder.BuildRecord(Evaluation{UserID: "u1"})
	require.NoError(t, err)

	assert.NotEqual(t, a.AssessmentID, b.AssessmentID)
	assert.Equal(t, "{}", a.Details)
}
