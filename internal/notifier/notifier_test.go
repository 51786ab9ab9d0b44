package notifier

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mindguard-analyzer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(topic string, payload []byte) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

// 辅助函数
func testRecord(tier models.RiskLevel) models.AssessmentRecord {
	return models.AssessmentRecord{
		AssessmentID: "a-1",
		UserID:       "u1",
		Score:        80,
		Tier:         tier,
		Assessment: models.RiskAssessment{
			Factors:        []string{"情绪下降64.0%"},
			Recommendation: "高危！立即通知家长，推荐专业咨询",
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifyIfHighRisk_Publishes(t *testing.T) {
	publisher := new(mockPublisher)
	var captured []byte
	publisher.On("Publish", "mindguard/alerts/u1", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).([]byte) }).
		Return(nil)

	n := NewNotifier(publisher, "mindguard/alerts/", zap.NewNop())
	sent, err := n.NotifyIfHighRisk(testRecord(models.RiskHigh))

	require.NoError(t, err)
	assert.True(t, sent)
	publisher.AssertExpectations(t)

	var alert GuardianAlert
	require.NoError(t, json.Unmarshal(captured, &alert))
	assert.Equal(t, "a-1", alert.AssessmentID)
	assert.Equal(t, 80.0, alert.Score)
	assert.Equal(t, []string{"情绪下降64.0%"}, alert.Factors)
}

func TestNotifyIfHighRisk_SkipsLowerTiers(t *testing.T) {
	publisher := new(mockPublisher)
	n := NewNotifier(publisher, "mindguard/alerts/", zap.NewNop())

	for _, tier := range []models.RiskLevel{models.RiskLow, models.RiskMedium} {
		sent, err := n.NotifyIfHighRisk(testRecord(tier))
		require.NoError(t, err)
		assert.False(t, sent)
	}
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestNotifyIfHighRisk_PublishError(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	n := NewNotifier(publisher, "mindguard/alerts/", zap.NewNop())
	sent, err := n.NotifyIfHighRisk(testRecord(models.RiskHigh))

	assert.False(t, sent)
	assert.ErrorContains(t, err, "broker down")
}
