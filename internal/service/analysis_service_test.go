package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindguard-analyzer/internal/baseline"
	"mindguard-analyzer/internal/config"
	"mindguard-analyzer/internal/consumer"
	"mindguard-analyzer/internal/evaluator"
	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockStore struct{ mock.Mock }

func (m *mockStore) CreateAssessment(ctx context.Context, record *models.AssessmentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockStore) GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*models.AssessmentRecord)
	return record, args.Error(1)
}

func (m *mockStore) ListAssessments(ctx context.Context, userID string, limit int) ([]models.AssessmentRecord, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]models.AssessmentRecord)
	return records, args.Error(1)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) SetLatestAssessment(ctx context.Context, record models.AssessmentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockCache) GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*models.AssessmentRecord)
	return record, args.Error(1)
}

type mockSnapshots struct{ mock.Mock }

func (m *mockSnapshots) SaveBaseline(ctx context.Context, b models.UserBaseline) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockSnapshots) GetBaseline(ctx context.Context, userID string) (*models.UserBaseline, error) {
	args := m.Called(ctx, userID)
	b, _ := args.Get(0).(*models.UserBaseline)
	return b, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishAssessment(ctx context.Context, record models.AssessmentRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyIfHighRisk(record models.AssessmentRecord) (bool, error) {
	args := m.Called(record)
	return args.Bool(0), args.Error(1)
}

type mockClassifier struct{ mock.Mock }

func (m *mockClassifier) Classify(ctx context.Context, text string) (map[models.EmotionLabel]float64, error) {
	args := m.Called(ctx, text)
	probs, _ := args.Get(0).(map[models.EmotionLabel]float64)
	return probs, args.Error(1)
}

// 辅助函数

func newTestService(deps Dependencies) *AnalysisService {
	cfg := &config.Config{}
	cfg.Analysis.HistoryLimit = 30
	eval := evaluator.NewEvaluator(policy.Default(), baseline.NewMemoryStore(16), zap.NewNop())
	return NewAnalysisService(cfg, eval, deps, zap.NewNop())
}

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

func highRiskRequest() evaluator.Request {
	interactions := make([]models.InteractionEvent, 3)
	for i := range interactions {
		interactions[i] = models.InteractionEvent{ContentID: "c1", ActionType: models.ActionShare, ContentText: "好痛苦"}
	}
	return evaluator.Request{
		UserID:       "u1",
		Text:         "不想活了",
		EmotionProbs: map[models.EmotionLabel]float64{models.EmotionSuicidal: 1},
		Behavior:     decliningHistory(30),
		Interactions: interactions,
		At:           fixedTime,
	}
}

func TestAssessRisk_RunsAllSideEffects(t *testing.T) {
	store, cache, publisher, notifier, snapshots := new(mockStore), new(mockCache), new(mockPublisher), new(mockNotifier), new(mockSnapshots)
	store.On("CreateAssessment", mock.Anything, mock.Anything).Return(nil)
	cache.On("SetLatestAssessment", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishAssessment", mock.Anything, mock.Anything).Return("1-0", nil)
	notifier.On("NotifyIfHighRisk", mock.Anything).Return(true, nil)
	snapshots.On("SaveBaseline", mock.Anything, mock.MatchedBy(func(b models.UserBaseline) bool {
		return b.UserID == "u1"
	})).Return(nil)

	s := newTestService(Dependencies{
		Store: store, Cache: cache, Publisher: publisher, Notifier: notifier, Snapshots: snapshots,
	})

	result, err := s.AssessRisk(context.Background(), highRiskRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.AssessmentID)
	assert.InDelta(t, 75.8, result.Assessment.Score, 1e-9)
	assert.Equal(t, models.RiskHigh, result.Assessment.Tier)

	store.AssertExpectations(t)
	cache.AssertExpectations(t)
	publisher.AssertExpectations(t)
	notifier.AssertExpectations(t)
	snapshots.AssertExpectations(t)

	record := store.Calls[0].Arguments.Get(1).(*models.AssessmentRecord)
	assert.Equal(t, result.AssessmentID, record.AssessmentID)
	assert.Equal(t, fixedTime, record.CreatedAt)
}

func TestAssessRisk_SideEffectFailuresDoNotFail(t *testing.T) {
	store, cache, publisher, notifier := new(mockStore), new(mockCache), new(mockPublisher), new(mockNotifier)
	store.On("CreateAssessment", mock.Anything, mock.Anything).Return(errors.New("db down"))
	cache.On("SetLatestAssessment", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	publisher.On("PublishAssessment", mock.Anything, mock.Anything).Return("", errors.New("redis down"))
	notifier.On("NotifyIfHighRisk", mock.Anything).Return(false, errors.New("broker down"))

	s := newTestService(Dependencies{Store: store, Cache: cache, Publisher: publisher, Notifier: notifier})

	result, err := s.AssessRisk(context.Background(), highRiskRequest())
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, result.Assessment.Tier)
}

func TestAssessRisk_WithoutDependencies(t *testing.T) {
	s := newTestService(Dependencies{})

	result, err := s.AssessRisk(context.Background(), evaluator.Request{UserID: "u1", At: fixedTime})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Assessment.Score)
	assert.Equal(t, models.RiskLow, result.Assessment.Tier)
}

func TestAssessRisk_RequiresUserID(t *testing.T) {
	s := newTestService(Dependencies{})

	_, err := s.AssessRisk(context.Background(), evaluator.Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAssessRisk_ClassifiesTextWithoutProbs(t *testing.T) {
	classifier := new(mockClassifier)
	classifier.On("Classify", mock.Anything, "不想活了").
		Return(map[models.EmotionLabel]float64{models.EmotionSuicidal: 1}, nil)

	s := newTestService(Dependencies{Classifier: classifier})

	result, err := s.AssessRisk(context.Background(), evaluator.Request{UserID: "u1", Text: "不想活了", At: fixedTime})
	require.NoError(t, err)
	require.NotNil(t, result.Emotion)
	assert.Equal(t, 50.0, result.Assessment.Score)
	classifier.AssertExpectations(t)
}

func TestAnalyzeEmotion_ClassifierUnavailable(t *testing.T) {
	s := newTestService(Dependencies{})

	_, err := s.AnalyzeEmotion(context.Background(), "难过", nil, fixedTime)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	_, err = s.AnalyzeEmotion(context.Background(), "", nil, fixedTime)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAnalyzeEmotion_WithProbs(t *testing.T) {
	s := newTestService(Dependencies{})

	result, err := s.AnalyzeEmotion(context.Background(), "今天很开心", map[models.EmotionLabel]float64{
		models.EmotionPositive: 0.9,
		models.EmotionNeutral:  0.1,
	}, fixedTime)
	require.NoError(t, err)
	assert.Equal(t, models.EmotionPositive, result.PrimaryEmotion)
	assert.Equal(t, models.RiskLow, result.RiskLevel)
}

func TestGetLatestAssessment_CacheHit(t *testing.T) {
	cache, store := new(mockCache), new(mockStore)
	cached := &models.AssessmentRecord{AssessmentID: "a-1", UserID: "u1"}
	cache.On("GetLatestAssessment", mock.Anything, "u1").Return(cached, nil)

	s := newTestService(Dependencies{Cache: cache, Store: store})

	record, err := s.GetLatestAssessment(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a-1", record.AssessmentID)
	store.AssertNotCalled(t, "GetLatestAssessment", mock.Anything, mock.Anything)
}

func TestGetLatestAssessment_CacheMissFallsBackToStore(t *testing.T) {
	cache, store := new(mockCache), new(mockStore)
	stored := &models.AssessmentRecord{AssessmentID: "a-2", UserID: "u1"}
	cache.On("GetLatestAssessment", mock.Anything, "u1").Return(nil, consumer.ErrCacheMiss)
	cache.On("SetLatestAssessment", mock.Anything, *stored).Return(nil)
	store.On("GetLatestAssessment", mock.Anything, "u1").Return(stored, nil)

	s := newTestService(Dependencies{Cache: cache, Store: store})

	record, err := s.GetLatestAssessment(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a-2", record.AssessmentID)
	cache.AssertExpectations(t)
}

func TestGetLatestAssessment_NotFound(t *testing.T) {
	store := new(mockStore)
	store.On("GetLatestAssessment", mock.Anything, "u1").Return(nil, repository.ErrAssessmentNotFound)

	_, err := newTestService(Dependencies{Store: store}).GetLatestAssessment(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	_, err = newTestService(Dependencies{}).GetLatestAssessment(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestListHistory_DefaultLimit(t *testing.T) {
	store := new(mockStore)
	store.On("ListAssessments", mock.Anything, "u1", 30).Return([]models.AssessmentRecord{{AssessmentID: "a-1"}}, nil)

	records, err := newTestService(Dependencies{Store: store}).ListHistory(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	store.AssertExpectations(t)
}

func TestListHistory_StorageDisabled(t *testing.T) {
	_, err := newTestService(Dependencies{}).ListHistory(context.Background(), "u1", 10)
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, err = newTestService(Dependencies{}).ExportHistory(context.Background(), "u1", 10, false)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestExportHistory(t *testing.T) {
	store := new(mockStore)
	store.On("ListAssessments", mock.Anything, "u1", 5).Return([]models.AssessmentRecord{{
		AssessmentID: "a-1",
		UserID:       "u1",
		Score:        42,
		Tier:         models.RiskMedium,
		CreatedAt:    fixedTime,
	}}, nil)

	data, err := newTestService(Dependencies{Store: store}).ExportHistory(context.Background(), "u1", 5, true)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestGetBaseline_FromMemoryAfterDetect(t *testing.T) {
	snapshots := new(mockSnapshots)
	snapshots.On("SaveBaseline", mock.Anything, mock.Anything).Return(nil)
	s := newTestService(Dependencies{Snapshots: snapshots})

	_, err := s.DetectAnomaly(context.Background(), "u1", decliningHistory(30), fixedTime)
	require.NoError(t, err)

	b, err := s.GetBaseline(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, 21, b.SampleSize)
	snapshots.AssertNumberOfCalls(t, "SaveBaseline", 1)
	snapshots.AssertNotCalled(t, "GetBaseline", mock.Anything, mock.Anything)
}

func TestGetBaseline_FromSnapshots(t *testing.T) {
	snapshots := new(mockSnapshots)
	snapshots.On("GetBaseline", mock.Anything, "u1").Return(&models.UserBaseline{UserID: "u1", SampleSize: 14}, nil)
	snapshots.On("GetBaseline", mock.Anything, "u2").Return(nil, consumer.ErrStateNotFound)

	s := newTestService(Dependencies{Snapshots: snapshots})

	b, err := s.GetBaseline(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 14, b.SampleSize)

	_, err = s.GetBaseline(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrBaselineNotFound)
}

func TestDetectAnomaly_InsufficientDataSkipsSnapshot(t *testing.T) {
	snapshots := new(mockSnapshots)
	s := newTestService(Dependencies{Snapshots: snapshots})

	result, err := s.DetectAnomaly(context.Background(), "u1", decliningHistory(3), fixedTime)
	require.NoError(t, err)
	assert.True(t, result.InsufficientData)
	snapshots.AssertNotCalled(t, "SaveBaseline", mock.Anything, mock.Anything)
}

func TestAnalyzeEmotion_ClassifierReceivesScrubbedText(t *testing.T) {
	classifier := new(mockClassifier)
	classifier.On("Classify", mock.Anything, "好难过 联系我 [phone]").
		Return(map[models.EmotionLabel]float64{models.EmotionDepression: 1}, nil)

	s := newTestService(Dependencies{Classifier: classifier})

	result, err := s.AnalyzeEmotion(context.Background(), "好难过\n联系我 13812345678", nil, fixedTime)
	require.NoError(t, err)
	assert.Equal(t, models.EmotionDepression, result.PrimaryEmotion)
	classifier.AssertExpectations(t)
}

func TestDetectAnomaly_InsufficientDataAfterFullWindowSavesOnce(t *testing.T) {
	snapshots := new(mockSnapshots)
	snapshots.On("SaveBaseline", mock.Anything, mock.Anything).Return(nil)
	s := newTestService(Dependencies{Snapshots: snapshots})
	ctx := context.Background()

	full, err := s.DetectAnomaly(ctx, "u1", decliningHistory(30), fixedTime)
	require.NoError(t, err)
	require.NotNil(t, full.Baseline)

	short, err := s.DetectAnomaly(ctx, "u1", decliningHistory(3), fixedTime)
	require.NoError(t, err)
	assert.True(t, short.InsufficientData)

	snapshots.AssertNumberOfCalls(t, "SaveBaseline", 1)
	saved := snapshots.Calls[0].Arguments.Get(1).(models.UserBaseline)
	assert.Equal(t, *full.Baseline, saved)
}

func TestAssessRisk_InsufficientBehaviorSkipsSnapshot(t *testing.T) {
	snapshots := new(mockSnapshots)
	snapshots.On("SaveBaseline", mock.Anything, mock.Anything).Return(nil)
	s := newTestService(Dependencies{Snapshots: snapshots})
	ctx := context.Background()

	_, err := s.DetectAnomaly(ctx, "u1", decliningHistory(30), fixedTime)
	require.NoError(t, err)

	result, err := s.AssessRisk(ctx, evaluator.Request{UserID: "u1", Behavior: decliningHistory(3), At: fixedTime})
	require.NoError(t, err)
	require.NotNil(t, result.Anomaly)
	assert.True(t, result.Anomaly.InsufficientData)
	snapshots.AssertNumberOfCalls(t, "SaveBaseline", 1)
}

func TestValidateBehavior_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *models.BehaviorEvent)
	}{
		{"activity hour above 23", func(e *models.BehaviorEvent) { e.ActivityHour = 25 }},
		{"negative activity hour", func(e *models.BehaviorEvent) { e.ActivityHour = -1 }},
		{"emotion score above 100", func(e *models.BehaviorEvent) { e.EmotionScore = 120 }},
		{"negative emotion score", func(e *models.BehaviorEvent) { e.EmotionScore = -5 }},
		{"negative posts", func(e *models.BehaviorEvent) { e.PostCount = -1 }},
		{"negative interactions", func(e *models.BehaviorEvent) { e.InteractionCount = -2 }},
	}

	s := newTestService(Dependencies{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := decliningHistory(30)
			tt.mutate(&events[len(events)-1])

			_, err := s.DetectAnomaly(context.Background(), "u1", events, fixedTime)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			_, err = s.AssessRisk(context.Background(), evaluator.Request{UserID: "u1", Behavior: events, At: fixedTime})
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}
