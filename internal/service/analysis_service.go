package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindguard-analyzer/internal/config"
	"mindguard-analyzer/internal/consumer"
	"mindguard-analyzer/internal/evaluator"
	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/privacy"
	"mindguard-analyzer/internal/report"
	"mindguard-analyzer/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrInvalidRequest 请求缺少必填字段
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClassifierUnavailable 未提供概率分布且未配置分类模型
	ErrClassifierUnavailable = errors.New("emotion classifier unavailable")
	// ErrStorageDisabled 未启用数据库
	ErrStorageDisabled = errors.New("assessment storage disabled")
	// ErrAssessmentNotFound 用户没有评估记录
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrBaselineNotFound 用户没有基线
	ErrBaselineNotFound = errors.New("baseline not found")
)

// AssessmentStore 评估记录持久化（由 repository.AssessmentRepository 实现）
type AssessmentStore interface {
	CreateAssessment(ctx context.Context, record *models.AssessmentRecord) error
	GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error)
	ListAssessments(ctx context.Context, userID string, limit int) ([]models.AssessmentRecord, error)
}

// AssessmentCache 最新评估缓存（由 consumer.CacheManager 实现）
type AssessmentCache interface {
	SetLatestAssessment(ctx context.Context, record models.AssessmentRecord) error
	GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error)
}

// BaselineSnapshots 基线快照（由 consumer.StateManager 实现）
type BaselineSnapshots interface {
	SaveBaseline(ctx context.Context, baseline models.UserBaseline) error
	GetBaseline(ctx context.Context, userID string) (*models.UserBaseline, error)
}

// AssessmentPublisher 评估事件发布（由 consumer.StreamPublisher 实现）
type AssessmentPublisher interface {
	PublishAssessment(ctx context.Context, record models.AssessmentRecord) (string, error)
}

// AlertNotifier 高风险提醒（由 notifier.Notifier 实现）
type AlertNotifier interface {
	NotifyIfHighRisk(record models.AssessmentRecord) (bool, error)
}

// EmotionClassifier 外部情绪分类模型（由 classifier.Client 实现）
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) (map[models.EmotionLabel]float64, error)
}

// Dependencies 可选依赖，为 nil 时对应功能降级
type Dependencies struct {
	Store      AssessmentStore
	Cache      AssessmentCache
	Snapshots  BaselineSnapshots
	Publisher  AssessmentPublisher
	Notifier   AlertNotifier
	Classifier EmotionClassifier
}

// AssessmentResult 综合评估响应
type AssessmentResult struct {
	AssessmentID string `json:"assessment_id"`
	evaluator.Evaluation
}

// AnalysisService 分析服务（整合评估器与存储、缓存、推送各层）
type AnalysisService struct {
	config    *config.Config
	evaluator *evaluator.Evaluator
	deps      Dependencies
	logger    *zap.Logger
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(cfg *config.Config, eval *evaluator.Evaluator, deps Dependencies, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		config:    cfg,
		evaluator: eval,
		deps:      deps,
		logger:    logger,
	}
}

// AnalyzeEmotion 文本情绪分析
// probs 为空时调用外部分类模型，发送前去除手机号与邮箱
func (s *AnalysisService) AnalyzeEmotion(ctx context.Context, text string, probs map[models.EmotionLabel]float64, at time.Time) (models.EmotionResult, error) {
	if probs == nil {
		if text == "" {
			return models.EmotionResult{}, fmt.Errorf("%w: text or emotions required", ErrInvalidRequest)
		}
		if s.deps.Classifier == nil {
			return models.EmotionResult{}, ErrClassifierUnavailable
		}
		classified, err := s.deps.Classifier.Classify(ctx, privacy.RemovePII(text))
		if err != nil {
			return models.EmotionResult{}, fmt.Errorf("failed to classify text: %w", err)
		}
		probs = classified
	}
	return s.evaluator.Emotion().Analyze(text, probs, at)
}

// AnalyzeMusic 音乐心理分析
func (s *AnalysisService) AnalyzeMusic(userID string, events []models.ListeningEvent, tracks []models.Track, at time.Time) (models.MusicResult, error) {
	if userID == "" {
		return models.MusicResult{}, fmt.Errorf("%w: user_id required", ErrInvalidRequest)
	}
	return s.evaluator.Music().Analyze(userID, events, tracks, at), nil
}

// DetectAnomaly 时序异常检测，并保存最新基线快照
func (s *AnalysisService) DetectAnomaly(ctx context.Context, userID string, events []models.BehaviorEvent, at time.Time) (models.AnomalyResult, error) {
	if userID == "" {
		return models.AnomalyResult{}, fmt.Errorf("%w: user_id required", ErrInvalidRequest)
	}
	if err := validateBehavior(events); err != nil {
		return models.AnomalyResult{}, err
	}
	result := s.evaluator.Anomaly().Detect(userID, events, at)
	s.saveBaselineSnapshot(ctx, result)
	return result, nil
}

// AnalyzeResonance 共鸣网络分析
func (s *AnalysisService) AnalyzeResonance(userID string, interactions []models.InteractionEvent, at time.Time) (models.ResonanceResult, error) {
	if userID == "" {
		return models.ResonanceResult{}, fmt.Errorf("%w: user_id required", ErrInvalidRequest)
	}
	return s.evaluator.Resonance().Analyze(userID, interactions, at), nil
}

// AssessRisk 综合风险评估
// 评估结果依次落库、写缓存、发布 stream、推送高风险提醒；副作用失败只记录日志，不影响评估结果
func (s *AnalysisService) AssessRisk(ctx context.Context, req evaluator.Request) (*AssessmentResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidRequest)
	}
	if err := validateBehavior(req.Behavior); err != nil {
		return nil, err
	}
	if req.EmotionProbs == nil && req.Text != "" && s.deps.Classifier != nil {
		probs, err := s.deps.Classifier.Classify(ctx, privacy.RemovePII(req.Text))
		if err != nil {
			s.logger.Warn("Emotion classification failed, skipping emotion input",
				zap.String("user", privacy.AnonymizeUserID(req.UserID)),
				zap.Error(err),
			)
		} else {
			req.EmotionProbs = probs
		}
	}

	evaluation := s.evaluator.Evaluate(req)
	record, err := evaluator.NewAssessmentBuilder(req.UserID).BuildRecord(evaluation)
	if err != nil {
		return nil, fmt.Errorf("failed to build assessment record: %w", err)
	}

	if s.deps.Store != nil {
		if err := s.deps.Store.CreateAssessment(ctx, record); err != nil {
			s.logger.Error("Failed to persist assessment",
				zap.String("assessment_id", record.AssessmentID),
				zap.Error(err),
			)
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetLatestAssessment(ctx, *record); err != nil {
			s.logger.Error("Failed to cache assessment",
				zap.String("assessment_id", record.AssessmentID),
				zap.Error(err),
			)
		}
	}
	if s.deps.Publisher != nil {
		if _, err := s.deps.Publisher.PublishAssessment(ctx, *record); err != nil {
			s.logger.Error("Failed to publish assessment",
				zap.String("assessment_id", record.AssessmentID),
				zap.Error(err),
			)
		}
	}
	if s.deps.Notifier != nil {
		if _, err := s.deps.Notifier.NotifyIfHighRisk(*record); err != nil {
			s.logger.Error("Failed to notify guardian",
				zap.String("assessment_id", record.AssessmentID),
				zap.Error(err),
			)
		}
	}
	if evaluation.Anomaly != nil {
		s.saveBaselineSnapshot(ctx, *evaluation.Anomaly)
	}

	return &AssessmentResult{
		AssessmentID: record.AssessmentID,
		Evaluation:   evaluation,
	}, nil
}

// GetLatestAssessment 查询最新评估：先查缓存，未命中再查数据库并回填缓存
func (s *AnalysisService) GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error) {
	if s.deps.Cache != nil {
		record, err := s.deps.Cache.GetLatestAssessment(ctx, userID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, consumer.ErrCacheMiss) {
			s.logger.Warn("Failed to read assessment cache",
				zap.String("user", privacy.AnonymizeUserID(userID)),
				zap.Error(err),
			)
		}
	}

	if s.deps.Store == nil {
		return nil, ErrAssessmentNotFound
	}
	record, err := s.deps.Store.GetLatestAssessment(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAssessmentNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetLatestAssessment(ctx, *record); err != nil {
			s.logger.Warn("Failed to refill assessment cache",
				zap.String("assessment_id", record.AssessmentID),
				zap.Error(err),
			)
		}
	}
	return record, nil
}

// ListHistory 查询评估历史，limit <= 0 时使用配置的默认条数
func (s *AnalysisService) ListHistory(ctx context.Context, userID string, limit int) ([]models.AssessmentRecord, error) {
	if s.deps.Store == nil {
		return nil, ErrStorageDisabled
	}
	if limit <= 0 {
		limit = s.config.Analysis.HistoryLimit
	}
	return s.deps.Store.ListAssessments(ctx, userID, limit)
}

// ExportHistory 导出评估历史为 xlsx
func (s *AnalysisService) ExportHistory(ctx context.Context, userID string, limit int, anonymize bool) ([]byte, error) {
	records, err := s.ListHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return report.GenerateAssessmentExport(records, report.ExportOptions{AnonymizeUser: anonymize})
}

// GetBaseline 查询用户基线：先查内存，再查 Redis 快照
func (s *AnalysisService) GetBaseline(ctx context.Context, userID string) (models.UserBaseline, error) {
	if b, ok := s.evaluator.Anomaly().Baseline(userID); ok {
		return b, nil
	}
	if s.deps.Snapshots == nil {
		return models.UserBaseline{}, ErrBaselineNotFound
	}
	b, err := s.deps.Snapshots.GetBaseline(ctx, userID)
	if err != nil {
		if errors.Is(err, consumer.ErrStateNotFound) {
			return models.UserBaseline{}, ErrBaselineNotFound
		}
		return models.UserBaseline{}, err
	}
	return *b, nil
}

// saveBaselineSnapshot 保存本次检测窗口构建的基线；数据不足时不保存
func (s *AnalysisService) saveBaselineSnapshot(ctx context.Context, result models.AnomalyResult) {
	if s.deps.Snapshots == nil || result.InsufficientData || result.Baseline == nil {
		return
	}
	if err := s.deps.Snapshots.SaveBaseline(ctx, *result.Baseline); err != nil {
		s.logger.Error("Failed to save baseline snapshot",
			zap.String("user", privacy.AnonymizeUserID(result.UserID)),
			zap.Error(err),
		)
	}
}

// validateBehavior 检查行为事件取值范围
func validateBehavior(events []models.BehaviorEvent) error {
	for i, e := range events {
		switch {
		case e.ActivityHour < 0 || e.ActivityHour > 23:
			return fmt.Errorf("%w: events[%d].activity_hour out of range: %d", ErrInvalidRequest, i, e.ActivityHour)
		case e.EmotionScore < 0 || e.EmotionScore > 100:
			return fmt.Errorf("%w: events[%d].emotion_score out of range: %v", ErrInvalidRequest, i, e.EmotionScore)
		case e.PostCount < 0 || e.InteractionCount < 0:
			return fmt.Errorf("%w: events[%d] has negative counts", ErrInvalidRequest, i)
		}
	}
	return nil
}
