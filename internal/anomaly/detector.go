// Package anomaly 时序异常检测
//
// 以用户自身的统计基线为参照，比较最近 7 天的四类信号：
// - 情绪：z-score 持续低于 -2
// - 行为量：发帖量、互动量明显下降
// - 作息：深夜活跃占比过高
// - 社交退缩：互动总量较上一窗口骤降
// 并融合为一个 [0,100] 的异常分。
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"time"

	"mindguard-analyzer/internal/baseline"
	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/scoring"

	"go.uber.org/zap"
)

const (
	// WindowSize 最近窗口天数
	WindowSize = 7
	// ReferencePostVolume 7 天发帖量的固定参考值
	ReferencePostVolume = 10

	emotionZThreshold      = -2.0
	emotionAnomalyDays     = 3
	behaviorDropThreshold  = -0.5
	sleepRatioThreshold    = 0.5
	insomniaRatioThreshold = 0.6
	socialDropThreshold    = -0.6
	anomalyScoreThreshold  = 60.0

	// 融合系数
	emotionCoefficient = 35.0
	behaviorPenalty    = 25.0
	sleepCoefficient   = 20.0
	socialCoefficient  = 20.0
)

const (
	suggestionLow    = "状态正常，持续观察。"
	suggestionMedium = "中度异常：建议沟通疏导，推送积极内容，鼓励规律作息。"
	suggestionHigh   = "高度异常：立即通知监护人并联系专业心理咨询师。"

	messageInsufficientData = "数据不足"
)

// Detector 时序异常检测器
type Detector struct {
	store  baseline.Store
	logger *zap.Logger
}

// NewDetector 创建检测器，store 为空时使用默认容量的内存存储
func NewDetector(store baseline.Store, logger *zap.Logger) *Detector {
	if store == nil {
		store = baseline.NewMemoryStore(0)
	}
	return &Detector{
		store:  store,
		logger: logger,
	}
}

// Baseline 读取已缓存的用户基线
func (d *Detector) Baseline(userID string) (models.UserBaseline, bool) {
	return d.store.Get(userID)
}

// Detect 检测用户最近窗口的行为异常
// events 需按时间升序排列；at 为结果时间戳，零值时取当前时间
func (d *Detector) Detect(userID string, events []models.BehaviorEvent, at time.Time) models.AnomalyResult {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	// 1. 重建基线（每次检测都整体重建）
	b, err := d.store.Rebuild(userID, func() (models.UserBaseline, error) {
		return baseline.Build(userID, events)
	})
	if err != nil {
		if !errors.Is(err, baseline.ErrInsufficientData) {
			d.logger.Warn("Failed to build baseline",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return insufficientResult(userID, at)
	}

	// 2. 四类子信号
	emotion := detectEmotionChange(events, b)
	behavior := detectBehaviorChange(events, b)
	sleep := detectSleepPattern(events)
	social := detectSocialWithdrawal(events)

	// 3. 融合
	score := fuse(emotion, behavior, sleep, social)
	level := scoring.AnomalyTiers.Level(score)

	d.logger.Debug("Anomaly detection finished",
		zap.String("user_id", userID),
		zap.Int("event_count", len(events)),
		zap.Float64("score", score),
		zap.Bool("emotion", emotion.Detected),
		zap.Bool("behavior", behavior.Detected),
		zap.Bool("sleep", sleep.Detected),
		zap.Bool("social", social.Detected),
	)

	return models.AnomalyResult{
		UserID:                 userID,
		IsAnomaly:              score > anomalyScoreThreshold,
		Score:                  score,
		RiskLevel:              level,
		Baseline:               &b,
		EmotionAnomaly:         &emotion,
		BehaviorAnomaly:        &behavior,
		SleepAnomaly:           &sleep,
		SocialAnomaly:          &social,
		RiskFactors:            riskFactors(emotion, behavior, sleep, social),
		InterventionSuggestion: suggestion(level),
		AnalysisTimestamp:      at,
	}
}

func insufficientResult(userID string, at time.Time) models.AnomalyResult {
	return models.AnomalyResult{
		UserID:                 userID,
		IsAnomaly:              false,
		InsufficientData:       true,
		Message:                messageInsufficientData,
		Score:                  0,
		RiskLevel:              models.RiskLow,
		RiskFactors:            []string{},
		InterventionSuggestion: suggestionLow,
		AnalysisTimestamp:      at,
	}
}

// recentWindow 最近 7 个事件
func recentWindow(events []models.BehaviorEvent) []models.BehaviorEvent {
	if len(events) <= WindowSize {
		return events
	}
	return events[len(events)-WindowSize:]
}

// previousWindow 最近窗口之前的 7 个事件；不足 14 个时退回到最早的 7 个
func previousWindow(events []models.BehaviorEvent) []models.BehaviorEvent {
	if len(events) >= 2*WindowSize {
		return events[len(events)-2*WindowSize : len(events)-WindowSize]
	}
	if len(events) <= WindowSize {
		return events
	}
	return events[:WindowSize]
}

func detectEmotionChange(events []models.BehaviorEvent, b models.UserBaseline) models.EmotionSignal {
	recent := recentWindow(events)

	zScores := make([]float64, 0, len(recent))
	anomalyDays := 0
	var sum float64
	for _, e := range recent {
		z := (e.EmotionScore - b.EmotionMean) / b.EmotionStd
		zScores = append(zScores, z)
		if z < emotionZThreshold {
			anomalyDays++
		}
		sum += e.EmotionScore
	}
	recentAvg := sum / float64(len(recent))

	return models.EmotionSignal{
		Detected:    anomalyDays >= emotionAnomalyDays,
		ZScores:     zScores,
		AnomalyDays: anomalyDays,
		RecentAvg:   recentAvg,
		BaselineAvg: b.EmotionMean,
		ChangeRate:  scoring.Round3(scoring.RelativeChange(recentAvg, b.EmotionMean)),
	}
}

func detectBehaviorChange(events []models.BehaviorEvent, b models.UserBaseline) models.BehaviorSignal {
	recent := recentWindow(events)

	posts := 0
	interactions := 0
	for _, e := range recent {
		posts += e.PostCount
		interactions += e.InteractionCount
	}
	postChange := scoring.RelativeChange(float64(posts), ReferencePostVolume)
	interactionAvg := float64(interactions) / float64(len(recent))
	interactionChange := scoring.RelativeChange(interactionAvg, b.InteractionMean)

	return models.BehaviorSignal{
		Detected:              postChange < behaviorDropThreshold || interactionChange < behaviorDropThreshold,
		PostChangeRate:        scoring.Round3(postChange),
		InteractionChangeRate: scoring.Round3(interactionChange),
		RecentPosts:           posts,
		BaselinePosts:         ReferencePostVolume,
	}
}

func detectSleepPattern(events []models.BehaviorEvent) models.SleepSignal {
	recent := recentWindow(events)

	lateNight := 0
	for _, e := range recent {
		if scoring.IsLateNight(e.ActivityHour) {
			lateNight++
		}
	}
	ratio := float64(lateNight) / float64(len(recent))

	return models.SleepSignal{
		Detected:       ratio > sleepRatioThreshold,
		LateNightCount: lateNight,
		LateNightRatio: scoring.Round3(ratio),
		InsomniaRisk:   ratio > insomniaRatioThreshold,
	}
}

func detectSocialWithdrawal(events []models.BehaviorEvent) models.SocialSignal {
	recent := sumInteractions(recentWindow(events))
	previous := sumInteractions(previousWindow(events))
	change := scoring.RelativeChange(float64(recent), float64(previous))

	return models.SocialSignal{
		Detected:             change < socialDropThreshold,
		RecentInteractions:   recent,
		PreviousInteractions: previous,
		ChangeRate:           scoring.Round3(change),
	}
}

func sumInteractions(events []models.BehaviorEvent) int {
	total := 0
	for _, e := range events {
		total += e.InteractionCount
	}
	return total
}

// fuse 融合四类子信号，结果限制在 [0,100]
func fuse(emotion models.EmotionSignal, behavior models.BehaviorSignal, sleep models.SleepSignal, social models.SocialSignal) float64 {
	score := 0.0
	if emotion.Detected {
		score += emotionCoefficient * math.Abs(emotion.ChangeRate)
	}
	if behavior.Detected {
		score += behaviorPenalty
	}
	if sleep.Detected {
		score += sleepCoefficient * sleep.LateNightRatio
	}
	if social.Detected {
		score += socialCoefficient * math.Abs(social.ChangeRate)
	}
	return scoring.Round2(scoring.ClampScore(score))
}

func riskFactors(emotion models.EmotionSignal, behavior models.BehaviorSignal, sleep models.SleepSignal, social models.SocialSignal) []string {
	factors := []string{}
	if emotion.Detected {
		factors = append(factors, fmt.Sprintf("情绪下降%.1f%%", math.Abs(emotion.ChangeRate)*100))
	}
	if behavior.Detected {
		factors = append(factors, fmt.Sprintf("社交活动减少（发帖%+.1f%%，互动%+.1f%%）",
			behavior.PostChangeRate*100, behavior.InteractionChangeRate*100))
	}
	if sleep.Detected {
		factors = append(factors, fmt.Sprintf("作息紊乱（深夜活跃%.1f%%）", sleep.LateNightRatio*100))
	}
	if social.Detected {
		factors = append(factors, fmt.Sprintf("互动减少%.1f%%", math.Abs(social.ChangeRate)*100))
	}
	return factors
}

func suggestion(level models.RiskLevel) string {
	switch level {
	case models.RiskLow:
		return suggestionLow
	case models.RiskMedium:
		return suggestionMedium
	default:
		return suggestionHigh
	}
}
