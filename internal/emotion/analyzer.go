// Package emotion 文本情绪分析
//
// 文本分类由外部模型完成，这里负责文本预处理、高危关键词提取，
// 以及把模型输出的概率分布转换为情绪风险分。
package emotion

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/scoring"

	"go.uber.org/zap"
)

// ErrInvalidDistribution 概率分布不合法
var ErrInvalidDistribution = errors.New("invalid emotion distribution")

const distributionTolerance = 0.01

const (
	suggestionLow    = "状态稳定，继续保持积极心态。"
	suggestionMedium = "出现一些负面情绪，建议与信任的人沟通并保持规律作息。"
	suggestionHigh   = "高风险警示：建议立即寻求家人、朋友陪伴并联系专业心理咨询师。"
)

var (
	exclamationRun = regexp.MustCompile(`[!！]{2,}`)
	questionRun    = regexp.MustCompile(`[?？]{2,}`)
	periodRun      = regexp.MustCompile(`[.。]{2,}`)
)

// Analyzer 文本情绪分析器
type Analyzer struct {
	policy *policy.Policy
	logger *zap.Logger
}

// NewAnalyzer 创建文本情绪分析器
func NewAnalyzer(p *policy.Policy, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		policy: p,
		logger: logger,
	}
}

// Preprocess 网络用语归一化并合并重复标点
func (a *Analyzer) Preprocess(text string) string {
	processed := text
	for _, s := range a.policy.Emotion.Slang {
		if s.From == "" {
			continue
		}
		processed = strings.ReplaceAll(processed, s.From, s.To)
	}
	processed = exclamationRun.ReplaceAllString(processed, "！")
	processed = questionRun.ReplaceAllString(processed, "？")
	processed = periodRun.ReplaceAllString(processed, "。")
	return processed
}

// ExtractKeywords 原文中出现的高危关键词（按关键词表顺序）
func (a *Analyzer) ExtractKeywords(text string) []string {
	keywords := make([]string, 0)
	for _, k := range a.policy.Emotion.HighRiskKeywords {
		if k != "" && strings.Contains(text, k) {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// RiskScore Σ p·w，按固定标签顺序求和，限制到 [0,100]
func (a *Analyzer) RiskScore(probs map[models.EmotionLabel]float64) float64 {
	score := 0.0
	for _, label := range models.EmotionLabels {
		score += probs[label] * a.policy.Emotion.RiskWeights[label]
	}
	return scoring.Round2(scoring.ClampScore(score))
}

// Analyze 根据模型输出的概率分布生成情绪分析结果；at 零值时取当前时间
func (a *Analyzer) Analyze(text string, probs map[models.EmotionLabel]float64, at time.Time) (models.EmotionResult, error) {
	if err := Validate(probs); err != nil {
		return models.EmotionResult{}, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	emotions := make(map[models.EmotionLabel]float64, len(models.EmotionLabels))
	primary := models.EmotionLabels[0]
	for _, label := range models.EmotionLabels {
		emotions[label] = probs[label]
		if probs[label] > probs[primary] {
			primary = label
		}
	}

	score := a.RiskScore(emotions)
	level := scoring.StandardTiers.Level(score)
	keywords := a.ExtractKeywords(text)

	a.logger.Debug("Emotion analysis finished",
		zap.String("primary_emotion", string(primary)),
		zap.Float64("score", score),
		zap.Int("keyword_count", len(keywords)),
	)

	return models.EmotionResult{
		Text:           text,
		ProcessedText:  a.Preprocess(text),
		PrimaryEmotion: primary,
		Confidence:     emotions[primary],
		Emotions:       emotions,
		RiskScore:      score,
		RiskLevel:      level,
		Keywords:       keywords,
		Suggestion:     suggestion(level),
		Timestamp:      at,
	}, nil
}

// Validate 概率在 [0,1] 内、标签属于固定标签集、总和约为 1
func Validate(probs map[models.EmotionLabel]float64) error {
	if len(probs) == 0 {
		return fmt.Errorf("%w: empty distribution", ErrInvalidDistribution)
	}

	known := make(map[models.EmotionLabel]bool, len(models.EmotionLabels))
	for _, label := range models.EmotionLabels {
		known[label] = true
	}

	sum := 0.0
	for label, p := range probs {
		if !known[label] {
			return fmt.Errorf("%w: unknown label %q", ErrInvalidDistribution, label)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability of %s out of range: %v", ErrInvalidDistribution, label, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > distributionTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrInvalidDistribution, sum)
	}
	return nil
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
