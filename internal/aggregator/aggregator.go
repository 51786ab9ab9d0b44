// Package aggregator 综合风险评估：按融合权重合并各引擎分数并给出干预建议
package aggregator

import (
	"fmt"
	"time"

	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/scoring"
)

const (
	RecommendationLow    = "正常，持续观察"
	RecommendationMedium = "需要关注，推送心理健康内容"
	RecommendationHigh   = "高危！立即通知家长，推荐专业咨询"
)

// Input 综合评估输入，分数为 nil 表示该引擎未参与
type Input struct {
	Emotion   *float64
	Music     *float64
	Anomaly   *float64
	Resonance *float64
	Factors   []string
	At        time.Time
}

// Score 构造分数指针
func Score(v float64) *float64 {
	return &v
}

// Aggregate 加权融合
// 缺失的输入不参与计算，其余输入的权重按比例放大；全部缺失时分数为 0
func Aggregate(in Input, w policy.Weights) models.RiskAssessment {
	components := []struct {
		name   string
		score  *float64
		weight float64
	}{
		{"情绪", in.Emotion, w.Emotion},
		{"音乐", in.Music, w.Music},
		{"行为异常", in.Anomaly, w.Anomaly},
		{"共鸣", in.Resonance, w.Resonance},
	}

	var weighted, totalWeight float64
	factors := make([]string, 0, len(in.Factors)+len(components))
	seen := make(map[string]bool)
	for _, f := range in.Factors {
		if f != "" && !seen[f] {
			seen[f] = true
			factors = append(factors, f)
		}
	}

	clamped := make([]*float64, len(components))
	for i, c := range components {
		if c.score == nil {
			continue
		}
		v := scoring.ClampScore(*c.score)
		clamped[i] = &v
		weighted += v * c.weight
		totalWeight += c.weight
		if scoring.StandardTiers.Level(v) == models.RiskHigh {
			factors = append(factors, fmt.Sprintf("%s风险高（%.1f分）", c.name, v))
		}
	}

	score := 0.0
	if totalWeight > 0 {
		score = scoring.Round2(scoring.ClampScore(weighted / totalWeight))
	}
	tier := scoring.StandardTiers.Level(score)

	return models.RiskAssessment{
		Score:          score,
		Tier:           tier,
		Factors:        factors,
		Recommendation: Recommendation(tier),
		Components: models.ComponentScores{
			Emotion:   clamped[0],
			Music:     clamped[1],
			Anomaly:   clamped[2],
			Resonance: clamped[3],
		},
		Timestamp: in.At,
	}
}

// Recommendation 风险等级对应的干预建议
func Recommendation(tier models.RiskLevel) string {
	switch tier {
	case models.RiskLow:
		return RecommendationLow
	case models.RiskMedium:
		return RecommendationMedium
	default:
		return RecommendationHigh
	}
}
