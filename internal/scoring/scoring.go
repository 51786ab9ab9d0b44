// Package scoring 各分析引擎共用的分数处理与分级规则
package scoring

import (
	"math"

	"mindguard-analyzer/internal/models"
)

// Clamp 把 value 限制在 [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampScore 限制到 [0,100]
func ClampScore(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return Clamp(value, 0, 100)
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 保留三位小数
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Tiers 分级阈值：score < Medium 为低，score < High 为中，其余为高
type Tiers struct {
	Medium float64
	High   float64
}

var (
	// AnomalyTiers 时序异常分级
	AnomalyTiers = Tiers{Medium: 30, High: 60}
	// StandardTiers 音乐、情绪、综合评估分级
	StandardTiers = Tiers{Medium: 30, High: 70}
)

// Level 按阈值分级
func (t Tiers) Level(score float64) models.RiskLevel {
	switch {
	case score < t.Medium:
		return models.RiskLow
	case score < t.High:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// RelativeChange (current - reference) / reference，reference 为 0 时返回 0
func RelativeChange(current, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return (current - reference) / reference
}

// IsLateNight 是否为深夜时段 [22,24) ∪ [0,6)
func IsLateNight(hour int) bool {
	return hour >= 22 || hour < 6
}
