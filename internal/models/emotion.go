package models

import "time"

// EmotionLabel 情绪分类标签（外部模型的固定标签集）
type EmotionLabel string

const (
	EmotionPositive   EmotionLabel = "positive"
	EmotionNegative   EmotionLabel = "negative"
	EmotionNeutral    EmotionLabel = "neutral"
	EmotionDepression EmotionLabel = "depression"
	EmotionAnxiety    EmotionLabel = "anxiety"
	EmotionSuicidal   EmotionLabel = "suicidal"
)

// EmotionLabels 标签的固定顺序
var EmotionLabels = []EmotionLabel{
	EmotionPositive,
	EmotionNegative,
	EmotionNeutral,
	EmotionDepression,
	EmotionAnxiety,
	EmotionSuicidal,
}

// EmotionResult 文本情绪分析结果（概率分布来自外部模型）
type EmotionResult struct {
	Text           string                   `json:"text"`
	ProcessedText  string                   `json:"processed_text"`
	PrimaryEmotion EmotionLabel             `json:"primary_emotion"`
	Confidence     float64                  `json:"confidence"`
	Emotions       map[EmotionLabel]float64 `json:"emotions"`
	RiskScore      float64                  `json:"risk_score"`
	RiskLevel      RiskLevel                `json:"risk_level"`
	Keywords       []string                 `json:"keywords"`
	Suggestion     string                   `json:"suggestion"`
	Timestamp      time.Time                `json:"timestamp"`
}
