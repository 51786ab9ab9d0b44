package models

import "time"

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment 综合风险评估（对外 API 的标准响应，构建后不再修改）
type RiskAssessment struct {
	Score          float64         `json:"score"`
	Tier           RiskLevel       `json:"tier"`
	Factors        []string        `json:"factors"`
	Recommendation string          `json:"recommendation"`
	Components     ComponentScores `json:"components"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ComponentScores 各引擎分数（nil 表示该输入缺失）
type ComponentScores struct {
	Emotion   *float64 `json:"emotion,omitempty"`
	Music     *float64 `json:"music,omitempty"`
	Anomaly   *float64 `json:"anomaly,omitempty"`
	Resonance *float64 `json:"resonance,omitempty"`
}

// AssessmentRecord 评估记录（对应 risk_assessments 表）
type AssessmentRecord struct {
	AssessmentID string         `json:"assessment_id" db:"assessment_id"`
	UserID       string         `json:"user_id" db:"user_id"`
	Score        float64        `json:"score" db:"score"`
	Tier         RiskLevel      `json:"tier" db:"tier"`
	Assessment   RiskAssessment `json:"assessment" db:"assessment"` // JSONB
	Details      string         `json:"details" db:"details"`       // JSONB，各引擎的完整结果
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
