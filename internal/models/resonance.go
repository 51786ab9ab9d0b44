package models

import "time"

// ActionType 互动类型
type ActionType string

const (
	ActionLike     ActionType = "like"
	ActionComment  ActionType = "comment"
	ActionShare    ActionType = "share"
	ActionCollect  ActionType = "collect"
	ActionLongTime ActionType = "long_time" // 长时间停留
)

// InteractionEvent 用户与内容的一次互动
type InteractionEvent struct {
	ContentID   string     `json:"content_id"`
	ActionType  ActionType `json:"action_type"`
	ContentText string     `json:"content_text"`
	ContentType string     `json:"content_type"`
}

// ContentResonance 单条内容的共鸣度
type ContentResonance struct {
	ContentID      string  `json:"content_id"`
	ResonanceScore float64 `json:"resonance_score"` // 归一化后 [0,1]
	RawScore       float64 `json:"raw_score"`
	ContentText    string  `json:"content_text"`
	ContentType    string  `json:"content_type"`
}

// HighRiskContent 高危共鸣内容
type HighRiskContent struct {
	ContentResonance
	RiskScore       float64  `json:"risk_score"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// NetworkStats 共鸣网络统计
type NetworkStats struct {
	TotalNodes int     `json:"total_nodes"`
	TotalEdges int     `json:"total_edges"`
	Density    float64 `json:"density"`
}

// ResonanceResult 共鸣网络分析结果
type ResonanceResult struct {
	UserID                 string             `json:"user_id"`
	ResonanceIntensity     float64            `json:"resonance_intensity"`
	RiskScore              float64            `json:"resonance_risk_score"` // [0,100]，供综合评估使用
	ResonanceScores        []ContentResonance `json:"resonance_scores"`     // 前 10 条
	HighRiskContents       []HighRiskContent  `json:"high_risk_contents"`
	HighRiskCount          int                `json:"high_risk_count"`
	ClusterIDs             []string           `json:"cluster_ids"`
	CentralityScore        float64            `json:"centrality_score"`
	NeedsIntervention      bool               `json:"needs_intervention"`
	InterventionSuggestion string             `json:"intervention_suggestion"`
	NetworkStats           NetworkStats       `json:"network_stats"`
	AnalysisTimestamp      time.Time          `json:"analysis_timestamp"`
}
