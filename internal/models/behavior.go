package models

import "time"

// BehaviorEvent 单日行为事件（由采集端产生，按时间顺序排列，记录后不可变）
type BehaviorEvent struct {
	Date             time.Time `json:"date"`
	EmotionScore     float64   `json:"emotion_score"`     // 情绪分 [0,100]
	ActivityHour     int       `json:"activity_hour"`     // 主要活跃时段 [0,23]
	PostCount        int       `json:"post_count"`        // 发帖数
	InteractionCount int       `json:"interaction_count"` // 互动数
}

// UserBaseline 用户统计基线（取窗口前 70% 的数据计算）
type UserBaseline struct {
	UserID          string  `json:"user_id"`
	EmotionMean     float64 `json:"emotion_mean"`
	EmotionStd      float64 `json:"emotion_std"`
	InteractionMean float64 `json:"interaction_mean"`
	InteractionStd  float64 `json:"interaction_std"`
	SampleSize      int     `json:"sample_size"` // 参与计算的事件数
}

// EmotionSignal 情绪子信号
type EmotionSignal struct {
	Detected    bool      `json:"detected"`
	ZScores     []float64 `json:"z_scores"`
	AnomalyDays int       `json:"anomaly_days"`
	RecentAvg   float64   `json:"recent_avg"`
	BaselineAvg float64   `json:"baseline_avg"`
	ChangeRate  float64   `json:"change_rate"`
}

// BehaviorSignal 行为量子信号
type BehaviorSignal struct {
	Detected              bool    `json:"detected"`
	PostChangeRate        float64 `json:"post_change_rate"`
	InteractionChangeRate float64 `json:"interaction_change_rate"`
	RecentPosts           int     `json:"recent_posts"`
	BaselinePosts         int     `json:"baseline_posts"`
}

// SleepSignal 作息子信号
type SleepSignal struct {
	Detected       bool    `json:"detected"`
	LateNightCount int     `json:"late_night_count"`
	LateNightRatio float64 `json:"late_night_ratio"`
	InsomniaRisk   bool    `json:"insomnia_risk"`
}

// SocialSignal 社交退缩子信号
type SocialSignal struct {
	Detected             bool    `json:"detected"`
	RecentInteractions   int     `json:"recent_interactions"`
	PreviousInteractions int     `json:"previous_interactions"`
	ChangeRate           float64 `json:"change_rate"`
}

// AnomalyResult 时序异常检测结果
type AnomalyResult struct {
	UserID                 string          `json:"user_id"`
	IsAnomaly              bool            `json:"is_anomaly"`
	InsufficientData       bool            `json:"insufficient_data,omitempty"`
	Message                string          `json:"message,omitempty"`
	Score                  float64         `json:"score"`
	RiskLevel              RiskLevel       `json:"risk_level"`
	Baseline               *UserBaseline   `json:"baseline,omitempty"`
	EmotionAnomaly         *EmotionSignal  `json:"emotion_anomaly,omitempty"`
	BehaviorAnomaly        *BehaviorSignal `json:"behavior_anomaly,omitempty"`
	SleepAnomaly           *SleepSignal    `json:"sleep_anomaly,omitempty"`
	SocialAnomaly          *SocialSignal   `json:"social_anomaly,omitempty"`
	RiskFactors            []string        `json:"risk_factors"`
	InterventionSuggestion string          `json:"intervention_suggestion"`
	AnalysisTimestamp      time.Time       `json:"analysis_timestamp"`
}
