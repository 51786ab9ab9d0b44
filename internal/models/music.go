package models

import "time"

// Track 歌曲信息（外部提供，缺失时生成占位）
type Track struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genre  string   `json:"genre"`
	Tags   []string `json:"tags"`
	Artist string   `json:"artist,omitempty"`
}

// ListeningEvent 单次播放记录（允许重复，重复本身就是检测信号）
type ListeningEvent struct {
	TrackID   string    `json:"track_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ValenceTrend 效价趋势
type ValenceTrend string

const (
	TrendImproving ValenceTrend = "improving"
	TrendWorsening ValenceTrend = "worsening"
	TrendStable    ValenceTrend = "stable"
)

// ValenceProfile 效价分析
type ValenceProfile struct {
	OverallValence float64      `json:"overall_valence"` // [-1,1]
	ValenceStd     float64      `json:"valence_std"`
	Trend          ValenceTrend `json:"trend"`
	ValenceHistory []float64    `json:"valence_history"`
}

// TimePattern 听歌时段分布
type TimePattern struct {
	HourDistribution [24]int `json:"hour_distribution"`
	LateNightCount   int     `json:"late_night_count"`
	TotalCount       int     `json:"total_count"`
	LateNightRatio   float64 `json:"late_night_ratio"`
	InsomniaDetected bool    `json:"insomnia_detected"`
	PeakHours        []int   `json:"peak_hours"`
}

// TrackPlays 单曲播放统计
type TrackPlays struct {
	TrackID   string  `json:"track_id"`
	PlayCount int     `json:"play_count"`
	Ratio     float64 `json:"ratio"`
}

// LoopDetection 单曲循环检测
type LoopDetection struct {
	Detected     bool         `json:"detected"`
	TopTracks    []TrackPlays `json:"top_tracks"`
	MaxLoopRatio float64      `json:"max_loop_ratio"`
}

// HighRiskMatch 高危曲库匹配
type HighRiskMatch struct {
	Count    int     `json:"count"`
	Total    int     `json:"total"`
	Ratio    float64 `json:"ratio"`
	Tracks   []Track `json:"tracks"`
	Detected bool    `json:"high_risk_detected"`
}

// EmotionDistribution 曲目情绪分布（百分比）
type EmotionDistribution struct {
	Happy   float64 `json:"happy"`
	Neutral float64 `json:"neutral"`
	Sad     float64 `json:"sad"`
}

// MusicResult 音乐心理分析结果
type MusicResult struct {
	UserID              string              `json:"user_id"`
	Valence             ValenceProfile      `json:"valence"`
	TimePattern         TimePattern         `json:"time_pattern"`
	InsomniaRisk        bool                `json:"insomnia_risk"`
	Loop                LoopDetection       `json:"loop"`
	HighRisk            HighRiskMatch       `json:"high_risk"`
	EmotionDistribution EmotionDistribution `json:"emotion_distribution"`
	RiskScore           float64             `json:"music_risk_score"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	Recommendations     []string            `json:"recommendations"`
	GenreSentiment      string              `json:"genre_sentiment"`
	AnalysisTimestamp   time.Time           `json:"analysis_timestamp"`
}
