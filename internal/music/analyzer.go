// Package music 音乐心理分析
//
// 从听歌记录中提取四类信号并融合为音乐风险分：
// - 效价（曲目情绪正负）及其趋势
// - 深夜听歌占比（失眠信号）
// - 单曲循环
// - 高危曲库命中
package music

import (
	"math"
	"sort"
	"strings"
	"time"

	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/scoring"

	"go.uber.org/zap"
)

const (
	sadTagValence       = -0.3
	positiveTagValence  = 0.3
	highRiskNamePenalty = -0.5

	trendMinTracks  = 20
	trendWindowSize = 10

	insomniaRatioThreshold = 0.3
	loopRatioThreshold     = 0.3
	highRiskRatioThreshold = 0.5

	peakHourCount     = 3
	topTrackCount     = 5
	highRiskListLimit = 10

	sentimentThreshold = 0.3
)

var (
	recommendationsLow    = []string{"晴天 - 周杰伦", "起风了 - 买辣椒也用券", "追光者 - 岑宁儿"}
	recommendationsMedium = []string{"第1周：舒缓音乐", "第2周：温暖治愈", "第3周：正能量"}
	recommendationsHigh   = []string{"建议专业音乐治疗", "尝试古典与自然音效", "避免长时间悲伤循环"}
)

// Analyzer 音乐心理分析器
type Analyzer struct {
	policy *policy.Policy
	logger *zap.Logger
}

// NewAnalyzer 创建音乐心理分析器
func NewAnalyzer(p *policy.Policy, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		policy: p,
		logger: logger,
	}
}

// Analyze 分析听歌记录
// tracks 为外部提供的歌曲详情，缺失的曲目以占位信息代替；at 零值时取当前时间
func (a *Analyzer) Analyze(userID string, events []models.ListeningEvent, tracks []models.Track, at time.Time) models.MusicResult {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	valence := a.analyzeValence(a.resolveTracks(events, tracks))
	timePattern := analyzeTimePattern(events)
	loop := detectLoop(events)
	highRisk := a.matchHighRisk(events)

	score := riskScore(valence, timePattern, loop, highRisk)
	level := scoring.StandardTiers.Level(score)

	a.logger.Debug("Music analysis finished",
		zap.String("user_id", userID),
		zap.Int("event_count", len(events)),
		zap.Int("track_count", len(tracks)),
		zap.Float64("valence", valence.OverallValence),
		zap.Float64("score", score),
	)

	return models.MusicResult{
		UserID:              userID,
		Valence:             valence,
		TimePattern:         timePattern,
		InsomniaRisk:        timePattern.InsomniaDetected,
		Loop:                loop,
		HighRisk:            highRisk,
		EmotionDistribution: a.emotionDistribution(tracks),
		RiskScore:           score,
		RiskLevel:           level,
		Recommendations:     recommendations(level),
		GenreSentiment:      a.genreSentiment(tracks),
		AnalysisTimestamp:   at,
	}
}

// TrackValence 单曲效价
func (a *Analyzer) TrackValence(track models.Track) float64 {
	valence := 0.0
	for _, tag := range track.Tags {
		if containsAny(tag, a.policy.Music.SadTagKeywords) {
			valence += sadTagValence
		} else if containsAny(tag, a.policy.Music.PositiveTagKeywords) {
			valence += positiveTagValence
		}
	}
	valence += a.policy.Music.GenreValence[track.Genre]
	if containsAny(track.Name, a.policy.Music.HighRiskNameKeywords) {
		valence += highRiskNamePenalty
	}
	return scoring.Clamp(valence, -1, 1)
}

// resolveTracks 按播放顺序展开曲目；没有播放记录时直接使用歌曲详情
func (a *Analyzer) resolveTracks(events []models.ListeningEvent, tracks []models.Track) []models.Track {
	if len(events) == 0 {
		return tracks
	}

	catalogue := make(map[string]models.Track, len(tracks))
	for _, t := range tracks {
		catalogue[t.ID] = t
	}

	resolved := make([]models.Track, 0, len(events))
	for _, e := range events {
		t, ok := catalogue[e.TrackID]
		if !ok {
			t = a.placeholderTrack(e.TrackID)
		}
		resolved = append(resolved, t)
	}
	return resolved
}

func (a *Analyzer) placeholderTrack(trackID string) models.Track {
	return models.Track{
		ID:    trackID,
		Name:  "Song " + trackID,
		Genre: a.policy.Music.PlaceholderGenre,
		Tags:  []string{},
	}
}

func (a *Analyzer) analyzeValence(tracks []models.Track) models.ValenceProfile {
	history := make([]float64, 0, len(tracks))
	for _, t := range tracks {
		history = append(history, a.TrackValence(t))
	}
	if len(history) == 0 {
		return models.ValenceProfile{
			OverallValence: 0,
			ValenceStd:     0,
			Trend:          models.TrendStable,
			ValenceHistory: history,
		}
	}

	overall, std := meanStd(history)

	trend := models.TrendStable
	if len(history) >= trendMinTracks {
		recent, _ := meanStd(history[len(history)-trendWindowSize:])
		previous, _ := meanStd(history[len(history)-2*trendWindowSize : len(history)-trendWindowSize])
		if recent > previous {
			trend = models.TrendImproving
		} else {
			trend = models.TrendWorsening
		}
	}

	return models.ValenceProfile{
		OverallValence: scoring.Round3(overall),
		ValenceStd:     scoring.Round3(std),
		Trend:          trend,
		ValenceHistory: history,
	}
}

// analyzeTimePattern 按小时统计播放，零值时间戳只计入总数
func analyzeTimePattern(events []models.ListeningEvent) models.TimePattern {
	pattern := models.TimePattern{
		TotalCount: len(events),
		PeakHours:  []int{},
	}
	if len(events) == 0 {
		return pattern
	}

	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		h := e.Timestamp.Hour()
		pattern.HourDistribution[h]++
		if scoring.IsLateNight(h) {
			pattern.LateNightCount++
		}
	}

	ratio := float64(pattern.LateNightCount) / float64(len(events))
	pattern.LateNightRatio = scoring.Round3(ratio)
	pattern.InsomniaDetected = ratio > insomniaRatioThreshold
	pattern.PeakHours = peakHours(pattern.HourDistribution)

	return pattern
}

// peakHours 播放次数最多的 3 个小时（次数相同时小时数小的在前）
func peakHours(distribution [24]int) []int {
	hours := make([]int, 0, 24)
	for h, c := range distribution {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return distribution[hours[i]] > distribution[hours[j]]
	})
	if len(hours) > peakHourCount {
		hours = hours[:peakHourCount]
	}
	return hours
}

// detectLoop 单曲循环：某首歌的播放次数超过总播放的 30%
func detectLoop(events []models.ListeningEvent) models.LoopDetection {
	if len(events) == 0 {
		return models.LoopDetection{TopTracks: []models.TrackPlays{}}
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, e := range events {
		if _, ok := counts[e.TrackID]; !ok {
			order = append(order, e.TrackID)
		}
		counts[e.TrackID]++
	}
	// 次数相同时按首次出现顺序
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	total := len(events)
	top := make([]models.TrackPlays, 0, topTrackCount)
	for _, id := range order {
		if len(top) == topTrackCount {
			break
		}
		top = append(top, models.TrackPlays{
			TrackID:   id,
			PlayCount: counts[id],
			Ratio:     scoring.Round3(float64(counts[id]) / float64(total)),
		})
	}

	maxPlays := top[0].PlayCount
	return models.LoopDetection{
		Detected:     float64(maxPlays) > float64(total)*loopRatioThreshold,
		TopTracks:    top,
		MaxLoopRatio: scoring.Round3(float64(maxPlays) / float64(total)),
	}
}

// matchHighRisk 高危曲库命中比例
func (a *Analyzer) matchHighRisk(events []models.ListeningEvent) models.HighRiskMatch {
	match := models.HighRiskMatch{
		Total:  len(events),
		Tracks: []models.Track{},
	}
	for _, e := range events {
		t, ok := a.policy.HighRiskTrack(e.TrackID)
		if !ok {
			continue
		}
		match.Count++
		if len(match.Tracks) < highRiskListLimit {
			match.Tracks = append(match.Tracks, t)
		}
	}
	if match.Total > 0 {
		ratio := float64(match.Count) / float64(match.Total)
		match.Ratio = scoring.Round3(ratio)
		match.Detected = ratio > highRiskRatioThreshold
	}
	return match
}

// emotionDistribution 曲目情绪分布（百分比，保留一位小数）
func (a *Analyzer) emotionDistribution(tracks []models.Track) models.EmotionDistribution {
	if len(tracks) == 0 {
		return models.EmotionDistribution{}
	}

	var happy, neutral, sad int
	for _, t := range tracks {
		v := a.TrackValence(t)
		switch {
		case v > sentimentThreshold:
			happy++
		case v < -sentimentThreshold:
			sad++
		default:
			neutral++
		}
	}

	total := float64(len(tracks))
	return models.EmotionDistribution{
		Happy:   round1(float64(happy) / total * 100),
		Neutral: round1(float64(neutral) / total * 100),
		Sad:     round1(float64(sad) / total * 100),
	}
}

// genreSentiment 最常出现曲风的情绪倾向
func (a *Analyzer) genreSentiment(tracks []models.Track) string {
	if len(tracks) == 0 {
		return "unknown"
	}

	// 次数相同时取先达到该次数的曲风
	counts := make(map[string]int)
	favorite := tracks[0].Genre
	for _, t := range tracks {
		counts[t.Genre]++
		if counts[t.Genre] > counts[favorite] {
			favorite = t.Genre
		}
	}

	v := a.policy.Music.GenreValence[favorite]
	switch {
	case v > sentimentThreshold:
		return "positive"
	case v < -sentimentThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

// riskScore 融合音乐风险分
func riskScore(valence models.ValenceProfile, pattern models.TimePattern, loop models.LoopDetection, highRisk models.HighRiskMatch) float64 {
	score := 0.0
	switch {
	case valence.OverallValence < -0.5:
		score += 30
	case valence.OverallValence < 0:
		score += 15
	}
	if pattern.InsomniaDetected {
		score += 25
	}
	if loop.Detected {
		score += 20
	}
	score += highRisk.Ratio * 25
	return scoring.Round2(scoring.ClampScore(score))
}

func recommendations(level models.RiskLevel) []string {
	var list []string
	switch level {
	case models.RiskLow:
		list = recommendationsLow
	case models.RiskMedium:
		list = recommendationsMedium
	default:
		list = recommendationsHigh
	}
	return append([]string(nil), list...)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
