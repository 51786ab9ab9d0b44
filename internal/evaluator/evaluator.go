package evaluator

import (
	"fmt"
	"strings"
	"time"

	"mindguard-analyzer/internal/aggregator"
	"mindguard-analyzer/internal/anomaly"
	"mindguard-analyzer/internal/baseline"
	"mindguard-analyzer/internal/emotion"
	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/music"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/resonance"

	"go.uber.org/zap"
)

// Request 一次综合评估的输入，各类数据均可缺省
type Request struct {
	UserID       string
	Text         string
	EmotionProbs map[models.EmotionLabel]float64
	Behavior     []models.BehaviorEvent
	Listening    []models.ListeningEvent
	Tracks       []models.Track
	Interactions []models.InteractionEvent
	At           time.Time
}

// Evaluation 综合评估结果，未参与评估的引擎结果为 nil
type Evaluation struct {
	UserID     string                  `json:"user_id"`
	Emotion    *models.EmotionResult   `json:"emotion,omitempty"`
	Music      *models.MusicResult     `json:"music,omitempty"`
	Anomaly    *models.AnomalyResult   `json:"anomaly,omitempty"`
	Resonance  *models.ResonanceResult `json:"resonance,omitempty"`
	Assessment models.RiskAssessment   `json:"assessment"`
}

// Evaluator 综合评估器：依次运行各分析引擎，再交给 aggregator 融合
type Evaluator struct {
	policy *policy.Policy
	logger *zap.Logger

	emotion   *emotion.Analyzer   // 文本情绪
	music     *music.Analyzer     // 音乐心理
	anomaly   *anomaly.Detector   // 时序异常
	resonance *resonance.Analyzer // 共鸣网络
}

// NewEvaluator 创建评估器
func NewEvaluator(p *policy.Policy, store baseline.Store, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		policy:    p,
		logger:    logger,
		emotion:   emotion.NewAnalyzer(p, logger),
		music:     music.NewAnalyzer(p, logger),
		anomaly:   anomaly.NewDetector(store, logger),
		resonance: resonance.NewAnalyzer(p, logger),
	}
}

// Emotion 文本情绪分析器
func (e *Evaluator) Emotion() *emotion.Analyzer { return e.emotion }

// Music 音乐心理分析器
func (e *Evaluator) Music() *music.Analyzer { return e.music }

// Anomaly 时序异常检测器
func (e *Evaluator) Anomaly() *anomaly.Detector { return e.anomaly }

// Resonance 共鸣网络分析器
func (e *Evaluator) Resonance() *resonance.Analyzer { return e.resonance }

// Evaluate 综合评估
// 单个引擎失败或数据不足时记录日志并跳过该引擎，不中断整体评估
func (e *Evaluator) Evaluate(req Request) Evaluation {
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result := Evaluation{UserID: req.UserID}
	in := aggregator.Input{At: at}

	// 文本情绪
	if req.EmotionProbs != nil {
		r, err := e.emotion.Analyze(req.Text, req.EmotionProbs, at)
		if err != nil {
			e.logger.Error("Failed to evaluate emotion",
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		} else {
			result.Emotion = &r
			in.Emotion = aggregator.Score(r.RiskScore)
			if len(r.Keywords) > 0 {
				in.Factors = append(in.Factors, "文本出现高危词："+strings.Join(r.Keywords, "、"))
			}
		}
	}

	// 时序异常
	if len(req.Behavior) > 0 {
		r := e.anomaly.Detect(req.UserID, req.Behavior, at)
		result.Anomaly = &r
		if r.InsufficientData {
			e.logger.Info("Skipping anomaly score: insufficient data",
				zap.String("user_id", req.UserID),
				zap.Int("event_count", len(req.Behavior)),
			)
		} else {
			in.Anomaly = aggregator.Score(r.Score)
			in.Factors = append(in.Factors, r.RiskFactors...)
		}
	}

	// 音乐心理
	if len(req.Listening) > 0 || len(req.Tracks) > 0 {
		r := e.music.Analyze(req.UserID, req.Listening, req.Tracks, at)
		result.Music = &r
		in.Music = aggregator.Score(r.RiskScore)
		in.Factors = append(in.Factors, musicFactors(r)...)
	}

	// 共鸣网络
	if len(req.Interactions) > 0 {
		r := e.resonance.Analyze(req.UserID, req.Interactions, at)
		result.Resonance = &r
		in.Resonance = aggregator.Score(r.RiskScore)
		if r.HighRiskCount > 0 {
			in.Factors = append(in.Factors, fmt.Sprintf("与%d条高危内容产生共鸣", r.HighRiskCount))
		}
	}

	result.Assessment = aggregator.Aggregate(in, e.policy.Weights)

	e.logger.Info("Risk assessment evaluated",
		zap.String("user_id", req.UserID),
		zap.Float64("score", result.Assessment.Score),
		zap.String("tier", string(result.Assessment.Tier)),
		zap.String("weights_version", e.policy.Weights.Version),
		zap.Int("factor_count", len(result.Assessment.Factors)),
	)

	return result
}

func musicFactors(r models.MusicResult) []string {
	var factors []string
	if r.InsomniaRisk {
		factors = append(factors, fmt.Sprintf("深夜听歌占比%.1f%%", r.TimePattern.LateNightRatio*100))
	}
	if r.Loop.Detected {
		factors = append(factors, fmt.Sprintf("单曲循环（占比%.1f%%）", r.Loop.MaxLoopRatio*100))
	}
	if r.HighRisk.Detected {
		factors = append(factors, fmt.Sprintf("高危歌曲占比%.1f%%", r.HighRisk.Ratio*100))
	}
	return factors
}
