// Package resonance 共鸣网络分析
package resonance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/resonance/graph"
	"mindguard-analyzer/internal/scoring"

	"go.uber.org/zap"
)

const (
	nodeKindUser    = "user"
	nodeKindContent = "content"

	highRiskResonanceThreshold = 0.5
	highResonanceThreshold     = 0.7
	keywordRiskWeight          = 10

	interventionIntensity = 0.7
	interventionHighRisk  = 5

	topScoreLimit = 10
)

// Analyzer 共鸣网络分析器
type Analyzer struct {
	policy *policy.Policy
	logger *zap.Logger
}

// NewAnalyzer 创建共鸣网络分析器
func NewAnalyzer(p *policy.Policy, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		policy: p,
		logger: logger,
	}
}

// Analyze 分析用户与内容的互动；at 零值时取当前时间
func (a *Analyzer) Analyze(userID string, interactions []models.InteractionEvent, at time.Time) models.ResonanceResult {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	scores := a.ContentScores(interactions)
	highRisk := a.identifyHighRisk(scores)
	g := a.BuildGraph(userID, interactions)
	centrality := a.centrality(userID, g)
	intensity := overallResonance(scores)

	top := scores
	if len(top) > topScoreLimit {
		top = top[:topScoreLimit]
	}

	a.logger.Debug("Resonance analysis finished",
		zap.String("user_id", userID),
		zap.Int("interaction_count", len(interactions)),
		zap.Int("content_count", len(scores)),
		zap.Int("high_risk_count", len(highRisk)),
		zap.Float64("intensity", intensity),
	)

	return models.ResonanceResult{
		UserID:                 userID,
		ResonanceIntensity:     intensity,
		RiskScore:              scoring.Round2(scoring.ClampScore(intensity * 100)),
		ResonanceScores:        top,
		HighRiskContents:       highRisk,
		HighRiskCount:          len(highRisk),
		ClusterIDs:             clusterIDs(userID, g),
		CentralityScore:        centrality,
		NeedsIntervention:      intensity > interventionIntensity || len(highRisk) > interventionHighRisk,
		InterventionSuggestion: suggestion(intensity, len(highRisk)),
		NetworkStats: models.NetworkStats{
			TotalNodes: g.NodeCount(),
			TotalEdges: g.EdgeCount(),
			Density:    scoring.Round3(g.Density()),
		},
		AnalysisTimestamp: at,
	}
}

// ContentScores 每条内容的共鸣度（按最大值归一化，降序；相同分数按首次出现顺序）
func (a *Analyzer) ContentScores(interactions []models.InteractionEvent) []models.ContentResonance {
	raw := make(map[string]float64)
	order := make([]models.ContentResonance, 0)
	for _, it := range interactions {
		if _, ok := raw[it.ContentID]; !ok {
			contentType := it.ContentType
			if contentType == "" {
				contentType = "post"
			}
			order = append(order, models.ContentResonance{
				ContentID:   it.ContentID,
				ContentText: it.ContentText,
				ContentType: contentType,
			})
		}
		raw[it.ContentID] += a.policy.ActionWeight(it.ActionType)
	}
	if len(order) == 0 {
		return []models.ContentResonance{}
	}

	maxScore := 0.0
	for _, v := range raw {
		if v > maxScore {
			maxScore = v
		}
	}

	for i := range order {
		order[i].RawScore = raw[order[i].ContentID]
		order[i].ResonanceScore = scoring.Round3(order[i].RawScore / maxScore)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].ResonanceScore > order[j].ResonanceScore
	})
	return order
}

// BuildGraph 构建用户-内容共鸣图，重复互动累加到同一条边
func (a *Analyzer) BuildGraph(userID string, interactions []models.InteractionEvent) *graph.Graph {
	g := graph.New()
	userNode := nodeKey(nodeKindUser, userID)
	g.AddNode(userNode, nodeKindUser)
	for _, it := range interactions {
		contentNode := nodeKey(nodeKindContent, it.ContentID)
		g.AddNode(contentNode, nodeKindContent)
		g.AddEdge(userNode, contentNode, a.policy.ActionWeight(it.ActionType))
	}
	return g
}

// identifyHighRisk 共鸣度 > 0.5 且命中高危关键词
func (a *Analyzer) identifyHighRisk(scores []models.ContentResonance) []models.HighRiskContent {
	result := make([]models.HighRiskContent, 0)
	for _, c := range scores {
		matched := matchKeywords(c.ContentText, a.policy.Resonance.HighRiskKeywords)
		if c.ResonanceScore > highRiskResonanceThreshold && len(matched) > 0 {
			result = append(result, models.HighRiskContent{
				ContentResonance: c,
				RiskScore:        float64(keywordRiskWeight * len(matched)),
				MatchedKeywords:  matched,
			})
		}
	}
	return result
}

// centrality 用户节点的度中心性与介数中心性均值，无法计算时为 0
func (a *Analyzer) centrality(userID string, g *graph.Graph) float64 {
	userNode := nodeKey(nodeKindUser, userID)

	degree, err := g.DegreeCentrality()
	if err != nil {
		if !errors.Is(err, graph.ErrDegenerateGraph) {
			a.logger.Warn("Failed to compute degree centrality", zap.String("user_id", userID), zap.Error(err))
		}
		return 0
	}
	betweenness, err := g.BetweennessCentrality()
	if err != nil {
		a.logger.Warn("Failed to compute betweenness centrality", zap.String("user_id", userID), zap.Error(err))
		return 0
	}

	return scoring.Round3((degree[userNode] + betweenness[userNode]) / 2)
}

// overallResonance 0.4 × 高共鸣内容占比 + 0.6 × 平均共鸣度
func overallResonance(scores []models.ContentResonance) float64 {
	if len(scores) == 0 {
		return 0
	}
	var high int
	var sum float64
	for _, s := range scores {
		if s.ResonanceScore > highResonanceThreshold {
			high++
		}
		sum += s.ResonanceScore
	}
	n := float64(len(scores))
	return scoring.Round3(float64(high)/n*0.4 + sum/n*0.6)
}

// clusterIDs 与用户处于同一连通分量的用户节点
func clusterIDs(userID string, g *graph.Graph) []string {
	ids := make([]string, 0, 1)
	for _, n := range g.Component(nodeKey(nodeKindUser, userID)) {
		if n.Kind == nodeKindUser {
			ids = append(ids, strings.TrimPrefix(n.ID, nodeKindUser+":"))
		}
	}
	return ids
}

func suggestion(intensity float64, highRisk int) string {
	switch {
	case intensity < 0.5 && highRisk < 3:
		return "共鸣正常，继续观察。"
	case intensity < interventionIntensity:
		return fmt.Sprintf("中度风险：对 %d 个高危内容产生共鸣，建议推送积极内容。", highRisk)
	default:
		return fmt.Sprintf("高风险：高强度共鸣与 %d 个高危内容，需立即干预。", highRisk)
	}
}

// matchKeywords 文本命中的关键词（去重，保持关键词表顺序）
func matchKeywords(text string, keywords []string) []string {
	matched := make([]string, 0)
	seen := make(map[string]bool)
	for _, k := range keywords {
		if k == "" || seen[k] {
			continue
		}
		if strings.Contains(text, k) {
			seen[k] = true
			matched = append(matched, k)
		}
	}
	return matched
}

func nodeKey(kind, id string) string {
	return kind + ":" + id
}
