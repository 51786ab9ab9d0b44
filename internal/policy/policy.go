// Package policy 提供分析引擎使用的静态配置
//
// 包括：
// - 网络用语归一化表
// - 高危关键词（文本、内容、歌名）
// - 高危曲库、曲风效价表
// - 互动类型权重、情绪风险权重
// - 综合评估的融合权重（带版本号）
//
// Policy 构建完成后只读，可在多个 goroutine 间共享。
package policy

import (
	"fmt"
	"math"
	"os"

	"mindguard-analyzer/internal/models"

	"gopkg.in/yaml.v3"
)

// SlangEntry 网络用语归一化条目（按列表顺序依次替换）
type SlangEntry struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Weights 综合评估融合权重
type Weights struct {
	Version   string  `yaml:"version" json:"version"`
	Emotion   float64 `yaml:"emotion" json:"emotion"`
	Music     float64 `yaml:"music" json:"music"`
	Anomaly   float64 `yaml:"anomaly" json:"anomaly"`
	Resonance float64 `yaml:"resonance" json:"resonance"`
}

// Sum 权重之和
func (w Weights) Sum() float64 {
	return w.Emotion + w.Music + w.Anomaly + w.Resonance
}

// MusicPolicy 音乐心理分析配置
type MusicPolicy struct {
	SadTagKeywords       []string           `yaml:"sad_tag_keywords"`
	PositiveTagKeywords  []string           `yaml:"positive_tag_keywords"`
	GenreValence         map[string]float64 `yaml:"genre_valence"`
	HighRiskNameKeywords []string           `yaml:"high_risk_name_keywords"`
	HighRiskTracks       []models.Track     `yaml:"high_risk_tracks"`
	PlaceholderGenre     string             `yaml:"placeholder_genre"` // 缺少歌曲详情时占位曲目的曲风
}

// ResonancePolicy 共鸣网络分析配置
type ResonancePolicy struct {
	ActionWeights       map[models.ActionType]float64 `yaml:"action_weights"`
	DefaultActionWeight float64                       `yaml:"default_action_weight"` // 未知互动类型的权重
	HighRiskKeywords    []string                      `yaml:"high_risk_keywords"`
}

// EmotionPolicy 文本情绪配置
type EmotionPolicy struct {
	Slang            []SlangEntry                    `yaml:"slang"`
	RiskWeights      map[models.EmotionLabel]float64 `yaml:"risk_weights"`
	HighRiskKeywords []string                        `yaml:"high_risk_keywords"`
}

// Policy 分析策略
type Policy struct {
	Version   string          `yaml:"version"`
	Emotion   EmotionPolicy   `yaml:"emotion"`
	Music     MusicPolicy     `yaml:"music"`
	Resonance ResonancePolicy `yaml:"resonance"`
	Weights   Weights         `yaml:"weights"`

	trackIndex map[string]models.Track
}

// Load 加载策略：path 为空时使用默认值，否则用 YAML 文件覆盖默认值
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.buildIndex()

	return p, nil
}

// Validate 校验策略
func (p *Policy) Validate() error {
	w := p.Weights
	for name, v := range map[string]float64{
		"emotion":   w.Emotion,
		"music":     w.Music,
		"anomaly":   w.Anomaly,
		"resonance": w.Resonance,
	} {
		if v < 0 {
			return fmt.Errorf("invalid policy: weight %s must be non-negative, got %v", name, v)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-6 {
		return fmt.Errorf("invalid policy: weights must sum to 1, got %v", w.Sum())
	}
	for action, v := range p.Resonance.ActionWeights {
		if v <= 0 {
			return fmt.Errorf("invalid policy: action weight %s must be positive, got %v", action, v)
		}
	}
	if p.Resonance.DefaultActionWeight <= 0 {
		return fmt.Errorf("invalid policy: default action weight must be positive")
	}
	return nil
}

// HighRiskTrack 在高危曲库中查找歌曲
func (p *Policy) HighRiskTrack(trackID string) (models.Track, bool) {
	if p.trackIndex == nil {
		// 直接构造的 Policy 未经过 Load/Default，退化为线性查找
		for _, t := range p.Music.HighRiskTracks {
			if t.ID == trackID {
				return t, true
			}
		}
		return models.Track{}, false
	}
	t, ok := p.trackIndex[trackID]
	return t, ok
}

// ActionWeight 互动类型权重
func (p *Policy) ActionWeight(action models.ActionType) float64 {
	if w, ok := p.Resonance.ActionWeights[action]; ok {
		return w
	}
	return p.Resonance.DefaultActionWeight
}

func (p *Policy) buildIndex() {
	p.trackIndex = make(map[string]models.Track, len(p.Music.HighRiskTracks))
	for _, t := range p.Music.HighRiskTracks {
		p.trackIndex[t.ID] = t
	}
}
