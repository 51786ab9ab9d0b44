package policy

import "mindguard-analyzer/internal/models"

// DefaultWeights 默认融合权重（v1）
var DefaultWeights = Weights{
	Version:   "v1",
	Emotion:   0.30,
	Music:     0.25,
	Anomaly:   0.25,
	Resonance: 0.20,
}

// Default 默认策略
func Default() *Policy {
	p := &Policy{
		Version: "default",
		Emotion: EmotionPolicy{
			Slang: []SlangEntry{
				{From: "emo了", To: "情绪低落"},
				{From: "破防了", To: "心理防线崩溃"},
				{From: "麻了", To: "麻木"},
				{From: "摆烂", To: "自暴自弃"},
				{From: "躺平", To: "放弃努力"},
			},
			RiskWeights: map[models.EmotionLabel]float64{
				models.EmotionPositive:   -10,
				models.EmotionNegative:   10,
				models.EmotionNeutral:    0,
				models.EmotionDepression: 30,
				models.EmotionAnxiety:    25,
				models.EmotionSuicidal:   50,
			},
			HighRiskKeywords: []string{
				"自杀", "想死", "不想活", "结束生命", "解脱", "抑郁",
				"焦虑", "崩溃", "绝望", "痛苦", "失眠", "孤独",
			},
		},
		Music: MusicPolicy{
			SadTagKeywords:      []string{"悲伤", "伤感", "孤独"},
			PositiveTagKeywords: []string{"治愈", "温暖", "励志", "正能量"},
			GenreValence: map[string]float64{
				"流行":  0.2,
				"摇滚":  0.1,
				"电子":  0.3,
				"古典":  0.4,
				"民谣":  -0.2,
				"说唱":  0.0,
				"轻音乐": 0.5,
				"治愈系": 0.7,
			},
			HighRiskNameKeywords: []string{
				"消愁", "像我这样的人", "无人之岛", "演员", "孤独",
				"悲伤", "失眠", "告别", "遗憾",
			},
			HighRiskTracks: []models.Track{
				{ID: "1", Name: "消愁", Artist: "毛不易"},
			},
			PlaceholderGenre: "流行",
		},
		Resonance: ResonancePolicy{
			ActionWeights: map[models.ActionType]float64{
				models.ActionLike:     1.0,
				models.ActionComment:  2.0,
				models.ActionShare:    3.0,
				models.ActionCollect:  2.5,
				models.ActionLongTime: 1.5,
			},
			DefaultActionWeight: 1.0,
			HighRiskKeywords:    []string{"自杀", "想死", "抑郁", "绝望", "痛苦", "孤独"},
		},
		Weights: DefaultWeights,
	}
	p.buildIndex()
	return p
}
