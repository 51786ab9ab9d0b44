// Package baseline 构建并保存用户的统计基线
package baseline

import (
	"errors"
	"math"

	"mindguard-analyzer/internal/models"
)

const (
	// MinHistory 构建基线所需的最少事件数
	MinHistory = 7
	// ReferenceFraction 参与基线计算的窗口前部比例
	ReferenceFraction = 0.7
)

// ErrInsufficientData 事件数不足
var ErrInsufficientData = errors.New("insufficient data for baseline")

// Build 用窗口前 70%（向下取整）的事件计算情绪分与互动数的均值和标准差
// 标准差为 0 时以 1 代替，保证后续 z-score 计算不会除零
func Build(userID string, events []models.BehaviorEvent) (models.UserBaseline, error) {
	if len(events) < MinHistory {
		return models.UserBaseline{}, ErrInsufficientData
	}

	n := int(float64(len(events)) * ReferenceFraction)
	subset := events[:n]

	emotions := make([]float64, 0, n)
	interactions := make([]float64, 0, n)
	for _, e := range subset {
		emotions = append(emotions, e.EmotionScore)
		interactions = append(interactions, float64(e.InteractionCount))
	}

	emotionMean, emotionStd := meanStd(emotions)
	interactionMean, interactionStd := meanStd(interactions)

	return models.UserBaseline{
		UserID:          userID,
		EmotionMean:     emotionMean,
		EmotionStd:      floorStd(emotionStd),
		InteractionMean: interactionMean,
		InteractionStd:  floorStd(interactionStd),
		SampleSize:      n,
	}, nil
}

// meanStd 均值与总体标准差
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
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

func floorStd(std float64) float64 {
	if std == 0 || math.IsNaN(std) {
		return 1
	}
	return std
}
