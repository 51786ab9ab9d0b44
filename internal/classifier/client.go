// Package classifier 外部文本情绪分类模型客户端
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindguard-analyzer/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrEmptyText 待分类文本为空
var ErrEmptyText = errors.New("text is empty")

// ClassifyRequest 分类请求
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse 分类响应：固定标签集上的概率分布
type ClassifyResponse struct {
	Emotions map[models.EmotionLabel]float64 `json:"emotions"`
	Model    string                          `json:"model,omitempty"`
}

// Client 分类模型客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建分类模型客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// Classify 调用模型获取文本的情绪概率分布
func (c *Client) Classify(ctx context.Context, text string) (map[models.EmotionLabel]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var response ClassifyResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(ClassifyRequest{Text: text}).
		SetResult(&response).
		Post("/classify")
	if err != nil {
		c.logger.Error("Classifier call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Classifier returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("classifier error: status %d", resp.StatusCode())
	}
	if len(response.Emotions) == 0 {
		return nil, fmt.Errorf("classifier returned empty distribution")
	}

	c.logger.Debug("Classified text",
		zap.String("model", response.Model),
		zap.Int("text_length", len([]rune(text))),
	)
	return response.Emotions, nil
}
