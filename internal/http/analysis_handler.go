package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"mindguard-analyzer/internal/emotion"
	"mindguard-analyzer/internal/evaluator"
	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/service"

	"go.uber.org/zap"
)

// defaultAnomalyDays 异常检测默认分析天数
const defaultAnomalyDays = 30

// AnalysisHandler 分析接口
type AnalysisHandler struct {
	service *service.AnalysisService
	logger  *zap.Logger
}

func NewAnalysisHandler(s *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: s, logger: logger}
}

type emotionRequest struct {
	UserID    string                          `json:"user_id"`
	Text      string                          `json:"text"`
	Emotions  map[models.EmotionLabel]float64 `json:"emotions"`
	Timestamp time.Time                       `json:"timestamp"`
}

type musicRequest struct {
	UserID          string                  `json:"user_id"`
	ListeningEvents []models.ListeningEvent `json:"listening_events"`
	Tracks          []models.Track          `json:"tracks"`
	Timestamp       time.Time               `json:"timestamp"`
}

type anomalyRequest struct {
	UserID    string                 `json:"user_id"`
	Days      int                    `json:"days"`
	Events    []models.BehaviorEvent `json:"events"`
	Timestamp time.Time              `json:"timestamp"`
}

type resonanceRequest struct {
	UserID       string                    `json:"user_id"`
	Interactions []models.InteractionEvent `json:"interactions"`
	Timestamp    time.Time                 `json:"timestamp"`
}

type riskAssessmentRequest struct {
	UserID          string                          `json:"user_id"`
	Text            string                          `json:"text"`
	Emotions        map[models.EmotionLabel]float64 `json:"emotions"`
	Behavior        []models.BehaviorEvent          `json:"behavior"`
	ListeningEvents []models.ListeningEvent         `json:"listening_events"`
	Tracks          []models.Track                  `json:"tracks"`
	Interactions    []models.InteractionEvent       `json:"interactions"`
	Timestamp       time.Time                       `json:"timestamp"`
}

// POST /api/v1/analysis/emotion
// body: { text, emotions?, user_id?, timestamp? }；emotions 缺省时调用分类模型
func (h *AnalysisHandler) AnalyzeEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AnalyzeEmotion(r.Context(), req.Text, req.Emotions, req.Timestamp)
	if err != nil {
		h.writeError(w, "emotion analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// POST /api/v1/analysis/music-psychology
func (h *AnalysisHandler) AnalyzeMusic(w http.ResponseWriter, r *http.Request) {
	var req musicRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AnalyzeMusic(req.UserID, req.ListeningEvents, req.Tracks, req.Timestamp)
	if err != nil {
		h.writeError(w, "music analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// POST /api/v1/analysis/anomaly-detection
// body: { user_id, events, days? }；只分析最近 days 条事件（默认 30）
func (h *AnalysisHandler) DetectAnomaly(w http.ResponseWriter, r *http.Request) {
	var req anomalyRequest
	if !h.decode(w, r, &req) {
		return
	}
	days := req.Days
	if days <= 0 {
		days = defaultAnomalyDays
	}
	events := req.Events
	if len(events) > days {
		events = events[len(events)-days:]
	}
	result, err := h.service.DetectAnomaly(r.Context(), req.UserID, events, req.Timestamp)
	if err != nil {
		h.writeError(w, "anomaly detection failed", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// POST /api/v1/analysis/resonance-network
func (h *AnalysisHandler) AnalyzeResonance(w http.ResponseWriter, r *http.Request) {
	var req resonanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AnalyzeResonance(req.UserID, req.Interactions, req.Timestamp)
	if err != nil {
		h.writeError(w, "resonance analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// POST /api/v1/analysis/risk-assessment
func (h *AnalysisHandler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req riskAssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AssessRisk(r.Context(), evaluator.Request{
		UserID:       req.UserID,
		Text:         req.Text,
		EmotionProbs: req.Emotions,
		Behavior:     req.Behavior,
		Listening:    req.ListeningEvents,
		Tracks:       req.Tracks,
		Interactions: req.Interactions,
		At:           req.Timestamp,
	})
	if err != nil {
		h.writeError(w, "risk assessment failed", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// GET /api/v1/analysis/risk-assessment/{user_id}
func (h *AnalysisHandler) GetLatestAssessment(w http.ResponseWriter, r *http.Request, userID string) {
	record, err := h.service.GetLatestAssessment(r.Context(), userID)
	if err != nil {
		h.writeError(w, "failed to get assessment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(record))
}

// GET /api/v1/analysis/risk-assessment/{user_id}/history?limit=
func (h *AnalysisHandler) ListHistory(w http.ResponseWriter, r *http.Request, userID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	records, err := h.service.ListHistory(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, "failed to list assessments", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(records))
}

// GET /api/v1/analysis/risk-assessment/{user_id}/export?limit=&anonymize=
func (h *AnalysisHandler) ExportHistory(w http.ResponseWriter, r *http.Request, userID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	anonymize := parseBool(r.URL.Query().Get("anonymize"))
	data, err := h.service.ExportHistory(r.Context(), userID, limit, anonymize)
	if err != nil {
		h.writeError(w, "failed to generate export", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=risk-assessments.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GET /api/v1/analysis/baseline/{user_id}
func (h *AnalysisHandler) GetBaseline(w http.ResponseWriter, r *http.Request, userID string) {
	b, err := h.service.GetBaseline(r.Context(), userID)
	if err != nil {
		h.writeError(w, "failed to get baseline", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(b))
}

func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := readBodyJSON(w, r, maxBodyBytes, out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Fail(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return false
		}
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return false
	}
	return true
}

func (h *AnalysisHandler) writeError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	writeJSON(w, status, Fail(fmt.Sprintf("%s: %v", message, err)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, emotion.ErrInvalidDistribution):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAssessmentNotFound), errors.Is(err, service.ErrBaselineNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrClassifierUnavailable), errors.Is(err, service.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
