package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const analysisPrefix = "/api/v1/analysis/"

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterAnalysisRoutes 注册分析接口
func (r *Router) RegisterAnalysisRoutes(h *AnalysisHandler) {
	r.Handle(analysisPrefix+"emotion", postOnly(h.AnalyzeEmotion))
	r.Handle(analysisPrefix+"music-psychology", postOnly(h.AnalyzeMusic))
	r.Handle(analysisPrefix+"anomaly-detection", postOnly(h.DetectAnomaly))
	r.Handle(analysisPrefix+"resonance-network", postOnly(h.AnalyzeResonance))
	r.Handle(analysisPrefix+"risk-assessment", postOnly(h.AssessRisk))

	// risk-assessment/{user_id}[/history|/export]
	r.Handle(analysisPrefix+"risk-assessment/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, analysisPrefix+"risk-assessment/")
		parts := strings.Split(rest, "/")
		if parts[0] == "" || len(parts) > 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		userID := parts[0]
		if len(parts) == 1 {
			h.GetLatestAssessment(w, req, userID)
			return
		}
		switch parts[1] {
		case "history":
			h.ListHistory(w, req, userID)
		case "export":
			h.ExportHistory(w, req, userID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	// baseline/{user_id}
	r.Handle(analysisPrefix+"baseline/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID := strings.TrimPrefix(req.URL.Path, analysisPrefix+"baseline/")
		if userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetBaseline(w, req, userID)
	})
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
