package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthHandler 健康检查处理器：存活探针 + 数据库就绪探针。
type HealthHandler struct {
	logger *zap.Logger
	pingDB func(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string    `json:"status"` // "healthy" | "unhealthy"
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

func NewHealthHandler(pingDB func(ctx context.Context) error, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger, pingDB: pingDB}
}

// HandleHealth 处理 /health：只确认进程在运行。
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: "healthy", Timestamp: time.Now()})
}

// HandleReady 处理 /ready：数据库可达才算就绪。
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.pingDB != nil {
		if err := h.pingDB(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			WriteJSON(w, http.StatusServiceUnavailable, HealthStatus{
				Status:    "unhealthy",
				Timestamp: time.Now(),
				Detail:    "database unreachable",
			})
			return
		}
	}
	WriteJSON(w, http.StatusOK, HealthStatus{Status: "healthy", Timestamp: time.Now()})
}
