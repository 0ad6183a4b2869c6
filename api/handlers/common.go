package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/types"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage 写入指定状态码的错误响应
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success:   false,
		Error:     &ErrorInfo{Code: string(codeForStatus(status)), Message: message},
		Timestamp: time.Now(),
	})
}

// WriteClassifiedError 用分类器把原始错误映射为对外的状态码和消息。
// 原始错误只进日志，不进响应体。
func WriteClassifiedError(w http.ResponseWriter, err error, logger *zap.Logger) {
	c := types.Classify(err)
	if logger != nil {
		logger.Error("request failed",
			zap.Int("status", c.Status),
			zap.Error(err),
		)
	}
	WriteErrorMessage(w, c.Status, c.Message)
}

func codeForStatus(status int) types.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return types.ErrInvalidInput
	case http.StatusForbidden, http.StatusUnauthorized:
		return types.ErrUnauthorized
	case http.StatusNotFound:
		return types.ErrNotFound
	case http.StatusTooManyRequests:
		return types.ErrRateLimited
	case http.StatusBadGateway:
		return types.ErrNetwork
	case http.StatusServiceUnavailable:
		return types.ErrConfiguration
	case http.StatusGatewayTimeout:
		return types.ErrTimeout
	default:
		return types.ErrInternal
	}
}

// =============================================================================
// 🛡️ 请求辅助函数
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体，失败时直接写 400。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		WriteErrorMessage(w, http.StatusBadRequest, "request body is empty")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID 把已验证的用户身份注入请求上下文。
// 会话校验由外层中间件完成，处理器只消费结果。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserFromContext 取出当前用户标识；为空表示未认证。
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// RequireUser 统一处理未认证请求。
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserFromContext(r.Context())
	if !ok {
		WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}
