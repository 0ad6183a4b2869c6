package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/store"
)

// AdminHandler 管理端配置：厂商凭证与提示词模板。
// 外层路由负责只放行 ADMIN 角色。
type AdminHandler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewAdminHandler(s *store.Store, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{store: s, logger: logger}
}

// credentialView 是凭证的对外形态：密钥永远只回掩码。
type credentialView struct {
	ServiceName string  `json:"serviceName"`
	APIKeyMask  string  `json:"apiKeyMask"`
	Configured  bool    `json:"configured"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	ExtraConfig string  `json:"extraConfig,omitempty"`
	IsActive    bool    `json:"isActive"`
}

// maskKey 只保留前后各 4 位，密钥太短就全遮。
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func toView(c store.ServiceCredential) credentialView {
	return credentialView{
		ServiceName: c.ServiceName,
		APIKeyMask:  maskKey(c.APIKey),
		Configured:  c.APIKey != "",
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		ExtraConfig: c.ExtraConfig,
		IsActive:    c.IsActive,
	}
}

// HandleListCredentials 处理 GET /api/admin/credentials。
func (h *AdminHandler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.store.Credentials(r.Context())
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	views := make([]credentialView, 0, len(creds))
	for _, c := range creds {
		views = append(views, toView(c))
	}
	WriteSuccess(w, views)
}

type upsertCredentialRequest struct {
	ServiceName string  `json:"serviceName"`
	APIKey      string  `json:"apiKey"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	ExtraConfig string  `json:"extraConfig"`
	IsActive    bool    `json:"isActive"`
}

// HandleUpsertCredential 处理 PUT /api/admin/credentials。
// 下一次能力解析立即使用新配置，无需重启。
func (h *AdminHandler) HandleUpsertCredential(w http.ResponseWriter, r *http.Request) {
	var req upsertCredentialRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.ServiceName == "" {
		WriteErrorMessage(w, http.StatusBadRequest, "serviceName is required")
		return
	}

	cred := &store.ServiceCredential{
		ServiceName: req.ServiceName,
		APIKey:      req.APIKey,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ExtraConfig: req.ExtraConfig,
		IsActive:    req.IsActive,
	}
	if err := h.store.UpsertCredential(r.Context(), cred); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	h.logger.Info("service credential updated",
		zap.String("service", req.ServiceName),
		zap.Bool("active", req.IsActive),
	)
	WriteSuccess(w, toView(*cred))
}

// HandleListTemplates 处理 GET /api/admin/templates。
func (h *AdminHandler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates(r.Context())
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, templates)
}

type upsertTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

// HandleUpsertTemplate 处理 PUT /api/admin/templates。
func (h *AdminHandler) HandleUpsertTemplate(w http.ResponseWriter, r *http.Request) {
	var req upsertTemplateRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Template == "" {
		WriteErrorMessage(w, http.StatusBadRequest, "name and template are required")
		return
	}

	t := &store.PromptTemplate{Name: req.Name, Description: req.Description, Template: req.Template}
	if err := h.store.UpsertTemplate(r.Context(), t); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, t)
}
