package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/store"
)

// IdentityFunc 从请求中取出已验证的用户标识。会话校验在服务前面完成
// （认证代理把通过校验的身份放进请求头），这里只信任其结果。
type IdentityFunc func(r *http.Request) string

// HeaderIdentity trusts the identity header set by the authenticating
// reverse proxy in front of the service.
func HeaderIdentity(header string) IdentityFunc {
	return func(r *http.Request) string {
		return r.Header.Get(header)
	}
}

// Identity 把解析出的用户标识注入请求上下文。
func Identity(resolve IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := resolve(r); userID != "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly 只放行 ADMIN 角色。
func AdminOnly(s *store.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := RequireUser(w, r)
			if !ok {
				return
			}
			user, err := s.UserByID(r.Context(), userID)
			if err != nil || user.Role != store.RoleAdmin {
				WriteErrorMessage(w, http.StatusForbidden, "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Router bundles every handler of the service.
type Router struct {
	Health   *HealthHandler
	Project  *ProjectHandler
	Artifact *ArtifactHandler
	Asset    *AssetHandler
	Admin    *AdminHandler
	Store    *store.Store
	Identity IdentityFunc
	Logger   *zap.Logger
}

// Build 组装完整路由表。
func (rt Router) Build() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", rt.Health.HandleHealth)
	mux.HandleFunc("GET /ready", rt.Health.HandleReady)

	mux.HandleFunc("POST /api/projects", rt.Project.HandleCreateProject)
	mux.HandleFunc("GET /api/projects", rt.Project.HandleListProjects)
	mux.HandleFunc("DELETE /api/projects/{id}", rt.Project.HandleDeleteProject)
	mux.HandleFunc("POST /api/projects/{id}/artifacts", rt.Project.HandleCreateArtifact)
	mux.HandleFunc("GET /api/projects/{id}/artifacts", rt.Project.HandleListArtifacts)
	mux.HandleFunc("GET /api/artifacts/{id}", rt.Project.HandleGetArtifact)
	mux.HandleFunc("DELETE /api/artifacts/{id}", rt.Project.HandleDeleteArtifact)

	mux.HandleFunc("POST /api/artifacts/{id}/analyze", rt.Artifact.HandleAnalyze)
	mux.HandleFunc("POST /api/artifacts/{id}/restore", rt.Artifact.HandleRestore)
	mux.HandleFunc("POST /api/artifacts/{id}/generate-3d", rt.Artifact.HandleGenerate)
	mux.HandleFunc("GET /api/artifacts/{id}/generate-3d", rt.Artifact.HandleGenerationStatus)

	mux.HandleFunc("GET /api/models/{artifactId}/{filename}", rt.Asset.HandleServeModel)
	mux.HandleFunc("GET /api/proxy", rt.Asset.HandleProxy)

	adminOnly := AdminOnly(rt.Store, rt.Logger)
	mux.Handle("GET /api/admin/credentials", adminOnly(http.HandlerFunc(rt.Admin.HandleListCredentials)))
	mux.Handle("PUT /api/admin/credentials", adminOnly(http.HandlerFunc(rt.Admin.HandleUpsertCredential)))
	mux.Handle("GET /api/admin/templates", adminOnly(http.HandlerFunc(rt.Admin.HandleListTemplates)))
	mux.Handle("PUT /api/admin/templates", adminOnly(http.HandlerFunc(rt.Admin.HandleUpsertTemplate)))

	identity := rt.Identity
	if identity == nil {
		identity = HeaderIdentity("X-User-ID")
	}
	return Identity(identity)(mux)
}
