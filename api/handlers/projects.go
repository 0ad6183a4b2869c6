package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/store"
)

// ProjectHandler 项目与文物的基础 CRUD。
type ProjectHandler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewProjectHandler(s *store.Store, logger *zap.Logger) *ProjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectHandler{store: s, logger: logger}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateProject 处理 POST /api/projects。
func (h *ProjectHandler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, "project name is required")
		return
	}

	project := &store.Project{UserID: userID, Name: req.Name, Description: req.Description}
	if err := h.store.CreateProject(r.Context(), project); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, project)
}

// HandleListProjects 处理 GET /api/projects。
func (h *ProjectHandler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	projects, err := h.store.ProjectsByUser(r.Context(), userID)
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, projects)
}

// HandleDeleteProject 处理 DELETE /api/projects/{id}，连带删除其文物。
func (h *ProjectHandler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteProject(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"deleted": r.PathValue("id")})
}

type createArtifactRequest struct {
	Name             string `json:"name"`
	OriginalImageURL string `json:"originalImageUrl"`
}

// HandleCreateArtifact 处理 POST /api/projects/{id}/artifacts。
func (h *ProjectHandler) HandleCreateArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	project, err := h.store.ProjectByID(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	var req createArtifactRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, "artifact name is required")
		return
	}

	artifact := &store.Artifact{
		ProjectID:        project.ID,
		Name:             req.Name,
		OriginalImageURL: req.OriginalImageURL,
	}
	if err := h.store.CreateArtifact(r.Context(), artifact); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, artifact)
}

// HandleListArtifacts 处理 GET /api/projects/{id}/artifacts。
func (h *ProjectHandler) HandleListArtifacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	project, err := h.store.ProjectByID(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	artifacts, err := h.store.ArtifactsByProject(r.Context(), project.ID)
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, artifacts)
}

// HandleDeleteArtifact 处理 DELETE /api/artifacts/{id}。
func (h *ProjectHandler) HandleDeleteArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	// 先做归属校验，再按 ID 删除。
	artifact, err := h.store.ArtifactByID(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	if err := h.store.DeleteArtifact(r.Context(), artifact.ID); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"deleted": artifact.ID})
}

// HandleGetArtifact 处理 GET /api/artifacts/{id}。
func (h *ProjectHandler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return
	}

	artifact, err := h.store.ArtifactByID(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	WriteSuccess(w, artifact)
}
