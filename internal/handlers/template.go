package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/services"
)

type TemplateHandler struct {
	log         *logger.Logger
	templateSvc services.TemplateService
}

func NewTemplateHandler(log *logger.Logger, templateSvc services.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		log:         log.With("handler", "TemplateHandler"),
		templateSvc: templateSvc,
	}
}

// PUT /api/templates
// Upsert a template tree. Creates version 1 for a new name, edits the
// draft in place, or spins a new draft version off a frozen one.
func (h *TemplateHandler) Sync(c *gin.Context) {
	var input templatesync.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.templateSvc.Sync(c.Request.Context(), input)
	if err != nil {
		h.log.Warn("Template sync failed", "template", input.Name, "error", err)
		RespondDomainError(c, err)
		return
	}
	status := http.StatusOK
	if result.NewVersion || (result.Template.Version == 1 && !result.NoOp) {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// GET /api/templates
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templateSvc.List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"templates": templates})
}

// GET /api/templates/:name?version=N
// Omitting version (or passing 0) resolves to the latest version.
func (h *TemplateHandler) Get(c *gin.Context) {
	version, err := versionQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	tree, err := h.templateSvc.Get(c.Request.Context(), c.Param("name"), version)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, tree)
}

// POST /api/templates/:name/versions/:version/publish
func (h *TemplateHandler) Publish(c *gin.Context) {
	version, err := versionParam(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	tree, err := h.templateSvc.Publish(c.Request.Context(), c.Param("name"), version)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, tree)
}

// POST /api/templates/:name/versions/:version/archive
func (h *TemplateHandler) Archive(c *gin.Context) {
	version, err := versionParam(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	if err := h.templateSvc.Archive(c.Request.Context(), c.Param("name"), version); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/templates/:name/versions/:version
// Only unused drafts can be removed.
func (h *TemplateHandler) DeleteDraft(c *gin.Context) {
	version, err := versionParam(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	if err := h.templateSvc.DeleteDraft(c.Request.Context(), c.Param("name"), version); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/templates/:name/published-version
func (h *TemplateHandler) GetPublishedVersion(c *gin.Context) {
	name := c.Param("name")
	version, err := h.templateSvc.GetPublishedVersion(c.Request.Context(), name)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if version == 0 {
		RespondError(c, http.StatusNotFound, "not_found", templatesync.ErrNotFound)
		return
	}
	RespondOK(c, gin.H{"name": name, "version": version})
}

func versionParam(c *gin.Context) (int, error) {
	return strconv.Atoi(c.Param("version"))
}

func versionQuery(c *gin.Context) (int, error) {
	raw := c.Query("version")
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
