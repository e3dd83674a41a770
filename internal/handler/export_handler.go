package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spup-cprint/clearance-api/internal/dto"
	"github.com/spup-cprint/clearance-api/internal/service"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/response"
)

// ExportHandler wires HTTP endpoints to the export lifecycle.
type ExportHandler struct {
	service *service.ExportService
	logger  *zap.Logger
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{service: svc, logger: logger}
}

// ListExportable godoc
// @Summary List exportable submissions
// @Description Cleared submissions whose bundle has not been exported yet
// @Tags Export
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/export/submissions [get]
// @Security BearerAuth
func (h *ExportHandler) ListExportable(c *gin.Context) {
	records, err := h.service.ListExportable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Prepare godoc
// @Summary Prepare bundle download
// @Description Issue a signed, time-limited download link for a bundle
// @Tags Export
// @Produce json
// @Param id path string true "Tracking code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/submissions/{id}/export/prepare [post]
// @Security BearerAuth
func (h *ExportHandler) Prepare(c *gin.Context) {
	item, err := h.service.PrepareDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Confirm godoc
// @Summary Confirm export
// @Description Delete the stored bundle and flag the submission exported
// @Tags Export
// @Produce json
// @Param id path string true "Tracking code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/submissions/{id}/export/confirm [post]
// @Security BearerAuth
func (h *ExportHandler) Confirm(c *gin.Context) {
	sub, err := h.service.ConfirmExport(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub)
}

// BulkPrepare godoc
// @Summary Prepare bulk downloads
// @Description Issue download links for a batch of submissions, paced sequentially
// @Tags Export
// @Accept json
// @Produce json
// @Param payload body dto.BulkExportRequest true "Selected tracking codes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/export/bulk/prepare [post]
// @Security BearerAuth
func (h *ExportHandler) BulkPrepare(c *gin.Context) {
	var req dto.BulkExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk export payload"))
		return
	}

	result, err := h.service.PrepareBulkDownload(c.Request.Context(), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// BulkMark godoc
// @Summary Bulk mark as exported
// @Description Confirm a batch of exports, partitioning ids by outcome
// @Tags Export
// @Accept json
// @Produce json
// @Param payload body dto.BulkExportRequest true "Selected tracking codes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/export/bulk/mark [post]
// @Security BearerAuth
func (h *ExportHandler) BulkMark(c *gin.Context) {
	var req dto.BulkExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk export payload"))
		return
	}

	result, err := h.service.BulkMarkExported(c.Request.Context(), req.IDs, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Download godoc
// @Summary Download a bundle
// @Description Stream a submission bundle using a signed download token
// @Tags Export
// @Produce application/zip
// @Param id path string true "Tracking code"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bundles/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}

	file, filename, err := h.service.ResolveDownload(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		h.logger.Error("failed to stat bundle before streaming", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read bundle"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, info.Size(), "application/zip", file, nil)
}
