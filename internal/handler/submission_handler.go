package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spup-cprint/clearance-api/internal/dto"
	"github.com/spup-cprint/clearance-api/internal/models"
	"github.com/spup-cprint/clearance-api/internal/service"
	"github.com/spup-cprint/clearance-api/pkg/archive"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/response"
)

// SubmissionHandler wires HTTP endpoints to the submission service.
type SubmissionHandler struct {
	service        *service.SubmissionService
	maxUploadBytes int64
}

// NewSubmissionHandler creates a new handler.
func NewSubmissionHandler(svc *service.SubmissionService, maxUploadBytes int64) *SubmissionHandler {
	return &SubmissionHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// Submit godoc
// @Summary Submit clearance documents
// @Description Accepts the public intake form and returns a tracking code
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param level formData string true "Student level (undergrad or grad)"
// @Param name formData string true "Student name"
// @Param email formData string true "Student email"
// @Param studentId formData string true "Student ID"
// @Param adviser formData string true "Adviser name"
// @Param course formData string true "Course or program"
// @Param graduationMonth formData string true "Graduation month"
// @Param graduationYear formData string true "Graduation year"
// @Param researchTitle formData string true "Research title"
// @Param researchType formData string true "Thesis, Capstone or Dissertation"
// @Param groupMembers formData string false "JSON-encoded group member list"
// @Param approvalSheet formData file true "Approval sheet"
// @Param fullPaper formData file true "Full paper"
// @Param longAbstract formData file true "Long abstract"
// @Param journalFormat formData file true "Journal format"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var req dto.CreateSubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission form"))
		return
	}

	docs := make(map[archive.DocumentKey]archive.File, len(archive.RequiredDocuments))
	for _, key := range archive.RequiredDocuments {
		header, err := c.FormFile(string(key))
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing required document "+string(key)))
			return
		}
		file, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable document "+string(key)))
			return
		}
		defer file.Close() //nolint:errcheck
		docs[key] = archive.File{Name: header.Filename, Content: file}
	}

	res, err := h.service.Submit(c.Request.Context(), req, docs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Track godoc
// @Summary Track a submission
// @Description Resolve a public tracking code to its submission status
// @Tags Submissions
// @Produce json
// @Param id path string true "Tracking code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Track(c *gin.Context) {
	sub, err := h.service.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub)
}

// List godoc
// @Summary List submissions
// @Description Filtered listing for the admin dashboard
// @Tags Admin
// @Produce json
// @Param level query string false "Level filter (undergrad, grad or all)"
// @Param status query string false "Status filter (Submitted, Cleared or all)"
// @Param course query string false "Course filter"
// @Param search query string false "Free-text search over name, student id, title and email"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/submissions [get]
// @Security BearerAuth
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionFilter{
		Level:      c.Query("level"),
		Status:     c.Query("status"),
		Course:     c.Query("course"),
		SearchTerm: c.Query("search"),
	}

	records, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Update godoc
// @Summary Edit submission details
// @Description Partially update a submission's descriptive fields
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tracking code"
// @Param payload body dto.UpdateSubmissionRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/submissions/{id} [patch]
// @Security BearerAuth
func (h *SubmissionHandler) Update(c *gin.Context) {
	var req dto.UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	sub, err := h.service.UpdateDetails(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub)
}

// UpdateStatus godoc
// @Summary Change review status
// @Description Switch a submission between Submitted and Cleared
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tracking code"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/submissions/{id}/status [put]
// @Security BearerAuth
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	sub, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub)
}

// SetExportLink godoc
// @Summary Attach export link
// @Description Record an external reference for an exported submission
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tracking code"
// @Param payload body dto.SetExportLinkRequest true "External link"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/submissions/{id}/export-link [put]
// @Security BearerAuth
func (h *SubmissionHandler) SetExportLink(c *gin.Context) {
	var req dto.SetExportLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export link payload"))
		return
	}

	if err := h.service.SetExportLink(c.Request.Context(), c.Param("id"), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearExportLink godoc
// @Summary Remove export link
// @Description Remove the external reference from a submission
// @Tags Admin
// @Produce json
// @Param id path string true "Tracking code"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/submissions/{id}/export-link [delete]
// @Security BearerAuth
func (h *SubmissionHandler) ClearExportLink(c *gin.Context) {
	if err := h.service.ClearExportLink(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
