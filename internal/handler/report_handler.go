package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spup-cprint/clearance-api/internal/models"
	"github.com/spup-cprint/clearance-api/internal/service"
	"github.com/spup-cprint/clearance-api/pkg/response"
)

// ReportHandler exposes submission report downloads.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Submissions godoc
// @Summary Submissions report
// @Description Render the filtered submission listing as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Report format (csv or pdf, default csv)"
// @Param level query string false "Level filter"
// @Param status query string false "Status filter"
// @Param course query string false "Course filter"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/reports/submissions [get]
// @Security BearerAuth
func (h *ReportHandler) Submissions(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", string(service.ReportFormatCSV)))
	filter := models.SubmissionFilter{
		Level:  c.Query("level"),
		Status: c.Query("status"),
		Course: c.Query("course"),
	}

	result, err := h.service.Generate(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
