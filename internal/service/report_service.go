package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spup-cprint/clearance-api/internal/models"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/export"
)

// ReportFormat enumerates supported report renderings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type reportListing interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportResult carries a rendered report plus serving metadata.
type ReportResult struct {
	Payload     []byte
	FileName    string
	ContentType string
}

// ReportService renders submission listings as downloadable CSV or PDF
// reports for offline review.
type ReportService struct {
	listing reportListing
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(listing reportListing, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{listing: listing, csv: csv, pdf: pdf, logger: logger}
}

var reportHeaders = []string{
	"Tracking Code", "Level", "Name", "Student ID", "Course", "Adviser",
	"Research Title", "Research Type", "Status", "Submitted At", "Exported",
}

// Generate renders the filtered submission listing in the requested format.
func (s *ReportService) Generate(ctx context.Context, filter models.SubmissionFilter, format ReportFormat) (*ReportResult, error) {
	records, err := s.listing.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := buildReportDataset(records)
	timestamp := time.Now().UTC().Format("20060102_150405")

	switch format {
	case ReportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportResult{
			Payload:     payload,
			FileName:    fmt.Sprintf("submissions_%s.csv", timestamp),
			ContentType: "text/csv",
		}, nil
	case ReportFormatPDF:
		payload, err := s.pdf.Render(dataset, reportTitle(filter))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportResult{
			Payload:     payload,
			FileName:    fmt.Sprintf("submissions_%s.pdf", timestamp),
			ContentType: "application/pdf",
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
}

func buildReportDataset(records []models.Submission) export.Dataset {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		exported := "No"
		if record.IsExported {
			exported = "Yes"
		}
		rows = append(rows, []string{
			record.ID,
			string(record.Level),
			record.Name,
			record.StudentID,
			record.Course,
			record.Adviser,
			record.ResearchTitle,
			string(record.ResearchType),
			string(record.Status),
			record.SubmittedAt.UTC().Format(time.RFC3339),
			exported,
		})
	}
	return export.Dataset{Headers: reportHeaders, Rows: rows}
}

func reportTitle(filter models.SubmissionFilter) string {
	parts := []string{"Clearance Submissions"}
	if filter.Level != "" && filter.Level != models.FilterAll {
		parts = append(parts, filter.Level)
	}
	if filter.Status != "" && filter.Status != models.FilterAll {
		parts = append(parts, filter.Status)
	}
	return strings.Join(parts, " - ")
}
