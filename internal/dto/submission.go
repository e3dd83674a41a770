package dto

import (
	"time"

	"github.com/spup-cprint/clearance-api/internal/models"
)

// CreateSubmissionRequest carries the multipart intake form fields. The four
// document files travel alongside as multipart file parts.
type CreateSubmissionRequest struct {
	Level           string `form:"level" validate:"required,oneof=undergrad grad"`
	Name            string `form:"name" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	StudentID       string `form:"studentId" validate:"required"`
	Adviser         string `form:"adviser" validate:"required"`
	Course          string `form:"course" validate:"required"`
	GraduationMonth string `form:"graduationMonth" validate:"required"`
	GraduationYear  string `form:"graduationYear" validate:"required"`
	ResearchTitle   string `form:"researchTitle" validate:"required"`
	ResearchType    string `form:"researchType" validate:"required,oneof=Thesis Capstone Dissertation"`
	// GroupMembers arrives as a JSON-encoded array field in the multipart
	// body, mirroring how the web form serializes it.
	GroupMembers string `form:"groupMembers"`
}

// SubmitResponse returns the tracking code for a new submission.
type SubmitResponse struct {
	ID string `json:"id"`
}

// UpdateSubmissionRequest is a partial edit; absent fields stay untouched.
// A non-null empty groupMembers array removes the field.
type UpdateSubmissionRequest struct {
	Name            *string              `json:"name,omitempty"`
	Email           *string              `json:"email,omitempty" validate:"omitempty,email"`
	StudentID       *string              `json:"studentId,omitempty"`
	Adviser         *string              `json:"adviser,omitempty"`
	Course          *string              `json:"course,omitempty"`
	GraduationMonth *string              `json:"graduationMonth,omitempty"`
	GraduationYear  *string              `json:"graduationYear,omitempty"`
	ResearchTitle   *string              `json:"researchTitle,omitempty"`
	ResearchType    *string              `json:"researchType,omitempty" validate:"omitempty,oneof=Thesis Capstone Dissertation"`
	Level           *string              `json:"level,omitempty" validate:"omitempty,oneof=undergrad grad"`
	GroupMembers    *models.GroupMembers `json:"groupMembers,omitempty"`
}

// UpdateStatusRequest switches the review status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Submitted Cleared"`
}

// SetExportLinkRequest attaches an external link after export.
type SetExportLinkRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// DownloadItem is one prepared bundle download.
type DownloadItem struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BulkExportRequest selects submissions for a bulk operation.
type BulkExportRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BulkDownloadResult reports prepared downloads plus the success ratio.
type BulkDownloadResult struct {
	Items     []DownloadItem `json:"items"`
	Succeeded int            `json:"succeededCount"`
	Attempted int            `json:"attemptedCount"`
}

// BulkMarkResult partitions a bulk mark-as-exported run by outcome.
type BulkMarkResult struct {
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
}
