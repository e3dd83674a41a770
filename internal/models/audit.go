package models

import "time"

// AuditAction names the administrator mutations recorded in the audit trail.
type AuditAction string

const (
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionLogout        AuditAction = "LOGOUT"
	AuditActionStatusChange  AuditAction = "SUBMISSION_STATUS_CHANGE"
	AuditActionDetailEdit    AuditAction = "SUBMISSION_DETAIL_EDIT"
	AuditActionExportConfirm AuditAction = "SUBMISSION_EXPORT_CONFIRM"
	AuditActionBulkExport    AuditAction = "SUBMISSION_BULK_EXPORT"
	AuditActionExportLink    AuditAction = "SUBMISSION_EXPORT_LINK"
)

// AuditLog records one administrator action for later review.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address"`
	UserAgent  string      `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
