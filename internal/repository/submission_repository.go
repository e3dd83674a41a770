package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/spup-cprint/clearance-api/internal/models"
)

// ErrDuplicateID signals a tracking-code collision on create.
var ErrDuplicateID = errors.New("submission id already exists")

const submissionColumns = `id, level, name, email, student_id, adviser, course,
       graduation_month, graduation_year, research_title, research_type,
       group_members, zip_file, status, submitted_at, is_exported, exported_at, export_link`

// SubmissionRepository handles submission persistence keyed by tracking code.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create stores a new submission record. The caller supplies the id; a
// primary-key collision surfaces as ErrDuplicateID so intake can retry with
// a freshly generated code.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	if sub.Status == "" {
		sub.Status = models.StatusSubmitted
	}
	const query = `INSERT INTO submissions
	(id, level, name, email, student_id, adviser, course, graduation_month, graduation_year,
	 research_title, research_type, group_members, zip_file, status, submitted_at, is_exported)
	VALUES (:id, :level, :name, :email, :student_id, :adviser, :course, :graduation_month, :graduation_year,
	 :research_title, :research_type, :group_members, :zip_file, :status, :submitted_at, :is_exported)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateID
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID retrieves one submission. A missing record returns (nil, nil);
// absence is an expected outcome on the public tracking path, not an error.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &sub, nil
}

// List returns submissions matching the pushdown filters, newest first.
// The free-text search term is deliberately not applied here; it is an
// in-memory pass over the returned set.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + submissionColumns + ` FROM submissions`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	if filter.Level != "" && filter.Level != models.FilterAll {
		args = append(args, filter.Level)
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.Status != "" && filter.Status != models.FilterAll {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	var records []models.Submission
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return records, nil
}

// ListExportable returns cleared submissions whose bundle has not yet been
// exported, newest first.
func (r *SubmissionRepository) ListExportable(ctx context.Context) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	WHERE status = $1 AND is_exported = FALSE ORDER BY submitted_at DESC`
	var records []models.Submission
	if err := r.db.SelectContext(ctx, &records, query, models.StatusCleared); err != nil {
		return nil, fmt.Errorf("list exportable submissions: %w", err)
	}
	return records, nil
}

// UpdateDetails merges the provided fields into the existing record. Nil
// fields are untouched; a non-nil empty group-member list removes the column
// value (stored as NULL, never as an empty array).
func (r *SubmissionRepository) UpdateDetails(ctx context.Context, id string, update models.SubmissionUpdate) error {
	sets := make([]string, 0, 11)
	args := make([]interface{}, 0, 12)

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.StudentID != nil {
		add("student_id", *update.StudentID)
	}
	if update.Adviser != nil {
		add("adviser", *update.Adviser)
	}
	if update.Course != nil {
		add("course", *update.Course)
	}
	if update.GraduationMonth != nil {
		add("graduation_month", *update.GraduationMonth)
	}
	if update.GraduationYear != nil {
		add("graduation_year", *update.GraduationYear)
	}
	if update.ResearchTitle != nil {
		add("research_title", *update.ResearchTitle)
	}
	if update.ResearchType != nil {
		add("research_type", *update.ResearchType)
	}
	if update.Level != nil {
		add("level", *update.Level)
	}
	if update.GroupMembers != nil {
		add("group_members", *update.GroupMembers)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE submissions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return r.execExpectingRow(ctx, "update submission details", query, args...)
}

// UpdateStatus switches the review status.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	const query = `UPDATE submissions SET status = $2 WHERE id = $1`
	return r.execExpectingRow(ctx, "update submission status", query, id, status)
}

// MarkExported flips the export flag. exported_at is set in the same
// statement, and cleared again if the flag is ever reset.
func (r *SubmissionRepository) MarkExported(ctx context.Context, id string, exported bool, exportedAt time.Time) error {
	const query = `UPDATE submissions
	SET is_exported = $2, exported_at = CASE WHEN $2 THEN $3 ELSE NULL END
	WHERE id = $1`
	return r.execExpectingRow(ctx, "mark submission exported", query, id, exported, exportedAt)
}

// SetExportLink attaches an external reference after export.
func (r *SubmissionRepository) SetExportLink(ctx context.Context, id, url string) error {
	const query = `UPDATE submissions SET export_link = $2 WHERE id = $1`
	return r.execExpectingRow(ctx, "set export link", query, id, url)
}

// ClearExportLink removes the external reference entirely (NULL, not "").
func (r *SubmissionRepository) ClearExportLink(ctx context.Context, id string) error {
	const query = `UPDATE submissions SET export_link = NULL WHERE id = $1`
	return r.execExpectingRow(ctx, "clear export link", query, id)
}

func (r *SubmissionRepository) execExpectingRow(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
