package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spup-cprint/clearance-api/internal/models"
)

func newSubmissionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "level", "name", "email", "student_id", "adviser", "course",
		"graduation_month", "graduation_year", "research_title", "research_type",
		"group_members", "zip_file", "status", "submitted_at", "is_exported", "exported_at", "export_link",
	})
}

func TestSubmissionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO submissions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub := &models.Submission{
		ID:           "SPUP_Clearance_2025_ABC123",
		Level:        models.LevelGrad,
		Name:         "Maria Clara",
		Email:        "maria@spup.edu.ph",
		StudentID:    "2021-00123",
		Adviser:      "Dr. Reyes",
		Course:       "MSIT",
		ResearchType: models.ResearchThesis,
		ZipFile:      "submissions/SPUP_Clearance_2025_ABC123.zip",
	}
	require.NoError(t, repo.Create(context.Background(), sub))
	assert.Equal(t, models.StatusSubmitted, sub.Status)
	assert.False(t, sub.SubmittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO submissions").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Submission{ID: "SPUP_Clearance_2025_ABC123"})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestSubmissionRepositoryGetByIDAbsent(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM submissions WHERE id = \\$1").
		WithArgs("SPUP_Clearance_2025_ZZZZZZ").
		WillReturnError(sql.ErrNoRows)

	sub, err := repo.GetByID(context.Background(), "SPUP_Clearance_2025_ZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubmissionRepositoryGetByIDNullGroupMembers(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := submissionRows().AddRow(
		"SPUP_Clearance_2025_ABC123", "grad", "Maria Clara", "maria@spup.edu.ph", "2021-00123",
		"Dr. Reyes", "MSIT", "May", "2025", "A Study", "Thesis",
		nil, "submissions/SPUP_Clearance_2025_ABC123.zip", "Submitted", time.Now(), false, nil, nil,
	)
	mock.ExpectQuery("SELECT .+ FROM submissions WHERE id = \\$1").
		WithArgs("SPUP_Clearance_2025_ABC123").
		WillReturnRows(rows)

	sub, err := repo.GetByID(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Empty(t, sub.GroupMembers)
	assert.Nil(t, sub.ExportLink)
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM submissions WHERE level = \\$1 AND status = \\$2 ORDER BY submitted_at DESC").
		WithArgs("undergrad", "Cleared").
		WillReturnRows(submissionRows())

	_, err := repo.List(context.Background(), models.SubmissionFilter{Level: "undergrad", Status: "Cleared"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListAllSentinel(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM submissions ORDER BY submitted_at DESC").
		WillReturnRows(submissionRows())

	_, err := repo.List(context.Background(), models.SubmissionFilter{Level: models.FilterAll, Status: models.FilterAll})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkExported(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE submissions").
		WithArgs("SPUP_Clearance_2025_ABC123", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkExported(context.Background(), "SPUP_Clearance_2025_ABC123", true, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkExportedMissing(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("UPDATE submissions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkExported(context.Background(), "SPUP_Clearance_2025_ZZZZZZ", true, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSubmissionRepositoryUpdateDetailsPartial(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("UPDATE submissions SET name = \\$1, course = \\$2 WHERE id = \\$3").
		WithArgs("New Name", "BSIT", "SPUP_Clearance_2025_ABC123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name := "New Name"
	course := "BSIT"
	err := repo.UpdateDetails(context.Background(), "SPUP_Clearance_2025_ABC123", models.SubmissionUpdate{
		Name:   &name,
		Course: &course,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateDetailsNoFields(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	// No expectations registered: zero-field updates must not hit the store.
	require.NoError(t, repo.UpdateDetails(context.Background(), "SPUP_Clearance_2025_ABC123", models.SubmissionUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryClearExportLink(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("UPDATE submissions SET export_link = NULL WHERE id = \\$1").
		WithArgs("SPUP_Clearance_2025_ABC123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ClearExportLink(context.Background(), "SPUP_Clearance_2025_ABC123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
