package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spup-cprint/clearance-api/internal/dto"
	"github.com/spup-cprint/clearance-api/internal/models"
	"github.com/spup-cprint/clearance-api/internal/repository"
	"github.com/spup-cprint/clearance-api/pkg/archive"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/tracking"
)

type fakeSubmissionRepo struct {
	records      map[string]*models.Submission
	listResult   []models.Submission
	createFails  int
	createErr    error
	getErr       error
	getCalls     int
	updateStatus map[string]models.Status
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		records:      make(map[string]*models.Submission),
		updateStatus: make(map[string]models.Status),
	}
}

func (f *fakeSubmissionRepo) Create(_ context.Context, sub *models.Submission) error {
	if f.createFails > 0 {
		f.createFails--
		return repository.ErrDuplicateID
	}
	if f.createErr != nil {
		return f.createErr
	}
	if sub.Status == "" {
		sub.Status = models.StatusSubmitted
	}
	copied := *sub
	f.records[sub.ID] = &copied
	return nil
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*models.Submission, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubmissionRepo) List(_ context.Context, _ models.SubmissionFilter) ([]models.Submission, error) {
	return f.listResult, nil
}

func (f *fakeSubmissionRepo) UpdateDetails(_ context.Context, id string, update models.SubmissionUpdate) error {
	sub, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Name != nil {
		sub.Name = *update.Name
	}
	if update.Course != nil {
		sub.Course = *update.Course
	}
	return nil
}

func (f *fakeSubmissionRepo) UpdateStatus(_ context.Context, id string, status models.Status) error {
	sub, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.Status = status
	f.updateStatus[id] = status
	return nil
}

func (f *fakeSubmissionRepo) SetExportLink(_ context.Context, id, url string) error {
	sub, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.ExportLink = &url
	return nil
}

func (f *fakeSubmissionRepo) ClearExportLink(_ context.Context, id string) error {
	sub, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.ExportLink = nil
	return nil
}

type fakeBundleWriter struct {
	saved   map[string][]byte
	saveErr error
	deleted []string
}

func newFakeBundleWriter() *fakeBundleWriter {
	return &fakeBundleWriter{saved: make(map[string][]byte)}
}

func (f *fakeBundleWriter) Save(key string, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved[key] = data
	return key, nil
}

func (f *fakeBundleWriter) Delete(key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

type fakeCache struct {
	entries  map[string][]byte
	gets     int
	hits     int
	patterns []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	f.gets++
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	f.hits++
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type fakeAuditWriter struct {
	logs []*models.AuditLog
	err  error
}

func (f *fakeAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

func intakeRequest() dto.CreateSubmissionRequest {
	return dto.CreateSubmissionRequest{
		Level:           "undergrad",
		Name:            "Juan Dela Cruz",
		Email:           "juan@spup.edu.ph",
		StudentID:       "2021-00123",
		Adviser:         "Dr. Reyes",
		Course:          "BSIT",
		GraduationMonth: "May",
		GraduationYear:  "2025",
		ResearchTitle:   "Flood Prediction Models",
		ResearchType:    "Capstone",
	}
}

func intakeDocuments() map[archive.DocumentKey]archive.File {
	docs := make(map[archive.DocumentKey]archive.File, len(archive.RequiredDocuments))
	for _, key := range archive.RequiredDocuments {
		docs[key] = archive.File{
			Name:    string(key) + ".pdf",
			Content: strings.NewReader("content of " + string(key)),
		}
	}
	return docs
}

func newSubmissionService(repo *fakeSubmissionRepo, store *fakeBundleWriter, cache *fakeCache, audit *fakeAuditWriter, cfg SubmissionConfig) *SubmissionService {
	var cacheDep submissionCache
	if cache != nil {
		cacheDep = cache
	}
	var auditDep auditWriter
	if audit != nil {
		auditDep = audit
	}
	return NewSubmissionService(repo, cacheDep, store, auditDep, tracking.NewGenerator(), archive.IDNamer, nil, nil, cfg)
}

func TestSubmitCreatesRecordAndBundle(t *testing.T) {
	repo := newFakeSubmissionRepo()
	store := newFakeBundleWriter()
	svc := newSubmissionService(repo, store, nil, nil, SubmissionConfig{})

	resp, err := svc.Submit(context.Background(), intakeRequest(), intakeDocuments())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, tracking.Validate(resp.ID))

	sub, ok := repo.records[resp.ID]
	require.True(t, ok)
	assert.Equal(t, models.StatusSubmitted, sub.Status)
	assert.Equal(t, "submissions/"+resp.ID+".zip", sub.ZipFile)
	assert.Contains(t, store.saved, sub.ZipFile)
	assert.False(t, sub.IsExported)
}

func TestSubmitRetriesOnTrackingCollision(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.createFails = 2
	store := newFakeBundleWriter()
	svc := newSubmissionService(repo, store, nil, nil, SubmissionConfig{})

	resp, err := svc.Submit(context.Background(), intakeRequest(), intakeDocuments())
	require.NoError(t, err)

	// The two collided attempts must not leave bundles behind.
	assert.Len(t, store.deleted, 2)
	assert.Len(t, store.saved, 1)
	assert.Contains(t, store.saved, "submissions/"+resp.ID+".zip")
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.createFails = 10
	store := newFakeBundleWriter()
	svc := newSubmissionService(repo, store, nil, nil, SubmissionConfig{MaxCreateAttempts: 3})

	_, err := svc.Submit(context.Background(), intakeRequest(), intakeDocuments())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateKey.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.saved)
	assert.Len(t, store.deleted, 3)
}

func TestSubmitCompensatesOnCreateFailure(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.createErr = fmt.Errorf("db down")
	store := newFakeBundleWriter()
	svc := newSubmissionService(repo, store, nil, nil, SubmissionConfig{})

	_, err := svc.Submit(context.Background(), intakeRequest(), intakeDocuments())
	require.Error(t, err)
	assert.Empty(t, store.saved)
}

func TestSubmitRejectsMissingDocument(t *testing.T) {
	repo := newFakeSubmissionRepo()
	store := newFakeBundleWriter()
	svc := newSubmissionService(repo, store, nil, nil, SubmissionConfig{})

	docs := intakeDocuments()
	delete(docs, archive.DocLongAbstract)

	_, err := svc.Submit(context.Background(), intakeRequest(), docs)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.saved)
}

func TestSubmitNormalizesGroupMembers(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		raw     string
		wantNil bool
		wantLen int
	}{
		{"undergrad with members", "undergrad", `[{"name":"Ana","studentID":"2021-1"}]`, false, 1},
		{"undergrad empty array", "undergrad", `[]`, true, 0},
		{"undergrad absent", "undergrad", "", true, 0},
		{"grad drops members", "grad", `[{"name":"Ana","studentID":"2021-1"}]`, true, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeSubmissionRepo()
			svc := newSubmissionService(repo, newFakeBundleWriter(), nil, nil, SubmissionConfig{})

			req := intakeRequest()
			req.Level = tc.level
			req.GroupMembers = tc.raw

			resp, err := svc.Submit(context.Background(), req, intakeDocuments())
			require.NoError(t, err)

			sub := repo.records[resp.ID]
			if tc.wantNil {
				assert.Nil(t, sub.GroupMembers)
			} else {
				assert.Len(t, sub.GroupMembers, tc.wantLen)
			}
		})
	}
}

func TestTrackRejectsMalformedCodeWithoutStoreHit(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeBundleWriter(), nil, nil, SubmissionConfig{})

	_, err := svc.Track(context.Background(), "spup_clearance_2025_abc123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.getCalls)
}

func TestTrackReadsThroughCache(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.records["SPUP_Clearance_2025_ABC123"] = &models.Submission{ID: "SPUP_Clearance_2025_ABC123", Name: "Juan"}
	cache := newFakeCache()
	svc := newSubmissionService(repo, newFakeBundleWriter(), cache, nil, SubmissionConfig{CacheEnabled: true, TrackingTTL: time.Minute})

	first, err := svc.Track(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)

	second, err := svc.Track(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls, "second lookup must be served from cache")
	assert.Equal(t, first.Name, second.Name)
}

func TestTrackUnknownCode(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeBundleWriter(), nil, nil, SubmissionConfig{})

	_, err := svc.Track(context.Background(), "SPUP_Clearance_2025_ZZZZZZ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, repo.getCalls)
}

func TestTrackSurfacesStoreOutage(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.getErr = fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused")
	svc := newSubmissionService(repo, newFakeBundleWriter(), nil, nil, SubmissionConfig{})

	_, err := svc.Track(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestListAppliesSearchAfterPushdown(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.listResult = []models.Submission{
		{ID: "SPUP_Clearance_2025_AAAAAA", Name: "Juan Dela Cruz"},
		{ID: "SPUP_Clearance_2025_BBBBBB", Name: "Maria Clara"},
	}
	svc := newSubmissionService(repo, newFakeBundleWriter(), nil, nil, SubmissionConfig{})

	got, err := svc.List(context.Background(), models.SubmissionFilter{SearchTerm: "maria"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SPUP_Clearance_2025_BBBBBB", got[0].ID)
}

func TestUpdateStatusAuditsAndInvalidates(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.records["SPUP_Clearance_2025_ABC123"] = &models.Submission{ID: "SPUP_Clearance_2025_ABC123", Status: models.StatusSubmitted}
	cache := newFakeCache()
	audit := &fakeAuditWriter{}
	svc := newSubmissionService(repo, newFakeBundleWriter(), cache, audit, SubmissionConfig{CacheEnabled: true})

	updated, err := svc.UpdateStatus(context.Background(), "SPUP_Clearance_2025_ABC123", dto.UpdateStatusRequest{Status: "Cleared"}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCleared, updated.Status)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStatusChange, audit.logs[0].Action)
	assert.Contains(t, cache.patterns, "track:SPUP_Clearance_2025_ABC123")
	assert.Contains(t, cache.patterns, "listing:*")
}

func TestUpdateStatusUnknownSubmission(t *testing.T) {
	svc := newSubmissionService(newFakeSubmissionRepo(), newFakeBundleWriter(), nil, nil, SubmissionConfig{})

	_, err := svc.UpdateStatus(context.Background(), "SPUP_Clearance_2025_ZZZZZZ", dto.UpdateStatusRequest{Status: "Cleared"}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateDetailsMergesFields(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.records["SPUP_Clearance_2025_ABC123"] = &models.Submission{ID: "SPUP_Clearance_2025_ABC123", Name: "Old Name", Course: "BSIT"}
	audit := &fakeAuditWriter{}
	svc := newSubmissionService(repo, newFakeBundleWriter(), nil, audit, SubmissionConfig{})

	name := "New Name"
	updated, err := svc.UpdateDetails(context.Background(), "SPUP_Clearance_2025_ABC123", dto.UpdateSubmissionRequest{Name: &name}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "BSIT", updated.Course, "absent fields stay untouched")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionDetailEdit, audit.logs[0].Action)
}

func TestSetAndClearExportLink(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.records["SPUP_Clearance_2025_ABC123"] = &models.Submission{ID: "SPUP_Clearance_2025_ABC123"}
	svc := newSubmissionService(repo, newFakeBundleWriter(), nil, nil, SubmissionConfig{})

	err := svc.SetExportLink(context.Background(), "SPUP_Clearance_2025_ABC123", dto.SetExportLinkRequest{URL: "https://drive.example.com/folder/1"}, Actor{})
	require.NoError(t, err)
	require.NotNil(t, repo.records["SPUP_Clearance_2025_ABC123"].ExportLink)

	err = svc.ClearExportLink(context.Background(), "SPUP_Clearance_2025_ABC123", Actor{})
	require.NoError(t, err)
	assert.Nil(t, repo.records["SPUP_Clearance_2025_ABC123"].ExportLink)
}
