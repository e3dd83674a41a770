package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spup-cprint/clearance-api/internal/models"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/storage"
)

type fakeExportRepo struct {
	records  map[string]*models.Submission
	markErrs map[string]error
	getErr   error
	marked   []string
}

func newFakeExportRepo() *fakeExportRepo {
	return &fakeExportRepo{
		records:  make(map[string]*models.Submission),
		markErrs: make(map[string]error),
	}
}

func (f *fakeExportRepo) GetByID(_ context.Context, id string) (*models.Submission, error) {
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

func (f *fakeExportRepo) ListExportable(_ context.Context) ([]models.Submission, error) {
	out := make([]models.Submission, 0, len(f.records))
	for _, sub := range f.records {
		if sub.Status == models.StatusCleared && !sub.IsExported {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeExportRepo) MarkExported(_ context.Context, id string, exported bool, exportedAt time.Time) error {
	if err, ok := f.markErrs[id]; ok {
		return err
	}
	sub, ok := f.records[id]
	if !ok {
		return fmt.Errorf("no row")
	}
	sub.IsExported = exported
	sub.ExportedAt = &exportedAt
	f.marked = append(f.marked, id)
	return nil
}

type exportFixture struct {
	repo   *fakeExportRepo
	store  *storage.BundleStore
	svc    *ExportService
	sleeps []time.Duration
}

func newExportFixture(t *testing.T) *exportFixture {
	store, err := storage.NewBundleStore(t.TempDir())
	require.NoError(t, err)

	repo := newFakeExportRepo()
	signer := storage.NewSignedURLSigner("test-secret", 30*time.Minute)
	svc := NewExportService(repo, store, nil, nil, signer, ExportServiceConfig{
		APIPrefix:   "/api/v1",
		FirstDelay:  time.Second,
		SteadyDelay: 2 * time.Second,
	}, nil)

	fx := &exportFixture{repo: repo, store: store, svc: svc}
	svc.sleep = func(d time.Duration) { fx.sleeps = append(fx.sleeps, d) }
	return fx
}

func (fx *exportFixture) seed(t *testing.T, id string, status models.Status, exported bool) *models.Submission {
	key := "submissions/" + id + ".zip"
	if !exported {
		_, err := fx.store.Save(key, []byte("zip payload for "+id))
		require.NoError(t, err)
	}
	sub := &models.Submission{
		ID:      id,
		Name:    "Juan Dela Cruz",
		Status:  status,
		ZipFile: key,
		// Exported submissions keep the key but the bundle is gone.
		IsExported: exported,
	}
	fx.repo.records[id] = sub
	return sub
}

func TestPrepareDownloadIssuesSignedLink(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)

	item, err := fx.svc.PrepareDownload(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.NoError(t, err)
	assert.Equal(t, "SPUP_Clearance_2025_ABC123", item.ID)
	assert.Equal(t, "SPUP_Clearance_2025_ABC123.zip", item.FileName)
	assert.Contains(t, item.URL, "/api/v1/bundles/SPUP_Clearance_2025_ABC123/download?token=")
	assert.True(t, item.ExpiresAt.After(time.Now()))
}

func TestPrepareDownloadRefusesExported(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, true)

	_, err := fx.svc.PrepareDownload(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyExported.Code, appErrors.FromError(err).Code)
}

func TestPrepareDownloadMissingBundle(t *testing.T) {
	fx := newExportFixture(t)
	sub := fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)
	require.NoError(t, fx.store.Delete(sub.ZipFile))

	_, err := fx.svc.PrepareDownload(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveDownloadRoundTrip(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)

	item, err := fx.svc.PrepareDownload(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.NoError(t, err)

	token := item.URL[len("/api/v1/bundles/SPUP_Clearance_2025_ABC123/download?token="):]
	file, name, err := fx.svc.ResolveDownload(context.Background(), "SPUP_Clearance_2025_ABC123", token)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, "SPUP_Clearance_2025_ABC123.zip", name)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "zip payload for SPUP_Clearance_2025_ABC123", string(data))
}

func TestResolveDownloadRejectsForeignToken(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)
	fx.seed(t, "SPUP_Clearance_2025_DDDDDD", models.StatusCleared, false)

	item, err := fx.svc.PrepareDownload(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.NoError(t, err)
	token := item.URL[len("/api/v1/bundles/SPUP_Clearance_2025_ABC123/download?token="):]

	_, _, err = fx.svc.ResolveDownload(context.Background(), "SPUP_Clearance_2025_DDDDDD", token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestConfirmExportDeletesBundleAndMarks(t *testing.T) {
	fx := newExportFixture(t)
	sub := fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)

	updated, err := fx.svc.ConfirmExport(context.Background(), "SPUP_Clearance_2025_ABC123", Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.True(t, updated.IsExported)
	require.NotNil(t, updated.ExportedAt)
	assert.False(t, fx.store.Exists(sub.ZipFile))
	assert.Equal(t, []string{"SPUP_Clearance_2025_ABC123"}, fx.repo.marked)
}

func TestConfirmExportIdempotencyGuard(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)

	_, err := fx.svc.ConfirmExport(context.Background(), "SPUP_Clearance_2025_ABC123", Actor{})
	require.NoError(t, err)

	_, err = fx.svc.ConfirmExport(context.Background(), "SPUP_Clearance_2025_ABC123", Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyExported.Code, appErrors.FromError(err).Code)
}

func TestConfirmExportSurvivesMissingBundle(t *testing.T) {
	fx := newExportFixture(t)
	sub := fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)
	require.NoError(t, fx.store.Delete(sub.ZipFile))

	// The administrator already downloaded the bundle; a missing file must
	// not block the record from being flagged exported.
	updated, err := fx.svc.ConfirmExport(context.Background(), "SPUP_Clearance_2025_ABC123", Actor{})
	require.NoError(t, err)
	assert.True(t, updated.IsExported)
}

func TestPrepareDownloadSurfacesStoreOutage(t *testing.T) {
	fx := newExportFixture(t)
	fx.repo.getErr = fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused")

	_, err := fx.svc.PrepareDownload(context.Background(), "SPUP_Clearance_2025_ABC123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestConfirmExportMarkFailureSurfacesStoreOutage(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_ABC123", models.StatusCleared, false)
	fx.repo.markErrs["SPUP_Clearance_2025_ABC123"] = fmt.Errorf("write: broken pipe")

	_, err := fx.svc.ConfirmExport(context.Background(), "SPUP_Clearance_2025_ABC123", Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestPrepareBulkDownloadPacing(t *testing.T) {
	fx := newExportFixture(t)
	ids := []string{"SPUP_Clearance_2025_AAAAAA", "SPUP_Clearance_2025_BBBBBB", "SPUP_Clearance_2025_CCCCCC"}
	for _, id := range ids {
		fx.seed(t, id, models.StatusCleared, false)
	}

	result, err := fx.svc.PrepareBulkDownload(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 3, result.Attempted)
	assert.Len(t, result.Items, 3)

	// No delay before the first item, then a short settle, then steady pacing.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fx.sleeps)
}

func TestPrepareBulkDownloadSkipsFailures(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_AAAAAA", models.StatusCleared, false)
	fx.seed(t, "SPUP_Clearance_2025_BBBBBB", models.StatusCleared, true)

	result, err := fx.svc.PrepareBulkDownload(context.Background(), []string{
		"SPUP_Clearance_2025_AAAAAA",
		"SPUP_Clearance_2025_BBBBBB",
		"SPUP_Clearance_2025_ZZZZZZ",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 3, result.Attempted)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "SPUP_Clearance_2025_AAAAAA", result.Items[0].ID)
}

func TestPrepareBulkDownloadEmptySelection(t *testing.T) {
	fx := newExportFixture(t)
	_, err := fx.svc.PrepareBulkDownload(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBulkMarkExportedPartitionsOutcomes(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_AAAAAA", models.StatusCleared, false)
	fx.seed(t, "SPUP_Clearance_2025_BBBBBB", models.StatusCleared, false)
	fx.repo.markErrs["SPUP_Clearance_2025_BBBBBB"] = fmt.Errorf("db down")
	fx.seed(t, "SPUP_Clearance_2025_CCCCCC", models.StatusCleared, true)

	result, err := fx.svc.BulkMarkExported(context.Background(), []string{
		"SPUP_Clearance_2025_AAAAAA",
		"SPUP_Clearance_2025_BBBBBB",
		"SPUP_Clearance_2025_CCCCCC",
		"SPUP_Clearance_2025_ZZZZZZ",
	}, Actor{UserID: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"SPUP_Clearance_2025_AAAAAA"}, result.Success)
	assert.ElementsMatch(t, []string{
		"SPUP_Clearance_2025_BBBBBB",
		"SPUP_Clearance_2025_CCCCCC",
		"SPUP_Clearance_2025_ZZZZZZ",
	}, result.Failed)
}

func TestListExportableFiltersExported(t *testing.T) {
	fx := newExportFixture(t)
	fx.seed(t, "SPUP_Clearance_2025_AAAAAA", models.StatusCleared, false)
	fx.seed(t, "SPUP_Clearance_2025_BBBBBB", models.StatusCleared, true)
	fx.seed(t, "SPUP_Clearance_2025_CCCCCC", models.StatusSubmitted, false)

	records, err := fx.svc.ListExportable(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SPUP_Clearance_2025_AAAAAA", records[0].ID)
}
