package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spup-cprint/clearance-api/internal/dto"
	"github.com/spup-cprint/clearance-api/internal/models"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/storage"
)

type exportSubmissionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	ListExportable(ctx context.Context) ([]models.Submission, error)
	MarkExported(ctx context.Context, id string, exported bool, exportedAt time.Time) error
}

type bundleReader interface {
	Open(key string) (*os.File, error)
	Exists(key string) bool
	Delete(key string) error
}

// ExportServiceConfig tunes download link construction and bulk pacing.
type ExportServiceConfig struct {
	APIPrefix   string
	FirstDelay  time.Duration
	SteadyDelay time.Duration
}

// ExportService drives the bundle export lifecycle: preparing signed
// download links, confirming exports (which deletes the bundle and flips
// the exported flag), and the bulk variants of both.
type ExportService struct {
	repo    exportSubmissionRepository
	store   bundleReader
	cache   submissionCache
	audit   auditWriter
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	metrics *MetricsService
	cfg     ExportServiceConfig
	sleep   func(time.Duration)
}

// WithMetrics attaches optional instrumentation.
func (s *ExportService) WithMetrics(m *MetricsService) *ExportService {
	s.metrics = m
	return s
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportSubmissionRepository, store bundleReader, cache submissionCache, audit auditWriter, signer *storage.SignedURLSigner, cfg ExportServiceConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FirstDelay <= 0 {
		cfg.FirstDelay = time.Second
	}
	if cfg.SteadyDelay <= 0 {
		cfg.SteadyDelay = 2 * time.Second
	}
	return &ExportService{
		repo:   repo,
		store:  store,
		cache:  cache,
		audit:  audit,
		signer: signer,
		logger: logger,
		cfg:    cfg,
		sleep:  time.Sleep,
	}
}

// ListExportable returns cleared submissions whose bundle is still held.
func (s *ExportService) ListExportable(ctx context.Context) ([]models.Submission, error) {
	records, err := s.repo.ListExportable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list exportable submissions")
	}
	return records, nil
}

// PrepareDownload issues a signed, time-limited download link for one
// submission's bundle. Already-exported submissions are refused; their
// bundle no longer exists.
func (s *ExportService) PrepareDownload(ctx context.Context, id string) (*dto.DownloadItem, error) {
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.IsExported {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExported, "")
	}
	if !s.store.Exists(sub.ZipFile) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission bundle is missing")
	}

	token, expiresAt, err := s.signer.Generate(sub.ID, sub.ZipFile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &dto.DownloadItem{
		ID:        sub.ID,
		FileName:  path.Base(sub.ZipFile),
		URL:       s.downloadURL(sub.ID, token),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a download token and opens the referenced
// bundle. The token binds submission id and bundle key; both must still
// match the stored record so a stale token cannot reach a re-uploaded or
// foreign bundle.
func (s *ExportService) ResolveDownload(ctx context.Context, id, token string) (*os.File, string, error) {
	tokenID, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	if tokenID != id {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "token does not match submission")
	}

	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if sub.IsExported || sub.ZipFile != key {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "submission bundle is missing")
	}

	file, err := s.store.Open(key)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "submission bundle is missing")
	}
	return file, path.Base(key), nil
}

// ConfirmExport completes the export handshake for one submission: the
// stored bundle is deleted and the record flagged exported. Bundle deletion
// is best effort; a failure there must not leave the record unexported,
// since the administrator already holds the downloaded copy.
func (s *ExportService) ConfirmExport(ctx context.Context, id string, actor Actor) (*models.Submission, error) {
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.IsExported {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExported, "")
	}

	if err := s.store.Delete(sub.ZipFile); err != nil {
		s.logger.Warn("failed to delete exported bundle",
			zap.String("id", id), zap.String("key", sub.ZipFile), zap.Error(err))
	}

	now := time.Now().UTC()
	if err := s.repo.MarkExported(ctx, id, true, now); err != nil {
		s.metrics.ObserveExport("confirm", false)
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to mark submission exported")
	}

	s.metrics.ObserveExport("confirm", true)
	s.invalidate(ctx, id)
	s.emitAudit(ctx, actor, models.AuditActionExportConfirm, id, map[string]interface{}{"isExported": true})

	sub.IsExported = true
	sub.ExportedAt = &now
	return sub, nil
}

// PrepareBulkDownload issues download links for a batch of submissions,
// sequentially and deliberately paced so a browser can keep up with the
// resulting download burst. Individual failures are skipped; the result
// reports how many links were actually produced.
func (s *ExportService) PrepareBulkDownload(ctx context.Context, ids []string) (*dto.BulkDownloadResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no submissions selected")
	}

	result := &dto.BulkDownloadResult{
		Items:     make([]dto.DownloadItem, 0, len(ids)),
		Attempted: len(ids),
	}

	for i, id := range ids {
		if i == 1 {
			s.sleep(s.cfg.FirstDelay)
		} else if i > 1 {
			s.sleep(s.cfg.SteadyDelay)
		}
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk download cancelled")
		}

		item, err := s.PrepareDownload(ctx, id)
		if err != nil {
			s.logger.Warn("skipping submission in bulk download", zap.String("id", id), zap.Error(err))
			continue
		}
		result.Items = append(result.Items, *item)
		result.Succeeded++
	}
	return result, nil
}

// BulkMarkExported confirms a batch of exports, partitioning ids by
// outcome. The record write decides the partition: bundle deletion stays
// best effort exactly as in the single confirm.
func (s *ExportService) BulkMarkExported(ctx context.Context, ids []string, actor Actor) (*dto.BulkMarkResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no submissions selected")
	}

	result := &dto.BulkMarkResult{
		Success: make([]string, 0, len(ids)),
		Failed:  make([]string, 0),
	}
	now := time.Now().UTC()

	for _, id := range ids {
		sub, err := s.loadSubmission(ctx, id)
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		if sub.IsExported {
			result.Failed = append(result.Failed, id)
			continue
		}

		if err := s.store.Delete(sub.ZipFile); err != nil {
			s.logger.Warn("failed to delete exported bundle",
				zap.String("id", id), zap.String("key", sub.ZipFile), zap.Error(err))
		}
		if err := s.repo.MarkExported(ctx, id, true, now); err != nil {
			s.logger.Warn("failed to mark submission exported", zap.String("id", id), zap.Error(err))
			s.metrics.ObserveExport("bulk_mark", false)
			result.Failed = append(result.Failed, id)
			continue
		}
		s.metrics.ObserveExport("bulk_mark", true)
		result.Success = append(result.Success, id)
		s.invalidate(ctx, id)
	}

	s.emitAudit(ctx, actor, models.AuditActionBulkExport, strings.Join(result.Success, ","), result)
	return result, nil
}

func (s *ExportService) loadSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load submission")
	}
	if sub == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return sub, nil
}

func (s *ExportService) downloadURL(id, token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/bundles/%s/download?token=%s", prefix, id, token)
}

func (s *ExportService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, trackingCachePrefix+id); err != nil {
		s.logger.Warn("failed to invalidate tracking cache", zap.String("id", id), zap.Error(err))
	}
	if err := s.cache.DeleteByPattern(ctx, listingCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}

func (s *ExportService) emitAudit(ctx context.Context, actor Actor, action models.AuditAction, resourceID string, payload interface{}) {
	emitAudit(ctx, s.audit, s.logger, actor, action, resourceID, payload)
}
