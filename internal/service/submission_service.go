package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spup-cprint/clearance-api/internal/dto"
	"github.com/spup-cprint/clearance-api/internal/models"
	"github.com/spup-cprint/clearance-api/internal/repository"
	"github.com/spup-cprint/clearance-api/pkg/archive"
	appErrors "github.com/spup-cprint/clearance-api/pkg/errors"
	"github.com/spup-cprint/clearance-api/pkg/tracking"
)

const (
	bundleKeyPrefix     = "submissions/"
	trackingCachePrefix = "track:"
	listingCachePrefix  = "listing:"
)

type submissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	UpdateDetails(ctx context.Context, id string, update models.SubmissionUpdate) error
	UpdateStatus(ctx context.Context, id string, status models.Status) error
	SetExportLink(ctx context.Context, id, url string) error
	ClearExportLink(ctx context.Context, id string) error
}

type submissionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type bundleWriter interface {
	Save(key string, data []byte) (string, error)
	Delete(key string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Actor identifies the administrator behind a mutation, for the audit trail.
type Actor struct {
	UserID    string
	IP        string
	UserAgent string
}

// SubmissionConfig tunes intake and caching behaviour.
type SubmissionConfig struct {
	CacheEnabled      bool
	TrackingTTL       time.Duration
	ListingTTL        time.Duration
	MaxCreateAttempts int
}

// SubmissionService implements public intake and tracking plus the admin
// review operations over submission records.
type SubmissionService struct {
	repo      submissionRepository
	cache     submissionCache
	store     bundleWriter
	audit     auditWriter
	generator *tracking.Generator
	namer     archive.Namer
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       SubmissionConfig
}

// WithMetrics attaches optional instrumentation.
func (s *SubmissionService) WithMetrics(m *MetricsService) *SubmissionService {
	s.metrics = m
	return s
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(repo submissionRepository, cache submissionCache, store bundleWriter, audit auditWriter, generator *tracking.Generator, namer archive.Namer, validate *validator.Validate, logger *zap.Logger, cfg SubmissionConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if generator == nil {
		generator = tracking.NewGenerator()
	}
	if namer == nil {
		namer = archive.IDNamer
	}
	if cfg.MaxCreateAttempts <= 0 {
		cfg.MaxCreateAttempts = 3
	}
	return &SubmissionService{
		repo:      repo,
		cache:     cache,
		store:     store,
		audit:     audit,
		generator: generator,
		namer:     namer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Submit accepts a new clearance submission: it bundles the uploaded
// documents into a zip, stores the bundle, then creates the record under a
// freshly generated tracking code. The bundle is written before the record
// so a visible record always has its bundle; on a tracking-code collision
// the orphaned bundle is removed and the whole sequence retried with a new
// code.
func (s *SubmissionService) Submit(ctx context.Context, req dto.CreateSubmissionRequest, docs map[archive.DocumentKey]archive.File) (*dto.SubmitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	for _, key := range archive.RequiredDocuments {
		if file, ok := docs[key]; !ok || file.Content == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required document %s", key))
		}
	}

	members, err := parseGroupMembers(req.GroupMembers, models.Level(req.Level))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group members payload")
	}

	payload, err := archive.Build(ctx, docs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build submission bundle")
	}
	s.metrics.ObserveBundleWrite(len(payload))

	for attempt := 0; attempt < s.cfg.MaxCreateAttempts; attempt++ {
		id := s.generator.Generate()
		key := bundleKeyPrefix + s.namer(id, req.Name)

		if _, err := s.store.Save(key, payload); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store submission bundle")
		}

		sub := &models.Submission{
			ID:              id,
			Level:           models.Level(req.Level),
			Name:            req.Name,
			Email:           req.Email,
			StudentID:       req.StudentID,
			Adviser:         req.Adviser,
			Course:          req.Course,
			GraduationMonth: req.GraduationMonth,
			GraduationYear:  req.GraduationYear,
			ResearchTitle:   req.ResearchTitle,
			ResearchType:    models.ResearchType(req.ResearchType),
			GroupMembers:    members,
			ZipFile:         key,
		}

		if err := s.repo.Create(ctx, sub); err != nil {
			if cleanupErr := s.store.Delete(key); cleanupErr != nil {
				s.logger.Warn("failed to remove bundle after create failure",
					zap.String("key", key), zap.Error(cleanupErr))
			}
			if errors.Is(err, repository.ErrDuplicateID) {
				s.logger.Info("tracking code collision, retrying", zap.String("id", id))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create submission")
		}

		s.invalidateListings(ctx)
		s.logger.Info("submission created",
			zap.String("id", id), zap.String("level", req.Level), zap.String("bundle", key))
		return &dto.SubmitResponse{ID: id}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "could not allocate a unique tracking code")
}

// Track resolves a tracking code to its submission. A malformed code is
// answered as not found without touching the store; the format is public
// and anything outside it cannot exist.
func (s *SubmissionService) Track(ctx context.Context, id string) (*models.Submission, error) {
	if !tracking.Validate(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}

	cacheKey := trackingCachePrefix + id
	if s.cacheEnabled() {
		var cached models.Submission
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load submission")
	}
	if sub == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, cacheKey, sub, s.cfg.TrackingTTL); err != nil {
			s.logger.Warn("failed to cache tracking lookup", zap.String("id", id), zap.Error(err))
		}
	}
	return sub, nil
}

// Get loads one submission for admin use. Unlike Track, it accepts any id
// and surfaces absence as not found.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load submission")
	}
	if sub == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return sub, nil
}

// List returns submissions for the admin dashboard. Level, status and
// course are pushed down to the store; the free-text term filters the
// result set in memory so partial matches work across fields. Only the
// pushdown portion is cached since the search term is high-cardinality.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	cacheKey := listingCacheKey(filter)
	if s.cacheEnabled() {
		var cached []models.Submission
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return ApplySearch(cached, filter.SearchTerm), nil
		}
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list submissions")
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, cacheKey, records, s.cfg.ListingTTL); err != nil {
			s.logger.Warn("failed to cache submission listing", zap.Error(err))
		}
	}
	return ApplySearch(records, filter.SearchTerm), nil
}

// UpdateDetails applies a partial edit to a submission's descriptive
// fields and returns the updated record.
func (s *SubmissionService) UpdateDetails(ctx context.Context, id string, req dto.UpdateSubmissionRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	update := models.SubmissionUpdate{
		Name:            req.Name,
		Email:           req.Email,
		StudentID:       req.StudentID,
		Adviser:         req.Adviser,
		Course:          req.Course,
		GraduationMonth: req.GraduationMonth,
		GraduationYear:  req.GraduationYear,
		ResearchTitle:   req.ResearchTitle,
		GroupMembers:    req.GroupMembers,
	}
	if req.ResearchType != nil {
		rt := models.ResearchType(*req.ResearchType)
		update.ResearchType = &rt
	}
	if req.Level != nil {
		lvl := models.Level(*req.Level)
		update.Level = &lvl
	}

	if err := s.repo.UpdateDetails(ctx, id, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update submission")
	}

	s.invalidateSubmission(ctx, id)
	s.emitAudit(ctx, actor, models.AuditActionDetailEdit, id, req)
	return s.Get(ctx, id)
}

// UpdateStatus switches the review status and returns the updated record.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.Status(req.Status)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update submission status")
	}

	s.invalidateSubmission(ctx, id)
	s.emitAudit(ctx, actor, models.AuditActionStatusChange, id, req)
	return s.Get(ctx, id)
}

// SetExportLink attaches an external reference recorded after export.
func (s *SubmissionService) SetExportLink(ctx context.Context, id string, req dto.SetExportLinkRequest, actor Actor) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export link payload")
	}

	if err := s.repo.SetExportLink(ctx, id, req.URL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to set export link")
	}

	s.invalidateSubmission(ctx, id)
	s.emitAudit(ctx, actor, models.AuditActionExportLink, id, req)
	return nil
}

// ClearExportLink removes the external reference entirely.
func (s *SubmissionService) ClearExportLink(ctx context.Context, id string, actor Actor) error {
	if err := s.repo.ClearExportLink(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to clear export link")
	}

	s.invalidateSubmission(ctx, id)
	s.emitAudit(ctx, actor, models.AuditActionExportLink, id, map[string]string{"url": ""})
	return nil
}

func (s *SubmissionService) cacheEnabled() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}

func (s *SubmissionService) invalidateSubmission(ctx context.Context, id string) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, trackingCachePrefix+id); err != nil {
		s.logger.Warn("failed to invalidate tracking cache", zap.String("id", id), zap.Error(err))
	}
	s.invalidateListings(ctx)
}

func (s *SubmissionService) invalidateListings(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, listingCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}

func (s *SubmissionService) emitAudit(ctx context.Context, actor Actor, action models.AuditAction, resourceID string, payload interface{}) {
	emitAudit(ctx, s.audit, s.logger, actor, action, resourceID, payload)
}

func emitAudit(ctx context.Context, audit auditWriter, logger *zap.Logger, actor Actor, action models.AuditAction, resourceID string, payload interface{}) {
	if audit == nil {
		return
	}
	values, err := json.Marshal(payload)
	if err != nil {
		values = nil
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "submission",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		log.UserID = &actor.UserID
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", string(action)), zap.Error(err))
	}
}

func listingCacheKey(filter models.SubmissionFilter) string {
	level := filter.Level
	if level == "" {
		level = models.FilterAll
	}
	status := filter.Status
	if status == "" {
		status = models.FilterAll
	}
	course := filter.Course
	if course == "" {
		course = models.FilterAll
	}
	return fmt.Sprintf("%s%s:%s:%s", listingCachePrefix, level, status, course)
}

// parseGroupMembers decodes the JSON-encoded member list from the intake
// form. Graduate submissions never carry members; an empty or absent list
// normalizes to nil so the field disappears from stored and returned
// records.
func parseGroupMembers(raw string, level models.Level) (models.GroupMembers, error) {
	if level == models.LevelGrad || raw == "" {
		return nil, nil
	}
	var members models.GroupMembers
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members, nil
}
