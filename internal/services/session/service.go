package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
	"github.com/phambaophuc/thumbnail-creator/internal/services/archive"
	"github.com/phambaophuc/thumbnail-creator/internal/services/metrics"
	"go.uber.org/zap"
)

// BatchRunner renders an ordered set of sources. batch.Processor satisfies it.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, sources []models.SourceImage, settings models.ThumbnailSettings) ([]models.RenderResult, error)
}

// Batch is the outcome of one completed run for a session.
type Batch struct {
	SessionID string
	Settings  models.ThumbnailSettings
	Sources   []models.SourceImage
	Results   []models.RenderResult
}

// Archive is a packaged download.
type Archive struct {
	Filename string
	Data     []byte
	Batch    *Batch
}

type Options struct {
	Defaults     models.ThumbnailSettings
	MaxDimension int
}

type run struct {
	ctx        context.Context
	cancel     context.CancelFunc
	generation int64
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Service owns the per-user state in front of the batch processor. Every change
// to a session's sources or settings cancels the batch running for it, and a
// batch only stores its results if the session did not change meanwhile.
type Service struct {
	store        Store
	runner       BatchRunner
	defaults     models.ThumbnailSettings
	maxDimension int
	logger       *zap.Logger
	metrics      *metrics.Metrics

	// mu guards the maps only; store round-trips happen under the
	// session's own lock.
	mu      sync.Mutex
	running map[string]*run
	locks   map[string]*sessionLock
}

func NewService(store Store, runner BatchRunner, logger *zap.Logger, m *metrics.Metrics, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		runner:       runner,
		defaults:     opts.Defaults,
		maxDimension: opts.MaxDimension,
		logger:       logger,
		metrics:      m,
		running:      make(map[string]*run),
		locks:        make(map[string]*sessionLock),
	}
}

func (s *Service) Create(ctx context.Context) (*models.Session, error) {
	now := time.Now()
	sess := &models.Session{
		ID:        uuid.New().String(),
		Settings:  s.defaults,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Session created", zap.String("session_id", sess.ID))
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.store.Load(ctx, id)
}

// Delete cancels any running batch and forgets the session.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.store.Load(ctx, id); err != nil {
		return err
	}
	s.cancelRun(id)
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

// ReplaceSources swaps the selection. Every previous result is dropped.
func (s *Service) ReplaceSources(ctx context.Context, id string, sources []models.SourceImage) (*models.Session, error) {
	return s.mutate(ctx, id, func(sess *models.Session) error {
		sess.Sources = sources
		return nil
	})
}

// UpdateSettings applies a partial settings change. Every previous result is
// dropped.
func (s *Service) UpdateSettings(ctx context.Context, id string, patch models.SettingsPatch) (*models.Session, error) {
	return s.mutate(ctx, id, func(sess *models.Session) error {
		settings, err := sess.Settings.Apply(patch)
		if err != nil {
			return err
		}
		if err := settings.Validate(s.maxDimension); err != nil {
			return err
		}
		sess.Settings = settings
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}

	s.cancelRun(id)
	sess.ResetResults()
	sess.UpdatedAt = time.Now()

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// Generate runs a batch over the session's current sources and settings and
// stores the results. It returns models.ErrSuperseded when the session changed
// before the batch finished.
func (s *Service) Generate(ctx context.Context, id string) (*Batch, error) {
	sess, current, err := s.start(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.finish(id, current)

	results, err := s.runner.ProcessBatch(current.ctx, sess.Sources, sess.Settings)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil, models.ErrSuperseded
		}
		return nil, err
	}

	unlock := s.lock(id)
	defer unlock()

	latest, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if latest.Generation != current.generation {
		s.logger.Info("Discarding superseded batch results",
			zap.String("session_id", id),
			zap.Int64("generation", current.generation),
			zap.Int64("latest_generation", latest.Generation))
		return nil, models.ErrSuperseded
	}

	latest.Results = results
	latest.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, latest); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	return &Batch{
		SessionID: id,
		Settings:  sess.Settings,
		Sources:   sess.Sources,
		Results:   results,
	}, nil
}

// start bumps the session's generation, cancels the batch running for it and
// registers a new one.
func (s *Service) start(ctx context.Context, id string) (*models.Session, *run, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if len(sess.Sources) == 0 {
		return nil, nil, models.ErrNoImages
	}

	s.cancelRun(id)
	sess.ResetResults()
	sess.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	current := &run{ctx: runCtx, cancel: cancel, generation: sess.Generation}

	s.mu.Lock()
	s.running[id] = current
	s.mu.Unlock()
	return sess, current, nil
}

// Archive re-runs the batch, which also refreshes the stored previews, and
// packages the successful thumbnails.
func (s *Service) Archive(ctx context.Context, id string) (*Archive, error) {
	b, err := s.Generate(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.pack(b)
	if err != nil {
		return nil, err
	}

	return &Archive{
		Filename: archive.Filename(b.Settings),
		Data:     data,
		Batch:    b,
	}, nil
}

// ArchiveSources renders and packages sources without a session.
func (s *Service) ArchiveSources(ctx context.Context, sources []models.SourceImage, settings models.ThumbnailSettings) (*Archive, error) {
	if len(sources) == 0 {
		return nil, models.ErrNoImages
	}

	results, err := s.runner.ProcessBatch(ctx, sources, settings)
	if err != nil {
		return nil, err
	}

	b := &Batch{Settings: settings, Sources: sources, Results: results}
	data, err := s.pack(b)
	if err != nil {
		return nil, err
	}

	return &Archive{
		Filename: archive.Filename(settings),
		Data:     data,
		Batch:    b,
	}, nil
}

// Result returns the stored outcome for one source of the last completed batch.
func (s *Service) Result(ctx context.Context, id string, index int) (models.SourceImage, models.RenderResult, error) {
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return models.SourceImage{}, models.RenderResult{}, err
	}
	if index < 0 || index >= len(sess.Results) || index >= len(sess.Sources) {
		return models.SourceImage{}, models.RenderResult{}, models.ErrPreviewNotFound
	}
	return sess.Sources[index], sess.Results[index], nil
}

func (s *Service) HealthCheck(ctx context.Context) string {
	if err := s.store.Ping(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

func (s *Service) pack(b *Batch) ([]byte, error) {
	entries := archive.Entries(b.Sources, b.Results, b.Settings.Format)

	data, err := archive.Pack(entries)
	switch {
	case errors.Is(err, models.ErrEmptyArchive):
		s.metrics.ObserveArchive(metrics.ArchiveEmpty, 0)
		s.logger.Warn("No thumbnails could be generated for download",
			zap.String("session_id", b.SessionID),
			zap.Int("images", len(b.Sources)))
		return nil, err
	case err != nil:
		s.metrics.ObserveArchive(metrics.ArchiveFailed, 0)
		return nil, err
	}

	s.metrics.ObserveArchive(metrics.ArchivePacked, len(data))
	s.logger.Info("Archive packaged",
		zap.String("session_id", b.SessionID),
		zap.Int("entries", len(entries)),
		zap.Int("bytes", len(data)))
	return data, nil
}

// lock serializes the load-modify-save cycles of one session. Other sessions
// are not blocked.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) cancelRun(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.running[id]; ok {
		r.cancel()
		delete(s.running, id)
	}
}

func (s *Service) finish(id string, r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.cancel()
	if s.running[id] == r {
		delete(s.running, id)
	}
}
