package batch

import (
	"context"
	"time"

	"github.com/phambaophuc/thumbnail-creator/internal/models"
	"github.com/phambaophuc/thumbnail-creator/internal/services/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 5

// Renderer turns one source into one result. processor.ImageProcessor
// satisfies it.
type Renderer interface {
	Render(src models.SourceImage, settings models.ThumbnailSettings) models.RenderResult
	Supports(format models.Format) error
}

type Options struct {
	Workers      int
	MaxDimension int
}

type Processor struct {
	renderer     Renderer
	workers      int
	maxDimension int
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewProcessor(renderer Renderer, logger *zap.Logger, m *metrics.Metrics, opts Options) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	return &Processor{
		renderer:     renderer,
		workers:      opts.Workers,
		maxDimension: opts.MaxDimension,
		logger:       logger,
		metrics:      m,
	}
}

// ProcessBatch renders every source with the same settings. The result slice
// has one entry per source, in input order. A failing item never aborts the
// batch; only invalid settings, a missing encoder, or cancellation of ctx
// return an error, and in that case no results are returned.
func (p *Processor) ProcessBatch(ctx context.Context, sources []models.SourceImage, settings models.ThumbnailSettings) ([]models.RenderResult, error) {
	if err := settings.Validate(p.maxDimension); err != nil {
		p.metrics.ObserveBatch(metrics.BatchInvalid, len(sources))
		return nil, err
	}
	if p.renderer == nil {
		p.metrics.ObserveBatch(metrics.BatchUnsupported, len(sources))
		return nil, models.ErrUnsupportedContext
	}
	if err := p.renderer.Supports(settings.Format); err != nil {
		p.metrics.ObserveBatch(metrics.BatchUnsupported, len(sources))
		p.logger.Error("Failed to process one or more images",
			zap.String("format", string(settings.Format)),
			zap.Error(err))
		return nil, err
	}

	results := make([]models.RenderResult, len(sources))
	if len(sources) == 0 {
		p.metrics.ObserveBatch(metrics.BatchCompleted, 0)
		return results, nil
	}

	numWorkers := p.workers
	if len(sources) < numWorkers {
		numWorkers = len(sources)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)

	for i := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.render(i, sources[i], settings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, p.canceled(err, len(sources))
	}
	if err := ctx.Err(); err != nil {
		return nil, p.canceled(err, len(sources))
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	p.metrics.ObserveBatch(metrics.BatchCompleted, len(sources))
	p.logger.Info("Batch completed",
		zap.Int("images", len(sources)),
		zap.Int("failed", failed),
		zap.Int("workers", numWorkers),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}

func (p *Processor) render(index int, src models.SourceImage, settings models.ThumbnailSettings) models.RenderResult {
	start := time.Now()
	result := p.renderer.Render(src, settings)
	elapsed := time.Since(start)

	p.metrics.ObserveRender(string(result.Status), elapsed)

	if result.OK() {
		p.logger.Debug("Thumbnail rendered",
			zap.Int("index", index),
			zap.String("name", src.Name),
			zap.Int("size", len(result.Data)),
			zap.Duration("duration", elapsed))
	} else {
		p.logger.Warn("Failed to generate thumbnail",
			zap.Int("index", index),
			zap.String("name", src.Name),
			zap.Error(result.Err))
	}

	return result
}

func (p *Processor) canceled(err error, size int) error {
	p.metrics.ObserveBatch(metrics.BatchCanceled, size)
	p.logger.Info("Batch canceled", zap.Int("images", size), zap.Error(err))
	return err
}
