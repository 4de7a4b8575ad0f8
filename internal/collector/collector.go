// Package collector runs the per-brand YouTube collection pipeline:
// search → video details → comments → brand attribution → monthly SoV → CSV.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chodoo86/kimhwayoung/internal/engine"
	"github.com/chodoo86/kimhwayoung/internal/engine/sources"
	"github.com/google/uuid"
	"google.golang.org/api/youtube/v3"
)

// slowBrandThreshold triggers a slow-operation warning for one brand.
const slowBrandThreshold = 10 * time.Minute

// VideoSource is the API surface the pipeline needs. *sources.YouTubeClient implements it.
type VideoSource interface {
	SearchVideos(ctx context.Context, query string) ([]*youtube.SearchResult, error)
	VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error)
	TopLevelComments(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error)
}

var _ VideoSource = (*sources.YouTubeClient)(nil)

// Result holds the three output tables of one run.
type Result struct {
	Videos   []engine.VideoRecord
	Comments []engine.CommentRecord
	SoV      []engine.MonthlySoV
}

// Collector processes brands one after another with a single VideoSource.
type Collector struct {
	cfg   engine.Config
	src   VideoSource
	log   *slog.Logger
	runID string
}

// New creates a Collector. Every log line carries a fresh run_id.
func New(cfg engine.Config, src VideoSource, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	return &Collector{
		cfg:   cfg,
		src:   src,
		log:   logger.With(slog.String("run_id", runID)),
		runID: runID,
	}
}

// RunID identifies this run in logs.
func (c *Collector) RunID() string { return c.runID }

// Run collects every configured brand and writes the three CSV files.
// Nothing is written unless collection finishes for all brands.
func (c *Collector) Run(ctx context.Context) (Result, error) {
	res, err := c.Collect(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := WriteResult(c.cfg, res); err != nil {
		return Result{}, err
	}
	c.log.Info("collector: saved",
		slog.String("videos", c.cfg.OutputPath(engine.VideosFile)),
		slog.String("comments", c.cfg.OutputPath(engine.CommentsFile)),
		slog.String("sov", c.cfg.OutputPath(engine.SoVFile)))
	return res, nil
}

// Collect runs the pipeline in memory and returns the labelled tables.
func (c *Collector) Collect(ctx context.Context) (Result, error) {
	var res Result
	seen := make(map[string]struct{})

	for _, brand := range c.cfg.Brands {
		err := engine.TrackOperation(ctx, "brand:"+brand, slowBrandThreshold, func(ctx context.Context) error {
			return c.collectBrand(ctx, brand, seen, &res)
		})
		if err != nil {
			return Result{}, fmt.Errorf("brand %s: %w", brand, err)
		}
	}

	lookup := engine.NewBrandLookup(res.Videos)
	res.Comments = lookup.Label(res.Comments)
	res.SoV = engine.AggregateMonthlySoV(res.Videos)

	c.log.Info("collector: done",
		slog.Int("brands", len(c.cfg.Brands)),
		slog.Int("videos", len(res.Videos)),
		slog.Int("comments", len(res.Comments)),
		slog.Int("sov_rows", len(res.SoV)))
	return res, nil
}

func (c *Collector) collectBrand(ctx context.Context, brand string, seen map[string]struct{}, res *Result) error {
	log := c.log.With(slog.String("brand", brand))
	log.Info("collector: searching videos")

	items, err := c.src.SearchVideos(ctx, brand)
	if err != nil {
		return err
	}
	ids, skipped := newVideoIDs(items, seen)
	if skipped > 0 {
		log.Info("collector: skipping videos found under an earlier brand", slog.Int("skipped", skipped))
	}

	details, err := c.src.VideoDetails(ctx, ids)
	if err != nil {
		return err
	}
	for _, v := range details {
		if v == nil {
			continue
		}
		title, desc := "", ""
		if v.Snippet != nil {
			title, desc = v.Snippet.Title, v.Snippet.Description
		}
		rowBrand := engine.AttributeVideo(title, desc, brand, c.cfg.Brands)
		res.Videos = append(res.Videos, sources.VideoRecord(v, rowBrand))
	}

	log.Info("collector: fetching comments",
		slog.Int("videos", len(ids)),
		slog.Int("max_per_video", c.cfg.MaxCommentsPerVideo))

	comments := 0
	for i, id := range ids {
		cs, err := c.src.TopLevelComments(ctx, id, c.cfg.MaxCommentsPerVideo)
		if err != nil {
			return err
		}
		res.Comments = append(res.Comments, cs...)
		comments += len(cs)
		if (i+1)%25 == 0 {
			log.Debug("collector: comment progress", slog.Int("done", i+1), slog.Int("total", len(ids)))
		}
	}

	log.Info("collector: brand done",
		slog.Int("search_results", len(items)),
		slog.Int("details", len(details)),
		slog.Int("comments", comments))
	return nil
}

// newVideoIDs returns the ids of items not yet in seen, in search order, and
// marks them seen. skipped counts ids already claimed by an earlier brand.
func newVideoIDs(items []*youtube.SearchResult, seen map[string]struct{}) (ids []string, skipped int) {
	local := make(map[string]struct{})
	for _, it := range items {
		if it == nil || it.Id == nil || it.Id.VideoId == "" {
			continue
		}
		id := it.Id.VideoId
		if _, dup := local[id]; dup {
			continue
		}
		local[id] = struct{}{}
		if _, ok := seen[id]; ok {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return ids, skipped
}

// WriteResult persists the three tables under cfg.OutputDir.
func WriteResult(cfg engine.Config, res Result) error {
	if err := engine.WriteVideosCSV(cfg.OutputPath(engine.VideosFile), res.Videos); err != nil {
		return fmt.Errorf("write videos: %w", err)
	}
	if err := engine.WriteCommentsCSV(cfg.OutputPath(engine.CommentsFile), res.Comments); err != nil {
		return fmt.Errorf("write comments: %w", err)
	}
	if err := engine.WriteSoVCSV(cfg.OutputPath(engine.SoVFile), res.SoV); err != nil {
		return fmt.Errorf("write monthly sov: %w", err)
	}
	return nil
}
