// kimhwayoung collects YouTube videos and comments for a set of brands and
// computes their monthly share of voice.
//
// Commands: collect (default), report, charts, export, all.
// Configuration comes from .env, an optional BRANDS_FILE and the environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/chodoo86/kimhwayoung/internal/collector"
	"github.com/chodoo86/kimhwayoung/internal/engine"
	"github.com/chodoo86/kimhwayoung/internal/engine/report"
	"github.com/chodoo86/kimhwayoung/internal/engine/sources"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	slog.SetDefault(newLogger(env.Str("LOG_LEVEL", "info"), env.Str("LOG_FORMAT", "text")))

	command := "collect"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command); err != nil {
		slog.Error("command failed", slog.String("command", command), slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	cfg, err := engine.LoadConfig()
	if err != nil {
		return err
	}
	slog.Info("starting", slog.String("version", version), slog.String("command", command))

	switch command {
	case "collect":
		return collect(ctx, cfg)
	case "report":
		return writeReport(cfg, report.ExistingFigures(cfg.FiguresDir))
	case "charts":
		_, err := renderCharts(cfg)
		return err
	case "export":
		return exportWorkbook(cfg)
	case "all":
		if err := collect(ctx, cfg); err != nil {
			return err
		}
		figs, err := renderCharts(cfg)
		if err != nil {
			return err
		}
		if err := writeReport(cfg, figs); err != nil {
			return err
		}
		return exportWorkbook(cfg)
	default:
		return fmt.Errorf("unknown command %q (want collect, report, charts, export or all)", command)
	}
}

func collect(ctx context.Context, cfg engine.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	cache := engine.NewCache(ctx, cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries)
	defer cache.Close()

	yt, err := sources.NewYouTubeClient(ctx, cfg, cache)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := collector.New(cfg, yt, slog.Default()).Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("collect done",
		slog.Int("videos", len(res.Videos)),
		slog.Int("comments", len(res.Comments)),
		slog.Int("sov_rows", len(res.SoV)),
		slog.Duration("took", time.Since(start)),
		slog.String("metrics", engine.FormatMetrics()),
	)
	return nil
}

func loadDataset(cfg engine.Config) (report.Dataset, error) {
	ds, err := report.Load(cfg.OutputDir)
	if err != nil {
		return report.Dataset{}, err
	}
	if len(ds.Videos) == 0 {
		slog.Warn("no videos found, run collect first", slog.String("dir", cfg.OutputDir))
	}
	return ds, nil
}

func writeReport(cfg engine.Config, figs []report.Figure) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	if err := report.WriteMarkdown(cfg.ReportPath, ds, figs, time.Now()); err != nil {
		return err
	}
	slog.Info("report written", slog.String("path", cfg.ReportPath), slog.Int("figures", len(figs)))
	return nil
}

func renderCharts(cfg engine.Config) ([]report.Figure, error) {
	ds, err := loadDataset(cfg)
	if err != nil {
		return nil, err
	}
	font, err := report.LoadFont(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	figs, err := report.RenderCharts(ds, cfg.FiguresDir, font)
	if err != nil {
		return nil, err
	}
	slog.Info("charts rendered", slog.String("dir", cfg.FiguresDir), slog.Int("count", len(figs)))
	return figs, nil
}

func exportWorkbook(cfg engine.Config) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	if err := report.ExportWorkbook(cfg.WorkbookPath, ds); err != nil {
		return err
	}
	slog.Info("workbook exported", slog.String("path", cfg.WorkbookPath))
	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
