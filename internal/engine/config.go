package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"gopkg.in/yaml.v3"
)

// Output file names consumed by the report stage.
const (
	VideosFile   = "youtube_videos.csv"
	CommentsFile = "youtube_comments.csv"
	SoVFile      = "youtube_monthly_sov.csv"
)

// DefaultBrands is the brand keyword list used when neither BRANDS nor BRANDS_FILE is set.
var DefaultBrands = []string{"배달의민족", "요기요", "쿠팡이츠"}

var (
	// ErrMissingAPIKey is returned by Validate when no YouTube API key is configured.
	ErrMissingAPIKey = errors.New("missing YOUTUBE_API_KEY in environment")
	ErrNoBrands      = errors.New("no brand keywords configured")
)

// Config holds everything a collection or report run needs.
// Built once in main and passed to every component.
type Config struct {
	APIKey          string
	Brands          []string
	PublishedAfter  time.Time
	PublishedBefore time.Time

	SearchPageSize      int
	MaxSearchPages      int
	MaxCommentsPerVideo int
	SleepBetweenCalls   time.Duration
	RelevanceLanguage   string
	RegionCode          string

	Retry RetryConfig

	RedisURL        string
	CacheTTL        time.Duration
	CacheMaxEntries int

	OutputDir    string
	ReportPath   string
	FiguresDir   string
	WorkbookPath string
	FontPath     string // TrueType font for chart labels; empty = library default
}

// brandsFile is the optional YAML file pointed to by BRANDS_FILE.
type brandsFile struct {
	Brands []string `yaml:"brands"`
	Window struct {
		PublishedAfter  string `yaml:"published_after"`
		PublishedBefore string `yaml:"published_before"`
	} `yaml:"window"`
}

// LoadConfig builds a Config from defaults, the optional BRANDS_FILE and the environment,
// in that order of precedence (later wins).
func LoadConfig() (Config, error) {
	c := Config{
		Brands:              DefaultBrands,
		PublishedAfter:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PublishedBefore:     time.Now().UTC().Truncate(time.Hour),
		SearchPageSize:      50,
		MaxSearchPages:      10,
		MaxCommentsPerVideo: 500,
		SleepBetweenCalls:   100 * time.Millisecond,
		RelevanceLanguage:   "ko",
		RegionCode:          "KR",
		Retry:               DefaultRetryConfig,
		CacheTTL:            6 * time.Hour,
		CacheMaxEntries:     5000,
		OutputDir:           "data",
		ReportPath:          "ANALYSIS.md",
		FiguresDir:          "figures",
		WorkbookPath:        "powerbi_youtube_data.xlsx",
	}

	if path := env.Str("BRANDS_FILE", ""); path != "" {
		if err := c.applyBrandsFile(path); err != nil {
			return Config{}, err
		}
	}

	c.APIKey = env.Str("YOUTUBE_API_KEY", "")
	if brands := cleanList(env.List("BRANDS", "")); len(brands) > 0 {
		c.Brands = brands
	}
	if raw := env.Str("PUBLISHED_AFTER", ""); raw != "" {
		t, err := parseWindow("PUBLISHED_AFTER", raw)
		if err != nil {
			return Config{}, err
		}
		c.PublishedAfter = t
	}
	if raw := env.Str("PUBLISHED_BEFORE", ""); raw != "" {
		t, err := parseWindow("PUBLISHED_BEFORE", raw)
		if err != nil {
			return Config{}, err
		}
		c.PublishedBefore = t
	}

	c.SearchPageSize = env.Int("SEARCH_PAGE_SIZE", c.SearchPageSize)
	c.MaxSearchPages = env.Int("MAX_SEARCH_PAGES_PER_BRAND", c.MaxSearchPages)
	c.MaxCommentsPerVideo = env.Int("MAX_COMMENTS_PER_VIDEO", c.MaxCommentsPerVideo)
	sleep := env.Float("SLEEP_BETWEEN_CALLS", c.SleepBetweenCalls.Seconds())
	c.SleepBetweenCalls = time.Duration(sleep * float64(time.Second))
	c.RelevanceLanguage = env.Str("RELEVANCE_LANGUAGE", c.RelevanceLanguage)
	c.RegionCode = env.Str("REGION_CODE", c.RegionCode)

	c.Retry.MaxRetries = env.Int("RETRY_MAX_RETRIES", c.Retry.MaxRetries)
	c.Retry.InitialWait = env.Duration("RETRY_INITIAL_WAIT", c.Retry.InitialWait)
	c.Retry.MaxWait = env.Duration("RETRY_MAX_WAIT", c.Retry.MaxWait)

	c.RedisURL = env.Str("REDIS_URL", "")
	c.CacheTTL = env.Duration("CACHE_TTL", c.CacheTTL)
	c.CacheMaxEntries = env.Int("CACHE_MAX_ENTRIES", c.CacheMaxEntries)

	c.OutputDir = env.Str("OUTPUT_DIR", c.OutputDir)
	c.ReportPath = env.Str("REPORT_PATH", c.ReportPath)
	c.FiguresDir = env.Str("FIGURES_DIR", c.FiguresDir)
	c.WorkbookPath = env.Str("WORKBOOK_PATH", c.WorkbookPath)
	c.FontPath = env.Str("FIGURE_FONT", "")

	return c, nil
}

func (c *Config) applyBrandsFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read brands file: %w", err)
	}
	var f brandsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse brands file: %w", err)
	}
	if brands := cleanList(f.Brands); len(brands) > 0 {
		c.Brands = brands
	}
	if f.Window.PublishedAfter != "" {
		t, err := parseWindow("published_after", f.Window.PublishedAfter)
		if err != nil {
			return err
		}
		c.PublishedAfter = t
	}
	if f.Window.PublishedBefore != "" {
		t, err := parseWindow("published_before", f.Window.PublishedBefore)
		if err != nil {
			return err
		}
		c.PublishedBefore = t
	}
	return nil
}

// Validate checks the settings a collection run cannot start without.
// It never touches the network.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if len(c.Brands) == 0 {
		return ErrNoBrands
	}
	if !c.PublishedBefore.After(c.PublishedAfter) {
		return fmt.Errorf("published window is empty: %s >= %s",
			c.PublishedAfter.Format(time.RFC3339), c.PublishedBefore.Format(time.RFC3339))
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > 50 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be between 1 and 50, got %d", c.SearchPageSize)
	}
	if c.MaxSearchPages < 1 {
		return fmt.Errorf("MAX_SEARCH_PAGES_PER_BRAND must be >= 1, got %d", c.MaxSearchPages)
	}
	if c.MaxCommentsPerVideo < 0 {
		return fmt.Errorf("MAX_COMMENTS_PER_VIDEO must be >= 0, got %d", c.MaxCommentsPerVideo)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.InitialWait < 0 || c.Retry.MaxWait < 0 {
		return fmt.Errorf("retry waits must be >= 0, got %s / %s", c.Retry.InitialWait, c.Retry.MaxWait)
	}
	return nil
}

// OutputPath joins name onto the CSV output directory.
func (c Config) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}

func parseWindow(name, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected RFC 3339 timestamp: %w", name, err)
	}
	return t.UTC(), nil
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
