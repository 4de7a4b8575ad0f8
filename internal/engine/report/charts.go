package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
)

// Figure is one rendered chart and how the report describes it.
type Figure struct {
	Key   string
	Title string
	Path  string
	Note  string
}

// Chart file names inside the figures directory.
const (
	InterestFigure   = "interest_views.png"
	PreferenceFigure = "preference_rates.png"
	PerceptionFigure = "perception_comment_likes.png"
	SoVFigure        = "sov_views_over_time.png"
)

var figureInfo = []Figure{
	{Key: "interest", Path: InterestFigure, Title: "관심도(Interest): 총 조회수",
		Note: "조회수가 높을수록 더 넓은 도달과 관심을 의미합니다."},
	{Key: "preference", Path: PreferenceFigure, Title: "선호도(Preference): 1k뷰당 좋아요/댓글",
		Note: "같은 조회수 대비 높은 좋아요/댓글은 더 강한 선호/참여를 시사합니다."},
	{Key: "perception", Path: PerceptionFigure, Title: "인식(Perception): 상위 댓글 평균 좋아요",
		Note: "평균 좋아요가 높을수록 긍정적 반응 경향으로 해석할 수 있습니다(약한 프록시)."},
	{Key: "sov", Path: SoVFigure, Title: "월별 SoV(조회수)",
		Note: "월별 조회수 점유율 흐름으로 상대적 모멘텀을 파악합니다."},
}

// errNothingToPlot marks a chart skipped because its data is empty or flat.
var errNothingToPlot = errors.New("nothing to plot")

// LoadFont parses a TrueType font for chart labels. An empty path keeps the
// library default, which has no Hangul glyphs.
func LoadFont(path string) (*truetype.Font, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	font, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return font, nil
}

// RenderCharts draws the four report charts into dir and returns the ones written.
// Charts without data are skipped, not treated as errors.
func RenderCharts(ds Dataset, dir string, font *truetype.Font) ([]Figure, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create figures dir: %w", err)
	}

	renderers := map[string]func(string) error{
		"interest":   func(p string) error { return renderInterest(ds, p, font) },
		"preference": func(p string) error { return renderPreference(ds, p, font) },
		"perception": func(p string) error { return renderPerception(ds, p, font) },
		"sov":        func(p string) error { return renderSoV(ds, p, font) },
	}

	var out []Figure
	for _, fig := range figureInfo {
		path := filepath.Join(dir, fig.Path)
		err := renderers[fig.Key](path)
		if errors.Is(err, errNothingToPlot) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("render %s: %w", fig.Path, err)
		}
		fig.Path = path
		out = append(out, fig)
	}
	return out, nil
}

// ExistingFigures returns the report charts already present in dir.
func ExistingFigures(dir string) []Figure {
	var out []Figure
	for _, fig := range figureInfo {
		path := filepath.Join(dir, fig.Path)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			fig.Path = path
			out = append(out, fig)
		}
	}
	return out
}

func renderInterest(ds Dataset, path string, font *truetype.Font) error {
	var bars []chart.Value
	for _, r := range InterestByBrand(ds.Videos) {
		bars = append(bars, chart.Value{Label: r.Brand, Value: float64(r.Views)})
	}
	return saveBarChart(path, "관심도(Interest): 브랜드별 총 조회수", bars, font)
}

func renderPreference(ds Dataset, path string, font *truetype.Font) error {
	likeStyle := chart.Style{FillColor: chart.GetDefaultColor(0), StrokeColor: chart.GetDefaultColor(0)}
	commentStyle := chart.Style{FillColor: chart.GetDefaultColor(1), StrokeColor: chart.GetDefaultColor(1)}

	var bars []chart.Value
	for _, r := range PreferenceByBrand(ds.Videos) {
		bars = append(bars,
			chart.Value{Label: r.Brand + " likes/1k", Value: r.LikesPer1kViews, Style: likeStyle},
			chart.Value{Label: r.Brand + " comments/1k", Value: r.CommentsPer1kViews, Style: commentStyle})
	}
	return saveBarChart(path, "선호도(Preference): 1k뷰당 좋아요/댓글", bars, font)
}

func renderPerception(ds Dataset, path string, font *truetype.Font) error {
	var bars []chart.Value
	for _, r := range PerceptionByBrand(ds.Comments) {
		bars = append(bars, chart.Value{Label: r.Brand, Value: r.AvgCommentLikes})
	}
	return saveBarChart(path, "인식(Perception): 상위 댓글 평균 좋아요", bars, font)
}

func saveBarChart(path, title string, bars []chart.Value, font *truetype.Font) error {
	top := 0.0
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	if len(bars) == 0 || top == 0 {
		return errNothingToPlot
	}

	graph := chart.BarChart{
		Title:      title,
		Font:       font,
		Width:      max(640, 160*len(bars)),
		Height:     480,
		BarWidth:   60,
		Background: chart.Style{Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		// the default range starts at the smallest bar, which hides it
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1}},
		Bars:  bars,
	}
	return renderTo(path, func(f *os.File) error { return graph.Render(chart.PNG, f) })
}

func renderSoV(ds Dataset, path string, font *truetype.Font) error {
	byBrand := map[string][]int{}
	months := map[time.Time]struct{}{}
	for i, s := range ds.SoV {
		if s.Month.IsZero() {
			continue
		}
		byBrand[s.Brand] = append(byBrand[s.Brand], i)
		months[s.Month] = struct{}{}
	}
	// a single month has no x extent to draw a line over
	if len(months) < 2 {
		return errNothingToPlot
	}

	brands := make([]string, 0, len(byBrand))
	for b := range byBrand {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	var series []chart.Series
	for _, b := range brands {
		rows := byBrand[b]
		sort.Slice(rows, func(i, j int) bool { return ds.SoV[rows[i]].Month.Before(ds.SoV[rows[j]].Month) })
		ts := chart.TimeSeries{Name: b}
		for _, idx := range rows {
			ts.XValues = append(ts.XValues, ds.SoV[idx].Month)
			ts.YValues = append(ts.YValues, ds.SoV[idx].SoVViews)
		}
		series = append(series, ts)
	}

	graph := chart.Chart{
		Title:      "월별 SoV(조회수)",
		Font:       font,
		Width:      960,
		Height:     480,
		Background: chart.Style{Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: "월", ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01")},
		YAxis:      chart.YAxis{Name: "점유율", Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderTo(path, func(f *os.File) error { return graph.Render(chart.PNG, f) })
}

func renderTo(path string, draw func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := draw(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
