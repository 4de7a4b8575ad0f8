package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chodoo86/kimhwayoung/internal/engine"
)

const (
	defaultMaxRows = 20
	channelMaxRows = 30
	noData         = "(no data)"
)

// table is a header plus pre-formatted cells.
type table struct {
	headers []string
	rows    [][]string
}

// markdown renders t as a pipe table, or "(no data)" when it has no rows.
func (t table) markdown(maxRows int) string {
	if len(t.rows) == 0 {
		return noData
	}
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(t.headers, " | ") + " |\n")
	sep := make([]string, len(t.headers))
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |")
	for i, r := range t.rows {
		if i == maxRows {
			break
		}
		cells := make([]string, len(r))
		for j, c := range r {
			cells[j] = escapeCell(c)
		}
		sb.WriteString("\n| " + strings.Join(cells, " | ") + " |")
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func fmtUint(n uint64) string   { return strconv.FormatUint(n, 10) }
func fmtInt(n int) string       { return strconv.Itoa(n) }
func fmtFloat(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }

func brandAggregatesTable(rows []BrandAggregate) table {
	t := table{headers: []string{"brand", "videos", "views", "likes", "comments",
		"avg_views_per_video", "avg_likes_per_video", "avg_comments_per_video"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, fmtUint(r.Videos), fmtUint(r.Views), fmtUint(r.Likes), fmtUint(r.Comments),
			fmtFloat(r.AvgViews), fmtFloat(r.AvgLikes), fmtFloat(r.AvgComments)})
	}
	return t
}

func commentsByBrandTable(rows []BrandCount) table {
	t := table{headers: []string{"brand", "total_top_level_comments"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, fmtInt(r.Count)})
	}
	return t
}

func topChannelsTable(rows []ChannelCount) table {
	t := table{headers: []string{"brand", "channel_title", "video_count"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, r.Channel, fmtInt(r.VideoCount)})
	}
	return t
}

func latestSoVTable(rows []engine.MonthlySoV) table {
	t := table{headers: []string{"month", "brand", "videos", "views", "likes", "comments",
		"sov_videos", "sov_views", "sov_likes", "sov_comments"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Month.Format(engine.MonthLayout), r.Brand,
			fmtUint(r.Videos), fmtUint(r.Views), fmtUint(r.Likes), fmtUint(r.Comments),
			fmtFloat(r.SoVVideos), fmtFloat(r.SoVViews), fmtFloat(r.SoVLikes), fmtFloat(r.SoVComments)})
	}
	return t
}

func interestTable(rows []Interest) table {
	t := table{headers: []string{"brand", "videos", "views"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, fmtUint(r.Videos), fmtUint(r.Views)})
	}
	return t
}

func preferenceTable(rows []Preference) table {
	t := table{headers: []string{"brand", "likes_per_1k_views", "comments_per_1k_views"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, fmtFloat(r.LikesPer1kViews), fmtFloat(r.CommentsPer1kViews)})
	}
	return t
}

func perceptionTable(rows []Perception) table {
	t := table{headers: []string{"brand", "avg_comment_likes", "median_comment_likes", "total_top_level_comments"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, fmtFloat(r.AvgCommentLikes), fmtFloat(r.MedianCommentLikes), fmtInt(r.TotalComments)})
	}
	return t
}

func sovPercentTable(rows []SoVPercent) table {
	t := table{headers: []string{"brand", "sov_videos", "sov_views", "sov_likes", "sov_comments"}}
	for _, r := range rows {
		t.rows = append(t.rows, []string{r.Brand, fmtFloat(r.Videos), fmtFloat(r.Views), fmtFloat(r.Likes), fmtFloat(r.Comments)})
	}
	return t
}

// RenderMarkdown builds the full report. Figure links are made relative to baseDir,
// the directory the report is written to.
func RenderMarkdown(ds Dataset, figs []Figure, baseDir string, now time.Time) string {
	ts := now.Format("2006-01-02 15:04:05")
	var lines []string
	add := func(s ...string) { lines = append(lines, s...) }

	add("## YouTube 수집 데이터 분석", "", "- 생성시각: "+ts, "")
	add("### 분석 방법",
		"- videos: 브랜드별 영상수, 조회수/좋아요/댓글 합계 및 평균 산출",
		"- comments: 브랜드별 상위 댓글 수 합계",
		"- SoV: 월별 점유율 테이블에서 최신 월을 요약",
		"")
	add("### 브랜드별 핵심 지표", brandAggregatesTable(BrandAggregates(ds.Videos)).markdown(defaultMaxRows), "")
	add("### 브랜드별 상위 댓글 수", commentsByBrandTable(CommentsByBrand(ds.Comments)).markdown(defaultMaxRows), "")
	add("### 브랜드별 영상 업로드 상위 채널", topChannelsTable(TopChannels(ds.Videos)).markdown(channelMaxRows), "")
	add("### 최신 월 SoV 요약", latestSoVTable(LatestMonthSoV(ds.SoV)).markdown(defaultMaxRows), "")

	add("## 브랜드 관심도/선호도/인식 비교", "")
	add("### 방법",
		"- 관심도(Interest): 영상수, 총 조회수 (규모/도달력)",
		"- 선호도(Preference): likes/1k views, comments/1k views (참여율 정규화)",
		"- 인식(Perception): 상위 댓글의 평균/중앙 좋아요 (약한 긍정 반응 프록시)",
		"- SoV 최신 월: 조회수/영상/좋아요/댓글 점유율(%) 스냅샷",
		"")
	add("### 관심도 (Interest)", interestTable(InterestByBrand(ds.Videos)).markdown(defaultMaxRows), "")
	add("### 선호도 (Preference)", preferenceTable(PreferenceByBrand(ds.Videos)).markdown(defaultMaxRows), "")
	add("### 인식 (Perception) - 댓글 반응 프록시", perceptionTable(PerceptionByBrand(ds.Comments)).markdown(defaultMaxRows), "")
	add("### 최신 월 SoV (%)", sovPercentTable(LatestSoVPercent(ds.SoV)).markdown(defaultMaxRows), "")

	if len(figs) > 0 {
		add("## 시각화 결과", "")
		for _, fig := range figs {
			link := fig.Path
			if rel, err := filepath.Rel(baseDir, fig.Path); err == nil {
				link = rel
			}
			add("### "+fig.Title, fmt.Sprintf("![%s](%s)", fig.Key, filepath.ToSlash(link)), "- "+fig.Note, "")
		}
	}

	return strings.Join(lines, "\n")
}

// WriteMarkdown renders the report and writes it to path, replacing any previous report.
func WriteMarkdown(path string, ds Dataset, figs []Figure, now time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	body := RenderMarkdown(ds, figs, dir, now)
	if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
