package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetVideos       = "videos"
	SheetComments     = "comments"
	SheetMonthlySoV   = "monthly_sov"
	SheetBrandSummary = "brand_summary"
)

const excelDateFormat = "yyyy-mm-dd"

// sheet is one worksheet: header row, data rows and the 0-based columns holding dates.
type sheet struct {
	name     string
	headers  []string
	rows     [][]any
	dateCols []int
}

// ExportWorkbook writes the three tables plus a brand summary to an .xlsx file.
// The brand summary sheet is only added when there are videos.
func ExportWorkbook(path string, ds Dataset) error {
	sheets := []sheet{videosSheet(ds), commentsSheet(ds), sovSheet(ds)}
	if len(ds.Videos) > 0 {
		sheets = append(sheets, brandSummarySheet(ds))
	}

	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(excelDateFormat)})
	if err != nil {
		return fmt.Errorf("date style: %w", err)
	}

	for n, sh := range sheets {
		if n == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("add sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh, dateStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workbook dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh sheet, dateStyle int) error {
	header := make([]any, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return err
	}
	for r, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
			return err
		}
	}
	if len(sh.rows) == 0 {
		return nil
	}
	for _, col := range sh.dateCols {
		top, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(col+1, len(sh.rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sh.name, top, bottom, dateStyle); err != nil {
			return err
		}
	}
	return nil
}

func videosSheet(ds Dataset) sheet {
	sh := sheet{
		name: SheetVideos,
		headers: []string{"brand", "video_id", "channel_title", "title", "description",
			"published_at", "view_count", "like_count", "comment_count", "tags"},
		dateCols: []int{5},
	}
	for _, v := range ds.Videos {
		sh.rows = append(sh.rows, []any{v.Brand, v.VideoID, v.ChannelTitle, v.Title, v.Description,
			excelTime(v.PublishedAt), v.ViewCount, v.LikeCount, v.CommentCount, strings.Join(v.Tags, ",")})
	}
	return sh
}

func commentsSheet(ds Dataset) sheet {
	sh := sheet{
		name: SheetComments,
		headers: []string{"video_id", "comment_id", "author", "text", "like_count",
			"published_at", "updated_at", "brand"},
		dateCols: []int{5, 6},
	}
	for _, c := range ds.Comments {
		sh.rows = append(sh.rows, []any{c.VideoID, c.CommentID, c.Author, c.Text, c.LikeCount,
			excelTime(c.PublishedAt), excelTime(c.UpdatedAt), c.Brand})
	}
	return sh
}

func sovSheet(ds Dataset) sheet {
	sh := sheet{
		name: SheetMonthlySoV,
		headers: []string{"month", "brand", "videos", "views", "likes", "comments",
			"sov_videos", "sov_views", "sov_likes", "sov_comments"},
		dateCols: []int{0},
	}
	for _, s := range ds.SoV {
		sh.rows = append(sh.rows, []any{excelTime(s.Month), s.Brand, s.Videos, s.Views, s.Likes, s.Comments,
			s.SoVVideos, s.SoVViews, s.SoVLikes, s.SoVComments})
	}
	return sh
}

func brandSummarySheet(ds Dataset) sheet {
	sh := sheet{
		name:    SheetBrandSummary,
		headers: []string{"brand", "videos", "views", "likes", "comments"},
	}
	for _, a := range BrandAggregates(ds.Videos) {
		sh.rows = append(sh.rows, []any{a.Brand, a.Videos, a.Views, a.Likes, a.Comments})
	}
	return sh
}

// excelTime drops the zone so Excel shows the UTC wall clock. Zero times become blank cells.
func excelTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), 0, time.UTC)
}

func strPtr(s string) *string { return &s }
