package engine

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// utf8BOM prefixes every CSV so spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

// MonthLayout is how MonthlySoV.Month is written.
const MonthLayout = "2006-01-02"

var (
	videoColumns = []string{
		"brand", "video_id", "channel_title", "title", "description",
		"published_at", "view_count", "like_count", "comment_count", "tags",
	}
	commentColumns = []string{
		"video_id", "comment_id", "author", "text", "like_count",
		"published_at", "updated_at", "brand",
	}
	sovColumns = []string{
		"month", "brand", "videos", "views", "likes", "comments",
		"sov_videos", "sov_views", "sov_likes", "sov_comments",
	}
)

// WriteVideosCSV writes the video table to path.
func WriteVideosCSV(path string, videos []VideoRecord) error {
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, []string{
			v.Brand,
			v.VideoID,
			v.ChannelTitle,
			v.Title,
			v.Description,
			formatTime(v.PublishedAt),
			formatUint(v.ViewCount),
			formatUint(v.LikeCount),
			formatUint(v.CommentCount),
			joinTags(v.Tags),
		})
	}
	return writeCSV(path, videoColumns, rows)
}

// WriteCommentsCSV writes the comment table to path.
func WriteCommentsCSV(path string, comments []CommentRecord) error {
	rows := make([][]string, 0, len(comments))
	for _, c := range comments {
		rows = append(rows, []string{
			c.VideoID,
			c.CommentID,
			c.Author,
			c.Text,
			formatUint(c.LikeCount),
			formatTime(c.PublishedAt),
			formatTime(c.UpdatedAt),
			c.Brand,
		})
	}
	return writeCSV(path, commentColumns, rows)
}

// WriteSoVCSV writes the monthly share-of-voice table to path.
func WriteSoVCSV(path string, sov []MonthlySoV) error {
	rows := make([][]string, 0, len(sov))
	for _, s := range sov {
		rows = append(rows, []string{
			s.Month.UTC().Format(MonthLayout),
			s.Brand,
			formatUint(s.Videos),
			formatUint(s.Views),
			formatUint(s.Likes),
			formatUint(s.Comments),
			formatFloat(s.SoVVideos),
			formatFloat(s.SoVViews),
			formatFloat(s.SoVLikes),
			formatFloat(s.SoVComments),
		})
	}
	return writeCSV(path, sovColumns, rows)
}

// ReadVideosCSV loads a video table. A missing file yields an empty table.
func ReadVideosCSV(path string) ([]VideoRecord, error) {
	tbl, err := readCSV(path)
	if err != nil || tbl == nil {
		return nil, err
	}
	out := make([]VideoRecord, 0, len(tbl.rows))
	for i := range tbl.rows {
		r := tbl.row(i)
		v := VideoRecord{
			Brand:        r.asString("brand"),
			VideoID:      r.asString("video_id"),
			ChannelTitle: r.asString("channel_title"),
			Title:        r.asString("title"),
			Description:  r.asString("description"),
			PublishedAt:  r.asTime("published_at"),
			ViewCount:    r.asUint("view_count"),
			LikeCount:    r.asUint("like_count"),
			CommentCount: r.asUint("comment_count"),
		}
		v.Tags = r.asTags("tags")
		if r.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, r.err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadCommentsCSV loads a comment table. A missing file yields an empty table.
func ReadCommentsCSV(path string) ([]CommentRecord, error) {
	tbl, err := readCSV(path)
	if err != nil || tbl == nil {
		return nil, err
	}
	out := make([]CommentRecord, 0, len(tbl.rows))
	for i := range tbl.rows {
		r := tbl.row(i)
		c := CommentRecord{
			VideoID:     r.asString("video_id"),
			CommentID:   r.asString("comment_id"),
			Author:      r.asString("author"),
			Text:        r.asString("text"),
			LikeCount:   r.asUint("like_count"),
			PublishedAt: r.asTime("published_at"),
			UpdatedAt:   r.asTime("updated_at"),
			Brand:       r.asString("brand"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, r.err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadSoVCSV loads a monthly share-of-voice table. A missing file yields an empty table.
func ReadSoVCSV(path string) ([]MonthlySoV, error) {
	tbl, err := readCSV(path)
	if err != nil || tbl == nil {
		return nil, err
	}
	out := make([]MonthlySoV, 0, len(tbl.rows))
	for i := range tbl.rows {
		r := tbl.row(i)
		s := MonthlySoV{
			Month:       r.asMonth("month"),
			Brand:       r.asString("brand"),
			Videos:      r.asUint("videos"),
			Views:       r.asUint("views"),
			Likes:       r.asUint("likes"),
			Comments:    r.asUint("comments"),
			SoVVideos:   r.asFloat("sov_videos"),
			SoVViews:    r.asFloat("sov_views"),
			SoVLikes:    r.asFloat("sov_likes"),
			SoVComments: r.asFloat("sov_comments"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, r.err)
		}
		out = append(out, s)
	}
	return out, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		f.Close()
		return err
	}
	w := csv.NewWriter(bw)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type csvTable struct {
	cols map[string]int
	rows [][]string
}

// readCSV returns nil, nil when path does not exist.
func readCSV(path string) (*csvTable, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	raw = bytes.TrimPrefix(raw, []byte(utf8BOM))

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	return &csvTable{cols: cols, rows: rows}, nil
}

func (t *csvTable) row(i int) *csvRow {
	return &csvRow{cols: t.cols, cells: t.rows[i]}
}

// csvRow decodes cells by column name. The first decode error sticks in err.
type csvRow struct {
	cols  map[string]int
	cells []string
	err   error
}

func (r *csvRow) asString(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

func (r *csvRow) asUint(col string) uint64 {
	s := strings.TrimSpace(r.asString(col))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		// tolerate "12.0" written by other tools
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f < 0 {
			r.fail(col, err)
			return 0
		}
		return uint64(f)
	}
	return n
}

func (r *csvRow) asFloat(col string) float64 {
	s := strings.TrimSpace(r.asString(col))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(col, err)
		return 0
	}
	return f
}

func (r *csvRow) asTags(col string) []string {
	tags, err := splitTags(r.asString(col))
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return tags
}

func (r *csvRow) asTime(col string) time.Time {
	s := strings.TrimSpace(r.asString(col))
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		r.fail(col, err)
		return time.Time{}
	}
	return t.UTC()
}

func (r *csvRow) asMonth(col string) time.Time {
	s := strings.TrimSpace(r.asString(col))
	if s == "" {
		return time.Time{}
	}
	if len(s) > len(MonthLayout) {
		s = s[:len(MonthLayout)]
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		r.fail(col, err)
		return time.Time{}
	}
	return MonthStart(t)
}

func (r *csvRow) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", col, err)
	}
}

// joinTags comma-joins tags. A tag holding a comma or quote is quoted CSV-style
// so splitTags gives it back unchanged.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(tags)
	w.Flush()
	return strings.TrimSuffix(sb.String(), "\n")
}

func splitTags(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	tags, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	return tags, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatUint(n uint64) string { return strconv.FormatUint(n, 10) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
