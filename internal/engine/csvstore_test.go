package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteVideosCSVFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", VideosFile)
	videos := []VideoRecord{{
		Brand:        "요기요",
		VideoID:      "abc",
		ChannelTitle: "채널",
		Title:        `quoted "title", with comma`,
		Description:  "line1\nline2",
		PublishedAt:  time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
		ViewCount:    10,
		LikeCount:    2,
		CommentCount: 1,
		Tags:         []string{"배달", "쿠폰"},
	}}
	require.NoError(t, WriteVideosCSV(path, videos))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(raw)
	assert.True(t, strings.HasPrefix(s, "\ufeffbrand,video_id,channel_title,title,description,published_at,view_count,like_count,comment_count,tags\n"))
	assert.Contains(t, s, "2024-03-05T09:30:00Z")
	assert.Contains(t, s, `"배달,쿠폰"`)

	back, err := ReadVideosCSV(path)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, videos[0], back[0])
}

func TestVideosCSVTagsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tags []string
	}{
		{"plain", []string{"배달", "쿠폰"}},
		{"comma inside tag", []string{"배달, 음식", "쿠폰"}},
		{"quote inside tag", []string{`"광고"`, "리뷰"}},
		{"single", []string{"요기요"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), VideosFile)
			require.NoError(t, WriteVideosCSV(path, []VideoRecord{{Brand: "A", VideoID: "v1", Tags: tt.tags}}))

			back, err := ReadVideosCSV(path)
			require.NoError(t, err)
			require.Len(t, back, 1)
			assert.Equal(t, tt.tags, back[0].Tags)
		})
	}
}

func TestSplitTagsPlainList(t *testing.T) {
	tags, err := splitTags("a,b,c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tags)
	assert.Equal(t, "a,b,c", joinTags(tags))

	tags, err = splitTags("")
	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestCommentsCSVEmptyBrand(t *testing.T) {
	path := filepath.Join(t.TempDir(), CommentsFile)
	comments := []CommentRecord{
		{VideoID: "v1", CommentID: "c1", Author: "a", Text: "좋아요", LikeCount: 3,
			PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Brand: "A"},
		{VideoID: "v9", CommentID: "c2", Author: "b", Text: "", LikeCount: 0},
	}
	require.NoError(t, WriteCommentsCSV(path, comments))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimPrefix(string(raw), "\ufeff"), "\n")
	assert.Equal(t, "video_id,comment_id,author,text,like_count,published_at,updated_at,brand", lines[0])

	back, err := ReadCommentsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, comments, back)
}

func TestSoVCSVMonthFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), SoVFile)
	rows := []MonthlySoV{{
		Month: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Brand: "A",
		Videos: 1, Views: 100, SoVVideos: 0.5, SoVViews: 0.25,
	}}
	require.NoError(t, WriteSoVCSV(path, rows))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2024-03-01,A,1,100,0,0,0.5,0.25,0,0")

	back, err := ReadSoVCSV(path)
	require.NoError(t, err)
	assert.Equal(t, rows, back)
}

func TestReadMissingCSV(t *testing.T) {
	dir := t.TempDir()

	videos, err := ReadVideosCSV(filepath.Join(dir, "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, videos)

	comments, err := ReadCommentsCSV(filepath.Join(dir, "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, comments)

	sov, err := ReadSoVCSV(filepath.Join(dir, "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, sov)
}

func TestReadCSVToleratesForeignNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), VideosFile)
	data := "brand,video_id,view_count,published_at\nA,v1,12.0,2024-02-03T04:05:06+09:00\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	back, err := ReadVideosCSV(path)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, uint64(12), back[0].ViewCount)
	assert.Equal(t, time.Date(2024, 2, 2, 19, 5, 6, 0, time.UTC), back[0].PublishedAt)
	assert.Nil(t, back[0].Tags)
}

func TestReadCSVBadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), VideosFile)
	require.NoError(t, os.WriteFile(path, []byte("brand,video_id,view_count\nA,v1,lots\n"), 0o644))

	_, err := ReadVideosCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view_count")
}
