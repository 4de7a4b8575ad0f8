package collector

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chodoo86/kimhwayoung/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/youtube/v3"
)

type fakeVideo struct {
	title, desc string
	published   string
	views       uint64
}

// fakeSource serves canned search results, details and comments.
type fakeSource struct {
	search      map[string][]string  // query → video ids
	videos      map[string]fakeVideo // id → details; absent ids are "deleted"
	comments    map[string]int       // id → number of comments
	searchErr   error
	detailCalls [][]string
	commentIDs  []string
}

func (f *fakeSource) SearchVideos(_ context.Context, query string) ([]*youtube.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []*youtube.SearchResult
	for _, id := range f.search[query] {
		out = append(out, &youtube.SearchResult{Id: &youtube.ResourceId{Kind: "youtube#video", VideoId: id}})
	}
	return out, nil
}

func (f *fakeSource) VideoDetails(_ context.Context, ids []string) ([]*youtube.Video, error) {
	f.detailCalls = append(f.detailCalls, ids)
	var out []*youtube.Video
	for _, id := range ids {
		v, ok := f.videos[id]
		if !ok {
			continue
		}
		out = append(out, &youtube.Video{
			Id:         id,
			Snippet:    &youtube.VideoSnippet{Title: v.title, Description: v.desc, PublishedAt: v.published, ChannelTitle: "ch"},
			Statistics: &youtube.VideoStatistics{ViewCount: v.views},
		})
	}
	return out, nil
}

func (f *fakeSource) TopLevelComments(_ context.Context, videoID string, limit int) ([]engine.CommentRecord, error) {
	f.commentIDs = append(f.commentIDs, videoID)
	n := min(f.comments[videoID], limit)
	out := make([]engine.CommentRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, engine.CommentRecord{VideoID: videoID, CommentID: videoID + "-" + string(rune('a'+i))})
	}
	return out, nil
}

func testConfig(t *testing.T) engine.Config {
	return engine.Config{
		APIKey:              "k",
		Brands:              []string{"A", "B"},
		MaxCommentsPerVideo: 2,
		OutputDir:           t.TempDir(),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFake() *fakeSource {
	return &fakeSource{
		search: map[string][]string{
			"A": {"v1", "v2", "v1", "gone"},
			"B": {"v2", "v3"},
		},
		videos: map[string]fakeVideo{
			"v1": {title: "A review", published: "2024-03-05T00:00:00Z", views: 100},
			"v2": {title: "B beats A", desc: "", published: "2024-03-10T00:00:00Z", views: 300},
			"v3": {title: "nothing", published: "2024-04-01T00:00:00Z", views: 50},
		},
		comments: map[string]int{"v1": 5, "v2": 1, "v3": 0, "gone": 1},
	}
}

func TestCollectAttributionAndDedup(t *testing.T) {
	src := newFake()
	c := New(testConfig(t), src, quietLogger())

	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	brands := map[string]string{}
	for _, v := range res.Videos {
		brands[v.VideoID] = v.Brand
	}
	// v2 mentions both brands; A is first in the list
	assert.Equal(t, map[string]string{"v1": "A", "v2": "A", "v3": "B"}, brands)
	assert.Len(t, res.Videos, 3, "a video found under two brands yields one row")

	// v1 deduped within A, v2 skipped under B
	assert.Equal(t, [][]string{{"v1", "v2", "gone"}, {"v3"}}, src.detailCalls)
	assert.Equal(t, []string{"v1", "v2", "gone", "v3"}, src.commentIDs)
}

func TestCollectCommentBrands(t *testing.T) {
	c := New(testConfig(t), newFake(), quietLogger())

	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	perVideo := map[string]int{}
	for _, cm := range res.Comments {
		perVideo[cm.VideoID]++
		switch cm.VideoID {
		case "gone":
			assert.Equal(t, "", cm.Brand, "comment of a video missing from details keeps an empty brand")
		default:
			assert.Equal(t, "A", cm.Brand)
		}
	}
	assert.Equal(t, map[string]int{"v1": 2, "v2": 1, "gone": 1}, perVideo, "comments capped per video")
}

func TestCollectSoV(t *testing.T) {
	c := New(testConfig(t), newFake(), quietLogger())

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.SoV, 2)

	march := res.SoV[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), march.Month)
	assert.Equal(t, "A", march.Brand)
	assert.Equal(t, uint64(2), march.Videos)
	assert.InDelta(t, 1.0, march.SoVViews, 1e-12)

	april := res.SoV[1]
	assert.Equal(t, "B", april.Brand)
	assert.Equal(t, uint64(50), april.Views)
}

func TestRunWritesCSVs(t *testing.T) {
	cfg := testConfig(t)
	c := New(cfg, newFake(), quietLogger())

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	for _, name := range []string{engine.VideosFile, engine.CommentsFile, engine.SoVFile} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, name)
	}

	videos, err := engine.ReadVideosCSV(cfg.OutputPath(engine.VideosFile))
	require.NoError(t, err)
	assert.Len(t, videos, 3)

	comments, err := engine.ReadCommentsCSV(cfg.OutputPath(engine.CommentsFile))
	require.NoError(t, err)
	assert.Len(t, comments, 4)
}

func TestRunFailsWithoutWriting(t *testing.T) {
	cfg := testConfig(t)
	src := newFake()
	src.searchErr = errors.New("boom")

	_, err := New(cfg, src, quietLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand A")

	_, statErr := os.Stat(cfg.OutputPath(engine.VideosFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewVideoIDs(t *testing.T) {
	seen := map[string]struct{}{"old": {}}
	items := []*youtube.SearchResult{
		{Id: &youtube.ResourceId{VideoId: "x"}},
		{Id: &youtube.ResourceId{VideoId: "old"}},
		{Id: &youtube.ResourceId{VideoId: "x"}},
		{Id: nil},
		{Id: &youtube.ResourceId{VideoId: "y"}},
	}

	ids, skipped := newVideoIDs(items, seen)
	assert.Equal(t, []string{"x", "y"}, ids)
	assert.Equal(t, 1, skipped)
	assert.Contains(t, seen, "x")
	assert.Contains(t, seen, "y")
}

func TestRunIDDistinct(t *testing.T) {
	a := New(testConfig(t), newFake(), nil)
	b := New(testConfig(t), newFake(), nil)
	assert.NotEqual(t, a.RunID(), b.RunID())
}
