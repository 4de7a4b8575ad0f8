package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chodoo86/kimhwayoung/internal/engine"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube Data API v3 wrappers: paginated search, batched video details and
// top-level comments. Every call goes through the pacer, the retry policy and
// the response cache.

const (
	ytVideoKind       = "youtube#video"
	ytVideoBatchSize  = 50  // videos.list id limit
	ytCommentPageSize = 100 // commentThreads.list maxResults limit
)

// YouTubeClient talks to the YouTube Data API for one collection run.
type YouTubeClient struct {
	svc   *youtube.Service
	cfg   engine.Config
	pacer *engine.Pacer
	cache *engine.Cache
}

// NewYouTubeClient builds a client authenticated with cfg.APIKey.
// Extra options are appended, so tests can point the client at a fake endpoint.
// cache may be nil.
func NewYouTubeClient(ctx context.Context, cfg engine.Config, cache *engine.Cache, opts ...option.ClientOption) (*YouTubeClient, error) {
	all := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTubeClient{
		svc:   svc,
		cfg:   cfg,
		pacer: engine.NewPacer(cfg.SleepBetweenCalls),
		cache: cache,
	}, nil
}

// SearchVideos pages through search results for query inside the configured
// publish window. It stops when a page has no continuation token or after
// MaxSearchPages pages. Only youtube#video results are returned.
func (c *YouTubeClient) SearchVideos(ctx context.Context, query string) ([]*youtube.SearchResult, error) {
	var (
		items []*youtube.SearchResult
		token string
	)

	for page := 0; page < c.cfg.MaxSearchPages; page++ {
		resp, err := c.searchPage(ctx, query, token)
		if err != nil {
			return nil, fmt.Errorf("search %q page %d: %w", query, page+1, err)
		}
		for _, it := range resp.Items {
			if it == nil || it.Id == nil || it.Id.Kind != ytVideoKind || it.Id.VideoId == "" {
				continue
			}
			items = append(items, it)
		}

		slog.Debug("youtube: search page",
			slog.String("query", query),
			slog.Int("page", page+1),
			slog.Int("items", len(resp.Items)))

		token = resp.NextPageToken
		if token == "" {
			break
		}
	}
	return items, nil
}

func (c *YouTubeClient) searchPage(ctx context.Context, query, token string) (*youtube.SearchListResponse, error) {
	after := c.cfg.PublishedAfter.UTC().Format(time.RFC3339)
	before := c.cfg.PublishedBefore.UTC().Format(time.RFC3339)
	key := engine.CacheKey("search", query, after, before,
		strconv.Itoa(c.cfg.SearchPageSize), c.cfg.RelevanceLanguage, c.cfg.RegionCode, token)
	if resp, ok := engine.LoadJSON[*youtube.SearchListResponse](ctx, c.cache, key); ok && resp != nil {
		return resp, nil
	}

	resp, err := engine.RetryDo(ctx, c.cfg.Retry, func() (*youtube.SearchListResponse, error) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.svc.Search.List([]string{"id", "snippet"}).
			Q(query).
			Type("video").
			Order("relevance").
			MaxResults(int64(c.cfg.SearchPageSize)).
			PublishedAfter(after).
			PublishedBefore(before).
			Context(ctx)
		if c.cfg.RelevanceLanguage != "" {
			call = call.RelevanceLanguage(c.cfg.RelevanceLanguage)
		}
		if c.cfg.RegionCode != "" {
			call = call.RegionCode(c.cfg.RegionCode)
		}
		if token != "" {
			call = call.PageToken(token)
		}
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	engine.IncrSearchPages()
	engine.StoreJSON(ctx, c.cache, key, resp)
	return resp, nil
}

// VideoDetails fetches snippet and statistics for ids in batches of 50.
// Deleted or private videos are simply absent from the result.
func (c *YouTubeClient) VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	var out []*youtube.Video
	for start := 0; start < len(ids); start += ytVideoBatchSize {
		end := min(start+ytVideoBatchSize, len(ids))
		batch, err := c.videoBatch(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("video details batch %d-%d: %w", start, end, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *YouTubeClient) videoBatch(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	key := engine.CacheKey(append([]string{"videos"}, ids...)...)
	if items, ok := engine.LoadJSON[[]*youtube.Video](ctx, c.cache, key); ok {
		return items, nil
	}

	resp, err := engine.RetryDo(ctx, c.cfg.Retry, func() (*youtube.VideoListResponse, error) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return c.svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(ids...).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, err
	}

	engine.IncrVideoBatches()
	engine.StoreJSON(ctx, c.cache, key, resp.Items)
	return resp.Items, nil
}

// TopLevelComments fetches up to limit top-level comments for videoID in relevance
// order. A video that is gone or has comments disabled yields an empty result.
func (c *YouTubeClient) TopLevelComments(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error) {
	var (
		out   []engine.CommentRecord
		token string
	)

	for len(out) < limit {
		pageSize := min(ytCommentPageSize, limit-len(out))
		resp, err := c.commentPage(ctx, videoID, pageSize, token)
		if err != nil {
			if commentsUnavailable(err) {
				engine.IncrCommentsDisabled()
				slog.Debug("youtube: comments unavailable", slog.String("video_id", videoID), slog.Any("error", err))
				return out, nil
			}
			return nil, fmt.Errorf("comments for %s: %w", videoID, err)
		}

		for _, th := range resp.Items {
			if rec, ok := commentRecord(videoID, th); ok {
				out = append(out, rec)
			}
		}

		token = resp.NextPageToken
		if token == "" || len(resp.Items) == 0 {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *YouTubeClient) commentPage(ctx context.Context, videoID string, pageSize int, token string) (*youtube.CommentThreadListResponse, error) {
	key := engine.CacheKey("comments", videoID, strconv.Itoa(pageSize), token)
	if resp, ok := engine.LoadJSON[*youtube.CommentThreadListResponse](ctx, c.cache, key); ok && resp != nil {
		return resp, nil
	}

	resp, err := engine.RetryDo(ctx, c.cfg.Retry, func() (*youtube.CommentThreadListResponse, error) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.svc.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			MaxResults(int64(pageSize)).
			Order("relevance").
			TextFormat("plainText").
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	engine.IncrCommentPages()
	engine.StoreJSON(ctx, c.cache, key, resp)
	return resp, nil
}

// commentsUnavailable matches the terminal per-video conditions: the video is
// not found, or its owner disabled comments.
func commentsUnavailable(err error) bool {
	return engine.IsStatus(err, http.StatusNotFound) ||
		engine.HasReason(err, http.StatusForbidden, "commentsDisabled")
}

func commentRecord(videoID string, th *youtube.CommentThread) (engine.CommentRecord, bool) {
	if th == nil || th.Snippet == nil || th.Snippet.TopLevelComment == nil || th.Snippet.TopLevelComment.Snippet == nil {
		return engine.CommentRecord{}, false
	}
	s := th.Snippet.TopLevelComment.Snippet
	return engine.CommentRecord{
		VideoID:     videoID,
		CommentID:   th.Id,
		Author:      s.AuthorDisplayName,
		Text:        s.TextDisplay,
		LikeCount:   uint64(max(s.LikeCount, 0)),
		PublishedAt: ParseTimestamp(s.PublishedAt),
		UpdatedAt:   ParseTimestamp(s.UpdatedAt),
	}, true
}

// ParseTimestamp parses an API RFC 3339 timestamp into UTC.
// Empty or malformed input yields the zero time.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// VideoRecord flattens a videos.list item into a row labelled with brand.
func VideoRecord(v *youtube.Video, brand string) engine.VideoRecord {
	rec := engine.VideoRecord{Brand: brand, VideoID: v.Id}
	if s := v.Snippet; s != nil {
		rec.ChannelTitle = s.ChannelTitle
		rec.Title = s.Title
		rec.Description = s.Description
		rec.PublishedAt = ParseTimestamp(s.PublishedAt)
		if len(s.Tags) > 0 {
			rec.Tags = s.Tags
		}
	}
	if st := v.Statistics; st != nil {
		rec.ViewCount = st.ViewCount
		rec.LikeCount = st.LikeCount
		rec.CommentCount = st.CommentCount
	}
	return rec
}
