package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAggregateMonthlySoVScenario(t *testing.T) {
	videos := []VideoRecord{
		{Brand: "A", VideoID: "a1", ViewCount: 100, PublishedAt: date(2024, 3, 5)},
		{Brand: "B", VideoID: "b1", ViewCount: 300, PublishedAt: date(2024, 3, 5)},
	}

	got := AggregateMonthlySoV(videos)
	require.Len(t, got, 2)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, march, got[0].Month)
	assert.Equal(t, "A", got[0].Brand)
	assert.Equal(t, uint64(100), got[0].Views)
	assert.InDelta(t, 0.25, got[0].SoVViews, 1e-12)
	assert.InDelta(t, 0.5, got[0].SoVVideos, 1e-12)

	assert.Equal(t, "B", got[1].Brand)
	assert.Equal(t, uint64(300), got[1].Views)
	assert.InDelta(t, 0.75, got[1].SoVViews, 1e-12)
}

func TestAggregateMonthlySoVSharesSumToOne(t *testing.T) {
	videos := []VideoRecord{
		{Brand: "A", VideoID: "1", ViewCount: 10, LikeCount: 1, CommentCount: 3, PublishedAt: date(2024, 1, 2)},
		{Brand: "B", VideoID: "2", ViewCount: 20, LikeCount: 2, CommentCount: 0, PublishedAt: date(2024, 1, 20)},
		{Brand: "C", VideoID: "3", ViewCount: 30, LikeCount: 0, CommentCount: 7, PublishedAt: date(2024, 1, 31)},
		{Brand: "A", VideoID: "4", ViewCount: 7, LikeCount: 5, CommentCount: 1, PublishedAt: date(2024, 2, 1)},
		{Brand: "A", VideoID: "5", ViewCount: 3, LikeCount: 5, CommentCount: 1, PublishedAt: date(2024, 2, 9)},
		{Brand: "B", VideoID: "6", ViewCount: 90, LikeCount: 0, CommentCount: 2, PublishedAt: date(2024, 2, 28)},
	}

	rows := AggregateMonthlySoV(videos)
	sums := map[time.Time][4]float64{}
	for _, r := range rows {
		s := sums[r.Month]
		s[0] += r.SoVVideos
		s[1] += r.SoVViews
		s[2] += r.SoVLikes
		s[3] += r.SoVComments
		sums[r.Month] = s
	}
	require.Len(t, sums, 2)
	for month, s := range sums {
		for i, v := range s {
			assert.InDelta(t, 1.0, v, 1e-9, "month %s metric %d", month.Format(MonthLayout), i)
		}
	}
}

func TestAggregateMonthlySoVZeroTotal(t *testing.T) {
	videos := []VideoRecord{
		{Brand: "A", VideoID: "1", ViewCount: 5, PublishedAt: date(2024, 5, 1)},
		{Brand: "B", VideoID: "2", ViewCount: 5, PublishedAt: date(2024, 5, 2)},
	}

	rows := AggregateMonthlySoV(videos)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Zero(t, r.SoVLikes)
		assert.Zero(t, r.SoVComments)
		assert.InDelta(t, 0.5, r.SoVViews, 1e-12)
	}
}

func TestAggregateMonthlySoVGrouping(t *testing.T) {
	videos := []VideoRecord{
		{Brand: "A", VideoID: "1", ViewCount: 1, PublishedAt: date(2024, 4, 1)},
		{Brand: "A", VideoID: "1", ViewCount: 1, PublishedAt: date(2024, 4, 1)}, // same id counts once
		{Brand: "A", VideoID: "2", ViewCount: 1, PublishedAt: time.Date(2024, 4, 30, 23, 59, 0, 0, time.UTC)},
		{Brand: "A", VideoID: "3", ViewCount: 1}, // no publish time
		{Brand: "A", VideoID: "4", ViewCount: 1, PublishedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("KST", 9*3600))},
	}

	rows := AggregateMonthlySoV(videos)
	require.Len(t, rows, 1, "KST 08:00 on May 1 is April 30 in UTC")
	assert.Equal(t, uint64(3), rows[0].Videos)
	assert.Equal(t, uint64(4), rows[0].Views)
	assert.InDelta(t, 1.0, rows[0].SoVVideos, 1e-12)
}

func TestAggregateMonthlySoVIdempotent(t *testing.T) {
	videos := []VideoRecord{
		{Brand: "B", VideoID: "1", ViewCount: 7, LikeCount: 3, PublishedAt: date(2024, 6, 1)},
		{Brand: "A", VideoID: "2", ViewCount: 11, LikeCount: 1, PublishedAt: date(2024, 6, 3)},
		{Brand: "C", VideoID: "3", ViewCount: 13, LikeCount: 9, PublishedAt: date(2024, 7, 3)},
	}
	assert.Equal(t, AggregateMonthlySoV(videos), AggregateMonthlySoV(videos))
}

func TestAggregateMonthlySoVEmpty(t *testing.T) {
	assert.Empty(t, AggregateMonthlySoV(nil))
}
