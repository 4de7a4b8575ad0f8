package engine

import (
	"sort"
	"time"
)

// MonthStart truncates t to the first instant of its UTC calendar month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

type sovKey struct {
	month time.Time
	brand string
}

// AggregateMonthlySoV groups videos by (UTC month, brand) and computes each
// brand's share of the month total for videos, views, likes and comments.
// A metric whose month total is zero gets share 0 for every brand.
// Videos without a publish time are skipped. Rows are sorted by month, then brand.
func AggregateMonthlySoV(videos []VideoRecord) []MonthlySoV {
	rows := make(map[sovKey]*MonthlySoV)
	seen := make(map[sovKey]map[string]struct{})

	for _, v := range videos {
		if v.PublishedAt.IsZero() {
			continue
		}
		k := sovKey{month: MonthStart(v.PublishedAt), brand: v.Brand}
		row, ok := rows[k]
		if !ok {
			row = &MonthlySoV{Month: k.month, Brand: k.brand}
			rows[k] = row
			seen[k] = make(map[string]struct{})
		}
		if _, dup := seen[k][v.VideoID]; !dup {
			seen[k][v.VideoID] = struct{}{}
			row.Videos++
		}
		row.Views += v.ViewCount
		row.Likes += v.LikeCount
		row.Comments += v.CommentCount
	}

	out := make([]MonthlySoV, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].Brand < out[j].Brand
	})

	// rows of one month are contiguous after sorting
	for start := 0; start < len(out); {
		end := start
		for end < len(out) && out[end].Month.Equal(out[start].Month) {
			end++
		}
		applyShares(out[start:end])
		start = end
	}
	return out
}

func applyShares(month []MonthlySoV) {
	var videos, views, likes, comments uint64
	for _, r := range month {
		videos += r.Videos
		views += r.Views
		likes += r.Likes
		comments += r.Comments
	}
	for i := range month {
		month[i].SoVVideos = share(month[i].Videos, videos)
		month[i].SoVViews = share(month[i].Views, views)
		month[i].SoVLikes = share(month[i].Likes, likes)
		month[i].SoVComments = share(month[i].Comments, comments)
	}
}

func share(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
