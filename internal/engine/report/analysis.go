// Package report turns the collected CSV tables into brand comparison tables,
// a Markdown report, PNG charts and an Excel workbook.
package report

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"time"

	"github.com/chodoo86/kimhwayoung/internal/engine"
)

// Dataset is the three tables written by a collection run.
type Dataset struct {
	Videos   []engine.VideoRecord
	Comments []engine.CommentRecord
	SoV      []engine.MonthlySoV
}

// Load reads the CSV tables from dir. Missing files load as empty tables.
func Load(dir string) (Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	if ds.Videos, err = engine.ReadVideosCSV(filepath.Join(dir, engine.VideosFile)); err != nil {
		return Dataset{}, fmt.Errorf("load videos: %w", err)
	}
	if ds.Comments, err = engine.ReadCommentsCSV(filepath.Join(dir, engine.CommentsFile)); err != nil {
		return Dataset{}, fmt.Errorf("load comments: %w", err)
	}
	if ds.SoV, err = engine.ReadSoVCSV(filepath.Join(dir, engine.SoVFile)); err != nil {
		return Dataset{}, fmt.Errorf("load monthly sov: %w", err)
	}
	return ds, nil
}

// BrandAggregate is the per-brand volume and per-video averages.
type BrandAggregate struct {
	Brand       string
	Videos      uint64
	Views       uint64
	Likes       uint64
	Comments    uint64
	AvgViews    float64
	AvgLikes    float64
	AvgComments float64
}

// BrandAggregates sums videos per brand, sorted by brand. Videos counts distinct ids.
func BrandAggregates(videos []engine.VideoRecord) []BrandAggregate {
	idx := map[string]int{}
	ids := map[string]map[string]struct{}{}
	var out []BrandAggregate
	for _, v := range videos {
		i, ok := idx[v.Brand]
		if !ok {
			i = len(out)
			idx[v.Brand] = i
			ids[v.Brand] = map[string]struct{}{}
			out = append(out, BrandAggregate{Brand: v.Brand})
		}
		ids[v.Brand][v.VideoID] = struct{}{}
		out[i].Views += v.ViewCount
		out[i].Likes += v.LikeCount
		out[i].Comments += v.CommentCount
	}
	for i := range out {
		a := &out[i]
		a.Videos = uint64(len(ids[a.Brand]))
		a.AvgViews = round(ratio(a.Views, a.Videos), 2)
		a.AvgLikes = round(ratio(a.Likes, a.Videos), 2)
		a.AvgComments = round(ratio(a.Comments, a.Videos), 2)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Brand < out[j].Brand })
	return out
}

// ChannelCount is how many distinct videos a channel uploaded for a brand.
type ChannelCount struct {
	Brand      string
	Channel    string
	VideoCount int
}

// TopChannels lists channels per brand, brand ascending then video count descending.
func TopChannels(videos []engine.VideoRecord) []ChannelCount {
	type key struct{ brand, channel string }
	ids := map[key]map[string]struct{}{}
	for _, v := range videos {
		k := key{v.Brand, v.ChannelTitle}
		if ids[k] == nil {
			ids[k] = map[string]struct{}{}
		}
		ids[k][v.VideoID] = struct{}{}
	}
	out := make([]ChannelCount, 0, len(ids))
	for k, set := range ids {
		out = append(out, ChannelCount{Brand: k.brand, Channel: k.channel, VideoCount: len(set)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Brand != out[j].Brand {
			return out[i].Brand < out[j].Brand
		}
		if out[i].VideoCount != out[j].VideoCount {
			return out[i].VideoCount > out[j].VideoCount
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// BrandCount is a per-brand row count.
type BrandCount struct {
	Brand string
	Count int
}

// CommentsByBrand counts top-level comments per brand. Unlabelled comments are left out.
func CommentsByBrand(comments []engine.CommentRecord) []BrandCount {
	counts := map[string]int{}
	for _, c := range comments {
		if c.Brand == "" {
			continue
		}
		counts[c.Brand]++
	}
	out := make([]BrandCount, 0, len(counts))
	for b, n := range counts {
		out = append(out, BrandCount{Brand: b, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Brand < out[j].Brand })
	return out
}

// LatestMonthSoV returns the rows of the most recent month, sorted by view share
// then video share, both descending.
func LatestMonthSoV(sov []engine.MonthlySoV) []engine.MonthlySoV {
	var latest time.Time
	for _, s := range sov {
		if s.Month.After(latest) {
			latest = s.Month
		}
	}
	if latest.IsZero() {
		return nil
	}
	var out []engine.MonthlySoV
	for _, s := range sov {
		if s.Month.Equal(latest) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SoVViews != out[j].SoVViews {
			return out[i].SoVViews > out[j].SoVViews
		}
		if out[i].SoVVideos != out[j].SoVVideos {
			return out[i].SoVVideos > out[j].SoVVideos
		}
		return out[i].Brand < out[j].Brand
	})
	return out
}

// Interest is reach: how many videos and views a brand gathered.
type Interest struct {
	Brand  string
	Videos uint64
	Views  uint64
}

// InterestByBrand ranks brands by total views.
func InterestByBrand(videos []engine.VideoRecord) []Interest {
	aggs := BrandAggregates(videos)
	out := make([]Interest, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, Interest{Brand: a.Brand, Videos: a.Videos, Views: a.Views})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Views > out[j].Views })
	return out
}

// Preference is engagement normalized by reach.
type Preference struct {
	Brand              string
	LikesPer1kViews    float64
	CommentsPer1kViews float64
}

// PreferenceByBrand ranks brands by likes per 1k views. Zero views gives zero rates.
func PreferenceByBrand(videos []engine.VideoRecord) []Preference {
	aggs := BrandAggregates(videos)
	out := make([]Preference, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, Preference{
			Brand:              a.Brand,
			LikesPer1kViews:    round(ratio(a.Likes, a.Views)*1000, 3),
			CommentsPer1kViews: round(ratio(a.Comments, a.Views)*1000, 3),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LikesPer1kViews > out[j].LikesPer1kViews })
	return out
}

// Perception is a weak reaction proxy from comment likes.
type Perception struct {
	Brand              string
	AvgCommentLikes    float64
	MedianCommentLikes float64
	TotalComments      int
}

// PerceptionByBrand summarizes comment likes per brand, sorted by brand.
func PerceptionByBrand(comments []engine.CommentRecord) []Perception {
	likes := map[string][]float64{}
	for _, c := range comments {
		if c.Brand == "" {
			continue
		}
		likes[c.Brand] = append(likes[c.Brand], float64(c.LikeCount))
	}
	out := make([]Perception, 0, len(likes))
	for b, xs := range likes {
		out = append(out, Perception{
			Brand:              b,
			AvgCommentLikes:    round(mean(xs), 3),
			MedianCommentLikes: round(median(xs), 3),
			TotalComments:      len(xs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Brand < out[j].Brand })
	return out
}

// SoVPercent is a latest-month share snapshot in percent.
type SoVPercent struct {
	Brand    string
	Videos   float64
	Views    float64
	Likes    float64
	Comments float64
}

// LatestSoVPercent converts the latest month's shares to percentages rounded to 2 dp.
func LatestSoVPercent(sov []engine.MonthlySoV) []SoVPercent {
	latest := LatestMonthSoV(sov)
	out := make([]SoVPercent, 0, len(latest))
	for _, s := range latest {
		out = append(out, SoVPercent{
			Brand:    s.Brand,
			Videos:   round(s.SoVVideos*100, 2),
			Views:    round(s.SoVViews*100, 2),
			Likes:    round(s.SoVLikes*100, 2),
			Comments: round(s.SoVComments*100, 2),
		})
	}
	return out
}

func ratio(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
