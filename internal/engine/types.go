package engine

import "time"

// --- Collected records ---

// VideoRecord is one row of youtube_videos.csv.
// Brand is assigned when the row is created and never revised.
type VideoRecord struct {
	Brand        string
	VideoID      string
	ChannelTitle string
	Title        string
	Description  string
	PublishedAt  time.Time
	ViewCount    uint64
	LikeCount    uint64
	CommentCount uint64
	Tags         []string
}

// CommentRecord is one top-level comment, a row of youtube_comments.csv.
// Brand is empty when the parent video is not in the video table.
type CommentRecord struct {
	VideoID     string
	CommentID   string
	Author      string
	Text        string
	LikeCount   uint64
	PublishedAt time.Time
	UpdatedAt   time.Time
	Brand       string
}

// --- Aggregates ---

// MonthlySoV is one (month, brand) row of youtube_monthly_sov.csv.
type MonthlySoV struct {
	Month    time.Time // first day of month, UTC
	Brand    string
	Videos   uint64
	Views    uint64
	Likes    uint64
	Comments uint64

	SoVVideos   float64
	SoVViews    float64
	SoVLikes    float64
	SoVComments float64
}
