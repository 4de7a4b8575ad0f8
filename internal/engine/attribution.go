package engine

import "strings"

// DetectBrand returns the first brand keyword that occurs in text, or "".
// Matching is a plain case-sensitive substring test; list order decides ties.
func DetectBrand(text string, brands []string) string {
	if text == "" {
		return ""
	}
	for _, b := range brands {
		if b != "" && strings.Contains(text, b) {
			return b
		}
	}
	return ""
}

// AttributeVideo picks the brand for a video row: the keyword found in the
// title or description, else the brand whose query surfaced the video.
func AttributeVideo(title, description, queryBrand string, brands []string) string {
	if b := DetectBrand(title+" "+description, brands); b != "" {
		return b
	}
	return queryBrand
}

// BrandLookup maps video id to the brand recorded on that video's row.
type BrandLookup map[string]string

// NewBrandLookup indexes videos by id. The first row for an id wins.
func NewBrandLookup(videos []VideoRecord) BrandLookup {
	lk := make(BrandLookup, len(videos))
	for _, v := range videos {
		if _, ok := lk[v.VideoID]; !ok {
			lk[v.VideoID] = v.Brand
		}
	}
	return lk
}

// Brand returns the brand for videoID, or "" if the video is unknown.
func (lk BrandLookup) Brand(videoID string) string {
	return lk[videoID]
}

// Label sets Brand on every comment from its parent video and returns the slice.
// Comment text is never inspected.
func (lk BrandLookup) Label(comments []CommentRecord) []CommentRecord {
	for i := range comments {
		comments[i].Brand = lk.Brand(comments[i].VideoID)
	}
	return comments
}
