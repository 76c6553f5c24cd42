package catalog

// RecommendationsResponse is the body of GET /videos/recommendations
type RecommendationsResponse struct {
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Count  int         `json:"count"`
	Items  []VideoItem `json:"items"`
}

// VideoItem is one catalog entry. Pointer fields are nullable on the wire.
type VideoItem struct {
	VideoID         int      `json:"video_id"`
	Title           *string  `json:"title"`
	Description     *string  `json:"description,omitempty"`
	PreviewImage    *string  `json:"preview_image"`
	PostImage       *string  `json:"post_image"`
	ChannelID       *int     `json:"channel_id"`
	ChannelName     *string  `json:"channel_name"`
	ChannelAvatar   *string  `json:"channel_avatar"`
	NumbersViews    *int     `json:"numbers_views"`
	NumbersLikes    *int     `json:"numbers_likes,omitempty"`
	NumbersComments *int     `json:"numbers_comments,omitempty"`
	DurationSec     *int     `json:"duration_sec"`
	Free            *bool    `json:"free"`
	Vertical        *bool    `json:"vertical"`
	SeoURL          *string  `json:"seo_url"`
	DatePublication *string  `json:"date_publication"`
	Draft           *bool    `json:"draft"`
	HasAccess       *bool    `json:"has_access"`
	ContentType     *string  `json:"content_type"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	LocationText    *string  `json:"location_text"`
	PlaylistID      *int     `json:"playlist_id"`
}

// TagsResponse is the body of GET /videos/tags
type TagsResponse struct {
	Items []TagItem `json:"items"`
}

// TagItem is one vocabulary entry
type TagItem struct {
	Tag string `json:"tag"`
}
