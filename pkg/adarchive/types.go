package adarchive

// PageRequest identifies one page of an advertiser's ad archive.
type PageRequest struct {
	SourceID string
	Cursor   string
	PageSize int
}

// FetchPage is one API response page.
type FetchPage struct {
	Items      []RawAdRecord `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// RawAdRecord is the source's ad shape as received. Every field may be
// absent; absence is a valid state, not an error.
type RawAdRecord struct {
	ArchiveID     string     `json:"archive_id,omitempty"`
	Title         string     `json:"title,omitempty"`
	Body          string     `json:"body,omitempty"`
	CTAText       string     `json:"cta_text,omitempty"`
	CTAType       string     `json:"cta_type,omitempty"`
	Cards         []Card     `json:"cards,omitempty"`
	Images        []ImageRef `json:"images,omitempty"`
	Videos        []VideoRef `json:"videos,omitempty"`
	Platforms     []string   `json:"publisher_platforms,omitempty"`
	DisplayFormat string     `json:"display_format,omitempty"`
}

// Card is one carousel card.
type Card struct {
	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
	CTAText string `json:"cta_text,omitempty"`
}

// ImageRef is a still-image asset reference.
type ImageRef struct {
	URL        string `json:"url,omitempty"`
	ResizedURL string `json:"resized_url,omitempty"`
}

// VideoRef is a video asset reference. Playable URLs are frequently absent;
// the preview image is the reliable part.
type VideoRef struct {
	PreviewImageURL string `json:"preview_image_url,omitempty"`
	VideoHDURL      string `json:"video_hd_url,omitempty"`
	VideoSDURL      string `json:"video_sd_url,omitempty"`
}
