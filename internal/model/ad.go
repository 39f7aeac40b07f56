package model

import "time"

// MediaType classifies the creative format of an ad.
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeCarousel MediaType = "carousel"
	MediaTypeUnknown  MediaType = "unknown"
)

// NormalizedAdRecord is the canonical ad representation consumed by every
// downstream analysis stage. Records are written once per run and never
// updated except for label annotation.
type NormalizedAdRecord struct {
	AdID                 string    `json:"ad_id"`
	Brand                string    `json:"brand"`
	CreativeText         string    `json:"creative_text"`
	TotalUniqueTextParts int       `json:"total_unique_text_parts"`
	HasDuplicateContent  bool      `json:"has_duplicate_content"`
	ImageURLs            []string  `json:"image_urls"`
	VideoURLs            []string  `json:"video_urls"`
	MediaType            MediaType `json:"media_type"`
	CardTitles           string    `json:"card_titles"`
	CardBodies           string    `json:"card_bodies"`
	Platforms            []string  `json:"platforms,omitempty"`
}

// AdLabel is an annotation produced by the labeling stage for one ad.
type AdLabel struct {
	AdID  string `json:"ad_id"`
	Angle string `json:"angle"`
	Hook  string `json:"hook"`
}

// FetchResult summarizes one brand's ingestion outcome. AdsCollected == 0
// with Success true means the source simply had no pages for the brand.
type FetchResult struct {
	Brand        string        `json:"brand"`
	Success      bool          `json:"success"`
	PagesFetched int           `json:"pages_fetched"`
	AdsCollected int           `json:"ads_collected"`
	FetchTime    time.Duration `json:"fetch_time"`
	LimitBound   bool          `json:"limit_bound,omitempty"`
	Error        string        `json:"error,omitempty"`
}
