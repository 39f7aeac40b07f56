// Package model defines the shared data types of the ad intelligence pipeline.
package model

// Candidate is a potential competitor surfaced by the discovery stage.
type Candidate struct {
	CompanyName string  `json:"company_name"`
	SourceList  string  `json:"source_list"`
	RawScore    float64 `json:"raw_score"`

	// SourceID is the ad-archive identifier for the advertiser, when known
	// (seed lists carry it; discovered candidates get a slug).
	SourceID string `json:"source_id,omitempty"`
}

// ValidatedCompetitor is a candidate after curation review.
type ValidatedCompetitor struct {
	Candidate

	IsCompetitor     bool    `json:"is_competitor"`
	Tier             string  `json:"tier"`
	Confidence       float64 `json:"confidence"`
	MarketOverlapPct float64 `json:"market_overlap_pct"`
}
