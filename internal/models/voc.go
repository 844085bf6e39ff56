package models

import "time"

// FetchRedditResult is the output of the fetch-reddit stage
type FetchRedditResult struct {
	RawPosts        []RedditPost `json:"raw_posts"`
	UnfilteredPosts []RedditPost `json:"unfiltered_posts"`
	Count           int          `json:"count"`
	RawCount        int          `json:"raw_count"`
	Warnings        []string     `json:"warnings"`
	DurationMS      float64      `json:"duration_ms"`
}

// PrescoreStats counts pre-score outcomes
type PrescoreStats struct {
	Input     int `json:"input"`
	Prescored int `json:"prescored"`
	Promising int `json:"promising"`
	Rejected  int `json:"rejected"`
}

// PrescoreResult is the output of the pre-score-posts stage
type PrescoreResult struct {
	PrescoredPosts []RedditPost  `json:"prescored_posts"`
	PromisingPosts []RedditPost  `json:"promising_posts"`
	RejectedPosts  []RedditPost  `json:"rejected_posts"`
	Count          int           `json:"count"`
	Stats          PrescoreStats `json:"stats"`
	Threshold      float64       `json:"threshold"`
	Warnings       []string      `json:"warnings"`
	DurationMS     float64       `json:"duration_ms"`
}

// EnrichStats counts enrichment outcomes
type EnrichStats struct {
	Input         int `json:"input"`
	Enriched      int `json:"enriched"`
	FinalAccepted int `json:"final_accepted"`
	FinalRejected int `json:"final_rejected"`
}

// EnrichResult is the output of the enrich-posts stage
type EnrichResult struct {
	FilteredPosts []RedditPost `json:"filtered_posts"`
	RejectedPosts []RedditPost `json:"rejected_posts"`
	Count         int          `json:"count"`
	Stats         EnrichStats  `json:"stats"`
	Threshold     float64      `json:"threshold"`
	Warnings      []string     `json:"warnings"`
	DurationMS    float64      `json:"duration_ms"`
}

// TrendsResult is the output of the fetch-trends stage
type TrendsResult struct {
	Trends     []TrendEntry `json:"trends"`
	Count      int          `json:"count"`
	Warnings   []string     `json:"warnings"`
	DurationMS float64      `json:"duration_ms"`
}

// QueriesResult is the output of the generate-queries stage
type QueriesResult struct {
	Queries    []string `json:"queries"`
	Count      int      `json:"count"`
	Warnings   []string `json:"warnings"`
	DurationMS float64  `json:"duration_ms"`
}

// Digest summarizes one monthly run for notification
type Digest struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Duration    string            `json:"duration"`
	Reports     []DiscoveryReport `json:"reports"`
	Failures    map[string]string `json:"failures,omitempty"`
}

// AcceptedPosts counts accepted posts across all reports
func (d *Digest) AcceptedPosts() int {
	total := 0
	for _, r := range d.Reports {
		total += len(r.RedditPosts)
	}
	return total
}
