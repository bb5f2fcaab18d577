package domain

import "time"

// Bucket is a coarse review filter
type Bucket string

const (
	BucketAll       Bucket = "all"
	BucketHighRated Bucket = "high-rated"
	BucketLowRated  Bucket = "low-rated"
	BucketRecent    Bucket = "recent"
)

// RecentWindow is how far back the recent bucket reaches
const RecentWindow = 7 * 24 * time.Hour

// SortOrder orders a review listing
type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortHighest SortOrder = "highest"
	SortLowest  SortOrder = "lowest"
)

// ReviewFilter selects reviews from a listing
type ReviewFilter struct {
	Query         string
	Bucket        Bucket
	MovieID       string
	ExcludeUserID string
}

// ParseBucket returns the bucket named by s, defaulting to BucketAll
func ParseBucket(s string) Bucket {
	switch b := Bucket(s); b {
	case BucketHighRated, BucketLowRated, BucketRecent:
		return b
	default:
		return BucketAll
	}
}

// ParseSortOrder returns the sort order named by s, defaulting to SortNewest
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(s); o {
	case SortOldest, SortHighest, SortLowest:
		return o
	default:
		return SortNewest
	}
}
