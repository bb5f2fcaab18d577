package domain

import "time"

// StatsSnapshot is the derived aggregate of a movie's reviews
type StatsSnapshot struct {
	MovieID            string      `json:"movieId"`
	AverageRating      float64     `json:"averageRating"`
	ReviewCount        int         `json:"reviewCount"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

// DeltaKind names the review mutation a Delta describes
type DeltaKind string

const (
	DeltaCreated DeltaKind = "created"
	DeltaUpdated DeltaKind = "updated"
	DeltaDeleted DeltaKind = "deleted"
)

// Delta is an incremental description of a single review mutation.
// OldRating is zero for creations, NewRating is zero for deletions.
type Delta struct {
	Kind      DeltaKind `json:"kind"`
	MovieID   string    `json:"movieId"`
	OldRating int       `json:"oldRating,omitempty"`
	NewRating int       `json:"newRating,omitempty"`
}

// ReviewEvent is published for every accepted review mutation
type ReviewEvent struct {
	EventID     string      `json:"eventId"`
	EventType   string      `json:"eventType"`
	Timestamp   time.Time   `json:"timestamp"`
	MovieID     string      `json:"movieId"`
	Persistence Persistence `json:"persistence"`
	Delta       Delta       `json:"delta"`
	Review      *Review     `json:"review"`
}

// EventType maps a delta kind to the event subject suffix
func (k DeltaKind) EventType() string {
	return "review." + string(k)
}
