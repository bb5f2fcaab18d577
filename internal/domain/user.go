package domain

import "time"

// User is the acting identity supplied by the (mocked) identity provider
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Avatar         string    `json:"avatar"`
	JoinDate       time.Time `json:"joinDate"`
	Bio            string    `json:"bio,omitempty"`
	FavoriteGenres []string  `json:"favoriteGenres,omitempty"`
}

// GenreCount is the number of reviews a user wrote for one genre
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// MonthlyActivity is the number of reviews a user wrote in one calendar month
type MonthlyActivity struct {
	Month   string `json:"month" example:"Jan 2026"`
	Reviews int    `json:"reviews"`
}

// ReviewerProfile summarises the reviews of one user
type ReviewerProfile struct {
	ReviewCount        int               `json:"reviewCount"`
	AverageRating      float64           `json:"averageRating"`
	RatingDistribution map[int]int       `json:"ratingDistribution"`
	TopGenres          []GenreCount      `json:"topGenres"`
	RecentReviews      []*Review         `json:"recentReviews"`
	MonthlyActivity    []MonthlyActivity `json:"monthlyActivity"`
}
