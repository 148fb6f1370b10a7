// Package gmb provides a client for the Google Business Profile review APIs.
package gmb

import (
	"time"
)

// Credential carries the per-user refresh token the client exchanges for
// short-lived access tokens.
type Credential struct {
	RefreshToken string
}

// Account is a Business Profile account reachable with a credential.
type Account struct {
	Name        string `json:"name"` // accounts/{accountId}
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

// Location is a business location under an account.
type Location struct {
	Name  string `json:"name"` // locations/{locationId}
	Title string `json:"title"`
}

// StarRating is the ordinal rating attached to a review.
type StarRating string

const (
	StarRatingOne   StarRating = "ONE"
	StarRatingTwo   StarRating = "TWO"
	StarRatingThree StarRating = "THREE"
	StarRatingFour  StarRating = "FOUR"
	StarRatingFive  StarRating = "FIVE"
)

// Value converts the ordinal rating to its numeric form. Unknown ratings
// map to 0.
func (r StarRating) Value() int {
	switch r {
	case StarRatingOne:
		return 1
	case StarRatingTwo:
		return 2
	case StarRatingThree:
		return 3
	case StarRatingFour:
		return 4
	case StarRatingFive:
		return 5
	default:
		return 0
	}
}

// Reviewer is the public author info attached to a review.
type Reviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
	IsAnonymous     bool   `json:"isAnonymous"`
}

// ReviewReply is a reply already posted on a review.
type ReviewReply struct {
	Comment    string    `json:"comment"`
	UpdateTime time.Time `json:"updateTime"`
}

// Review is a single customer review as returned by the API.
type Review struct {
	Name       string       `json:"name"` // accounts/{a}/locations/{l}/reviews/{r}
	ReviewID   string       `json:"reviewId"`
	Reviewer   Reviewer     `json:"reviewer"`
	StarRating StarRating   `json:"starRating"`
	Comment    string       `json:"comment"`
	CreateTime time.Time    `json:"createTime"`
	UpdateTime time.Time    `json:"updateTime"`
	Reply      *ReviewReply `json:"reviewReply,omitempty"`
}

// LatestTime returns the more recent of the review's create and update
// timestamps.
func (r Review) LatestTime() time.Time {
	if r.UpdateTime.After(r.CreateTime) {
		return r.UpdateTime
	}
	return r.CreateTime
}

// accountsResponse is the wire shape of the account listing endpoint.
type accountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

// locationsResponse is the wire shape of the location listing endpoint.
type locationsResponse struct {
	Locations     []Location `json:"locations"`
	NextPageToken string     `json:"nextPageToken"`
}

// reviewsResponse is the wire shape of one page of the review listing
// endpoint.
type reviewsResponse struct {
	Reviews          []Review `json:"reviews"`
	AverageRating    float64  `json:"averageRating"`
	TotalReviewCount int      `json:"totalReviewCount"`
	NextPageToken    string   `json:"nextPageToken"`
}
