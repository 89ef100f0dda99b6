// Package dto holds the JSON documents exchanged by the API and its client.
package dto

import (
	"time"

	"store-ratings-api/models"
)

type UserView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Address   string      `json:"address"`
	CreatedAt time.Time   `json:"createdAt"`
	// Set for owners in admin views: the mean rating across their stores.
	StoreAverage *float64 `json:"storeAverage,omitempty"`
}

func NewUserView(u *models.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
	}
}

type StoreView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone,omitempty"`
	OwnerID     *string `json:"ownerId"`
	OwnerEmail  string  `json:"ownerEmail,omitempty"`
	IsActive    bool    `json:"isActive"`
	AvgRating   float64 `json:"avgRating"`
	RatingCount int64   `json:"ratingCount"`
	UserRating  *int    `json:"userRating,omitempty"`
}

type RatingView struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Value     int       `json:"value"`
	Comment   string    `json:"comment,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewRatingView(r *models.Rating) RatingView {
	v := RatingView{
		ID:        r.ID,
		StoreID:   r.StoreID,
		UserID:    r.UserID,
		Value:     r.Value,
		Comment:   r.Comment,
		UpdatedAt: r.UpdatedAt,
	}
	if r.User != nil {
		v.UserName = r.User.Name
	}
	return v
}

// Page is the envelope of every paginated listing.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

type RatingResponse struct {
	Created bool       `json:"created"`
	Rating  RatingView `json:"rating"`
}

type Rater struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Value   int    `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// OwnerStoreRatings is one of the caller's stores with everyone who rated it.
type OwnerStoreRatings struct {
	StoreID   string  `json:"storeId"`
	StoreName string  `json:"storeName"`
	Average   float64 `json:"average"`
	Raters    []Rater `json:"raters"`
}

type Stats struct {
	Users   int64 `json:"users"`
	Stores  int64 `json:"stores"`
	Ratings int64 `json:"ratings"`
}

type ToggleResponse struct {
	ID       string `json:"id"`
	IsActive bool   `json:"isActive"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}
