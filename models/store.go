package models

import "time"

// Store is owned by at most one user. Deleting the owner does not remove the store.
type Store struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string    `json:"name" gorm:"not null;index"`
	Address   string    `json:"address" gorm:"size:400;not null"`
	Phone     string    `json:"phone"`
	OwnerID   *string   `json:"ownerId" gorm:"type:varchar(36);index"`
	Owner     *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	IsActive  bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rating is unique per (user, store); a second rating overwrites the first.
type Rating struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_rating_user_store"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	StoreID   string    `json:"storeId" gorm:"type:varchar(36);not null;uniqueIndex:idx_rating_user_store;index"`
	Value     int       `json:"value" gorm:"not null;check:value >= 1 AND value <= 5"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)
