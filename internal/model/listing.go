package model

import "time"

const (
	ListingStatusActive = "active"
	ListingStatusSold   = "sold"
)

const (
	DeliveryShipping = "shipping"
	DeliveryMeetup   = "meetup"
)

// DeliveryOptions is how the seller hands the cube over. At least one must
// be set; meetup requires the listing to name the competitions the seller
// will attend.
type DeliveryOptions struct {
	Shipping bool `gorm:"column:shipping" json:"shipping"`
	Meetup   bool `gorm:"column:meetup" json:"meetup"`
}

// ListingCompetition is a meetup venue picked from the competition
// directory, denormalized onto the listing at creation time.
type ListingCompetition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate,omitempty"`
}

// Listing is one cube for sale. Ref is the stable public identifier used in
// photo storage keys and payment metadata; the numeric ID stays internal.
type Listing struct {
	ID              uint64               `gorm:"primaryKey;autoIncrement" json:"id"`
	Ref             string               `gorm:"size:64;uniqueIndex" json:"ref"`
	UserID          string               `gorm:"column:user_id;size:128;index" json:"userId"`
	Title           string               `gorm:"size:120;not null" json:"title"`
	Description     string               `gorm:"type:text" json:"description"`
	Price           float64              `gorm:"not null" json:"price"`
	Condition       string               `gorm:"size:32" json:"condition"`
	Photos          []string             `gorm:"serializer:json" json:"photos"`
	DeliveryOptions DeliveryOptions      `gorm:"embedded;embeddedPrefix:delivery_" json:"deliveryOptions"`
	Competitions    []ListingCompetition `gorm:"serializer:json" json:"competitions,omitempty"`
	Status          string               `gorm:"size:16;default:active;index" json:"status"`
	SoldTo          string               `gorm:"column:sold_to;size:128" json:"soldTo,omitempty"`
	SoldAt          *time.Time           `gorm:"column:sold_at" json:"soldAt,omitempty"`
	CreatedAt       time.Time            `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}
