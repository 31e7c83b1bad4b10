package model

import "time"

type User struct {
	UID             string    `gorm:"primaryKey;size:128" json:"uid"`
	FirstName       string    `gorm:"size:64" json:"firstName"`
	LastName        string    `gorm:"size:64" json:"lastName"`
	Email           string    `gorm:"size:255" json:"email"`
	StripeAccountID string    `gorm:"column:stripe_account_id;size:64" json:"stripeAccountId,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
