package model

import "time"

const (
	ConversationStatusPending  = "pending"
	ConversationStatusApproved = "approved"
	ConversationStatusRejected = "rejected"
)

// Conversation is the moderated thread between a buyer and a listing's
// seller. At most one conversation exists per (listing, buyer) pair; the
// unique index backs the duplicate-request check. Rejected conversations are
// hard-deleted, so the status column only ever holds pending or approved.
type Conversation struct {
	ID                  uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID           uint64     `gorm:"column:listing_id;index:idx_listing_buyer,unique" json:"listingId"`
	SellerID            string     `gorm:"column:seller_id;size:128;index" json:"sellerId"`
	BuyerID             string     `gorm:"column:buyer_id;size:128;index:idx_listing_buyer,unique" json:"buyerId"`
	Status              string     `gorm:"size:16;default:pending;index" json:"status"`
	InitialMessage      string     `gorm:"type:text" json:"initialMessage"`
	LastMessage         string     `gorm:"type:text" json:"lastMessage"`
	LastMessageAt       *time.Time `gorm:"column:last_message_at" json:"lastMessageAt,omitempty"`
	LastMessageSenderID string     `gorm:"column:last_message_sender_id;size:128" json:"lastMessageSenderId,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}
