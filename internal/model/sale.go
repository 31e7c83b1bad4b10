package model

import "time"

// Sale records a completed checkout. TransferID stays empty when the
// best-effort payout to the seller failed; the sale itself is never rolled
// back for a failed transfer.
type Sale struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID       uint64     `gorm:"column:listing_id;uniqueIndex" json:"listingId"`
	BuyerUID        string     `gorm:"column:buyer_uid;size:128;index" json:"buyerUid"`
	SellerUID       string     `gorm:"column:seller_uid;size:128;index" json:"sellerUid"`
	PriceCents      int64      `gorm:"not null" json:"priceCents"`
	FeeCents        int64      `gorm:"not null" json:"feeCents"`
	TotalCents      int64      `gorm:"not null" json:"totalCents"`
	PaymentIntentID string     `gorm:"column:payment_intent_id;size:64" json:"paymentIntentId"`
	TransferID      string     `gorm:"column:transfer_id;size:64" json:"transferId,omitempty"`
	TransferredAt   *time.Time `gorm:"column:transferred_at" json:"transferredAt,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Sale) TableName() string {
	return "sales"
}
