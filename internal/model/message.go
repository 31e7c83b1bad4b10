package model

import "time"

const (
	MessageTypeMessage = "message"
	MessageTypeSystem  = "system"
)

// Message rows are append-only; they are never updated or deleted
// individually, only cascade-deleted with a rejected conversation.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64    `gorm:"column:conversation_id;index" json:"conversationId"`
	SenderID       string    `gorm:"column:sender_id;size:128;index" json:"senderId"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Type           string    `gorm:"size:16;default:message" json:"type"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
