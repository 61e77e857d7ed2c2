package models

// NotificationType enumerates the domain events that produce notifications.
type NotificationType string

const (
	NotificationFollow  NotificationType = "FOLLOW"
	NotificationLike    NotificationType = "LIKE"
	NotificationMessage NotificationType = "MESSAGE"
	NotificationComment NotificationType = "COMMENT"
)

// Valid reports whether the type is part of the closed enumeration.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationFollow, NotificationLike, NotificationMessage, NotificationComment:
		return true
	}
	return false
}

// Notification is a persisted in-app notification. The payload is immutable
// after creation; only the Read flag is ever updated.
type Notification struct {
	BaseModel

	Type        NotificationType `gorm:"type:varchar(32);not null;index" json:"type"`
	RecipientID string           `gorm:"type:uuid;not null;index" json:"recipientId"`
	SenderID    string           `gorm:"type:uuid;not null;index" json:"senderId"`

	// Correlation ids: only the subset relevant to Type is populated.
	PostID    *string `gorm:"type:uuid" json:"postId"`
	CommentID *string `gorm:"type:uuid" json:"commentId"`
	LikeID    *string `gorm:"type:uuid" json:"likeId"`
	FollowID  *string `gorm:"type:uuid" json:"followId"`
	ChatID    *string `gorm:"type:uuid" json:"chatId"`
	MessageID *string `gorm:"type:uuid" json:"messageId"`

	Read bool `gorm:"default:false;index" json:"read"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
