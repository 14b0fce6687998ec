package models

import (
	"fmt"
	"time"
)

// NotificationKind is the closed set of events that produce notifications.
type NotificationKind string

const (
	NotificationReply   NotificationKind = "REPLY"
	NotificationMention NotificationKind = "MENCION"
	NotificationLike    NotificationKind = "LIKE"
	NotificationFollow  NotificationKind = "FOLLOW"
)

// Valid reports whether k is one of the known kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationReply, NotificationMention, NotificationLike, NotificationFollow:
		return true
	}
	return false
}

// Message renders the human-readable text for an event performed by actorName.
func (k NotificationKind) Message(actorName string) string {
	switch k {
	case NotificationReply:
		return fmt.Sprintf("%s comentou na sua publicação.", actorName)
	case NotificationMention:
		return fmt.Sprintf("%s mencionou você em uma publicação.", actorName)
	case NotificationLike:
		return fmt.Sprintf("%s curtiu sua publicação.", actorName)
	case NotificationFollow:
		return fmt.Sprintf("%s começou a seguir você.", actorName)
	default:
		return actorName
	}
}

// Notification is a message addressed to one recipient.
// OriginID references the triggering post by id only; the post may since have been deleted.
type Notification struct {
	ID          uint             `gorm:"column:id_notif;primaryKey" json:"id"`
	RecipientID uint             `gorm:"column:destinatario_id;not null;index:idx_notificacao_destinatario" json:"recipient_id"`
	Message     string           `gorm:"column:mensagem;type:text;not null" json:"message"`
	Kind        NotificationKind `gorm:"column:tipo;size:20;not null" json:"kind"`
	OriginID    *uint            `gorm:"column:origem_id" json:"origin_id"`
	Read        bool             `gorm:"column:lida;not null;index:idx_notificacao_destinatario" json:"read"`
	Timestamp   time.Time        `gorm:"column:timestamp;autoCreateTime" json:"timestamp"`

	Recipient *User `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string {
	return "notificacao"
}
