package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat line between the NGO and the funding corporate of a project
type Message struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	SenderID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"sender_id"`
	Sender      *User      `gorm:"foreignKey:SenderID" json:"-"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
