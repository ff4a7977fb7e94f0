package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types
const (
	NotifyTrancheReleaseRequested = "TRANCHE_RELEASE_REQUESTED"
	NotifyTrancheApproved         = "TRANCHE_APPROVED"
	NotifyTrancheRejected         = "TRANCHE_REJECTED"
	NotifyTrancheDisbursed        = "TRANCHE_DISBURSED"
	NotifyDocumentRequested       = "DOCUMENT_REQUESTED"
	NotifyDocumentUploaded        = "DOCUMENT_UPLOADED"
	NotifyDocumentVerified        = "DOCUMENT_VERIFIED"
	NotifyDocumentRejected        = "DOCUMENT_REJECTED"
	NotifyComplianceExpiring      = "COMPLIANCE_EXPIRING"
	NotifyDonationReceived        = "DONATION_RECEIVED"
	NotifyNewMessage              = "NEW_MESSAGE"
)

// Notification is an in-app event for one recipient. Rows are only ever marked read.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	UserRole  string         `gorm:"type:varchar(20);not null" json:"user_role"`
	Type      string         `gorm:"type:varchar(50);not null;index" json:"type"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Link      string         `gorm:"type:text" json:"link,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsRead    bool           `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
