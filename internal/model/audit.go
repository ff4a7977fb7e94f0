package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionRegisterUser       = "REGISTER_USER"
	ActionCreateProject      = "CREATE_PROJECT"
	ActionRecordDonation     = "RECORD_DONATION"
	ActionUploadEvidence     = "UPLOAD_TRANCHE_EVIDENCE"
	ActionRequestRelease     = "REQUEST_TRANCHE_RELEASE"
	ActionApproveTranche     = "APPROVE_TRANCHE"
	ActionRejectTranche      = "REJECT_TRANCHE"
	ActionDisburseTranche    = "DISBURSE_TRANCHE"
	ActionRequestDocument    = "REQUEST_DOCUMENT"
	ActionUploadDocument     = "UPLOAD_DOCUMENT"
	ActionVerifyDocument     = "VERIFY_DOCUMENT"
	ActionReviewRequest      = "REVIEW_DOCUMENT_REQUEST"
	ActionUpdateCertificates = "UPDATE_CERTIFICATES"
	ActionRefreshTrustScore  = "REFRESH_TRUST_SCORE"
	ActionComplianceReminder = "COMPLIANCE_REMINDER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for scheduled jobs
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
