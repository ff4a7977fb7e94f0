package model

import (
	"time"

	"github.com/google/uuid"
)

// Compliance document status constants
const (
	DocStatusPending   = "PENDING"
	DocStatusSubmitted = "SUBMITTED"
	DocStatusUploaded  = "UPLOADED"
	DocStatusVerified  = "VERIFIED"
	DocStatusApproved  = "APPROVED"
	DocStatusRejected  = "REJECTED"
)

// ComplianceDoc is one checklist entry of a project, unique per (project, category, doc name)
type ComplianceDoc struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_compliance_doc_key" json:"project_id"`
	Category    string           `gorm:"type:varchar(2);not null;uniqueIndex:idx_compliance_doc_key" json:"category"` // A-G
	DocName     string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_compliance_doc_key" json:"doc_name"`
	URL         string           `gorm:"type:text" json:"url"`
	Status      string           `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	VerifiedBy  *uuid.UUID       `gorm:"type:uuid" json:"verified_by"`
	Remarks     string           `gorm:"type:text" json:"remarks"`
	LastUpdated time.Time        `json:"last_updated"`
	RequestID   *uuid.UUID       `gorm:"type:uuid;index" json:"request_id"` // originating DocumentRequest
	Request     *DocumentRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	Version     int              `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
}

// DocumentUpload is the append-only audit trail of every stored file
type DocumentUpload struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ComplianceDocID   *uuid.UUID `gorm:"type:uuid;index" json:"compliance_doc_id"`
	DocumentRequestID *uuid.UUID `gorm:"type:uuid;index" json:"document_request_id"`
	UploadedBy        uuid.UUID  `gorm:"type:uuid;not null;index" json:"uploaded_by"`
	FileName          string     `gorm:"type:varchar(255);not null" json:"file_name"`
	MimeType          string     `gorm:"type:varchar(100);not null" json:"mime_type"`
	SizeBytes         int64      `gorm:"not null" json:"size_bytes"`
	StorageKey        string     `gorm:"type:text;not null" json:"storage_key"`
	URL               string     `gorm:"type:text;not null" json:"url"`
	CreatedAt         time.Time  `json:"created_at"`
}
