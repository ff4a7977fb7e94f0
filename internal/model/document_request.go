package model

import (
	"time"

	"github.com/google/uuid"
)

// Document request status constants
const (
	RequestStatusPending  = "PENDING"
	RequestStatusUploaded = "UPLOADED"
	RequestStatusVerified = "VERIFIED"
	RequestStatusRejected = "REJECTED"
)

// Request types
const (
	RequestTypeCompliance = "COMPLIANCE"
	RequestTypeCustom     = "CUSTOM"
)

// Priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// DocumentRequest is a corporate asking an NGO for a named document
type DocumentRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CorporateID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"corporate_id"`
	Corporate       *Corporate `gorm:"foreignKey:CorporateID" json:"corporate,omitempty"`
	NGOID           uuid.UUID  `gorm:"column:ngo_id;type:uuid;not null;index" json:"ngo_id"`
	NGO             *NGO       `gorm:"foreignKey:NGOID" json:"ngo,omitempty"`
	ProjectID       *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	Category        string     `gorm:"type:varchar(2)" json:"category"`
	DocName         string     `gorm:"type:varchar(255);not null" json:"doc_name"`
	RequestType     string     `gorm:"type:varchar(20);not null;default:'COMPLIANCE'" json:"request_type"`
	Description     string     `gorm:"type:text" json:"description"`
	Priority        string     `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	Deadline        *time.Time `json:"deadline"`
	Status          string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	FileURL         string     `gorm:"type:text" json:"file_url"`
	UploadedAt      *time.Time `json:"uploaded_at"`
	ComplianceDocID *uuid.UUID `gorm:"type:uuid;index" json:"compliance_doc_id"` // resulting checklist row
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	Remarks         string     `gorm:"type:text" json:"remarks"`
	Version         int        `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
