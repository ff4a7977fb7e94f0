package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tranche status constants
const (
	TrancheLocked          = "LOCKED"
	TranchePendingApproval = "PENDING_APPROVAL"
	TrancheReleased        = "RELEASED"
	TrancheDisbursed       = "DISBURSED"
	TrancheBlocked         = "BLOCKED"
)

// Tranche is a milestone-gated slice of a project's target amount.
// ReleaseRequested and IsBlocked mirror Status and are kept for API consumers.
type Tranche struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_tranche_project_seq" json:"project_id"`
	Project          *Project        `gorm:"foreignKey:ProjectID" json:"-"`
	Sequence         int             `gorm:"not null;uniqueIndex:idx_tranche_project_seq" json:"sequence"`
	Percentage       decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Amount           int64           `gorm:"not null" json:"amount"`
	UnlockCondition  string          `gorm:"type:text;not null" json:"unlock_condition"`
	Status           string          `gorm:"type:varchar(20);not null;default:'LOCKED';index" json:"status"`
	ReleaseRequested bool            `gorm:"not null;default:false" json:"release_requested"`
	IsBlocked        bool            `gorm:"not null;default:false" json:"is_blocked"`
	BlockReason      string          `gorm:"type:text" json:"block_reason,omitempty"`
	ProofDocURL      string          `gorm:"type:text" json:"proof_doc_url,omitempty"` // utilization certificate
	GeoTag           string          `gorm:"type:text" json:"geo_tag,omitempty"`       // GeoJSON Point
	Remarks          string          `gorm:"type:text" json:"remarks,omitempty"`
	RequestedAt      *time.Time      `json:"requested_at"`
	ApprovedBy       *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt       *time.Time      `json:"approved_at"`
	DisbursedAt      *time.Time      `json:"disbursed_at"`
	Version          int             `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasEvidence reports whether both release artifacts are present
func (t Tranche) HasEvidence() bool {
	return t.ProofDocURL != "" && t.GeoTag != ""
}

// SetStatus moves the tranche to status and keeps the mirror flags consistent
func (t *Tranche) SetStatus(status string) {
	t.Status = status
	t.ReleaseRequested = status == TranchePendingApproval
	t.IsBlocked = status == TrancheBlocked
	if status != TrancheBlocked {
		t.BlockReason = ""
	}
}
