package model

import (
	"time"

	"github.com/google/uuid"
)

// Project status constants
const (
	ProjectStatusActive    = "ACTIVE"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusSuspended = "SUSPENDED"
)

// Project is an NGO initiative funded in milestone tranches. Amounts are whole currency units.
type Project struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	NGOID          uuid.UUID       `gorm:"column:ngo_id;type:uuid;not null;index" json:"ngo_id"`
	NGO            *NGO            `gorm:"foreignKey:NGOID" json:"ngo,omitempty"`
	CorporateID    *uuid.UUID      `gorm:"type:uuid;index" json:"corporate_id"` // funding corporate, if any
	Corporate      *Corporate      `gorm:"foreignKey:CorporateID" json:"corporate,omitempty"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	TargetAmount   int64           `gorm:"not null" json:"target_amount"`
	RaisedAmount   int64           `gorm:"not null;default:0" json:"raised_amount"`
	Location       string          `gorm:"type:varchar(255)" json:"location"`
	Sector         string          `gorm:"type:varchar(100);index" json:"sector"`
	Status         string          `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	Tranches       []Tranche       `gorm:"foreignKey:ProjectID" json:"tranches,omitempty"`
	ComplianceDocs []ComplianceDoc `gorm:"foreignKey:ProjectID" json:"compliance_docs,omitempty"`
	Donations      []Donation      `gorm:"foreignKey:ProjectID" json:"donations,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FundingPercentage is raised/target as a whole percentage. It is not clamped at 100.
func (p Project) FundingPercentage() int {
	if p.TargetAmount <= 0 {
		return 0
	}
	return int(p.RaisedAmount * 100 / p.TargetAmount)
}

// Donation records money committed by a corporate to a project
type Donation struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	CorporateID uuid.UUID `gorm:"type:uuid;not null;index" json:"corporate_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Note        string    `gorm:"type:text" json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}
