package model

import (
	"time"

	"github.com/google/uuid"
)

// NGO is an implementing organisation. Certificate freshness is derived from the
// validity dates at read time and never stored.
type NGO struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User            *User      `gorm:"foreignKey:UserID" json:"-"`
	OrgName         string     `gorm:"type:varchar(255);not null" json:"org_name"`
	RegistrationNo  string     `gorm:"type:varchar(100)" json:"registration_no"`
	Validity12A     *time.Time `gorm:"column:validity_12a" json:"validity_12a"`
	Validity80G     *time.Time `gorm:"column:validity_80g" json:"validity_80g"`
	FCRARenewalDate *time.Time `gorm:"column:fcra_renewal_date" json:"fcra_renewal_date"`
	TrustScore      int        `gorm:"not null;default:0" json:"trust_score"` // 0-900
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (NGO) TableName() string {
	return "ngos"
}

// Corporate is a CSR funder
type Corporate struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"-"`
	CompanyName string    `gorm:"type:varchar(255);not null" json:"company_name"`
	CIN         string    `gorm:"column:cin;type:varchar(30)" json:"cin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
