package repository

import (
	"context"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NGORepository interface {
	Create(ctx context.Context, ngo *model.NGO) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.NGO, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.NGO, error)
	ListAll(ctx context.Context) ([]model.NGO, error)
	UpdateCertificates(ctx context.Context, ngo *model.NGO) error
	UpdateTrustScore(ctx context.Context, id uuid.UUID, score int) error
}

type ngoRepository struct {
	db *gorm.DB
}

func NewNGORepository(db *gorm.DB) NGORepository {
	return &ngoRepository{db: db}
}

func (r *ngoRepository) Create(ctx context.Context, ngo *model.NGO) error {
	return GetDB(ctx, r.db).Create(ngo).Error
}

func (r *ngoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.NGO, error) {
	var ngo model.NGO
	if err := GetDB(ctx, r.db).First(&ngo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ngo, nil
}

func (r *ngoRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.NGO, error) {
	var ngo model.NGO
	if err := GetDB(ctx, r.db).First(&ngo, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &ngo, nil
}

func (r *ngoRepository) ListAll(ctx context.Context) ([]model.NGO, error) {
	var ngos []model.NGO
	if err := GetDB(ctx, r.db).Order("created_at ASC").Find(&ngos).Error; err != nil {
		return nil, err
	}
	return ngos, nil
}

func (r *ngoRepository) UpdateCertificates(ctx context.Context, ngo *model.NGO) error {
	return GetDB(ctx, r.db).Model(&model.NGO{}).Where("id = ?", ngo.ID).Updates(map[string]interface{}{
		"registration_no":   ngo.RegistrationNo,
		"validity_12a":      ngo.Validity12A,
		"validity_80g":      ngo.Validity80G,
		"fcra_renewal_date": ngo.FCRARenewalDate,
	}).Error
}

func (r *ngoRepository) UpdateTrustScore(ctx context.Context, id uuid.UUID, score int) error {
	return GetDB(ctx, r.db).Model(&model.NGO{}).Where("id = ?", id).Update("trust_score", score).Error
}

type CorporateRepository interface {
	Create(ctx context.Context, corp *model.Corporate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Corporate, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Corporate, error)
}

type corporateRepository struct {
	db *gorm.DB
}

func NewCorporateRepository(db *gorm.DB) CorporateRepository {
	return &corporateRepository{db: db}
}

func (r *corporateRepository) Create(ctx context.Context, corp *model.Corporate) error {
	return GetDB(ctx, r.db).Create(corp).Error
}

func (r *corporateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Corporate, error) {
	var corp model.Corporate
	if err := GetDB(ctx, r.db).First(&corp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &corp, nil
}

func (r *corporateRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Corporate, error) {
	var corp model.Corporate
	if err := GetDB(ctx, r.db).First(&corp, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &corp, nil
}
