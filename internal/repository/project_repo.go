package repository

import (
	"context"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectFilter struct {
	NGOID       *uuid.UUID
	CorporateID *uuid.UUID
	Status      string
	Sector      string
	Page        int
	Limit       int
}

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]model.Project, int64, error)
	ListIDsByNGO(ctx context.Context, ngoID uuid.UUID) ([]uuid.UUID, error)
	AddRaised(ctx context.Context, id uuid.UUID, amount int64) error
	SetCorporate(ctx context.Context, id, corporateID uuid.UUID) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Create(project).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := GetDB(ctx, r.db).
		Preload("NGO").
		Preload("Corporate").
		Preload("Tranches", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.NGOID != nil {
			q = q.Where("ngo_id = ?", *filter.NGOID)
		}
		if filter.CorporateID != nil {
			q = q.Where("corporate_id = ?", *filter.CorporateID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Sector != "" {
			q = q.Where("sector = ?", filter.Sector)
		}
		return q
	}

	if err := db.Model(&model.Project{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Scopes(scope).Preload("NGO").Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) ListIDsByNGO(ctx context.Context, ngoID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := GetDB(ctx, r.db).Model(&model.Project{}).Where("ngo_id = ?", ngoID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *projectRepository) AddRaised(ctx context.Context, id uuid.UUID, amount int64) error {
	return GetDB(ctx, r.db).Model(&model.Project{}).Where("id = ?", id).
		Update("raised_amount", gorm.Expr("raised_amount + ?", amount)).Error
}

func (r *projectRepository) SetCorporate(ctx context.Context, id, corporateID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Project{}).Where("id = ? AND corporate_id IS NULL", id).
		Update("corporate_id", corporateID).Error
}

type DonationRepository interface {
	Create(ctx context.Context, donation *model.Donation) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Donation, error)
}

type donationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *model.Donation) error {
	return GetDB(ctx, r.db).Create(donation).Error
}

func (r *donationRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Donation, error) {
	var donations []model.Donation
	if err := GetDB(ctx, r.db).Where("project_id = ?", projectID).Order("created_at DESC").Find(&donations).Error; err != nil {
		return nil, err
	}
	return donations, nil
}
