package repository

import (
	"context"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRequestFilter struct {
	NGOID       *uuid.UUID
	CorporateID *uuid.UUID
	ProjectID   *uuid.UUID
	Status      string
	Page        int
	Limit       int
}

type DocumentRequestRepository interface {
	Create(ctx context.Context, req *model.DocumentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.DocumentRequest, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DocumentRequest, error)
	List(ctx context.Context, filter DocumentRequestFilter) ([]model.DocumentRequest, int64, error)
	UpdateWithVersion(ctx context.Context, req *model.DocumentRequest) error
}

type documentRequestRepository struct {
	db *gorm.DB
}

func NewDocumentRequestRepository(db *gorm.DB) DocumentRequestRepository {
	return &documentRequestRepository{db: db}
}

func (r *documentRequestRepository) Create(ctx context.Context, req *model.DocumentRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *documentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DocumentRequest, error) {
	var req model.DocumentRequest
	if err := GetDB(ctx, r.db).Preload("Corporate").Preload("NGO").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *documentRequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DocumentRequest, error) {
	var req model.DocumentRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *documentRequestRepository) List(ctx context.Context, filter DocumentRequestFilter) ([]model.DocumentRequest, int64, error) {
	var requests []model.DocumentRequest
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.NGOID != nil {
			q = q.Where("ngo_id = ?", *filter.NGOID)
		}
		if filter.CorporateID != nil {
			q = q.Where("corporate_id = ?", *filter.CorporateID)
		}
		if filter.ProjectID != nil {
			q = q.Where("project_id = ?", *filter.ProjectID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	if err := db.Model(&model.DocumentRequest{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Scopes(scope).Preload("Corporate").Preload("NGO").
		Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *documentRequestRepository) UpdateWithVersion(ctx context.Context, req *model.DocumentRequest) error {
	return saveVersioned(GetDB(ctx, r.db), req, req.ID, &req.Version)
}
