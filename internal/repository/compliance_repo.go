package repository

import (
	"context"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ComplianceDocRepository interface {
	Create(ctx context.Context, doc *model.ComplianceDoc) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ComplianceDoc, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ComplianceDoc, error)
	// FindByKeyForUpdate locks the checklist row of (project, category, docName)
	FindByKeyForUpdate(ctx context.Context, projectID uuid.UUID, category, docName string) (*model.ComplianceDoc, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.ComplianceDoc, error)
	ListByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]model.ComplianceDoc, error)
	UpdateWithVersion(ctx context.Context, doc *model.ComplianceDoc) error
}

type complianceDocRepository struct {
	db *gorm.DB
}

func NewComplianceDocRepository(db *gorm.DB) ComplianceDocRepository {
	return &complianceDocRepository{db: db}
}

func (r *complianceDocRepository) Create(ctx context.Context, doc *model.ComplianceDoc) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *complianceDocRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ComplianceDoc, error) {
	var doc model.ComplianceDoc
	if err := GetDB(ctx, r.db).Preload("Request").First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *complianceDocRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ComplianceDoc, error) {
	var doc model.ComplianceDoc
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *complianceDocRepository) FindByKeyForUpdate(ctx context.Context, projectID uuid.UUID, category, docName string) (*model.ComplianceDoc, error) {
	var doc model.ComplianceDoc
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ? AND category = ? AND doc_name = ?", projectID, category, docName).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *complianceDocRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.ComplianceDoc, error) {
	var docs []model.ComplianceDoc
	if err := GetDB(ctx, r.db).Preload("Request").Where("project_id = ?", projectID).
		Order("category ASC, doc_name ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *complianceDocRepository) ListByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]model.ComplianceDoc, error) {
	var docs []model.ComplianceDoc
	if len(projectIDs) == 0 {
		return docs, nil
	}
	if err := GetDB(ctx, r.db).Where("project_id IN ?", projectIDs).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *complianceDocRepository) UpdateWithVersion(ctx context.Context, doc *model.ComplianceDoc) error {
	return saveVersioned(GetDB(ctx, r.db), doc, doc.ID, &doc.Version)
}

type DocumentUploadRepository interface {
	Create(ctx context.Context, upload *model.DocumentUpload) error
	ListByComplianceDoc(ctx context.Context, docID uuid.UUID) ([]model.DocumentUpload, error)
}

type documentUploadRepository struct {
	db *gorm.DB
}

func NewDocumentUploadRepository(db *gorm.DB) DocumentUploadRepository {
	return &documentUploadRepository{db: db}
}

func (r *documentUploadRepository) Create(ctx context.Context, upload *model.DocumentUpload) error {
	return GetDB(ctx, r.db).Create(upload).Error
}

func (r *documentUploadRepository) ListByComplianceDoc(ctx context.Context, docID uuid.UUID) ([]model.DocumentUpload, error) {
	var uploads []model.DocumentUpload
	if err := GetDB(ctx, r.db).Where("compliance_doc_id = ?", docID).Order("created_at DESC").Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}
