package repository

import (
	"context"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrancheRepository interface {
	CreateBatch(ctx context.Context, tranches []model.Tranche) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tranche, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Tranche, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Tranche, error)
	// UpdateWithVersion returns ErrVersionConflict when the row moved on
	UpdateWithVersion(ctx context.Context, tranche *model.Tranche) error
}

type trancheRepository struct {
	db *gorm.DB
}

func NewTrancheRepository(db *gorm.DB) TrancheRepository {
	return &trancheRepository{db: db}
}

func (r *trancheRepository) CreateBatch(ctx context.Context, tranches []model.Tranche) error {
	if len(tranches) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&tranches).Error
}

func (r *trancheRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tranche, error) {
	var tranche model.Tranche
	if err := GetDB(ctx, r.db).First(&tranche, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tranche, nil
}

func (r *trancheRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Tranche, error) {
	var tranche model.Tranche
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&tranche).Error; err != nil {
		return nil, err
	}
	return &tranche, nil
}

func (r *trancheRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Tranche, error) {
	var tranches []model.Tranche
	if err := GetDB(ctx, r.db).Where("project_id = ?", projectID).Order("sequence ASC").Find(&tranches).Error; err != nil {
		return nil, err
	}
	return tranches, nil
}

func (r *trancheRepository) UpdateWithVersion(ctx context.Context, tranche *model.Tranche) error {
	return saveVersioned(GetDB(ctx, r.db), tranche, tranche.ID, &tranche.Version)
}
