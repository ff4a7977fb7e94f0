package repository

import (
	"context"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) ([]model.Message, int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return GetDB(ctx, r.db).Create(msg).Error
}

func (r *messageRepository) ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) ([]model.Message, int64, error) {
	var messages []model.Message
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Message{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("project_id = ?", projectID).Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
