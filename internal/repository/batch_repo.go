package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"gorm.io/gorm"
)

// BatchRepository is the progress store for image batches. A batch row has
// exactly one writer (its orchestrator) and any number of polling readers;
// counters only ever grow.
type BatchRepository interface {
	Create(ctx context.Context, b *domain.ImageBatch) error
	GetByID(ctx context.Context, id string) (*domain.ImageBatch, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error
	UpdateProgress(ctx context.Context, id string, completedItems, failedItems int) error
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) Create(ctx context.Context, b *domain.ImageBatch) error {
	model := batchModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if b != nil {
		*b = *batchModelToDomain(model)
	}
	return nil
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.ImageBatch, error) {
	var model ImageBatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchModelToDomain(&model), nil
}

func (r *GormBatchRepo) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ImageBatchModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProgress writes both counters. The guard clauses keep the monotonic
// invariant even if a stale write slips in: counters never move backwards.
func (r *GormBatchRepo) UpdateProgress(ctx context.Context, id string, completedItems, failedItems int) error {
	result := r.db.WithContext(ctx).
		Model(&ImageBatchModel{}).
		Where("id = ? AND completed_items <= ? AND failed_items <= ?", id, completedItems, failedItems).
		Updates(map[string]any{
			"completed_items": completedItems,
			"failed_items":    failedItems,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
