package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"gorm.io/gorm"
)

type OpListParams struct {
	Status   *domain.OpStatus
	BatchID  *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type ProductOpRepository interface {
	Create(ctx context.Context, op *domain.ProductImageOp) error
	GetByID(ctx context.Context, id string) (*domain.ProductImageOp, error)
	GetByBatchID(ctx context.Context, batchID string) ([]domain.ProductImageOp, error)
	List(ctx context.Context, params OpListParams) ([]domain.ProductImageOp, int64, error)
	Delete(ctx context.Context, id string) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormProductOpRepo struct {
	db *gorm.DB
}

func NewGormProductOpRepo(db *gorm.DB) *GormProductOpRepo {
	return &GormProductOpRepo{db: db}
}

func (r *GormProductOpRepo) Create(ctx context.Context, op *domain.ProductImageOp) error {
	model := opModelFromDomain(op)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if op != nil {
		*op = *opModelToDomain(model)
	}
	return nil
}

func (r *GormProductOpRepo) GetByID(ctx context.Context, id string) (*domain.ProductImageOp, error) {
	var model ProductImageOpModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return opModelToDomain(&model), nil
}

func (r *GormProductOpRepo) GetByBatchID(ctx context.Context, batchID string) ([]domain.ProductImageOp, error) {
	var models []ProductImageOpModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	ops := make([]domain.ProductImageOp, 0, len(models))
	for i := range models {
		ops = append(ops, *opModelToDomain(&models[i]))
	}
	return ops, nil
}

func (r *GormProductOpRepo) List(ctx context.Context, params OpListParams) ([]domain.ProductImageOp, int64, error) {
	query := r.db.WithContext(ctx).Model(&ProductImageOpModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BatchID != nil {
		query = query.Where("batch_id = ?", *params.BatchID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []ProductImageOpModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	ops := make([]domain.ProductImageOp, 0, len(models))
	for i := range models {
		ops = append(ops, *opModelToDomain(&models[i]))
	}

	return ops, total, nil
}

func (r *GormProductOpRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ProductImageOpModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteFinishedBefore removes finished operation records older than cutoff.
// Pending rows are kept regardless of age; an in-flight batch still owns them.
func (r *GormProductOpRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []domain.OpStatus{domain.OpStatusSuccess, domain.OpStatusError}, cutoff).
		Delete(&ProductImageOpModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
