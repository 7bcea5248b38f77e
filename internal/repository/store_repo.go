package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"gorm.io/gorm"
)

type StoreRepository interface {
	Create(ctx context.Context, store *domain.StoreConfig) error
	GetByID(ctx context.Context, id string) (*domain.StoreConfig, error)
	GetActive(ctx context.Context) (*domain.StoreConfig, error)
	List(ctx context.Context) ([]domain.StoreConfig, error)
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type GormStoreRepo struct {
	db *gorm.DB
}

func NewGormStoreRepo(db *gorm.DB) *GormStoreRepo {
	return &GormStoreRepo{db: db}
}

func (r *GormStoreRepo) Create(ctx context.Context, store *domain.StoreConfig) error {
	model := storeModelFromDomain(store)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	if store != nil {
		*store = *storeModelToDomain(model)
	}
	return nil
}

func (r *GormStoreRepo) GetByID(ctx context.Context, id string) (*domain.StoreConfig, error) {
	var model StoreConfigModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return storeModelToDomain(&model), nil
}

func (r *GormStoreRepo) GetActive(ctx context.Context) (*domain.StoreConfig, error) {
	var model StoreConfigModel
	err := r.db.WithContext(ctx).First(&model, "active = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return storeModelToDomain(&model), nil
}

func (r *GormStoreRepo) List(ctx context.Context) ([]domain.StoreConfig, error) {
	var models []StoreConfigModel
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	stores := make([]domain.StoreConfig, 0, len(models))
	for i := range models {
		stores = append(stores, *storeModelToDomain(&models[i]))
	}
	return stores, nil
}

// Activate marks one store as the upload target and deactivates the rest
// in the same transaction, so at most one store is ever active.
func (r *GormStoreRepo) Activate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model StoreConfigModel
		err := tx.First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&StoreConfigModel{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}

		return tx.Model(&StoreConfigModel{}).
			Where("id = ?", id).
			Update("active", true).Error
	})
}

func (r *GormStoreRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&StoreConfigModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormStoreRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&StoreConfigModel{}).Count(&count).Error
	return count, err
}
