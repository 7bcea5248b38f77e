package repository

import (
	"time"

	"github.com/kursadbilgin/media-dispatch/internal/domain"
)

// ImageBatchModel is the persistence model for the image_batches table.
type ImageBatchModel struct {
	ID             string               `gorm:"type:uuid;primaryKey"`
	OperationType  domain.OperationType `gorm:"type:varchar(10);not null"`
	TotalItems     int                  `gorm:"not null"`
	CompletedItems int                  `gorm:"not null;default:0"`
	FailedItems    int                  `gorm:"not null;default:0"`
	Status         domain.BatchStatus   `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ImageBatchModel) TableName() string {
	return "image_batches"
}

// ProductImageOpModel is the persistence model for product_image_ops.
type ProductImageOpModel struct {
	ID                string               `gorm:"type:uuid;primaryKey"`
	BatchID           *string              `gorm:"type:uuid"`
	ProductCode       string               `gorm:"type:varchar(255);not null"`
	OperationType     domain.OperationType `gorm:"type:varchar(10);not null"`
	ResultingImageURL *string              `gorm:"type:text"`
	AltText           *string              `gorm:"type:text"`
	Status            domain.OpStatus      `gorm:"type:varchar(20);not null"`
	ErrorMessage      *string              `gorm:"type:text"`
	CreatedAt         time.Time
}

func (ProductImageOpModel) TableName() string {
	return "product_image_ops"
}

// StoreConfigModel is the persistence model for store_configs.
type StoreConfigModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Name       string `gorm:"type:varchar(255);not null"`
	Domain     string `gorm:"type:varchar(255);not null"`
	APIToken   string `gorm:"type:varchar(255);not null"`
	APIVersion string `gorm:"type:varchar(20);not null"`
	Active     bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (StoreConfigModel) TableName() string {
	return "store_configs"
}

func batchModelFromDomain(b *domain.ImageBatch) *ImageBatchModel {
	if b == nil {
		return nil
	}

	return &ImageBatchModel{
		ID:             b.ID,
		OperationType:  b.OperationType,
		TotalItems:     b.TotalItems,
		CompletedItems: b.CompletedItems,
		FailedItems:    b.FailedItems,
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func batchModelToDomain(m *ImageBatchModel) *domain.ImageBatch {
	if m == nil {
		return nil
	}

	return &domain.ImageBatch{
		ID:             m.ID,
		OperationType:  m.OperationType,
		TotalItems:     m.TotalItems,
		CompletedItems: m.CompletedItems,
		FailedItems:    m.FailedItems,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func opModelFromDomain(op *domain.ProductImageOp) *ProductImageOpModel {
	if op == nil {
		return nil
	}

	return &ProductImageOpModel{
		ID:                op.ID,
		BatchID:           op.BatchID,
		ProductCode:       op.ProductCode,
		OperationType:     op.OperationType,
		ResultingImageURL: op.ResultingImageURL,
		AltText:           op.AltText,
		Status:            op.Status,
		ErrorMessage:      op.ErrorMessage,
		CreatedAt:         op.CreatedAt,
	}
}

func opModelToDomain(m *ProductImageOpModel) *domain.ProductImageOp {
	if m == nil {
		return nil
	}

	return &domain.ProductImageOp{
		ID:                m.ID,
		BatchID:           m.BatchID,
		ProductCode:       m.ProductCode,
		OperationType:     m.OperationType,
		ResultingImageURL: m.ResultingImageURL,
		AltText:           m.AltText,
		Status:            m.Status,
		ErrorMessage:      m.ErrorMessage,
		CreatedAt:         m.CreatedAt,
	}
}

func storeModelFromDomain(s *domain.StoreConfig) *StoreConfigModel {
	if s == nil {
		return nil
	}

	return &StoreConfigModel{
		ID:         s.ID,
		Name:       s.Name,
		Domain:     s.Domain,
		APIToken:   s.APIToken,
		APIVersion: s.APIVersion,
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func storeModelToDomain(m *StoreConfigModel) *domain.StoreConfig {
	if m == nil {
		return nil
	}

	return &domain.StoreConfig{
		ID:         m.ID,
		Name:       m.Name,
		Domain:     m.Domain,
		APIToken:   m.APIToken,
		APIVersion: m.APIVersion,
		Active:     m.Active,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
