package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_image_batches",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ImageBatchModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_image_batches_status_created ON image_batches (status, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ImageBatchModel{})
			},
		},
		{
			ID: "000002_create_product_image_ops",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ProductImageOpModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_product_image_ops_batch_id ON product_image_ops (batch_id) WHERE batch_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_product_image_ops_status_created ON product_image_ops (status, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_product_image_ops_product_code ON product_image_ops (product_code)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ProductImageOpModel{})
			},
		},
		{
			ID: "000003_create_store_configs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.StoreConfigModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_store_configs_domain ON store_configs (domain)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_store_configs_active ON store_configs (active) WHERE active`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.StoreConfigModel{})
			},
		},
	})

	return m.Migrate()
}
