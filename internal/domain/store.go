package domain

import (
	"fmt"
	"strings"
	"time"
)

// StoreConfig holds admin-API credentials for one storefront. Exactly one
// record is active at a time; submission resolves the active credentials into
// the batch so an activation switch mid-run cannot redirect it.
type StoreConfig struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Name       string `gorm:"type:varchar(255);not null"`
	Domain     string `gorm:"type:varchar(255);not null"`
	APIToken   string `gorm:"type:varchar(255);not null"`
	APIVersion string `gorm:"type:varchar(20);not null"`
	Active     bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *StoreConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: store name is required", ErrValidation)
	}
	if strings.TrimSpace(s.Domain) == "" {
		return fmt.Errorf("%w: store domain is required", ErrValidation)
	}
	if strings.TrimSpace(s.APIToken) == "" {
		return fmt.Errorf("%w: store api token is required", ErrValidation)
	}
	if strings.TrimSpace(s.APIVersion) == "" {
		return fmt.Errorf("%w: store api version is required", ErrValidation)
	}
	return nil
}
