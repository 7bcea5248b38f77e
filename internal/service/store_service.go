package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"go.uber.org/zap"
)

type StoreService struct {
	stores repository.StoreRepository
	logger *zap.Logger
}

func NewStoreService(stores repository.StoreRepository, logger *zap.Logger) (*StoreService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StoreService{
		stores: stores,
		logger: logger,
	}, nil
}

// Create registers a storefront. The first store ever registered becomes
// active automatically so a fresh install is usable without an extra call.
func (s *StoreService) Create(ctx context.Context, store *domain.StoreConfig) (*domain.StoreConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", domain.ErrValidation)
	}

	store.Name = strings.TrimSpace(store.Name)
	store.Domain = strings.TrimSpace(store.Domain)
	store.APIToken = strings.TrimSpace(store.APIToken)
	store.APIVersion = strings.TrimSpace(store.APIVersion)
	if err := store.Validate(); err != nil {
		return nil, err
	}

	store.ID = uuid.NewString()

	count, err := s.stores.Count(ctx)
	if err != nil {
		return nil, err
	}
	store.Active = count == 0

	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}

	s.logger.Info("store registered",
		zap.String("storeId", store.ID),
		zap.String("domain", store.Domain),
		zap.Bool("active", store.Active),
	)
	return store, nil
}

func (s *StoreService) GetByID(ctx context.Context, id string) (*domain.StoreConfig, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: store id is required", domain.ErrValidation)
	}
	return s.stores.GetByID(ctx, strings.TrimSpace(id))
}

func (s *StoreService) List(ctx context.Context) ([]domain.StoreConfig, error) {
	return s.stores.List(ctx)
}

func (s *StoreService) Activate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: store id is required", domain.ErrValidation)
	}

	if err := s.stores.Activate(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.logger.Info("store activated", zap.String("storeId", id))
	return nil
}

func (s *StoreService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: store id is required", domain.ErrValidation)
	}

	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if store.Active {
		return fmt.Errorf("%w: cannot delete the active store", domain.ErrConflict)
	}

	return s.stores.Delete(ctx, id)
}

// EnsureBootstrap seeds a store from environment credentials when the table
// is empty, so docker-compose style setups come up ready to upload.
func (s *StoreService) EnsureBootstrap(ctx context.Context, name, domainName, apiToken, apiVersion string) error {
	count, err := s.stores.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if strings.TrimSpace(name) == "" {
		name = domainName
	}
	_, err = s.Create(ctx, &domain.StoreConfig{
		Name:       name,
		Domain:     domainName,
		APIToken:   apiToken,
		APIVersion: apiVersion,
	})
	return err
}
