package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/media-dispatch/internal/domain"
)

type StoreService interface {
	Create(ctx context.Context, store *domain.StoreConfig) (*domain.StoreConfig, error)
	GetByID(ctx context.Context, id string) (*domain.StoreConfig, error)
	List(ctx context.Context) ([]domain.StoreConfig, error)
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type StoreHandler struct {
	service StoreService
}

func NewStoreHandler(service StoreService) (*StoreHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("store service is required")
	}
	return &StoreHandler{service: service}, nil
}

func RegisterStoreRoutes(router fiber.Router, service StoreService) error {
	h, err := NewStoreHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/stores", h.CreateStore)
	v1.Get("/stores", h.ListStores)
	v1.Get("/stores/:id", h.GetStore)
	v1.Post("/stores/:id/activate", h.ActivateStore)
	v1.Delete("/stores/:id", h.DeleteStore)

	return nil
}

type createStoreRequest struct {
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	APIToken   string `json:"apiToken"`
	APIVersion string `json:"apiVersion"`
}

// storeResponse never echoes the API token back.
type storeResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Domain     string    `json:"domain"`
	APIVersion string    `json:"apiVersion"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (h *StoreHandler) CreateStore(c *fiber.Ctx) error {
	var req createStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	store, err := h.service.Create(c.Context(), &domain.StoreConfig{
		Name:       req.Name,
		Domain:     req.Domain,
		APIToken:   req.APIToken,
		APIVersion: req.APIVersion,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toStoreResponse(store))
}

func (h *StoreHandler) ListStores(c *fiber.Ctx) error {
	stores, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]storeResponse, 0, len(stores))
	for i := range stores {
		responses = append(responses, toStoreResponse(&stores[i]))
	}
	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *StoreHandler) GetStore(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	store, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toStoreResponse(store))
}

func (h *StoreHandler) ActivateStore(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Activate(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"storeId": id,
		"active":  true,
	})
}

func (h *StoreHandler) DeleteStore(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toStoreResponse(store *domain.StoreConfig) storeResponse {
	if store == nil {
		return storeResponse{}
	}

	return storeResponse{
		ID:         store.ID,
		Name:       store.Name,
		Domain:     store.Domain,
		APIVersion: store.APIVersion,
		Active:     store.Active,
		CreatedAt:  store.CreatedAt,
		UpdatedAt:  store.UpdatedAt,
	}
}
