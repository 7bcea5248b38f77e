package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/media-dispatch/internal/archive"
	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"github.com/kursadbilgin/media-dispatch/internal/service"
	"github.com/kursadbilgin/media-dispatch/internal/shopify"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type BatchService interface {
	Submit(ctx context.Context, input service.SubmitBatchInput) (*domain.ImageBatch, error)
	GetBatch(ctx context.Context, id string) (*domain.ImageBatch, error)
	GetBatchOps(ctx context.Context, batchID string) ([]domain.ProductImageOp, error)
	PreviewArchive(ctx context.Context, archiveData []byte, codes []string) (*archive.PreviewReport, error)
	ListOps(ctx context.Context, params repository.OpListParams) ([]domain.ProductImageOp, int64, error)
	GetOp(ctx context.Context, id string) (*domain.ProductImageOp, error)
	DeleteOp(ctx context.Context, id string) error
	SearchProduct(ctx context.Context, code string) (*shopify.ProductVariant, error)
	ProductFromURL(ctx context.Context, rawURL string) (*shopify.ProductVariant, error)
}

type BatchHandler struct {
	service BatchService
}

func NewBatchHandler(service BatchService) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService) error {
	h, err := NewBatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/image-batches", h.SubmitBatch)
	v1.Get("/image-batches/:id", h.GetBatch)
	v1.Post("/image-batches/preview", h.PreviewArchive)
	v1.Get("/product-operations", h.ListOperations)
	v1.Get("/product-operations/:id", h.GetOperation)
	v1.Delete("/product-operations/:id", h.DeleteOperation)
	v1.Get("/products/search", h.SearchProduct)

	return nil
}

type batchResponse struct {
	ID             string       `json:"id"`
	OperationType  string       `json:"operationType"`
	Status         string       `json:"status"`
	TotalItems     int          `json:"totalItems"`
	CompletedItems int          `json:"completedItems"`
	FailedItems    int          `json:"failedItems"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Operations     []opResponse `json:"operations,omitempty"`
}

type opResponse struct {
	ID                string    `json:"id"`
	BatchID           *string   `json:"batchId,omitempty"`
	ProductCode       string    `json:"productCode"`
	OperationType     string    `json:"operationType"`
	Status            string    `json:"status"`
	ResultingImageURL *string   `json:"resultingImageUrl,omitempty"`
	AltText           *string   `json:"altText,omitempty"`
	ErrorMessage      *string   `json:"errorMessage,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type listOperationsResponse struct {
	Data []opResponse `json:"data"`
	Meta listMeta     `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type productResponse struct {
	ProductID      string `json:"productId"`
	VariantID      string `json:"variantId,omitempty"`
	SKU            string `json:"sku,omitempty"`
	Title          string `json:"title"`
	Handle         string `json:"handle"`
	Status         string `json:"status"`
	OnlineStoreURL string `json:"onlineStoreUrl,omitempty"`
}

// SubmitBatch accepts a multipart form describing the batch and responds with
// the polling handle immediately; processing happens in the background.
//
// Form fields: codes (comma or newline separated, may repeat), operationType,
// mode, and optionally altText, targetFormat, targetWidth, targetHeight.
// File fields by mode: image (single), archive (archive), images (per_code).
func (h *BatchHandler) SubmitBatch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form is required")
	}

	input := service.SubmitBatchInput{
		Codes:         parseCodesField(form.Value["codes"]),
		OperationType: firstValue(form.Value["operationType"]),
		Mode:          firstValue(form.Value["mode"]),
		AltText:       firstValue(form.Value["altText"]),
		TargetFormat:  firstValue(form.Value["targetFormat"]),
	}

	input.TargetWidth, err = parseIntField(form.Value["targetWidth"], "targetWidth")
	if err != nil {
		return toHTTPError(err)
	}
	input.TargetHeight, err = parseIntField(form.Value["targetHeight"], "targetHeight")
	if err != nil {
		return toHTTPError(err)
	}

	if files := form.File["image"]; len(files) > 0 {
		input.SingleImage, err = readUpload(files[0])
		if err != nil {
			return toHTTPError(err)
		}
	}
	if files := form.File["archive"]; len(files) > 0 {
		input.Archive, err = readUpload(files[0])
		if err != nil {
			return toHTTPError(err)
		}
	}
	for _, file := range form.File["images"] {
		data, err := readUpload(file)
		if err != nil {
			return toHTTPError(err)
		}
		input.Files = append(input.Files, service.NamedFile{Filename: file.Filename, Data: data})
	}

	batch, err := h.service.Submit(c.Context(), input)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toBatchResponse(batch, nil))
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	batch, err := h.service.GetBatch(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	ops, err := h.service.GetBatchOps(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch, ops))
}

func (h *BatchHandler) PreviewArchive(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form is required")
	}

	files := form.File["archive"]
	if len(files) == 0 {
		return toHTTPError(fmt.Errorf("%w: archive file is required", domain.ErrValidation))
	}
	data, err := readUpload(files[0])
	if err != nil {
		return toHTTPError(err)
	}

	report, err := h.service.PreviewArchive(c.Context(), data, parseCodesField(form.Value["codes"]))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

func (h *BatchHandler) ListOperations(c *fiber.Ctx) error {
	params, err := parseOpListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	ops, total, err := h.service.ListOps(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listOperationsResponse{
		Data: toOpResponses(ops),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *BatchHandler) GetOperation(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	op, err := h.service.GetOp(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOpResponse(op))
}

func (h *BatchHandler) DeleteOperation(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.DeleteOp(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BatchHandler) SearchProduct(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	rawURL := strings.TrimSpace(c.Query("url"))

	var product *shopify.ProductVariant
	var err error
	switch {
	case code != "":
		product, err = h.service.SearchProduct(c.Context(), code)
	case rawURL != "":
		product, err = h.service.ProductFromURL(c.Context(), rawURL)
	default:
		return toHTTPError(fmt.Errorf("%w: code or url query parameter is required", domain.ErrValidation))
	}
	if err != nil {
		if errors.Is(err, shopify.ErrProductNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(productResponse{
		ProductID:      product.ProductID,
		VariantID:      product.VariantID,
		SKU:            product.SKU,
		Title:          product.Title,
		Handle:         product.Handle,
		Status:         product.Status,
		OnlineStoreURL: product.OnlineStoreURL,
	})
}

func parseOpListParams(c *fiber.Ctx) (repository.OpListParams, error) {
	params := repository.OpListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.OpListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.OpListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status := domain.OpStatus(strings.ToUpper(rawStatus))
		if !status.IsValid() {
			return repository.OpListParams{}, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, rawStatus)
		}
		params.Status = &status
	}

	if batchID := strings.TrimSpace(c.Query("batchId")); batchID != "" {
		params.BatchID = &batchID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.OpListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.OpListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

// parseCodesField accepts repeated form values, each optionally holding
// several codes separated by commas or newlines.
func parseCodesField(values []string) []string {
	var codes []string
	for _, value := range values {
		for _, piece := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == '\n' || r == '\r'
		}) {
			codes = append(codes, strings.TrimSpace(piece))
		}
	}
	return codes
}

func parseIntField(values []string, field string) (int, error) {
	raw := strings.TrimSpace(firstValue(values))
	if raw == "" {
		return 0, nil
	}

	var parsed int
	if _, err := fmt.Sscanf(raw, "%d", &parsed); err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, field)
	}
	return parsed, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read uploaded file %q", domain.ErrValidation, file.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read uploaded file %q", domain.ErrValidation, file.Filename)
	}
	return data, nil
}

func toBatchResponse(batch *domain.ImageBatch, ops []domain.ProductImageOp) batchResponse {
	if batch == nil {
		return batchResponse{}
	}

	return batchResponse{
		ID:             batch.ID,
		OperationType:  batch.OperationType.String(),
		Status:         batch.Status.String(),
		TotalItems:     batch.TotalItems,
		CompletedItems: batch.CompletedItems,
		FailedItems:    batch.FailedItems,
		CreatedAt:      batch.CreatedAt,
		UpdatedAt:      batch.UpdatedAt,
		Operations:     toOpResponses(ops),
	}
}

func toOpResponses(ops []domain.ProductImageOp) []opResponse {
	if len(ops) == 0 {
		return nil
	}
	responses := make([]opResponse, 0, len(ops))
	for i := range ops {
		responses = append(responses, toOpResponse(&ops[i]))
	}
	return responses
}

func toOpResponse(op *domain.ProductImageOp) opResponse {
	if op == nil {
		return opResponse{}
	}

	return opResponse{
		ID:                op.ID,
		BatchID:           op.BatchID,
		ProductCode:       op.ProductCode,
		OperationType:     op.OperationType.String(),
		Status:            op.Status.String(),
		ResultingImageURL: op.ResultingImageURL,
		AltText:           op.AltText,
		ErrorMessage:      op.ErrorMessage,
		CreatedAt:         op.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
