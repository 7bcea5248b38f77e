package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/media-dispatch/internal/archive"
	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"github.com/kursadbilgin/media-dispatch/internal/matcher"
	"github.com/kursadbilgin/media-dispatch/internal/notify"
	"github.com/kursadbilgin/media-dispatch/internal/observability"
	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"github.com/kursadbilgin/media-dispatch/internal/shopify"
	"go.uber.org/zap"
)

// ProductAPI is the slice of the storefront client the batch flow depends on.
type ProductAPI interface {
	SearchProductByCode(ctx context.Context, code string) (*shopify.ProductVariant, error)
	GetProductFromURL(ctx context.Context, rawURL string) (*shopify.ProductVariant, error)
	AddProductImage(ctx context.Context, product *shopify.ProductVariant, img shopify.Image) (*shopify.Asset, error)
	ReplaceProductImage(ctx context.Context, product *shopify.ProductVariant, img shopify.Image) (*shopify.Asset, error)
	ResultingURL(ctx context.Context, product *shopify.ProductVariant, asset *shopify.Asset) string
}

// ClientFactory builds a storefront client for the given credentials.
type ClientFactory func(creds shopify.Credentials) (ProductAPI, error)

type NamedFile struct {
	Filename string
	Data     []byte
}

type SubmitBatchInput struct {
	Codes         []string
	OperationType string
	Mode          string
	AltText       string
	TargetFormat  string
	TargetWidth   int
	TargetHeight  int
	SingleImage   []byte
	Archive       []byte
	Files         []NamedFile
}

type BatchService struct {
	batches   repository.BatchRepository
	ops       repository.ProductOpRepository
	stores    repository.StoreRepository
	newClient ClientFactory
	metrics   *observability.Metrics
	notifier  notify.Notifier
	logger    *zap.Logger
	launch    func(fn func())
}

func NewBatchService(
	batches repository.BatchRepository,
	ops repository.ProductOpRepository,
	stores repository.StoreRepository,
	newClient ClientFactory,
	logger *zap.Logger,
) (*BatchService, error) {
	if newClient == nil {
		return nil, fmt.Errorf("client factory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		batches:   batches,
		ops:       ops,
		stores:    stores,
		newClient: newClient,
		logger:    logger,
		launch:    func(fn func()) { go fn() },
	}, nil
}

func (s *BatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetNotifier installs an optional batch-completion callback. Delivery is
// best effort and never changes the batch outcome.
func (s *BatchService) SetNotifier(notifier notify.Notifier) {
	if s == nil {
		return
	}
	s.notifier = notifier
}

// Submit validates the request, resolves images onto codes, persists a
// pending batch, and hands it to a background run. The returned batch id is
// the polling handle; execution outcome is never part of the submit response.
func (s *BatchService) Submit(ctx context.Context, input SubmitBatchInput) (*domain.ImageBatch, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	codes := domain.NormalizeCodes(input.Codes)
	if err := domain.ValidateCodes(codes); err != nil {
		return nil, err
	}

	opType, err := domain.ParseOperationTypeFromString(input.OperationType)
	if err != nil {
		return nil, err
	}
	mode, err := domain.ParseResolutionModeFromString(input.Mode)
	if err != nil {
		return nil, err
	}

	format := domain.FormatJPEG
	if strings.TrimSpace(input.TargetFormat) != "" {
		format, err = domain.ParseImageFormatFromString(input.TargetFormat)
		if err != nil {
			return nil, err
		}
	}
	if input.TargetWidth < 0 || input.TargetHeight < 0 {
		return nil, fmt.Errorf("%w: target dimensions must not be negative", domain.ErrValidation)
	}

	images, err := resolveImages(mode, codes, input)
	if err != nil {
		return nil, err
	}

	client, err := s.activeClient(ctx)
	if err != nil {
		return nil, err
	}

	batch := &domain.ImageBatch{
		ID:            uuid.NewString(),
		OperationType: opType,
		TotalItems:    len(codes),
		Status:        domain.BatchStatusPending,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	plan := batchPlan{
		batch:   *batch,
		codes:   codes,
		images:  images,
		client:  client,
		format:  format,
		altText: strings.TrimSpace(input.AltText),
		dims:    domain.Dimensions{Width: input.TargetWidth, Height: input.TargetHeight},
	}

	if s.metrics != nil {
		s.metrics.IncBatchStarted()
	}
	s.launch(func() {
		s.processBatch(plan)
	})

	return batch, nil
}

func (s *BatchService) GetBatch(ctx context.Context, id string) (*domain.ImageBatch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	return s.batches.GetByID(ctx, strings.TrimSpace(id))
}

func (s *BatchService) GetBatchOps(ctx context.Context, batchID string) ([]domain.ProductImageOp, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	return s.ops.GetByBatchID(ctx, strings.TrimSpace(batchID))
}

// PreviewArchive classifies archive contents against codes without touching
// the remote API. It shares the resolver with Submit, so previewed matches
// are exactly the matches a subsequent archive-mode batch would act on.
func (s *BatchService) PreviewArchive(ctx context.Context, archiveData []byte, codes []string) (*archive.PreviewReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := domain.NormalizeCodes(codes)
	if err := domain.ValidateCodes(normalized); err != nil {
		return nil, err
	}
	if len(archiveData) == 0 {
		return nil, fmt.Errorf("%w: archive file is required", domain.ErrValidation)
	}

	report, err := archive.Preview(archiveData, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return report, nil
}

func (s *BatchService) ListOps(ctx context.Context, params repository.OpListParams) ([]domain.ProductImageOp, int64, error) {
	return s.ops.List(ctx, params)
}

func (s *BatchService) GetOp(ctx context.Context, id string) (*domain.ProductImageOp, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: operation id is required", domain.ErrValidation)
	}
	return s.ops.GetByID(ctx, strings.TrimSpace(id))
}

func (s *BatchService) DeleteOp(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: operation id is required", domain.ErrValidation)
	}
	return s.ops.Delete(ctx, strings.TrimSpace(id))
}

func (s *BatchService) SearchProduct(ctx context.Context, code string) (*shopify.ProductVariant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: product code is required", domain.ErrValidation)
	}

	client, err := s.activeClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.SearchProductByCode(ctx, code)
}

func (s *BatchService) ProductFromURL(ctx context.Context, rawURL string) (*shopify.ProductVariant, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: product url is required", domain.ErrValidation)
	}

	client, err := s.activeClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetProductFromURL(ctx, strings.TrimSpace(rawURL))
}

// activeClient resolves the active store credentials into a client. Resolved
// once per submission, so switching the active store never redirects a batch
// already in flight.
func (s *BatchService) activeClient(ctx context.Context) (ProductAPI, error) {
	store, err := s.stores.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("no active store configured: %w", err)
	}

	return s.newClient(shopify.Credentials{
		Domain:     store.Domain,
		APIToken:   store.APIToken,
		APIVersion: store.APIVersion,
	})
}

func resolveImages(mode domain.ResolutionMode, codes []string, input SubmitBatchInput) (domain.ResolvedImageSet, error) {
	switch mode {
	case domain.ModeSingle:
		if len(input.SingleImage) == 0 {
			return nil, fmt.Errorf("%w: an image file is required in single mode", domain.ErrValidation)
		}
		images := make(domain.ResolvedImageSet, len(codes))
		for _, code := range codes {
			images[code] = input.SingleImage
		}
		return images, nil

	case domain.ModeArchive:
		if len(input.Archive) == 0 {
			return nil, fmt.Errorf("%w: an archive file is required in archive mode", domain.ErrValidation)
		}
		entries, err := archive.Extract(input.Archive)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}

		candidates := make([]matcher.Candidate, 0, len(entries))
		byFilename := make(map[string][]byte, len(entries))
		for _, entry := range entries {
			candidates = append(candidates, matcher.Candidate{Filename: entry.Filename, Basename: entry.Basename})
			byFilename[entry.Filename] = entry.Content
		}
		return assignContent(codes, candidates, byFilename), nil

	case domain.ModePerCode:
		if len(input.Files) == 0 {
			return nil, fmt.Errorf("%w: at least one image file is required in per-code mode", domain.ErrValidation)
		}
		candidates := make([]matcher.Candidate, 0, len(input.Files))
		byFilename := make(map[string][]byte, len(input.Files))
		for _, file := range input.Files {
			candidates = append(candidates, matcher.Candidate{
				Filename: file.Filename,
				Basename: basenameWithoutExt(file.Filename),
			})
			byFilename[file.Filename] = file.Data
		}
		return assignContent(codes, candidates, byFilename), nil
	}

	return nil, fmt.Errorf("%w: invalid resolution mode %q", domain.ErrValidation, mode)
}

func assignContent(codes []string, candidates []matcher.Candidate, byFilename map[string][]byte) domain.ResolvedImageSet {
	images := make(domain.ResolvedImageSet)
	for _, assignment := range matcher.Resolve(codes, candidates) {
		images[assignment.Code] = byFilename[assignment.Filename]
	}
	return images
}

func basenameWithoutExt(filename string) string {
	base := filename
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
