package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"github.com/kursadbilgin/media-dispatch/internal/notify"
	"github.com/kursadbilgin/media-dispatch/internal/observability"
	"github.com/kursadbilgin/media-dispatch/internal/shopify"
	"github.com/kursadbilgin/media-dispatch/internal/transcode"
	"go.uber.org/zap"
)

type batchPlan struct {
	batch   domain.ImageBatch
	codes   []string
	images  domain.ResolvedImageSet
	client  ProductAPI
	format  domain.ImageFormat
	altText string
	dims    domain.Dimensions
}

type codeOutcome struct {
	imageURL string
	err      error
	reason   string
}

// processBatch walks the batch's codes strictly in order. Each code is
// isolated: a failure is recorded on its own operation record and the loop
// moves on. Progress counters are flushed after every code so pollers see
// monotonic movement, and the batch reaches COMPLETED whenever at least one
// code succeeded, ERROR only when all of them failed.
func (s *BatchService) processBatch(plan batchPlan) {
	ctx := observability.WithBatchID(context.Background(), plan.batch.ID)
	logger := observability.WithContextLogger(s.logger, ctx)

	if err := s.batches.UpdateStatus(ctx, plan.batch.ID, domain.BatchStatusProcessing); err != nil {
		logger.Error("failed to mark batch as processing", zap.Error(err))
		return
	}

	completed := 0
	failed := 0
	for _, code := range plan.codes {
		outcome := s.processCode(ctx, plan, code)

		completed++
		if outcome.err != nil {
			failed++
		}

		s.recordOutcome(ctx, logger, plan, code, outcome)

		if err := s.batches.UpdateProgress(ctx, plan.batch.ID, completed, failed); err != nil {
			logger.Error("failed to update batch progress",
				zap.String("productCode", code),
				zap.Error(err),
			)
		}
	}

	status := domain.BatchStatusCompleted
	if failed == len(plan.codes) {
		status = domain.BatchStatusError
	}
	if err := s.batches.UpdateStatus(ctx, plan.batch.ID, status); err != nil {
		logger.Error("failed to mark batch as finished", zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.IncBatchFinished(status.String())
	}
	logger.Info("batch finished",
		zap.String("status", status.String()),
		zap.Int("total", len(plan.codes)),
		zap.Int("failed", failed),
	)

	if s.notifier != nil {
		summary := notify.BatchSummary{
			BatchID:        plan.batch.ID,
			Status:         status.String(),
			OperationType:  plan.batch.OperationType.String(),
			TotalItems:     len(plan.codes),
			CompletedItems: completed,
			FailedItems:    failed,
			FinishedAt:     time.Now().UTC(),
		}
		if err := s.notifier.NotifyBatchFinished(ctx, summary); err != nil {
			logger.Warn("batch completion callback failed", zap.Error(err))
		}
	}
}

// processCode runs one code end to end. Panics are contained here so a bad
// image or client bug costs one item, not the batch.
func (s *BatchService) processCode(ctx context.Context, plan batchPlan, code string) (outcome codeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = codeOutcome{
				err:    fmt.Errorf("internal error: %v", r),
				reason: "panic",
			}
		}
	}()

	data, ok := plan.images[code]
	if !ok || len(data) == 0 {
		return codeOutcome{err: errors.New("no image provided"), reason: "no_image"}
	}

	product, err := plan.client.SearchProductByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shopify.ErrProductNotFound) {
			return codeOutcome{err: fmt.Errorf("product not found for code %q", code), reason: "product_not_found"}
		}
		return codeOutcome{err: fmt.Errorf("product lookup failed: %w", err), reason: "lookup_failed"}
	}

	var dims *domain.Dimensions
	if !plan.dims.IsZero() {
		dims = &plan.dims
	}
	transcoded := transcode.Transcode(data, plan.format, dims)

	altText := plan.altText
	if altText == "" {
		altText = product.Title
	}
	img := shopify.Image{
		Filename: fmt.Sprintf("%s.%s", code, plan.format.Extension()),
		MimeType: transcoded.MimeType,
		Data:     transcoded.Data,
		AltText:  altText,
	}

	start := time.Now()
	var asset *shopify.Asset
	switch plan.batch.OperationType {
	case domain.OperationReplace:
		asset, err = plan.client.ReplaceProductImage(ctx, product, img)
	default:
		asset, err = plan.client.AddProductImage(ctx, product, img)
	}
	if s.metrics != nil {
		s.metrics.ObserveUploadDuration(plan.batch.OperationType.String(), time.Since(start))
	}
	if err != nil {
		return codeOutcome{err: fmt.Errorf("upload failed: %w", err), reason: "upload_failed"}
	}

	return codeOutcome{imageURL: plan.client.ResultingURL(ctx, product, asset)}
}

func (s *BatchService) recordOutcome(
	ctx context.Context,
	logger *zap.Logger,
	plan batchPlan,
	code string,
	outcome codeOutcome,
) {
	batchID := plan.batch.ID
	op := &domain.ProductImageOp{
		ID:            uuid.NewString(),
		BatchID:       &batchID,
		ProductCode:   code,
		OperationType: plan.batch.OperationType,
		Status:        domain.OpStatusSuccess,
		CreatedAt:     time.Now().UTC(),
	}
	if plan.altText != "" {
		altText := plan.altText
		op.AltText = &altText
	}

	if outcome.err != nil {
		message := outcome.err.Error()
		op.Status = domain.OpStatusError
		op.ErrorMessage = &message

		if s.metrics != nil {
			s.metrics.IncImageOpFailed(plan.batch.OperationType.String(), outcome.reason)
		}
		logger.Warn("image operation failed",
			zap.String("productCode", code),
			zap.String("reason", outcome.reason),
			zap.Error(outcome.err),
		)
	} else {
		if outcome.imageURL != "" {
			imageURL := outcome.imageURL
			op.ResultingImageURL = &imageURL
		}
		if s.metrics != nil {
			s.metrics.IncImageUploaded(plan.batch.OperationType.String())
		}
	}

	if err := s.ops.Create(ctx, op); err != nil {
		logger.Error("failed to record image operation",
			zap.String("productCode", code),
			zap.Error(err),
		)
	}
}
