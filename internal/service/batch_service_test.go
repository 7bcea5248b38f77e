package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/media-dispatch/internal/domain"
	"github.com/kursadbilgin/media-dispatch/internal/notify"
	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"github.com/kursadbilgin/media-dispatch/internal/shopify"
)

func pngFixture(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func buildZipFixture(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := entry.Write(content); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// newSyncBatchService builds a service whose background run executes inline,
// so Submit returns only after the batch reached a terminal state.
func newSyncBatchService(
	t *testing.T,
	batches *fakeImageBatchRepo,
	ops *fakeOpRepo,
	stores *fakeStoreRepo,
	api *fakeProductAPI,
) *BatchService {
	t.Helper()

	factory := func(creds shopify.Credentials) (ProductAPI, error) {
		if creds.Domain == "" || creds.APIToken == "" {
			t.Fatal("client factory called with empty credentials")
		}
		return api, nil
	}

	svc, err := NewBatchService(batches, ops, stores, factory, nil)
	if err != nil {
		t.Fatalf("NewBatchService() error = %v", err)
	}
	svc.launch = func(fn func()) { fn() }
	return svc
}

func TestBatchServiceSubmitSingleModeAllSuccess(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var statuses []domain.BatchStatus
	var progress [][2]int
	batches := &fakeImageBatchRepo{
		updateStatusFn: func(ctx context.Context, id string, status domain.BatchStatus) error {
			mu.Lock()
			defer mu.Unlock()
			statuses = append(statuses, status)
			return nil
		},
		updateProgressFn: func(ctx context.Context, id string, completed, failed int) error {
			mu.Lock()
			defer mu.Unlock()
			progress = append(progress, [2]int{completed, failed})
			return nil
		},
	}

	var recorded []domain.ProductImageOp
	ops := &fakeOpRepo{
		createFn: func(ctx context.Context, op *domain.ProductImageOp) error {
			mu.Lock()
			defer mu.Unlock()
			recorded = append(recorded, *op)
			return nil
		},
	}

	api := &fakeProductAPI{}
	svc := newSyncBatchService(t, batches, ops, &fakeStoreRepo{}, api)

	batch, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", "FL-002", "FL-003"},
		OperationType: "replace",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if batch.TotalItems != 3 {
		t.Fatalf("TotalItems = %d, want 3", batch.TotalItems)
	}

	wantStatuses := []domain.BatchStatus{domain.BatchStatusProcessing, domain.BatchStatusCompleted}
	if len(statuses) != len(wantStatuses) {
		t.Fatalf("status transitions = %v, want %v", statuses, wantStatuses)
	}
	for i, want := range wantStatuses {
		if statuses[i] != want {
			t.Fatalf("status[%d] = %s, want %s", i, statuses[i], want)
		}
	}

	if len(progress) != 3 {
		t.Fatalf("progress updates = %d, want 3", len(progress))
	}
	prev := [2]int{0, 0}
	for i, p := range progress {
		if p[0] < prev[0] || p[1] < prev[1] {
			t.Fatalf("progress[%d] = %v went backwards from %v", i, p, prev)
		}
		if p[0] > batch.TotalItems || p[1] > p[0] {
			t.Fatalf("progress[%d] = %v out of bounds for total %d", i, p, batch.TotalItems)
		}
		prev = p
	}
	if prev != [2]int{3, 0} {
		t.Fatalf("final progress = %v, want [3 0]", prev)
	}

	if len(recorded) != 3 {
		t.Fatalf("recorded ops = %d, want 3", len(recorded))
	}
	for _, op := range recorded {
		if op.Status != domain.OpStatusSuccess {
			t.Fatalf("op status = %s, want SUCCESS (err=%v)", op.Status, op.ErrorMessage)
		}
		if op.ResultingImageURL == nil || *op.ResultingImageURL == "" {
			t.Fatal("success op should carry resulting image url")
		}
		if op.BatchID == nil || *op.BatchID != batch.ID {
			t.Fatal("op should reference the batch")
		}
	}
}

func TestBatchServiceSubmitRejectsOversizedBatch(t *testing.T) {
	t.Parallel()

	batches := &fakeImageBatchRepo{
		createFn: func(ctx context.Context, b *domain.ImageBatch) error {
			t.Fatal("batch should not be created for oversized input")
			return nil
		},
	}

	codes := make([]string, 31)
	for i := range codes {
		codes[i] = fmt.Sprintf("FL-%03d", i+1)
	}

	svc := newSyncBatchService(t, batches, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         codes,
		OperationType: "add",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
}

func TestBatchServiceSubmitDeduplicatesCodes(t *testing.T) {
	t.Parallel()

	var created *domain.ImageBatch
	batches := &fakeImageBatchRepo{
		createFn: func(ctx context.Context, b *domain.ImageBatch) error {
			created = b
			return nil
		},
	}

	svc := newSyncBatchService(t, batches, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", " FL-001 ", "FL-002", ""},
		OperationType: "add",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if created == nil || created.TotalItems != 2 {
		t.Fatalf("TotalItems = %+v, want batch with 2 items", created)
	}
}

func TestBatchServiceSubmitInvalidOperationType(t *testing.T) {
	t.Parallel()

	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001"},
		OperationType: "upsert",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
}

func TestBatchServiceSubmitSingleModeRequiresImage(t *testing.T) {
	t.Parallel()

	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001"},
		OperationType: "replace",
		Mode:          "single",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
}

func TestBatchServiceSubmitNoActiveStore(t *testing.T) {
	t.Parallel()

	stores := &fakeStoreRepo{
		getActiveFn: func(ctx context.Context) (*domain.StoreConfig, error) {
			return nil, domain.ErrNotFound
		},
	}
	batches := &fakeImageBatchRepo{
		createFn: func(ctx context.Context, b *domain.ImageBatch) error {
			t.Fatal("batch should not be created without an active store")
			return nil
		},
	}

	svc := newSyncBatchService(t, batches, &fakeOpRepo{}, stores, &fakeProductAPI{})
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001"},
		OperationType: "replace",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Submit() error = %v, want ErrNotFound", err)
	}
}

func TestBatchServiceSubmitAllFailuresMarksError(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var finalStatus domain.BatchStatus
	var lastProgress [2]int
	batches := &fakeImageBatchRepo{
		updateStatusFn: func(ctx context.Context, id string, status domain.BatchStatus) error {
			mu.Lock()
			defer mu.Unlock()
			finalStatus = status
			return nil
		},
		updateProgressFn: func(ctx context.Context, id string, completed, failed int) error {
			mu.Lock()
			defer mu.Unlock()
			lastProgress = [2]int{completed, failed}
			return nil
		},
	}

	var recorded []domain.ProductImageOp
	ops := &fakeOpRepo{
		createFn: func(ctx context.Context, op *domain.ProductImageOp) error {
			mu.Lock()
			defer mu.Unlock()
			recorded = append(recorded, *op)
			return nil
		},
	}

	api := &fakeProductAPI{
		searchFn: func(ctx context.Context, code string) (*shopify.ProductVariant, error) {
			return nil, shopify.ErrProductNotFound
		},
	}

	svc := newSyncBatchService(t, batches, ops, &fakeStoreRepo{}, api)
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", "FL-002"},
		OperationType: "replace",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if finalStatus != domain.BatchStatusError {
		t.Fatalf("final status = %s, want ERROR", finalStatus)
	}
	if lastProgress != [2]int{2, 2} {
		t.Fatalf("final progress = %v, want [2 2]", lastProgress)
	}
	for _, op := range recorded {
		if op.Status != domain.OpStatusError {
			t.Fatalf("op status = %s, want ERROR", op.Status)
		}
		if op.ErrorMessage == nil || !strings.Contains(*op.ErrorMessage, "product not found") {
			t.Fatalf("error message = %v, want product not found", op.ErrorMessage)
		}
	}
}

func TestBatchServiceSubmitPartialFailureCompletes(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var finalStatus domain.BatchStatus
	var lastProgress [2]int
	batches := &fakeImageBatchRepo{
		updateStatusFn: func(ctx context.Context, id string, status domain.BatchStatus) error {
			mu.Lock()
			defer mu.Unlock()
			finalStatus = status
			return nil
		},
		updateProgressFn: func(ctx context.Context, id string, completed, failed int) error {
			mu.Lock()
			defer mu.Unlock()
			lastProgress = [2]int{completed, failed}
			return nil
		},
	}

	api := &fakeProductAPI{
		searchFn: func(ctx context.Context, code string) (*shopify.ProductVariant, error) {
			if code == "FL-002" {
				return nil, shopify.ErrProductNotFound
			}
			return &shopify.ProductVariant{
				ProductID: "gid://shopify/Product/1",
				SKU:       code,
				Title:     "Floor Lamp",
				Handle:    "floor-lamp",
				Status:    "ACTIVE",
			}, nil
		},
	}

	svc := newSyncBatchService(t, batches, &fakeOpRepo{}, &fakeStoreRepo{}, api)
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", "FL-002", "FL-003"},
		OperationType: "replace",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if finalStatus != domain.BatchStatusCompleted {
		t.Fatalf("final status = %s, want COMPLETED", finalStatus)
	}
	if lastProgress != [2]int{3, 1} {
		t.Fatalf("final progress = %v, want [3 1]", lastProgress)
	}
}

func TestBatchServiceSubmitPerCodeModeMatchesFilenames(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	byCode := make(map[string]domain.ProductImageOp)
	ops := &fakeOpRepo{
		createFn: func(ctx context.Context, op *domain.ProductImageOp) error {
			mu.Lock()
			defer mu.Unlock()
			byCode[op.ProductCode] = *op
			return nil
		},
	}

	img := pngFixture(t)
	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, ops, &fakeStoreRepo{}, &fakeProductAPI{})
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", "FL-002"},
		OperationType: "add",
		Mode:          "per_code",
		Files: []NamedFile{
			{Filename: "FL_001.png", Data: img},
			{Filename: "FL-999.png", Data: img},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	matched, ok := byCode["FL-001"]
	if !ok || matched.Status != domain.OpStatusSuccess {
		t.Fatalf("FL-001 op = %+v, want SUCCESS via separator-insensitive match", matched)
	}

	unmatched, ok := byCode["FL-002"]
	if !ok || unmatched.Status != domain.OpStatusError {
		t.Fatalf("FL-002 op = %+v, want ERROR", unmatched)
	}
	if unmatched.ErrorMessage == nil || !strings.Contains(*unmatched.ErrorMessage, "no image provided") {
		t.Fatalf("FL-002 error = %v, want no image provided", unmatched.ErrorMessage)
	}
}

func TestBatchServiceSubmitArchiveModeUsesPreviewMatching(t *testing.T) {
	t.Parallel()

	img := pngFixture(t)
	archiveData := buildZipFixture(t, map[string][]byte{
		"FL-001.png":      img,
		"unrelated.png":   img,
		"notes/readme.md": []byte("skip me"),
	})
	codes := []string{"FL-001", "FL-002"}

	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})

	report, err := svc.PreviewArchive(context.Background(), archiveData, codes)
	if err != nil {
		t.Fatalf("PreviewArchive() error = %v", err)
	}

	var mu sync.Mutex
	byCode := make(map[string]domain.ProductImageOp)
	ops := &fakeOpRepo{
		createFn: func(ctx context.Context, op *domain.ProductImageOp) error {
			mu.Lock()
			defer mu.Unlock()
			byCode[op.ProductCode] = *op
			return nil
		},
	}
	svc = newSyncBatchService(t, &fakeImageBatchRepo{}, ops, &fakeStoreRepo{}, &fakeProductAPI{})
	_, err = svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         codes,
		OperationType: "replace",
		Mode:          "archive",
		Archive:       archiveData,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Preview classification and execution outcomes must agree code by code.
	for _, code := range report.MatchedCodes {
		if byCode[code].Status != domain.OpStatusSuccess {
			t.Fatalf("previewed match %s did not succeed: %+v", code, byCode[code])
		}
	}
	for _, code := range report.UnmatchedCodes {
		op := byCode[code]
		if op.Status != domain.OpStatusError || op.ErrorMessage == nil || !strings.Contains(*op.ErrorMessage, "no image provided") {
			t.Fatalf("previewed non-match %s = %+v, want no-image error", code, op)
		}
	}
}

func TestBatchServiceProcessCodeRecoversFromPanic(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var finalStatus domain.BatchStatus
	byCode := make(map[string]domain.ProductImageOp)
	batches := &fakeImageBatchRepo{
		updateStatusFn: func(ctx context.Context, id string, status domain.BatchStatus) error {
			mu.Lock()
			defer mu.Unlock()
			finalStatus = status
			return nil
		},
	}
	ops := &fakeOpRepo{
		createFn: func(ctx context.Context, op *domain.ProductImageOp) error {
			mu.Lock()
			defer mu.Unlock()
			byCode[op.ProductCode] = *op
			return nil
		},
	}

	api := &fakeProductAPI{
		searchFn: func(ctx context.Context, code string) (*shopify.ProductVariant, error) {
			if code == "FL-001" {
				panic("client bug")
			}
			return &shopify.ProductVariant{ProductID: "gid://shopify/Product/2", SKU: code, Status: "ACTIVE"}, nil
		},
	}

	svc := newSyncBatchService(t, batches, ops, &fakeStoreRepo{}, api)
	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", "FL-002"},
		OperationType: "add",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	panicked := byCode["FL-001"]
	if panicked.Status != domain.OpStatusError || panicked.ErrorMessage == nil || !strings.Contains(*panicked.ErrorMessage, "internal error") {
		t.Fatalf("FL-001 op = %+v, want contained internal error", panicked)
	}
	if byCode["FL-002"].Status != domain.OpStatusSuccess {
		t.Fatalf("FL-002 op = %+v, want SUCCESS after earlier panic", byCode["FL-002"])
	}
	if finalStatus != domain.BatchStatusCompleted {
		t.Fatalf("final status = %s, want COMPLETED", finalStatus)
	}
}

func TestBatchServiceSubmitReturnsBeforeProcessing(t *testing.T) {
	t.Parallel()

	var deferred func()
	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})
	svc.launch = func(fn func()) { deferred = fn }

	batch, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001"},
		OperationType: "replace",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if batch.Status != domain.BatchStatusPending {
		t.Fatalf("submit status = %s, want PENDING", batch.Status)
	}
	if deferred == nil {
		t.Fatal("expected background run to be scheduled")
	}
	deferred()
}

func TestBatchServiceGetBatchRequiresID(t *testing.T) {
	t.Parallel()

	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})
	if _, err := svc.GetBatch(context.Background(), "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetBatch() error = %v, want ErrValidation", err)
	}
}

func TestBatchServiceSearchProductUsesActiveStore(t *testing.T) {
	t.Parallel()

	api := &fakeProductAPI{
		searchFn: func(ctx context.Context, code string) (*shopify.ProductVariant, error) {
			if code != "FL-001" {
				t.Fatalf("search code = %s, want FL-001", code)
			}
			return &shopify.ProductVariant{ProductID: "gid://shopify/Product/3", SKU: code}, nil
		},
	}

	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, api)
	product, err := svc.SearchProduct(context.Background(), " FL-001 ")
	if err != nil {
		t.Fatalf("SearchProduct() error = %v", err)
	}
	if product.ProductID != "gid://shopify/Product/3" {
		t.Fatalf("product id = %s", product.ProductID)
	}
}

func TestBatchServiceNotifiesCallbackOnFinish(t *testing.T) {
	t.Parallel()

	api := &fakeProductAPI{
		searchFn: func(ctx context.Context, code string) (*shopify.ProductVariant, error) {
			if code == "FL-002" {
				return nil, shopify.ErrProductNotFound
			}
			return &shopify.ProductVariant{ProductID: "gid://shopify/Product/1", Title: "Floral"}, nil
		},
	}
	svc := newSyncBatchService(t, &fakeImageBatchRepo{}, &fakeOpRepo{}, &fakeStoreRepo{}, api)

	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)

	batch, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001", "FL-002", "FL-003"},
		OperationType: "add",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(notifier.summaries) != 1 {
		t.Fatalf("callback invocations = %d, want 1", len(notifier.summaries))
	}
	summary := notifier.summaries[0]
	if summary.BatchID != batch.ID {
		t.Fatalf("summary.BatchID = %q, want %q", summary.BatchID, batch.ID)
	}
	if summary.Status != domain.BatchStatusCompleted.String() {
		t.Fatalf("summary.Status = %q, want %q", summary.Status, domain.BatchStatusCompleted.String())
	}
	if summary.TotalItems != 3 || summary.CompletedItems != 3 || summary.FailedItems != 1 {
		t.Fatalf("summary counters = %d/%d/%d, want 3/3/1",
			summary.TotalItems, summary.CompletedItems, summary.FailedItems)
	}
}

func TestBatchServiceCallbackFailureDoesNotAffectBatch(t *testing.T) {
	t.Parallel()

	var statuses []domain.BatchStatus
	batches := &fakeImageBatchRepo{
		updateStatusFn: func(ctx context.Context, id string, status domain.BatchStatus) error {
			statuses = append(statuses, status)
			return nil
		},
	}
	svc := newSyncBatchService(t, batches, &fakeOpRepo{}, &fakeStoreRepo{}, &fakeProductAPI{})

	notifier := &fakeNotifier{
		notifyFn: func(ctx context.Context, summary notify.BatchSummary) error {
			return errors.New("callback endpoint down")
		},
	}
	svc.SetNotifier(notifier)

	_, err := svc.Submit(context.Background(), SubmitBatchInput{
		Codes:         []string{"FL-001"},
		OperationType: "add",
		Mode:          "single",
		SingleImage:   pngFixture(t),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(statuses) == 0 || statuses[len(statuses)-1] != domain.BatchStatusCompleted {
		t.Fatalf("statuses = %v, want final COMPLETED", statuses)
	}
}

type fakeImageBatchRepo struct {
	createFn         func(ctx context.Context, b *domain.ImageBatch) error
	getByIDFn        func(ctx context.Context, id string) (*domain.ImageBatch, error)
	updateStatusFn   func(ctx context.Context, id string, status domain.BatchStatus) error
	updateProgressFn func(ctx context.Context, id string, completed, failed int) error
}

func (f *fakeImageBatchRepo) Create(ctx context.Context, b *domain.ImageBatch) error {
	if f.createFn != nil {
		return f.createFn(ctx, b)
	}
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	return nil
}

func (f *fakeImageBatchRepo) GetByID(ctx context.Context, id string) (*domain.ImageBatch, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return &domain.ImageBatch{ID: id, Status: domain.BatchStatusProcessing}, nil
}

func (f *fakeImageBatchRepo) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (f *fakeImageBatchRepo) UpdateProgress(ctx context.Context, id string, completed, failed int) error {
	if f.updateProgressFn != nil {
		return f.updateProgressFn(ctx, id, completed, failed)
	}
	return nil
}

type fakeOpRepo struct {
	createFn               func(ctx context.Context, op *domain.ProductImageOp) error
	getByIDFn              func(ctx context.Context, id string) (*domain.ProductImageOp, error)
	getByBatchIDFn         func(ctx context.Context, batchID string) ([]domain.ProductImageOp, error)
	listFn                 func(ctx context.Context, params repository.OpListParams) ([]domain.ProductImageOp, int64, error)
	deleteFn               func(ctx context.Context, id string) error
	deleteFinishedBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeOpRepo) Create(ctx context.Context, op *domain.ProductImageOp) error {
	if f.createFn != nil {
		return f.createFn(ctx, op)
	}
	return nil
}

func (f *fakeOpRepo) GetByID(ctx context.Context, id string) (*domain.ProductImageOp, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOpRepo) GetByBatchID(ctx context.Context, batchID string) ([]domain.ProductImageOp, error) {
	if f.getByBatchIDFn != nil {
		return f.getByBatchIDFn(ctx, batchID)
	}
	return nil, nil
}

func (f *fakeOpRepo) List(ctx context.Context, params repository.OpListParams) ([]domain.ProductImageOp, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeOpRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeOpRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteFinishedBeforeFn != nil {
		return f.deleteFinishedBeforeFn(ctx, cutoff)
	}
	return 0, nil
}

type fakeStoreRepo struct {
	createFn    func(ctx context.Context, store *domain.StoreConfig) error
	getByIDFn   func(ctx context.Context, id string) (*domain.StoreConfig, error)
	getActiveFn func(ctx context.Context) (*domain.StoreConfig, error)
	listFn      func(ctx context.Context) ([]domain.StoreConfig, error)
	activateFn  func(ctx context.Context, id string) error
	deleteFn    func(ctx context.Context, id string) error
	countFn     func(ctx context.Context) (int64, error)
}

func (f *fakeStoreRepo) Create(ctx context.Context, store *domain.StoreConfig) error {
	if f.createFn != nil {
		return f.createFn(ctx, store)
	}
	return nil
}

func (f *fakeStoreRepo) GetByID(ctx context.Context, id string) (*domain.StoreConfig, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStoreRepo) GetActive(ctx context.Context) (*domain.StoreConfig, error) {
	if f.getActiveFn != nil {
		return f.getActiveFn(ctx)
	}
	return &domain.StoreConfig{
		ID:         "store-1",
		Name:       "Demo Store",
		Domain:     "demo.myshopify.com",
		APIToken:   "shpat_test",
		APIVersion: "2024-10",
		Active:     true,
	}, nil
}

func (f *fakeStoreRepo) List(ctx context.Context) ([]domain.StoreConfig, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeStoreRepo) Activate(ctx context.Context, id string) error {
	if f.activateFn != nil {
		return f.activateFn(ctx, id)
	}
	return nil
}

func (f *fakeStoreRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeStoreRepo) Count(ctx context.Context) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx)
	}
	return 0, nil
}

type fakeProductAPI struct {
	searchFn     func(ctx context.Context, code string) (*shopify.ProductVariant, error)
	fromURLFn    func(ctx context.Context, rawURL string) (*shopify.ProductVariant, error)
	addFn        func(ctx context.Context, product *shopify.ProductVariant, img shopify.Image) (*shopify.Asset, error)
	replaceFn    func(ctx context.Context, product *shopify.ProductVariant, img shopify.Image) (*shopify.Asset, error)
	resultingURL func(ctx context.Context, product *shopify.ProductVariant, asset *shopify.Asset) string
}

func (f *fakeProductAPI) SearchProductByCode(ctx context.Context, code string) (*shopify.ProductVariant, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, code)
	}
	return &shopify.ProductVariant{
		ProductID: "gid://shopify/Product/1",
		VariantID: "gid://shopify/ProductVariant/1",
		SKU:       code,
		Title:     "Test Product",
		Handle:    "test-product",
		Status:    "ACTIVE",
	}, nil
}

func (f *fakeProductAPI) GetProductFromURL(ctx context.Context, rawURL string) (*shopify.ProductVariant, error) {
	if f.fromURLFn != nil {
		return f.fromURLFn(ctx, rawURL)
	}
	return &shopify.ProductVariant{ProductID: "gid://shopify/Product/1", Handle: "test-product"}, nil
}

func (f *fakeProductAPI) AddProductImage(ctx context.Context, product *shopify.ProductVariant, img shopify.Image) (*shopify.Asset, error) {
	if f.addFn != nil {
		return f.addFn(ctx, product, img)
	}
	return &shopify.Asset{ID: "gid://shopify/MediaImage/1", URL: "https://cdn.example.com/new.jpg", Status: "READY"}, nil
}

func (f *fakeProductAPI) ReplaceProductImage(ctx context.Context, product *shopify.ProductVariant, img shopify.Image) (*shopify.Asset, error) {
	if f.replaceFn != nil {
		return f.replaceFn(ctx, product, img)
	}
	return &shopify.Asset{ID: "gid://shopify/MediaImage/2", URL: "https://cdn.example.com/replaced.jpg", Status: "READY"}, nil
}

func (f *fakeProductAPI) ResultingURL(ctx context.Context, product *shopify.ProductVariant, asset *shopify.Asset) string {
	if f.resultingURL != nil {
		return f.resultingURL(ctx, product, asset)
	}
	if asset != nil && asset.URL != "" {
		return asset.URL
	}
	return "https://demo.myshopify.com/products/test-product"
}

type fakeNotifier struct {
	notifyFn  func(ctx context.Context, summary notify.BatchSummary) error
	summaries []notify.BatchSummary
}

func (f *fakeNotifier) NotifyBatchFinished(ctx context.Context, summary notify.BatchSummary) error {
	f.summaries = append(f.summaries, summary)
	if f.notifyFn != nil {
		return f.notifyFn(ctx, summary)
	}
	return nil
}
