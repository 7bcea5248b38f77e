package notify

import (
	"context"
	"time"
)

// BatchSummary is the payload delivered to the callback endpoint once a
// batch reaches a terminal status.
type BatchSummary struct {
	BatchID        string    `json:"batchId"`
	Status         string    `json:"status"`
	OperationType  string    `json:"operationType"`
	TotalItems     int       `json:"totalItems"`
	CompletedItems int       `json:"completedItems"`
	FailedItems    int       `json:"failedItems"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Notifier is the outbound batch-completion delivery port.
type Notifier interface {
	NotifyBatchFinished(ctx context.Context, summary BatchSummary) error
}
