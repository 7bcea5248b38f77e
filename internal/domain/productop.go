package domain

import "time"

// OpStatus is the lifecycle state of a single per-product operation.
type OpStatus string

const (
	OpStatusPending OpStatus = "PENDING"
	OpStatusSuccess OpStatus = "SUCCESS"
	OpStatusError   OpStatus = "ERROR"
)

func (s OpStatus) String() string { return string(s) }

func (s OpStatus) IsValid() bool {
	switch s {
	case OpStatusPending, OpStatusSuccess, OpStatusError:
		return true
	}
	return false
}

// ProductImageOp records the outcome of one image operation on one product.
// A record transitions PENDING -> SUCCESS or PENDING -> ERROR exactly once
// within a single orchestrator iteration and is never reopened.
type ProductImageOp struct {
	ID                string        `gorm:"type:uuid;primaryKey"`
	BatchID           *string       `gorm:"type:uuid"`
	ProductCode       string        `gorm:"type:varchar(255);not null"`
	OperationType     OperationType `gorm:"type:varchar(10);not null"`
	ResultingImageURL *string       `gorm:"type:text"`
	AltText           *string       `gorm:"type:text"`
	Status            OpStatus      `gorm:"type:varchar(20);not null"`
	ErrorMessage      *string       `gorm:"type:text"`
	CreatedAt         time.Time
}
