package entity

import (
	"context"

	"mediagrab-be-server/src/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

func errInvalidStatus(val string) error {
	return cerr.Field("status_value", val).Error("Value does not match any record status")
}

// RecordFilter narrows FindRecords. Zero-value fields are not applied.
type RecordFilter struct {
	UserID string
	Status Status
}

type Pagination struct {
	Page  int
	Limit int
}

// StatusStat is one row of the aggregate-by-status report.
type StatusStat struct {
	Status    Status `json:"status"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"totalSize"`
}

//counterfeiter:generate . RecordStore
type RecordStore interface {
	// CreateRecord persists a new record and returns its id.
	CreateRecord(ctx context.Context, record DownloadRecord) (string, error)

	// SaveRecord overwrites the full record for its id. Saving the same
	// record twice has no observable effect beyond the first save.
	SaveRecord(ctx context.Context, record DownloadRecord) error

	GetRecord(ctx context.Context, id string) (DownloadRecord, error)

	// FindRecords returns records matching the filter, newest first.
	FindRecords(ctx context.Context, filter RecordFilter, page Pagination) ([]DownloadRecord, error)

	// StatusStats aggregates a user's records by status with a size sum.
	StatusStats(ctx context.Context, userID string) ([]StatusStat, error)

	DeleteRecord(ctx context.Context, id string) error
}
