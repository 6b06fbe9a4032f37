package entity

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	PendingStatus     Status = "pending"
	DownloadingStatus Status = "downloading"
	CompletedStatus   Status = "completed"
	FailedStatus      Status = "failed"
)

// Terminal reports whether a record in this status may never be mutated
// again.
func (s Status) Terminal() bool {
	return s == CompletedStatus || s == FailedStatus
}

func ConvertToStatus(val string) (Status, error) {
	switch Status(val) {
	case PendingStatus, DownloadingStatus, CompletedStatus, FailedStatus:
		return Status(val), nil
	default:
		return "", errInvalidStatus(val)
	}
}

// DownloadRecord tracks one download attempt end to end. Status only
// moves forward: pending -> downloading -> completed|failed.
type DownloadRecord struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	FileURL     string            `json:"fileUrl"`
	FileName    string            `json:"fileName,omitempty"`
	FileSize    int64             `json:"fileSize,omitempty"`
	Status      Status            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Error       string            `json:"error,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	CompletedAt time.Time         `json:"completedAt,omitempty"`
}

func NewPendingRecord(userID string, fileURL string) DownloadRecord {
	return DownloadRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileURL:   fileURL,
		Status:    PendingStatus,
		Timestamp: time.Now().UTC(),
	}
}

// MarkDownloading advances the record out of pending. Terminal records
// are left untouched.
func (r *DownloadRecord) MarkDownloading() {
	if r.Status.Terminal() {
		return
	}
	r.Status = DownloadingStatus
}

func (r *DownloadRecord) MarkCompleted(fileName string, fileSize int64) {
	if r.Status.Terminal() {
		return
	}
	r.Status = CompletedStatus
	r.FileName = fileName
	r.FileSize = fileSize
	r.Error = ""
	r.CompletedAt = time.Now().UTC()
}

func (r *DownloadRecord) MarkFailed(errorMessage string) {
	if r.Status.Terminal() {
		return
	}
	r.Status = FailedStatus
	r.Error = errorMessage
	r.CompletedAt = time.Now().UTC()
}

func (r *DownloadRecord) SetMetadata(key string, value string) {
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	r.Metadata[key] = value
}
