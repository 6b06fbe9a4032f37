package batch

import (
	"context"
	"errors"
	"fmt"

	"mediagrab-be-server/src/application/events"
	"mediagrab-be-server/src/application/records/entity"
	"mediagrab-be-server/src/lib/cerr"

	"github.com/apex/log"
)

const (
	DefaultConcurrency = 3
	MaxConcurrency     = 5
	MaxBatchSize       = 10
)

// caller errors: the batch is rejected up front, no records are created
var (
	ErrNoURLs        = errors.New("at least one URL is required")
	ErrBatchTooLarge = fmt.Errorf("batch size exceeds the maximum of %d URLs", MaxBatchSize)
)

// ItemResult is what a per-item download operation produces on success.
type ItemResult struct {
	FilePath string
	FileName string
	Size     int64
	Metadata map[string]string
}

// ItemFunc performs one download. Implementations are expected to clean
// up their own partial files on failure.
type ItemFunc func(ctx context.Context, sourceURL string) (ItemResult, error)

// Result is the per-item outcome returned to the caller, never shared
// across items.
type Result struct {
	SourceURL string            `json:"url"`
	RecordID  string            `json:"recordId"`
	Success   bool              `json:"success"`
	FileName  string            `json:"fileName,omitempty"`
	FilePath  string            `json:"-"`
	FileSize  int64             `json:"fileSize,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type Outcome struct {
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

// Archiver copies a completed download to long-term storage. Optional.
type Archiver interface {
	Archive(ctx context.Context, localPath string, recordID string, fileName string) (string, error)
}

// Orchestrator drives N downloads in sequential windows of at most the
// concurrency cap, isolating per-item failures and tracking every
// attempt as a persisted record.
type Orchestrator struct {
	recordStore entity.RecordStore
	publisher   events.Publisher
	archiver    Archiver
}

func NewOrchestrator(recordStore entity.RecordStore, publisher events.Publisher) Orchestrator {
	return Orchestrator{
		recordStore: recordStore,
		publisher:   publisher,
	}
}

func (o Orchestrator) WithArchiver(archiver Archiver) Orchestrator {
	o.archiver = archiver
	return o
}

// Run executes the batch. Window K+1 never starts before window K has
// fully resolved; results are placed at their input index regardless of
// completion order. Cancelling ctx stops new windows from launching,
// items already in flight finish naturally.
func (o Orchestrator) Run(ctx context.Context, userID string, urls []string, concurrency int, item ItemFunc) (Outcome, error) {
	if len(urls) == 0 {
		return Outcome{}, ErrNoURLs
	}
	if len(urls) > MaxBatchSize {
		return Outcome{}, ErrBatchTooLarge
	}

	concurrency = clampConcurrency(concurrency)

	// record creation is a precondition: if any record can't be
	// created, no downloads are attempted for the batch
	records := make([]entity.DownloadRecord, len(urls))
	for i, url := range urls {
		record := entity.NewPendingRecord(userID, url)
		if _, err := o.recordStore.CreateRecord(ctx, record); err != nil {
			return Outcome{}, cerr.Field("source_url", url).
				Wrap(err).Error("Failed to create download record for batch")
		}
		records[i] = record
	}

	results := make([]Result, len(urls))

	for windowStart := 0; windowStart < len(urls); windowStart += concurrency {
		if ctx.Err() != nil {
			log.WithField("remaining", len(urls)-windowStart).
				Warn("Batch cancelled, not launching remaining items")
			for i := windowStart; i < len(urls); i++ {
				results[i] = o.failItem(&records[i], "Batch was cancelled before this download started")
			}
			break
		}

		windowEnd := windowStart + concurrency
		if windowEnd > len(urls) {
			windowEnd = len(urls)
		}

		doneChannels := []chan struct{}{}
		for index := windowStart; index < windowEnd; index++ {
			done := make(chan struct{})
			doneChannels = append(doneChannels, done)

			go func(index int) {
				defer close(done)
				results[index] = o.runItem(ctx, &records[index], item)
			}(index)
		}

		// the whole window must resolve before the next one starts
		for _, done := range doneChannels {
			<-done
		}
	}

	return Outcome{
		Results: results,
		Summary: summarize(results),
	}, nil
}

func (o Orchestrator) runItem(ctx context.Context, record *entity.DownloadRecord, item ItemFunc) Result {
	record.MarkDownloading()
	o.saveRecord(ctx, *record)

	itemResult, err := item(ctx, record.FileURL)
	if err != nil {
		cerr.Log(cerr.Field("record_id", record.ID).
			Field("source_url", record.FileURL).
			Wrap(err).Error("Download item failed"))
		return o.failItem(record, err.Error())
	}

	if o.archiver != nil {
		archiveURL, archiveErr := o.archiver.Archive(ctx, itemResult.FilePath, record.ID, itemResult.FileName)
		if archiveErr != nil {
			// archival is best-effort, the download itself succeeded
			cerr.Log(cerr.Field("record_id", record.ID).
				Wrap(archiveErr).Error("Failed to archive completed download"))
		} else {
			if itemResult.Metadata == nil {
				itemResult.Metadata = map[string]string{}
			}
			itemResult.Metadata["archiveUrl"] = archiveURL
		}
	}

	for key, value := range itemResult.Metadata {
		record.SetMetadata(key, value)
	}

	record.MarkCompleted(itemResult.FileName, itemResult.Size)
	o.saveTerminalRecord(*record)
	o.publishTerminalEvent(*record)

	return Result{
		SourceURL: record.FileURL,
		RecordID:  record.ID,
		Success:   true,
		FileName:  itemResult.FileName,
		FilePath:  itemResult.FilePath,
		FileSize:  itemResult.Size,
		Metadata:  itemResult.Metadata,
	}
}

func (o Orchestrator) failItem(record *entity.DownloadRecord, errorMessage string) Result {
	record.MarkFailed(errorMessage)
	o.saveTerminalRecord(*record)
	o.publishTerminalEvent(*record)

	return Result{
		SourceURL: record.FileURL,
		RecordID:  record.ID,
		Success:   false,
		Error:     errorMessage,
	}
}

// a record save failing must not take the download down with it
func (o Orchestrator) saveRecord(ctx context.Context, record entity.DownloadRecord) {
	if err := o.recordStore.SaveRecord(ctx, record); err != nil {
		cerr.Log(cerr.Field("record_id", record.ID).
			Wrap(err).Error("Failed to save download record"))
	}
}

// terminal transitions are persisted on a detached context so that a
// cancelled request can't drop the final state of a record
func (o Orchestrator) saveTerminalRecord(record entity.DownloadRecord) {
	o.saveRecord(context.Background(), record)
}

func (o Orchestrator) publishTerminalEvent(record entity.DownloadRecord) {
	err := o.publisher.PublishRecordEvent(events.RecordEvent{
		RecordID:   record.ID,
		UserID:     record.UserID,
		SourceURL:  record.FileURL,
		Status:     record.Status,
		FileName:   record.FileName,
		FileSize:   record.FileSize,
		Error:      record.Error,
		OccurredAt: record.CompletedAt,
	})
	if err != nil {
		cerr.Log(cerr.Field("record_id", record.ID).
			Wrap(err).Error("Failed to publish record event"))
	}
}

// counts are always derived from the results themselves so they can't
// drift from the list
func summarize(results []Result) Summary {
	summary := Summary{Total: len(results)}
	for _, result := range results {
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	return summary
}

func clampConcurrency(concurrency int) int {
	if concurrency <= 0 {
		return DefaultConcurrency
	}
	if concurrency > MaxConcurrency {
		return MaxConcurrency
	}
	return concurrency
}
