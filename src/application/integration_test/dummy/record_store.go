package dummy

import (
	"context"
	"sort"
	"sync"

	"mediagrab-be-server/src/application/records/entity"
)

var _ entity.RecordStore = &RecordStore{}

func NewDummyRecordStore() *RecordStore {
	return &RecordStore{
		Unavailable:  false,
		CreateBroken: false,
		State:        make(map[string]entity.DownloadRecord),
	}
}

type RecordStore struct {
	Unavailable  bool
	CreateBroken bool
	SaveBroken   bool
	State        map[string]entity.DownloadRecord
	SaveCount    int
	mutex        sync.RWMutex
}

func (r *RecordStore) CreateRecord(_ context.Context, record entity.DownloadRecord) (string, error) {
	if r.Unavailable || r.CreateBroken {
		return "", NetworkFailure
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.State[record.ID] = record
	return record.ID, nil
}

func (r *RecordStore) SaveRecord(ctx context.Context, record entity.DownloadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Unavailable || r.SaveBroken {
		return NetworkFailure
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.SaveCount++
	r.State[record.ID] = record
	return nil
}

func (r *RecordStore) GetRecord(_ context.Context, id string) (entity.DownloadRecord, error) {
	if r.Unavailable {
		return entity.DownloadRecord{}, NetworkFailure
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.State[id]
	if !ok {
		return entity.DownloadRecord{}, NotFound
	}

	return record, nil
}

func (r *RecordStore) FindRecords(_ context.Context, filter entity.RecordFilter, page entity.Pagination) ([]entity.DownloadRecord, error) {
	if r.Unavailable {
		return nil, NetworkFailure
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	matches := []entity.DownloadRecord{}
	for _, record := range r.State {
		if filter.UserID != "" && record.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		matches = append(matches, record)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})

	if page.Limit > 0 {
		start := (page.Page - 1) * page.Limit
		if start < 0 {
			start = 0
		}
		if start >= len(matches) {
			return []entity.DownloadRecord{}, nil
		}

		end := start + page.Limit
		if end > len(matches) {
			end = len(matches)
		}
		matches = matches[start:end]
	}

	return matches, nil
}

func (r *RecordStore) StatusStats(_ context.Context, userID string) ([]entity.StatusStat, error) {
	if r.Unavailable {
		return nil, NetworkFailure
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	byStatus := map[entity.Status]*entity.StatusStat{}
	for _, record := range r.State {
		if record.UserID != userID {
			continue
		}

		stat, ok := byStatus[record.Status]
		if !ok {
			stat = &entity.StatusStat{Status: record.Status}
			byStatus[record.Status] = stat
		}

		stat.Count++
		stat.TotalSize += record.FileSize
	}

	stats := []entity.StatusStat{}
	for _, stat := range byStatus {
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Status < stats[j].Status
	})

	return stats, nil
}

func (r *RecordStore) DeleteRecord(_ context.Context, id string) error {
	if r.Unavailable {
		return NetworkFailure
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.State[id]; !ok {
		return NotFound
	}

	delete(r.State, id)
	return nil
}
