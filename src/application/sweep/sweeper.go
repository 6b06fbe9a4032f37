package sweep

import (
	"os"
	"path/filepath"
	"time"

	"mediagrab-be-server/src/lib/cerr"

	"github.com/apex/log"
)

// Sweeper reclaims temp files that downloads left behind (abandoned
// batch outputs, files whose stream to the client was interrupted).
type Sweeper struct {
	dir       string
	retention time.Duration
	interval  time.Duration
}

func NewSweeper(dir string, retention time.Duration, interval time.Duration) Sweeper {
	return Sweeper{
		dir:       dir,
		retention: retention,
		interval:  interval,
	}
}

// Start runs the sweep on a fixed schedule until stop is closed.
func (s Sweeper) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				removed, err := s.SweepOnce()
				if err != nil {
					cerr.Log(err)
					continue
				}
				log.WithField("removed", removed).Info("Finished temp file sweep")
			}
		}
	}()
}

// SweepOnce deletes every entry in the temp dir whose last modification
// is older than the retention window. A single entry failing to stat or
// delete is logged and does not abort the rest of the sweep.
func (s Sweeper) SweepOnce() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, cerr.Field("dir", s.dir).
			Wrap(err).Error("Failed to list temp directory")
	}

	cutoff := time.Now().Add(-s.retention)
	removed := 0

	for _, entry := range entries {
		entryPath := filepath.Join(s.dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			cerr.Log(cerr.Field("path", entryPath).
				Wrap(err).Error("Failed to stat temp entry, skipping"))
			continue
		}

		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.RemoveAll(entryPath); err != nil {
			cerr.Log(cerr.Field("path", entryPath).
				Wrap(err).Error("Failed to remove temp entry, skipping"))
			continue
		}

		removed++
	}

	return removed, nil
}
