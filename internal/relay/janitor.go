package relay

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// CleanStaging removes staged files older than maxAge. Files belonging to
// queued or in-flight items are younger than any sensible maxAge, so only
// crash leftovers are swept.
func (r *Relay) CleanStaging(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(r.cfg.StagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(r.cfg.StagingDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// RunStagingJanitor sweeps the staging directory until ctx is cancelled.
func (r *Relay) RunStagingJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.CleanStaging(maxAge)
			if err != nil && r.log != nil {
				r.log.Errorf("staging sweep: %v", err)
				continue
			}
			if n > 0 && r.log != nil {
				r.log.Infof("swept %d stale staged files", n)
			}
		}
	}
}
