package watch

import (
	"os"
	"path/filepath"

	"github.com/mutagen-io/blobtree/pkg/watch/notify"
)

// entryInfo is one entry discovered while scanning a single directory.
type entryInfo struct {
	name        string
	isDirectory bool
}

// scanJob asks a worker to watch and list exactly one directory. relPath is
// slash-separated and relative to the watch root ("" for the root itself).
type scanJob struct {
	root    string
	relPath string
	watcher notify.Watcher
}

// scanResult is a job's outcome, posted back to the coordinator.
type scanResult struct {
	relPath string
	watch   notify.Descriptor
	entries []entryInfo
	err     error
}

// runScanJob creates a watch on the job's directory and then lists its
// entries, in that order, so that anything created in the tiny window
// between the two steps is still observed live rather than silently missed.
func runScanJob(job scanJob) scanResult {
	absPath := job.root
	if job.relPath != "" {
		absPath = filepath.Join(job.root, filepath.FromSlash(job.relPath))
	}

	watch, err := job.watcher.Watch(absPath)
	if err != nil {
		return scanResult{relPath: job.relPath, err: err}
	}

	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return scanResult{relPath: job.relPath, watch: watch, err: err}
	}

	entries := make([]entryInfo, 0, len(dirEntries))
	for _, entry := range dirEntries {
		mode := entry.Type()
		switch {
		case mode.IsRegular():
			entries = append(entries, entryInfo{name: entry.Name(), isDirectory: false})
		case mode.IsDir():
			entries = append(entries, entryInfo{name: entry.Name(), isDirectory: true})
		default:
			// Other file types are ignored, matching the scanner.
		}
	}

	return scanResult{relPath: job.relPath, watch: watch, entries: entries}
}
