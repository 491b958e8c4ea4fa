// Package watch implements a recursive directory watcher: a single
// coordinator goroutine owns all watcher state and is the only thing that
// ever mutates it, and everything else communicates with it over channels
// rather than shared memory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/watch/notify"
)

// defaultPoolSize is the number of scanner workers used for subtree walks.
func defaultPoolSize() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Event is a portable notification for one path relative to the watch root,
// using '/' regardless of host path separator.
type Event struct {
	Path        string
	IsDirectory bool
	Kind        notify.Kind
}

// ErrWatchTerminated indicates that the watcher was closed, including while a
// Next call was parked waiting for the next batch.
var ErrWatchTerminated = errors.New("watch terminated")

// Watcher delivers batches of Events for a directory tree, starting with a
// synthetic KindAdd for every path discovered during the initial scan.
type Watcher struct {
	reqCh     chan nextRequest
	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

type nextRequest struct {
	reply     chan nextResponse
	abandoned <-chan struct{}
}

type nextResponse struct {
	events []Event
	err    error
}

// Start begins watching root: it creates a watch on root and enqueues its
// initial scan, then returns immediately. Call Next to retrieve notification
// batches as they become available.
func Start(root string, logger *logging.Logger) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve watch root: %w", err)
	}

	native, err := notify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create native watcher: %w", err)
	}

	c := &coordinator{
		root:         absRoot,
		logger:       logger,
		native:       native,
		resultsCh:    make(chan scanResult, 256),
		reqCh:        make(chan nextRequest),
		closeCh:      make(chan struct{}),
		doneCh:       make(chan struct{}),
		byDescriptor: make(map[notify.Descriptor]string),
		byPath:       make(map[string]notify.Descriptor),
	}
	c.pool = newScannerPool(defaultPoolSize(), c.resultsCh)

	go c.loop()

	// Step 1 of the start protocol: watch the root, then enqueue its scan.
	// Both happen inside a single scanJob (see scanjob.go), since watching
	// and listing one directory are the same atomic-from-the-tree's-
	// perspective operation for every directory, root included.
	c.pool.submit(scanJob{root: c.root, relPath: "", watcher: c.native})

	return &Watcher{reqCh: c.reqCh, closeCh: c.closeCh, doneCh: c.doneCh}, nil
}

// Next blocks until a batch of notifications is available, the watcher is
// closed, or ctx is done. A call still waiting when the watcher is closed
// returns ErrWatchTerminated, as does any call made after Close; a batch
// buffered but not yet delivered at that point is discarded.
func (w *Watcher) Next(ctx context.Context) ([]Event, error) {
	req := nextRequest{reply: make(chan nextResponse, 1), abandoned: ctx.Done()}
	select {
	case w.reqCh <- req:
	case <-w.doneCh:
		return nil, ErrWatchTerminated
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.events, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops all watches, drains worker submissions, and fails any parked
// Next call with ErrWatchTerminated. It blocks until shutdown completes.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.closeCh) })
	<-w.doneCh
	return nil
}

// coordinator holds all watcher state; only its own loop goroutine ever
// touches the fields below the channels.
type coordinator struct {
	root   string
	logger *logging.Logger
	native notify.Watcher
	pool   *scannerPool

	resultsCh chan scanResult
	reqCh     chan nextRequest
	closeCh   chan struct{}
	doneCh    chan struct{}

	byDescriptor map[notify.Descriptor]string
	byPath       map[string]notify.Descriptor

	pendingBatch    []Event
	pendingErr      error
	parked          chan nextResponse
	parkedAbandoned <-chan struct{}
}

func (c *coordinator) loop() {
	defer close(c.doneCh)
	for {
		select {
		case <-c.closeCh:
			c.shutdown()
			return
		case req := <-c.reqCh:
			c.handleRequest(req)
		case res := <-c.resultsCh:
			c.handleScanResult(res)
		case ev, ok := <-c.native.Events():
			if !ok {
				c.pendingErr = errors.New("native watcher event channel closed")
				c.flush()
				continue
			}
			c.handleLiveEvent(ev)
		case err := <-c.native.Errors():
			c.logger.Error("native watcher failed:", err)
			c.pendingErr = err
			c.flush()
			c.shutdown()
			return
		}
		c.flush()
	}
}

// handleRequest services one Next() call: answer immediately if there's
// something to deliver, otherwise park it.
func (c *coordinator) handleRequest(req nextRequest) {
	if c.parked != nil {
		// A previous request is already parked; Next has a single-receiver
		// contract with no defined behavior for concurrent waiters, so the
		// newest caller wins. The stale caller's reply channel is closed: if
		// it is still waiting, its Next returns no events and a nil error.
		close(c.parked)
	}
	c.parked = req.reply
	c.parkedAbandoned = req.abandoned
}

// flush delivers the pending batch or error to a parked receiver, if any. A
// receiver whose context expired while it was parked is discarded instead,
// leaving the batch buffered for whoever calls Next afterward.
func (c *coordinator) flush() {
	if c.parked == nil {
		return
	}
	select {
	case <-c.parkedAbandoned:
		c.parked = nil
		c.parkedAbandoned = nil
		return
	default:
	}
	if len(c.pendingBatch) > 0 {
		c.parked <- nextResponse{events: c.pendingBatch}
		c.pendingBatch = nil
		c.parked = nil
		c.parkedAbandoned = nil
		return
	}
	if c.pendingErr != nil {
		c.parked <- nextResponse{err: c.pendingErr}
		c.pendingErr = nil
		c.parked = nil
		c.parkedAbandoned = nil
	}
}

func (c *coordinator) shutdown() {
	c.pool.stop()
	c.native.Close()
	if c.parked != nil {
		c.parked <- nextResponse{err: ErrWatchTerminated}
		c.parked = nil
		c.parkedAbandoned = nil
	}
}

// handleScanResult records watch+listing results from a completed scan job
// (the initial scan, or a rescan triggered by a live add of a directory) and
// synthesizes KindAdd events for every entry it found. A job error doesn't
// terminate the watcher: it's surfaced to the next Next call as an error,
// nothing more.
func (c *coordinator) handleScanResult(res scanResult) {
	if res.err != nil {
		c.logger.Warn("scan of", res.relPath, "failed:", res.err)
		c.pendingErr = res.err
		return
	}

	c.byDescriptor[res.watch] = res.relPath
	c.byPath[res.relPath] = res.watch

	for _, entry := range res.entries {
		childRel := joinRelative(res.relPath, entry.name)
		c.pendingBatch = append(c.pendingBatch, Event{Path: childRel, IsDirectory: entry.isDirectory, Kind: notify.KindAdd})
		if entry.isDirectory {
			c.pool.submit(scanJob{root: c.root, relPath: childRel, watcher: c.native})
		}
	}
}

// handleLiveEvent translates one native notification into a portable Event,
// resolving it to a root-relative path by joining the watched directory's
// relative path with the event's name.
func (c *coordinator) handleLiveEvent(ev notify.Event) {
	parentRel, known := c.byDescriptor[ev.Watch]
	if !known {
		return
	}

	switch ev.Kind {
	case notify.KindMoveSelf, notify.KindRemoveSelf:
		c.pendingBatch = append(c.pendingBatch, Event{Path: parentRel, Kind: ev.Kind})
		delete(c.byPath, parentRel)
		delete(c.byDescriptor, ev.Watch)
		return
	}

	childRel := joinRelative(parentRel, ev.Name)

	switch ev.Kind {
	case notify.KindAdd:
		c.pendingBatch = append(c.pendingBatch, Event{Path: childRel, IsDirectory: ev.IsDirectory, Kind: notify.KindAdd})
		if ev.IsDirectory {
			c.pool.submit(scanJob{root: c.root, relPath: childRel, watcher: c.native})
		}
	case notify.KindRemove:
		c.pendingBatch = append(c.pendingBatch, Event{Path: childRel, Kind: notify.KindRemove})
		if wd, ok := c.byPath[childRel]; ok {
			c.native.Unwatch(wd)
			delete(c.byPath, childRel)
			delete(c.byDescriptor, wd)
		}
	default:
		c.pendingBatch = append(c.pendingBatch, Event{Path: childRel, Kind: ev.Kind})
	}
}

func joinRelative(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
