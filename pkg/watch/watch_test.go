//go:build linux

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/watch/notify"
)

// collect returns the next batch of events, or nil if none arrived within
// timeout. A watcher on a quiet (or empty) tree legitimately has nothing to
// deliver, so a timeout isn't a failure.
func collect(t *testing.T, w *Watcher, timeout time.Duration) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	events, err := w.Next(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		t.Fatalf("Next: %v", err)
	}
	return events
}

// TestInitialScanSynthesizesAdds checks that starting a watch on a tree that
// already has content behaves as though every existing entry had just been
// created.
func TestInitialScanSynthesizesAdds(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("bye"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := logging.New(logging.LevelDisabled, os.Stderr)
	w, err := Start(root, logger)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	seen := map[string]bool{}
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) < 3 && time.Now().Before(deadline) {
		for _, e := range collect(t, w, 2*time.Second) {
			if e.Kind == notify.KindAdd {
				seen[e.Path] = true
			}
		}
	}

	for _, want := range []string{"a.txt", "sub", "sub/b.txt"} {
		if !seen[want] {
			t.Errorf("missing synthesized add for %q, saw %v", want, seen)
		}
	}
}

// TestLiveAddIsObserved covers a file created after the watch has settled.
func TestLiveAddIsObserved(t *testing.T) {
	root := t.TempDir()
	logger := logging.New(logging.LevelDisabled, os.Stderr)
	w, err := Start(root, logger)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	// Give the (empty) initial scan a moment to settle before creating new
	// content.
	collect(t, w, 250*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := collect(t, w, 2*time.Second)
		for _, e := range events {
			if e.Path == "new.txt" {
				return
			}
		}
	}
	t.Fatal("live add of new.txt was never observed")
}

// TestCloseFailsParkedNext ensures a receiver blocked in Next is released
// with ErrWatchTerminated when the watcher is closed, rather than hanging.
func TestCloseFailsParkedNext(t *testing.T) {
	root := t.TempDir()
	logger := logging.New(logging.LevelDisabled, os.Stderr)
	w, err := Start(root, logger)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Give the initial (empty) scan a moment to settle.
	collect(t, w, 250*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := w.Next(context.Background())
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if err != ErrWatchTerminated {
			t.Fatalf("Next returned %v, want ErrWatchTerminated", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next never returned after Close")
	}
}

func TestJoinRelative(t *testing.T) {
	if got := joinRelative("", "a"); got != "a" {
		t.Fatalf("joinRelative(%q, %q) = %q", "", "a", got)
	}
	if got := joinRelative("a", "b"); got != "a/b" {
		t.Fatalf("joinRelative(%q, %q) = %q", "a", "b", got)
	}
}
