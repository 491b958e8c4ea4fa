//go:build linux

package notify

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// inotifyEventHeaderSize is the size, in bytes, of the fixed portion of a
// unix.InotifyEvent preceding its variable-length, NUL-padded name.
const inotifyEventHeaderSize = unix.SizeofInotifyEvent

// inotifyReadBufferSize is large enough to drain several coalesced bursts
// of events per read(2) call.
const inotifyReadBufferSize = 64 * 1024

// inotifyMask is the set of events requested for every watched directory:
// enough to translate into every notify.Kind the coordinator understands.
const inotifyMask = unix.IN_MODIFY | unix.IN_ATTRIB | unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_CREATE | unix.IN_DELETE |
	unix.IN_DELETE_SELF | unix.IN_MOVE_SELF

// inotifyWatcher implements Watcher using a single inotify file descriptor
// shared across every watched directory. The descriptor is non-blocking and
// read under poll(2) alongside a wakeup pipe: closing an fd out from under a
// goroutine parked in a blocking read(2) would not interrupt it, so shutdown
// instead pokes the pipe and lets the poll loop exit on its own.
type inotifyWatcher struct {
	fd      int
	wakeupR int
	wakeupW int

	mu     sync.Mutex
	byWD   map[int32]Descriptor
	byDesc map[Descriptor]int32
	nextID uint64
	closed bool

	events  chan Event
	errors  chan error
	closing chan struct{}
	done    chan struct{}
}

// NewWatcher creates an inotify-backed Watcher.
func NewWatcher() (Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	w := &inotifyWatcher{
		fd:      fd,
		wakeupR: pipe[0],
		wakeupW: pipe[1],
		byWD:    make(map[int32]Descriptor),
		byDesc:  make(map[Descriptor]int32),
		events:  make(chan Event, 64),
		errors:  make(chan error, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *inotifyWatcher) Watch(path string) (Descriptor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	wd, err := unix.InotifyAddWatch(w.fd, path, inotifyMask)
	if err != nil {
		return 0, fmt.Errorf("inotify_add_watch %s: %w", path, err)
	}
	// The kernel reuses a watch descriptor for the same inode if it's
	// already watched; reuse our Descriptor too so the coordinator's
	// bidirectional map stays one-to-one.
	if existing, ok := w.byWD[int32(wd)]; ok {
		return existing, nil
	}
	w.nextID++
	d := Descriptor(w.nextID)
	w.byWD[int32(wd)] = d
	w.byDesc[d] = int32(wd)
	return d, nil
}

func (w *inotifyWatcher) Unwatch(d Descriptor) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	wd, ok := w.byDesc[d]
	if !ok {
		return nil
	}
	delete(w.byDesc, d)
	delete(w.byWD, wd)
	if _, err := unix.InotifyRmWatch(w.fd, uint32(wd)); err != nil {
		return fmt.Errorf("inotify_rm_watch: %w", err)
	}
	return nil
}

func (w *inotifyWatcher) Events() <-chan Event { return w.events }
func (w *inotifyWatcher) Errors() <-chan error { return w.errors }

func (w *inotifyWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	// Release any event delivery in flight, then wake the poll loop and wait
	// for it to exit before tearing down the descriptors it's using.
	close(w.closing)
	unix.Write(w.wakeupW, []byte{0})
	<-w.done

	unix.Close(w.fd)
	unix.Close(w.wakeupR)
	unix.Close(w.wakeupW)
	return nil
}

// run polls the inotify descriptor and the wakeup pipe, draining and
// translating raw events until Close pokes the pipe.
func (w *inotifyWatcher) run() {
	defer close(w.done)
	buf := make([]byte, inotifyReadBufferSize)
	for {
		pollFDs := []unix.PollFd{
			{Fd: int32(w.fd), Events: unix.POLLIN},
			{Fd: int32(w.wakeupR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pollFDs, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			w.fail(fmt.Errorf("poll: %w", err))
			return
		}
		if n == 0 {
			continue
		}
		if pollFDs[1].Revents != 0 {
			return
		}
		if pollFDs[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) == 0 {
			continue
		}
		for {
			n, err := unix.Read(w.fd, buf)
			if err == unix.EAGAIN {
				break
			} else if err == unix.EINTR {
				continue
			} else if err != nil {
				w.fail(fmt.Errorf("inotify read: %w", err))
				return
			}
			if n == 0 {
				break
			}
			if !w.translate(buf[:n]) {
				return
			}
		}
	}
}

// fail delivers a fatal backend error without blocking if nothing is
// listening.
func (w *inotifyWatcher) fail(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// translate converts a raw inotify buffer into portable Events. It returns
// false if the watcher began closing while an event delivery was blocked.
func (w *inotifyWatcher) translate(buf []byte) bool {
	offset := 0
	for offset+inotifyEventHeaderSize <= len(buf) {
		wd := int32(binary.LittleEndian.Uint32(buf[offset:]))
		mask := binary.LittleEndian.Uint32(buf[offset+4:])
		nameLen := int(binary.LittleEndian.Uint32(buf[offset+12:]))

		name := ""
		if nameLen > 0 {
			nameBytes := buf[offset+inotifyEventHeaderSize : offset+inotifyEventHeaderSize+nameLen]
			if i := indexNUL(nameBytes); i >= 0 {
				nameBytes = nameBytes[:i]
			}
			name = string(nameBytes)
		}
		offset += inotifyEventHeaderSize + nameLen

		w.mu.Lock()
		d, known := w.byWD[wd]
		w.mu.Unlock()
		if !known {
			continue
		}

		isDir := mask&unix.IN_ISDIR != 0
		for _, kind := range translateMask(mask) {
			select {
			case w.events <- Event{Watch: d, Name: name, Kind: kind, IsDirectory: isDir}:
			case <-w.closing:
				return false
			}
		}
	}
	return true
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// translateMask maps a raw inotify event mask to at most one portable kind,
// testing bits in the order below; a mask carrying several bits is reported
// as the first that matches. A rename arrives as two events (IN_MOVED_FROM
// at the old name, IN_MOVED_TO at the new one), translated to a remove and
// an add respectively.
func translateMask(mask uint32) []Kind {
	switch {
	case mask&unix.IN_CREATE != 0, mask&unix.IN_MOVED_TO != 0:
		return []Kind{KindAdd}
	case mask&unix.IN_DELETE != 0, mask&unix.IN_MOVED_FROM != 0:
		return []Kind{KindRemove}
	case mask&unix.IN_DELETE_SELF != 0:
		return []Kind{KindRemoveSelf}
	case mask&unix.IN_MOVE_SELF != 0:
		return []Kind{KindMoveSelf}
	case mask&unix.IN_CLOSE_WRITE != 0:
		return []Kind{KindChangeContent}
	case mask&unix.IN_ATTRIB != 0:
		return []Kind{KindChangeMetadata}
	case mask&unix.IN_MODIFY != 0:
		return []Kind{KindChangeContentOrMetadata}
	default:
		return nil
	}
}
