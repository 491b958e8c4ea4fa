package client

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/store"
	"github.com/mutagen-io/blobtree/pkg/transfer/server"
)

func startServer(t *testing.T, content []byte) (addr string, d digest.Digest) {
	t.Helper()
	st := store.New()
	repo := store.NewRepository()
	d, _, err := digest.SumSHA256(strings.NewReader(string(content)))
	if err != nil {
		t.Fatal(err)
	}
	repo.Insert(digest.FromDigest(d), objects.NewInMemoryLocation(content))
	st.Publish(repo)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	s := server.New(st, func() (objects.TypedReference, bool) { return objects.TypedReference{}, false }, logging.New(logging.LevelDisabled, io.Discard))
	go s.Serve(listener)
	t.Cleanup(func() { listener.Close() })
	return listener.Addr().String(), d
}

func TestHTTPStorageReaderSize(t *testing.T) {
	addr, d := startServer(t, []byte("hello, world"))
	reader := NewHTTPStorageReader(addr)

	size, err := reader.Size(d)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len("hello, world")) {
		t.Fatalf("Size = %d, want %d", size, len("hello, world"))
	}
}

func TestHTTPStorageReaderOpen(t *testing.T) {
	addr, d := startServer(t, []byte("hello, world"))
	reader := NewHTTPStorageReader(addr)

	file, err := reader.Open(d)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello, world" {
		t.Fatalf("body = %q, want %q", data, "hello, world")
	}
	if file.Size() != int64(len(data)) {
		t.Fatalf("Size() = %d, want %d", file.Size(), len(data))
	}
}

func TestHTTPStorageReaderNotFound(t *testing.T) {
	addr, _ := startServer(t, []byte("hello, world"))
	reader := NewHTTPStorageReader(addr)

	zero, err := digest.FromHexSHA256(strings.Repeat("00", 32))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := reader.Size(zero); err != ErrNotFound {
		t.Fatalf("Size error = %v, want ErrNotFound", err)
	}
	if _, err := reader.Open(zero); err != ErrNotFound {
		t.Fatalf("Open error = %v, want ErrNotFound", err)
	}
}
