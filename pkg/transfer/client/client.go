// Package client implements an HTTP storage reader: a client for the server
// in pkg/transfer/server that speaks the same raw
// HTTP/1.0 framing by hand rather than through net/http, since the server
// doesn't negotiate keep-alive, chunked encoding, or anything else net/http
// would otherwise assume is available.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/mutagen-io/blobtree/pkg/digest"
)

// ErrNotFound is the service-level failure for a non-200 response.
var ErrNotFound = errors.New("object not found on server")

// ErrMalformedResponse indicates a response that doesn't parse as a valid
// HTTP/1.0 status line plus a Content-Length header.
var ErrMalformedResponse = errors.New("malformed response from server")

// StorageReader is the capability the clone algorithm needs from a
// transport: look up an object's size, or open it for streaming.
type StorageReader interface {
	Size(d digest.Digest) (int64, error)
	Open(d digest.Digest) (*LinearFile, error)
}

// HTTPStorageReader implements StorageReader against a pkg/transfer/server
// instance reachable at Host ("ip:port").
type HTTPStorageReader struct {
	Host string
}

// NewHTTPStorageReader constructs a reader targeting host.
func NewHTTPStorageReader(host string) *HTTPStorageReader {
	return &HTTPStorageReader{Host: host}
}

// Size issues a HEAD /hash/<hex> request and returns the advertised
// Content-Length.
func (r *HTTPStorageReader) Size(d digest.Digest) (int64, error) {
	conn, status, headers, _, err := r.roundTrip("HEAD", d)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	if status != 200 {
		return 0, ErrNotFound
	}
	length, ok := headers["content-length"]
	if !ok {
		return 0, fmt.Errorf("%w: missing Content-Length", ErrMalformedResponse)
	}
	size, err := strconv.ParseInt(length, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid Content-Length %q", ErrMalformedResponse, length)
	}
	return size, nil
}

// Open issues a GET /hash/<hex> request and returns a LinearFile that
// streams the body as it arrives on the wire.
func (r *HTTPStorageReader) Open(d digest.Digest) (*LinearFile, error) {
	conn, status, headers, buffered, err := r.roundTrip("GET", d)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		conn.Close()
		return nil, ErrNotFound
	}
	length, ok := headers["content-length"]
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("%w: missing Content-Length", ErrMalformedResponse)
	}
	size, err := strconv.ParseInt(length, 10, 64)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: invalid Content-Length %q", ErrMalformedResponse, length)
	}
	return &LinearFile{
		size:   size,
		reader: io.LimitReader(io.MultiReader(strings.NewReader(buffered), conn), size),
		closer: conn,
	}, nil
}

// roundTrip performs one request/response exchange and leaves the connection
// open (for Open; Size's caller closes it immediately), returning the status
// code, lower-cased header map, and any body bytes already read into the
// buffered reader past the blank line that ended the header block.
func (r *HTTPStorageReader) roundTrip(method string, d digest.Digest) (net.Conn, int, map[string]string, string, error) {
	conn, err := net.Dial("tcp", r.Host)
	if err != nil {
		return nil, 0, nil, "", fmt.Errorf("connect failed: %w", err)
	}

	request := fmt.Sprintf("%s /hash/%s HTTP/1.0\r\nHost: %s\r\n\r\n", method, d.Hex(), r.Host)
	if _, err := io.WriteString(conn, request); err != nil {
		conn.Close()
		return nil, 0, nil, "", fmt.Errorf("unable to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, 0, nil, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	status, err := parseStatusLine(statusLine)
	if err != nil {
		conn.Close()
		return nil, 0, nil, "", err
	}

	headers := make(map[string]string)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, 0, nil, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	buffered := ""
	if n := reader.Buffered(); n > 0 {
		b := make([]byte, n)
		reader.Read(b)
		buffered = string(b)
	}

	return conn, status, headers, buffered, nil
}

func parseStatusLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("%w: invalid status line %q", ErrMalformedResponse, line)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid status code in %q", ErrMalformedResponse, line)
	}
	return code, nil
}

// LinearFile is a single, sequentially-readable object body of a known size.
// Reading past size bytes never happens, because the reader is bounded to
// exactly that many, but a peer that closes early simply yields a short
// read, which the consumer (clone) detects on its own.
type LinearFile struct {
	size   int64
	reader io.Reader
	closer io.Closer
}

// NewLinearFile wraps an existing reader as a LinearFile of the given size,
// for StorageReader implementations other than HTTPStorageReader (tests, or
// a future in-process transport) to construct.
func NewLinearFile(size int64, reader io.Reader, closer io.Closer) *LinearFile {
	return &LinearFile{size: size, reader: io.LimitReader(reader, size), closer: closer}
}

// Size returns the object's declared length.
func (f *LinearFile) Size() int64 { return f.size }

// Read implements io.Reader.
func (f *LinearFile) Read(p []byte) (int, error) { return f.reader.Read(p) }

// Close releases the underlying connection.
func (f *LinearFile) Close() error { return f.closer.Close() }
