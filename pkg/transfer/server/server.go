// Package server implements the HTTP object-transfer service: a minimal
// HTTP/1.0, one-request-per-connection responder over the content-addressed
// object store. Each connection gets an explicit lifecycle state, a logger
// derived per connection via Sublogger, and a Serve(listener) accept loop.
package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/store"
)

// connState names the states a connection passes through, used only for
// logging; the handler below is otherwise a straight-line function, since
// each state is visited exactly once per connection.
type connState string

const (
	stateReadingRequest connState = "reading_request"
	stateResponding     connState = "responding"
	stateDraining       connState = "draining"
	stateClosed         connState = "closed"
)

// RootResolver returns the object store's current root directory reference,
// consulted for the reserved get/name endpoint. It's a function rather than
// a static value because the "serve" command keeps rescanning as the watcher
// reports changes, and
// each request should see whatever the root was at the moment it arrived.
type RootResolver func() (objects.TypedReference, bool)

// Server accepts connections and serves objects out of a store.
type Server struct {
	store    *store.Store
	resolver RootResolver
	logger   *logging.Logger
}

// New creates a Server backed by st, using resolver to answer the reserved
// get/name endpoint.
func New(st *store.Store, resolver RootResolver, logger *logging.Logger) *Server {
	return &Server{store: st, resolver: resolver, logger: logger}
}

// Serve accepts and handles connections until the listener returns an error
// (typically because it was closed), at which point Serve returns that error.
func (s *Server) Serve(listener net.Listener) error {
	defer listener.Close()
	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("error accepting connection: %w", err)
		}
		go s.handle(conn)
	}
}

// maxRequestLineLength and maxHeaderBytes bound how much a single connection
// can make the server read before giving up and closing without a reply; an
// unbounded read is not an option for a service exposed to untrusted
// clients.
const (
	maxRequestLineLength = 8 * 1024
	maxHeaderBytes       = 64 * 1024
)

func (s *Server) handle(conn net.Conn) {
	id := uuid.NewString()
	logger := s.logger.Sublogger(id)
	defer conn.Close()

	logger.Debug("accepted connection from", conn.RemoteAddr(), "state", stateReadingRequest)

	reader := bufio.NewReader(io.LimitReader(conn, maxRequestLineLength+maxHeaderBytes))
	method, target, ok := readRequestLine(reader)
	if !ok {
		logger.Debug("malformed or absent request line, closing without reply")
		return
	}
	if !consumeHeaders(reader) {
		logger.Debug("malformed or incomplete headers, closing without reply")
		return
	}

	logger.Debug("state", stateResponding, method, target)
	s.respond(conn, logger, method, target)

	logger.Debug("state", stateDraining)
	drain(conn)

	logger.Debug("state", stateClosed)
}

// readRequestLine reads "METHOD SP target SP version CRLF" (or LF-only, for
// leniency). Any method other than GET or HEAD is reported back as GET;
// unknown methods are treated as GET rather than rejected.
func readRequestLine(reader *bufio.Reader) (method, target string, ok bool) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", "", false
	}
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	method = strings.ToUpper(fields[0])
	if method != "HEAD" {
		method = "GET"
	}
	return method, fields[1], true
}

// consumeHeaders reads header lines until a blank line, discarding their
// content: this server's routing depends only on the request line.
func consumeHeaders(reader *bufio.Reader) bool {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return true
		}
	}
}

// route is the result of parsing a request target against the server's URL
// grammar.
type route struct {
	hex         string
	browseOnly  bool
	reservedGet bool
}

// parseTarget implements the four forms of the URL grammar:
//
//	/get/hash/<hex>
//	/get/name/<name>
//	/browse/hash/<hex>
//	/hash/<hex>             (legacy shorthand for /get/hash/<hex>)
func parseTarget(target string) (route, bool) {
	target = strings.SplitN(target, "?", 2)[0]
	segments := strings.Split(strings.Trim(target, "/"), "/")
	switch {
	case len(segments) == 3 && segments[0] == "get" && segments[1] == "hash":
		return route{hex: segments[2]}, true
	case len(segments) == 3 && segments[0] == "get" && segments[1] == "name":
		return route{reservedGet: true}, true
	case len(segments) == 3 && segments[0] == "browse" && segments[1] == "hash":
		return route{hex: segments[2], browseOnly: true}, true
	case len(segments) == 2 && segments[0] == "hash":
		return route{hex: segments[1]}, true
	default:
		return route{}, false
	}
}

func (s *Server) respond(conn net.Conn, logger *logging.Logger, method, target string) {
	r, ok := parseTarget(target)
	if !ok {
		writeStatus(conn, 404, "Not Found")
		return
	}
	if r.browseOnly {
		// A human-readable listing view is future work; the endpoint exists
		// in the grammar today only as a 501 placeholder.
		writeStatus(conn, 501, "Not Implemented")
		return
	}

	var content digest.Digest
	if r.reservedGet {
		root, ok := s.resolver()
		if !ok {
			writeStatus(conn, 404, "Not Found")
			return
		}
		content = root.Content
	} else {
		d, err := digest.FromHexSHA256(r.hex)
		if err != nil {
			logger.Debug("rejecting malformed digest syntax:", r.hex)
			writeStatus(conn, 404, "Not Found")
			return
		}
		content = d
	}

	locations := s.store.Find(digest.FromDigest(content))
	if len(locations) == 0 {
		writeStatus(conn, 404, "Not Found")
		return
	}
	location := locations[0]

	size := location.Size()
	header := fmt.Sprintf("HTTP/1.0 200 OK\r\nContent-Length: %d\r\nConnection: close\r\n\r\n", size)
	if _, err := io.WriteString(conn, header); err != nil {
		logger.Debug("failed writing response header:", err)
		return
	}
	if method == "HEAD" {
		return
	}

	if err := streamBody(conn, location); err != nil {
		logger.Warn("aborting response body mid-stream:", err)
	}
}

// streamBody writes location's bytes to conn. A filesystem location whose
// size no longer matches what was recorded aborts the response by closing
// the socket rather than sending a truncated or overlong body.
func streamBody(conn net.Conn, location objects.Location) error {
	if location.InMemory != nil {
		_, err := conn.Write(location.InMemory.Content)
		return err
	}

	f, err := os.Open(location.FileSystem.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	if int64(len(data)) != location.Size() {
		return fmt.Errorf("location size mismatch: expected %d, read %d", location.Size(), len(data))
	}
	_, err = conn.Write(data)
	return err
}

func writeStatus(conn net.Conn, code int, reason string) {
	fmt.Fprintf(conn, "HTTP/1.0 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", code, reason)
}

// drain discards any remaining inbound bytes after responding. Under
// HTTP/1.0 with Connection: close, the client may still be writing (e.g. a
// pipelined request it shouldn't have sent), and we want a clean close
// rather than an RST.
func drain(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
	io.Copy(io.Discard, io.LimitReader(conn, 64*1024))
}
