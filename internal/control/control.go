// Package control exposes a small local control channel for the running
// host: a JSON request/response protocol over a named pipe on Windows or a
// unix socket elsewhere. It answers status queries and accepts a stop
// request, for the CLI and for supervising tooling.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/framelink/host/internal/logging"
)

const (
	// ReadTimeout is the per-request deadline; idle clients are dropped.
	ReadTimeout = 30 * time.Second

	// MaxRequestBytes caps a single request line.
	MaxRequestBytes = 4 * 1024
)

// Known commands.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
)

// Status is a snapshot of the running host reported over the channel.
type Status struct {
	Version         string  `json:"version"`
	Backend         string  `json:"backend"`
	Running         bool    `json:"running"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	Slots           int     `json:"slots"`
	FramesPublished uint64  `json:"frames_published"`
	FramesTruncated uint64  `json:"frames_truncated"`
	Timeouts        uint64  `json:"timeouts"`
	Reinits         uint64  `json:"reinits"`
	Errors          uint64  `json:"errors"`
	FormatVersion   uint32  `json:"format_version"`
}

// Request is one client command.
type Request struct {
	Command string `json:"command"`
}

// Response answers a request. Status is set for status queries only.
type Response struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// ErrUnknownCommand is reported to clients sending an unrecognized command.
var ErrUnknownCommand = errors.New("unknown command")

// Server serves the control channel.
type Server struct {
	path     string
	statusFn func() Status
	stopFn   func()
	log      *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// NewServer creates a control server bound to path. statusFn is called for
// every status query; stopFn once per accepted stop request.
func NewServer(path string, statusFn func() Status, stopFn func()) *Server {
	return &Server{
		path:     path,
		statusFn: statusFn,
		stopFn:   stopFn,
		log:      logging.L("control"),
	}
}

// Listen accepts clients until stop is closed.
func (s *Server) Listen(stop <-chan struct{}) error {
	listener, err := s.listen()
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("control channel listening", slog.String("path", s.path))

	go func() {
		<-stop
		s.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			s.log.Warn("accept error", slog.String(logging.KeyError, err.Error()))
			continue
		}
		go s.handle(conn)
	}
}

// Close stops accepting new clients.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	s.cleanup()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	lr := &limitedReader{conn: conn, remaining: MaxRequestBytes}
	dec := json.NewDecoder(lr)
	enc := json.NewEncoder(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(ReadTimeout))

		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		lr.reset()

		resp := s.dispatch(&req)
		conn.SetWriteDeadline(time.Now().Add(ReadTimeout))
		if err := enc.Encode(resp); err != nil {
			return
		}
		if req.Command == CommandStop {
			return
		}
	}
}

func (s *Server) dispatch(req *Request) *Response {
	switch req.Command {
	case CommandStatus:
		status := s.statusFn()
		return &Response{OK: true, Status: &status}
	case CommandStop:
		s.log.Info("stop requested over control channel")
		s.stopFn()
		return &Response{OK: true}
	default:
		return &Response{OK: false, Error: fmt.Sprintf("%v: %q", ErrUnknownCommand, req.Command)}
	}
}

// errRequestTooLarge ends a connection whose current request exceeds
// MaxRequestBytes.
var errRequestTooLarge = errors.New("request exceeds size limit")

// limitedReader caps how many bytes a single request may occupy. The
// handler calls reset after every decoded request, so a well-behaved
// client can issue many requests while an oversized one kills the
// connection.
type limitedReader struct {
	conn      net.Conn
	remaining int
}

func (l *limitedReader) reset() { l.remaining = MaxRequestBytes }

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, errRequestTooLarge
	}
	if len(p) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.conn.Read(p)
	l.remaining -= n
	return n, err
}

// Client talks to a running host's control channel.
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

// Dial connects to the control channel at path.
func Dial(path string) (*Client, error) {
	conn, err := dial(path)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", path, err)
	}
	return &Client{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) roundTrip(command string) (*Response, error) {
	c.conn.SetDeadline(time.Now().Add(ReadTimeout))
	if err := c.enc.Encode(&Request{Command: command}); err != nil {
		return nil, fmt.Errorf("control: send %s: %w", command, err)
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("control: read %s response: %w", command, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("control: %s rejected: %s", command, resp.Error)
	}
	return &resp, nil
}

// Status queries the running host.
func (c *Client) Status() (*Status, error) {
	resp, err := c.roundTrip(CommandStatus)
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, errors.New("control: empty status response")
	}
	return resp.Status, nil
}

// Stop asks the running host to shut down.
func (c *Client) Stop() error {
	_, err := c.roundTrip(CommandStop)
	return err
}
