package control

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testPath(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`\\.\pipe\framelink-control-test-%d`, os.Getpid())
	}
	return filepath.Join(t.TempDir(), "control.sock")
}

func startServer(t *testing.T, s *Server) chan struct{} {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Listen(stop) }()
	t.Cleanup(func() {
		close(stop)
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Listen returned: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return stop
}

func dialWithRetry(t *testing.T, path string) *Client {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		c, err := Dial(path)
		if err == nil {
			return c
		}
		if time.Now().After(deadline) {
			t.Fatalf("dialing control channel: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	path := testPath(t)
	want := Status{
		Version:         "1.2.3",
		Backend:         "ddup",
		Running:         true,
		Slots:           2,
		FramesPublished: 42,
		FormatVersion:   3,
	}
	s := NewServer(path, func() Status { return want }, func() {})
	startServer(t, s)

	c := dialWithRetry(t, path)
	defer c.Close()

	got, err := c.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if *got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestMultipleRequestsPerConnection(t *testing.T) {
	path := testPath(t)
	var calls atomic.Uint64
	s := NewServer(path, func() Status {
		calls.Add(1)
		return Status{Running: true}
	}, func() {})
	startServer(t, s)

	c := dialWithRetry(t, path)
	defer c.Close()

	for i := 0; i < 3; i++ {
		if _, err := c.Status(); err != nil {
			t.Fatalf("Status %d: %v", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("status calls = %d, want 3", calls.Load())
	}
}

func TestStopRequest(t *testing.T) {
	path := testPath(t)
	stopped := make(chan struct{})
	s := NewServer(path, func() Status { return Status{} }, func() { close(stopped) })
	startServer(t, s)

	c := dialWithRetry(t, path)
	defer c.Close()

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop callback not invoked")
	}
}

func TestOversizedRequestDropsConnection(t *testing.T) {
	path := testPath(t)
	s := NewServer(path, func() Status { return Status{} }, func() {})
	startServer(t, s)

	c := dialWithRetry(t, path)
	defer c.Close()

	// a single request four times the per-request cap
	pad := strings.Repeat("x", 4*MaxRequestBytes)
	req := fmt.Sprintf("{\"command\":\"status\",\"pad\":%q}\n", pad)
	_, werr := c.conn.Write([]byte(req))

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp Response
	derr := c.dec.Decode(&resp)
	if werr == nil && derr == nil {
		t.Fatal("oversized request should drop the connection, got a response")
	}

	// the server keeps serving fresh connections
	c2 := dialWithRetry(t, path)
	defer c2.Close()
	if _, err := c2.Status(); err != nil {
		t.Fatalf("Status on a fresh connection: %v", err)
	}
}

func TestRequestBudgetResetsBetweenRequests(t *testing.T) {
	path := testPath(t)
	s := NewServer(path, func() Status { return Status{} }, func() {})
	startServer(t, s)

	c := dialWithRetry(t, path)
	defer c.Close()

	// each request fits the cap but together they exceed it
	req := fmt.Sprintf("{\"command\":\"status\",\"pad\":%q}\n", strings.Repeat("x", 3*1024))
	for i := 0; i < 3; i++ {
		if _, err := c.conn.Write([]byte(req)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		var resp Response
		if err := c.dec.Decode(&resp); err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if !resp.OK {
			t.Fatalf("request %d rejected: %s", i, resp.Error)
		}
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	path := testPath(t)
	s := NewServer(path, func() Status { return Status{} }, func() {})
	startServer(t, s)

	c := dialWithRetry(t, path)
	defer c.Close()

	if _, err := c.roundTrip("reboot"); err == nil {
		t.Fatal("unknown command must be rejected")
	}

	// the connection stays usable after a rejected command
	if _, err := c.Status(); err != nil {
		t.Fatalf("Status after rejection: %v", err)
	}
}
