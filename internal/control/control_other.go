//go:build !windows

package control

import (
	"net"
	"os"
	"path/filepath"
)

func (s *Server) listen() (net.Listener, error) {
	// Remove stale socket file
	os.Remove(s.path)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, err
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(s.path, 0770); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}

func (s *Server) cleanup() {
	os.Remove(s.path)
}

func dial(path string) (net.Conn, error) {
	return net.Dial("unix", path)
}
