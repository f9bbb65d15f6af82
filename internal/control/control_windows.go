//go:build windows

package control

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// SDDL: SYSTEM gets full control, Interactive Users get read/write.
// Restricting to interactive logons keeps service accounts and network
// logons off the channel.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

func (s *Server) listen() (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	return winio.ListenPipe(s.path, cfg)
}

// cleanup is a no-op: the pipe disappears with its listener.
func (s *Server) cleanup() {}

func dial(path string) (net.Conn, error) {
	return winio.DialPipe(path, nil)
}
