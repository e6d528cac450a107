// Package listener reads client requests off the server's Unix
// datagram socket and forwards each decoded request to the
// coordinator, tagged with the sender's PID.
//
// Grounded on the Rust original's ServerState::spawn_udsock_mngr
// (core/server/state.rs), which spawns a dedicated thread whose sole
// job is reading datagrams and forwarding them over an mpsc channel —
// restated here as a goroutine feeding a Go channel via
// coordinator.Submit. The fail-fast error policy (spec.md §4.4, §7)
// matches the teacher's accept-loop style in
// internal/server.ListenAndServe, which also treats accept errors as
// terminal for the loop.
package listener

import (
	"errors"
	"fmt"
	"net"

	"sdstore/internal/logging"
	"sdstore/internal/protocol"
	"sdstore/internal/sockdir"
)

// Coordinator is the narrow slice of coordinator.Coordinator the
// listener depends on.
type Coordinator interface {
	Submit(clientPID uint32, req protocol.ClientRequest)
}

// Listener reads ClientRequest datagrams from a bound server socket
// and forwards them to a Coordinator.
type Listener struct {
	log   *logging.Logger
	conn  *net.UnixConn
	coord Coordinator
}

// New wraps an already-bound server socket (see sockdir.BindServer).
func New(log *logging.Logger, conn *net.UnixConn, coord Coordinator) *Listener {
	return &Listener{log: log, conn: conn, coord: coord}
}

// Run reads datagrams until the socket is closed or a read/decode
// error occurs, returning that error. Per spec.md §4.4, the listener
// has no recovery policy: any error is fatal and the caller is
// expected to bring the server down.
func (l *Listener) Run() error {
	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, addr, err := l.conn.ReadFromUnix(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("listener: read from server socket: %w", err)
		}

		clientPID, err := sockdir.ClientPIDFromAddr(addr)
		if err != nil {
			return fmt.Errorf("listener: identify sender: %w", err)
		}

		req, err := protocol.DecodeClientRequest(buf[:n])
		if err != nil {
			return fmt.Errorf("listener: decode client request: %w", err)
		}

		l.log.Debug("received client request", logging.Fields{"client_pid": clientPID, "kind": req.Kind})
		l.coord.Submit(clientPID, req)
	}
}
