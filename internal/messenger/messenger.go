// Package messenger delivers protocol messages from the server to
// clients over per-client Unix datagram sockets.
//
// Grounded on spec.md §4.5 for the single outbound operation and on
// spec.md §5, which models the outbound send as a short datagram
// write performed inline on the coordinator's own thread of
// execution ("non-blocking for design purposes") rather than handed
// off to a pool. Sends therefore run synchronously, in the caller's
// goroutine: this is what gives spec.md §8 invariant 5 (strict
// per-client message ordering, e.g. Pending always precedes
// Processing) for free, since the coordinator's own single-goroutine
// event loop already serializes the calls to Send/SendText for a
// given client in the order it decided to make them.
package messenger

import (
	"fmt"
	"net"

	"sdstore/internal/logging"
	"sdstore/internal/protocol"
	"sdstore/internal/sockdir"
)

// Messenger sends messages to clients by addressing a datagram to
// their conventional socket path, reusing the server's own bound
// socket as the send side (spec.md §5: datagram sockets permit
// concurrent reads and writes on the same descriptor).
type Messenger struct {
	log     *logging.Logger
	conn    *net.UnixConn
	sockDir string
}

// New builds a Messenger that sends from conn (the server's bound
// socket) and addresses clients under sockDir.
func New(log *logging.Logger, conn *net.UnixConn, sockDir string) *Messenger {
	return &Messenger{log: log, conn: conn, sockDir: sockDir}
}

// Send delivers one of the MessageToClient sum type's variants to
// clientPID. Send failures are logged but not fatal, per spec.md §7's
// "transient send failure" category. Blocks only for the duration of
// one datagram write.
func (m *Messenger) Send(clientPID uint32, msg protocol.MessageToClient) {
	payload, err := protocol.EncodeMessage(msg)
	if err != nil {
		m.log.Error("encode message to client", logging.Fields{"client_pid": clientPID, "err": err})
		return
	}
	m.deliver(clientPID, payload)
}

// SendText delivers a status reply: a single encoded UTF-8 string
// that is not one of the MessageToClient sum type's variants (spec.md
// §6.4).
func (m *Messenger) SendText(clientPID uint32, text string) {
	m.deliver(clientPID, []byte(text))
}

func (m *Messenger) deliver(clientPID uint32, payload []byte) {
	dest := &net.UnixAddr{Name: sockdir.ClientSocketPath(m.sockDir, clientPID), Net: "unixgram"}
	n, err := m.conn.WriteToUnix(payload, dest)
	if err != nil {
		m.log.Warn("send to client failed", logging.Fields{"client_pid": clientPID, "err": err})
		return
	}
	if n == 0 && len(payload) > 0 {
		m.log.Warn("send to client wrote zero bytes", logging.Fields{"client_pid": clientPID, "err": fmt.Errorf("short write")})
	}
}
