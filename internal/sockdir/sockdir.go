// Package sockdir manages the directory of Unix datagram sockets
// sdstored and its clients use to address one another, per spec.md
// §6.3. It is a direct Go restatement of the path-joining and
// stale-file cleanup the Rust original performs inline in
// bin/sdstored.rs and bin/sdstore.rs.
package sockdir

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ServerSocketName is the fixed filename sdstored binds within the
// socket directory.
const ServerSocketName = "sdstored.sock"

// Dir resolves the socket directory for the daemon or a client. If
// dir is empty, it defaults to "tmp" under the current working
// directory, matching the Rust original's `cwd.join("tmp")`.
func Dir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve current directory: %w", err)
	}
	return filepath.Join(cwd, "tmp"), nil
}

// ServerSocketPath returns the path sdstored binds to within dir.
func ServerSocketPath(dir string) string {
	return filepath.Join(dir, ServerSocketName)
}

// ClientSocketPath returns the path a client with the given PID binds
// to within dir, and that the server addresses replies to.
func ClientSocketPath(dir string, clientPID uint32) string {
	return filepath.Join(dir, fmt.Sprintf("sdstore_%d.sock", clientPID))
}

// BindServer ensures dir exists, removes any stale socket file left
// behind by a previous run, and binds a new datagram socket at
// ServerSocketPath(dir).
func BindServer(dir string) (*net.UnixConn, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory %q: %w", dir, err)
	}

	path := ServerSocketPath(dir)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale server socket %q: %w", path, err)
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("bind server socket %q: %w", path, err)
	}
	return conn, nil
}

// BindClient ensures dir exists, removes any stale socket file left
// behind by a client with the same PID (impossible in practice since
// PIDs aren't reused while a prior process is alive, but a crashed
// client can leave a stale file), and binds the client's own datagram
// socket so it can receive replies.
func BindClient(dir string, clientPID uint32) (*net.UnixConn, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory %q: %w", dir, err)
	}

	path := ClientSocketPath(dir, clientPID)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale client socket %q: %w", path, err)
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("bind client socket %q: %w", path, err)
	}
	return conn, nil
}

// ClientPIDFromAddr parses the numeric PID out of a bound client
// socket address's filename (`sdstore_<pid>.sock`), which the
// Listener uses as the authoritative sender identity for a datagram
// (spec.md §9's "client socket discovery" note).
func ClientPIDFromAddr(addr *net.UnixAddr) (uint32, error) {
	if addr == nil || addr.Name == "" {
		return 0, errors.New("datagram carried no sender address; client must bind its own socket before sending")
	}
	base := filepath.Base(addr.Name)
	const prefix, suffix = "sdstore_", ".sock"
	if len(base) <= len(prefix)+len(suffix) || base[:len(prefix)] != prefix || base[len(base)-len(suffix):] != suffix {
		return 0, fmt.Errorf("sender address %q does not match the sdstore_<pid>.sock convention", base)
	}
	pid, err := strconv.ParseUint(base[len(prefix):len(base)-len(suffix)], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("sender address %q does not encode a numeric pid: %w", base, err)
	}
	return uint32(pid), nil
}
