package sockdir

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestClientSocketPath(t *testing.T) {
	got := ClientSocketPath("/tmp/sdstore", 1234)
	want := filepath.Join("/tmp/sdstore", "sdstore_1234.sock")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBindServerRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	path := ServerSocketPath(dir)
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	conn, err := BindServer(dir)
	if err != nil {
		t.Fatalf("BindServer: %v", err)
	}
	defer conn.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected socket bound at %q: %v", path, err)
	}
}

func TestBindClientAndAddrRoundTrip(t *testing.T) {
	dir := t.TempDir()
	conn, err := BindClient(dir, 4242)
	if err != nil {
		t.Fatalf("BindClient: %v", err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UnixAddr)
	pid, err := ClientPIDFromAddr(addr)
	if err != nil {
		t.Fatalf("ClientPIDFromAddr: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("expected pid 4242, got %d", pid)
	}
}

func TestClientPIDFromAddrRejectsMalformedName(t *testing.T) {
	if _, err := ClientPIDFromAddr(&net.UnixAddr{Name: "/tmp/sdstore/not-a-client.sock"}); err == nil {
		t.Fatal("expected an error for a non-conforming socket name")
	}
	if _, err := ClientPIDFromAddr(nil); err == nil {
		t.Fatal("expected an error for a nil address")
	}
	if _, err := ClientPIDFromAddr(&net.UnixAddr{Name: "/tmp/sdstore/sdstore_5a.sock"}); err == nil {
		t.Fatal("expected an error for a pid suffix with trailing non-digit characters")
	}
}
