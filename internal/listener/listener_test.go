package listener

import (
	"net"
	"sync"
	"testing"
	"time"

	"sdstore/internal/filter"
	"sdstore/internal/logging"
	"sdstore/internal/protocol"
	"sdstore/internal/sockdir"
)

type fakeCoordinator struct {
	mu  sync.Mutex
	got []submission
}

type submission struct {
	clientPID uint32
	req       protocol.ClientRequest
}

func (f *fakeCoordinator) Submit(clientPID uint32, req protocol.ClientRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, submission{clientPID: clientPID, req: req})
}

func (f *fakeCoordinator) snapshot() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]submission, len(f.got))
	copy(out, f.got)
	return out
}

func TestListenerForwardsDecodedRequestsWithSenderPID(t *testing.T) {
	dir := t.TempDir()
	serverConn, err := sockdir.BindServer(dir)
	if err != nil {
		t.Fatalf("bind server: %v", err)
	}
	defer serverConn.Close()

	clientConn, err := sockdir.BindClient(dir, 555)
	if err != nil {
		t.Fatalf("bind client: %v", err)
	}
	defer clientConn.Close()

	coord := &fakeCoordinator{}
	l := New(logging.Default("listener-test"), serverConn, coord)
	go l.Run()

	req := protocol.NewProcFileRequest(555, 3, "in", "out", []filter.Filter{filter.Nop})
	payload, err := protocol.EncodeClientRequest(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	serverAddr := &net.UnixAddr{Name: sockdir.ServerSocketPath(dir), Net: "unixgram"}
	if _, err := clientConn.WriteToUnix(payload, serverAddr); err != nil {
		t.Fatalf("send: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(coord.snapshot()) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	got := coord.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected exactly one forwarded request, got %d", len(got))
	}
	if got[0].clientPID != 555 {
		t.Fatalf("expected sender pid 555, got %d", got[0].clientPID)
	}
	if got[0].req.Kind != protocol.ProcFileRequest || got[0].req.Input != "in" {
		t.Fatalf("expected decoded ProcFile request, got %+v", got[0].req)
	}
}

func TestListenerReturnsNilOnSocketClose(t *testing.T) {
	dir := t.TempDir()
	serverConn, err := sockdir.BindServer(dir)
	if err != nil {
		t.Fatalf("bind server: %v", err)
	}

	coord := &fakeCoordinator{}
	l := New(logging.Default("listener-test"), serverConn, coord)

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	serverConn.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Run to return nil on socket close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after socket close")
	}
}
