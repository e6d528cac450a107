package protocol

import (
	"testing"

	"sdstore/internal/filter"
)

func TestClientRequestRoundTrip(t *testing.T) {
	req := NewProcFileRequest(42, 7, "in.txt", "out.txt", []filter.Filter{filter.Bcompress, filter.Nop})
	payload, err := EncodeClientRequest(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeClientRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != req.Kind || got.ClientPID != req.ClientPID || got.Priority != req.Priority ||
		got.Input != req.Input || got.Output != req.Output || len(got.Filters) != len(req.Filters) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
	for i := range req.Filters {
		if got.Filters[i] != req.Filters[i] {
			t.Fatalf("filter %d mismatch: got %v, want %v", i, got.Filters[i], req.Filters[i])
		}
	}
}

func TestStatusRequestCarriesNoPayload(t *testing.T) {
	req := NewStatusRequest()
	if req.Kind != StatusRequest {
		t.Fatalf("expected StatusRequest kind, got %v", req.Kind)
	}
	if req.ClientPID != 0 || req.Priority != 0 || req.Input != "" || req.Output != "" || req.Filters != nil {
		t.Fatalf("expected a Status request to carry no payload fields, got %+v", req)
	}
}

func TestMessageToClientRoundTrip(t *testing.T) {
	msg := NewConcluded(10, 20)
	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != msg {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, msg)
	}
}

func TestMessageToClientString(t *testing.T) {
	cases := []struct {
		msg  MessageToClient
		want string
	}{
		{Msg(Pending), "pending"},
		{Msg(Processing), "processing"},
		{Msg(RequestInitError), "the request failed to start. check server logs for information"},
		{Msg(RequestError), "the request started, but failed. check server logs for information"},
		{NewConcluded(3, 4), "concluded (bytes-input: 3, bytes-output: 4)"},
	}
	for _, c := range cases {
		if got := c.msg.String(); got != c.want {
			t.Fatalf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestMessageToClientTerminal(t *testing.T) {
	terminal := []MessageKind{Concluded, RequestError, RequestInitError}
	for _, k := range terminal {
		if !Msg(k).Terminal() {
			t.Fatalf("expected kind %v to be terminal", k)
		}
	}
	nonTerminal := []MessageKind{Pending, Processing}
	for _, k := range nonTerminal {
		if Msg(k).Terminal() {
			t.Fatalf("expected kind %v to not be terminal", k)
		}
	}
}
