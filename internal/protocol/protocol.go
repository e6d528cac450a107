// Package protocol defines the wire schemas exchanged between
// sdstore clients and sdstored, and their canonical binary encoding.
//
// The sum types below (ClientRequest, MessageToClient) mirror the
// Rust original's serde enums in core/messaging.rs, which were
// serialized with bincode; here the same discriminated-struct shape
// is serialized with msgpack (github.com/vmihailenco/msgpack/v5,
// grounded in snowMan108-harmony/app/data/tx.go's
// ToMessagePack/FromMessagePack).
package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"sdstore/internal/filter"
)

// RequestKind tags the variant of a ClientRequest.
type RequestKind uint8

const (
	// StatusRequest corresponds to "sdstore status".
	StatusRequest RequestKind = iota
	// ProcFileRequest corresponds to "sdstore proc-file ...".
	ProcFileRequest
)

// ClientRequest is the message a client sends to sdstored. It is a
// tagged union: Kind selects which of the fields below are
// meaningful. A Status request carries no payload; a ProcFile request
// carries the full task description.
type ClientRequest struct {
	Kind RequestKind `msgpack:"kind"`

	ClientPID uint32          `msgpack:"client_pid,omitempty"`
	Priority  uint64          `msgpack:"priority,omitempty"`
	Input     string          `msgpack:"input,omitempty"`
	Output    string          `msgpack:"output,omitempty"`
	Filters   []filter.Filter `msgpack:"filters,omitempty"`
}

// NewStatusRequest builds a Status request. It carries no payload on
// the wire; the server learns which client to reply to from the
// datagram's sender address (see internal/listener), not from any
// field here.
func NewStatusRequest() ClientRequest {
	return ClientRequest{Kind: StatusRequest}
}

// NewProcFileRequest builds a ProcFile request.
func NewProcFileRequest(clientPID uint32, priority uint64, input, output string, filters []filter.Filter) ClientRequest {
	return ClientRequest{
		Kind:      ProcFileRequest,
		ClientPID: clientPID,
		Priority:  priority,
		Input:     input,
		Output:    output,
		Filters:   filters,
	}
}

// MessageKind tags the variant of a MessageToClient.
type MessageKind uint8

const (
	RequestInitError MessageKind = iota
	RequestError
	Pending
	Processing
	Concluded
)

// MessageToClient is one notification sdstored sends back to a
// client over its per-client socket. Only Concluded carries a
// payload (byte counts); the rest are tag-only.
type MessageToClient struct {
	Kind     MessageKind `msgpack:"kind"`
	BytesIn  uint64      `msgpack:"bytes_in,omitempty"`
	BytesOut uint64      `msgpack:"bytes_out,omitempty"`
}

// NewConcluded builds a Concluded message carrying byte counts.
func NewConcluded(bytesIn, bytesOut uint64) MessageToClient {
	return MessageToClient{Kind: Concluded, BytesIn: bytesIn, BytesOut: bytesOut}
}

// Msg builds a tag-only message (Pending, Processing,
// RequestInitError, or RequestError).
func Msg(kind MessageKind) MessageToClient {
	return MessageToClient{Kind: kind}
}

// String renders the message the way a client prints it, ported from
// the Rust original's Display impl for MessageToClient
// (core/messaging.rs) — spec.md §6.1 requires the client to print
// every intermediate message but leaves the exact text unspecified.
func (m MessageToClient) String() string {
	switch m.Kind {
	case RequestInitError:
		return "the request failed to start. check server logs for information"
	case RequestError:
		return "the request started, but failed. check server logs for information"
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Concluded:
		return fmt.Sprintf("concluded (bytes-input: %d, bytes-output: %d)", m.BytesIn, m.BytesOut)
	default:
		return fmt.Sprintf("unknown message (kind=%d)", m.Kind)
	}
}

// Terminal reports whether m ends a request's message sequence. The
// client exits once it has received a terminal message.
func (m MessageToClient) Terminal() bool {
	switch m.Kind {
	case Concluded, RequestError, RequestInitError:
		return true
	default:
		return false
	}
}

// EncodeClientRequest serializes a ClientRequest to its canonical
// wire form.
func EncodeClientRequest(r ClientRequest) ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode client request: %w", err)
	}
	return b, nil
}

// DecodeClientRequest parses a ClientRequest from its wire form.
func DecodeClientRequest(b []byte) (ClientRequest, error) {
	var r ClientRequest
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return ClientRequest{}, fmt.Errorf("decode client request: %w", err)
	}
	return r, nil
}

// EncodeMessage serializes a MessageToClient to its canonical wire
// form.
func EncodeMessage(m MessageToClient) ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message to client: %w", err)
	}
	return b, nil
}

// DecodeMessage parses a MessageToClient from its wire form.
func DecodeMessage(b []byte) (MessageToClient, error) {
	var m MessageToClient
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return MessageToClient{}, fmt.Errorf("decode message to client: %w", err)
	}
	return m, nil
}

// MaxDatagramSize bounds a single encoded ClientRequest, per spec.md
// §4.4 ("bounded by an implementation-chosen buffer (>= 1 KiB)").
// Paths are the only unbounded part of the protocol; 64 KiB comfortably
// covers realistic filesystem paths plus the fixed-size fields and
// msgpack framing overhead.
const MaxDatagramSize = 64 * 1024
