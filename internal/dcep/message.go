// Package dcep implements the wire codec for the Data Channel
// Establishment Protocol (RFC 8832): the OPEN and ACK control messages
// carried as SCTP user data on PPID 50.
package dcep

import "fmt"

// MessageType is the first byte of every DCEP message.
type MessageType byte

// DCEP message types.
const (
	MessageTypeAck  MessageType = 0x02
	MessageTypeOpen MessageType = 0x03
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeAck:
		return "ack"
	case MessageTypeOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Message is a parsed DCEP control message.
type Message interface {
	// Marshal returns the wire-exact byte representation of the message.
	Marshal() ([]byte, error)
}

// ErrMalformedDCEP is returned for any input that cannot be parsed as a
// well-formed DCEP message. Per spec this is always a recoverable,
// non-fatal condition: the caller drops the message and keeps the
// channel in its current state.
type ErrMalformedDCEP struct {
	Reason string
}

func (e *ErrMalformedDCEP) Error() string {
	return fmt.Sprintf("dcep: malformed message: %s", e.Reason)
}

// Parse decodes raw bytes received on PPID 50 into an OpenMessage or an
// AckMessage. Any other message_type value, or any structural violation
// of the OPEN framing, yields ErrMalformedDCEP.
func Parse(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return nil, &ErrMalformedDCEP{Reason: "empty buffer"}
	}

	switch MessageType(raw[0]) {
	case MessageTypeOpen:
		return parseOpen(raw)
	case MessageTypeAck:
		return &AckMessage{}, nil
	default:
		return nil, &ErrMalformedDCEP{Reason: fmt.Sprintf("unknown message_type 0x%02x", raw[0])}
	}
}
