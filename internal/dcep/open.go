package dcep

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// ChannelType is the channel_type byte of a DCEP OPEN message. It
// encodes both the ordering and the reliability mode of the channel.
type ChannelType byte

// Channel types, RFC 8832 §8.2.1.
const (
	ChannelTypeReliable                       ChannelType = 0x00
	ChannelTypePartialReliableRexmit          ChannelType = 0x01
	ChannelTypePartialReliableTimed           ChannelType = 0x02
	ChannelTypeReliableUnordered               ChannelType = 0x80
	ChannelTypePartialReliableRexmitUnordered ChannelType = 0x81
	ChannelTypePartialReliableTimedUnordered  ChannelType = 0x82
)

// Ordered reports whether this channel type preserves message order.
func (c ChannelType) Ordered() bool {
	return c&0x80 == 0
}

func (c ChannelType) String() string {
	switch c {
	case ChannelTypeReliable:
		return "reliable-ordered"
	case ChannelTypePartialReliableRexmit:
		return "partial-reliable-rexmit-ordered"
	case ChannelTypePartialReliableTimed:
		return "partial-reliable-timed-ordered"
	case ChannelTypeReliableUnordered:
		return "reliable-unordered"
	case ChannelTypePartialReliableRexmitUnordered:
		return "partial-reliable-rexmit-unordered"
	case ChannelTypePartialReliableTimedUnordered:
		return "partial-reliable-timed-unordered"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(c))
	}
}

const openHeaderLength = 12

// OpenMessage is the DATA_CHANNEL_OPEN message (spec.md §3, RFC 8832 §5.1).
//
//	0                   1                   2                   3
//	0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|  Message Type |  Channel Type |            Priority          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Reliability Parameter                      |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|         Label Length          |       Protocol Length         |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|  Label  ...                                                   |
//	|  Protocol ...                                                 |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type OpenMessage struct {
	ChannelType          ChannelType
	Priority             uint16
	ReliabilityParameter uint32
	Label                string
	Protocol             string
}

// Marshal encodes the message in the exact wire form of §3: big-endian
// fixed header, then label bytes, then protocol bytes, no padding.
func (m *OpenMessage) Marshal() ([]byte, error) {
	label := []byte(m.Label)
	protocol := []byte(m.Protocol)

	if len(label) > 0xffff || len(protocol) > 0xffff {
		return nil, &ErrMalformedDCEP{Reason: "label or protocol exceeds 65535 bytes"}
	}

	raw := make([]byte, openHeaderLength+len(label)+len(protocol))
	raw[0] = byte(MessageTypeOpen)
	raw[1] = byte(m.ChannelType)
	binary.BigEndian.PutUint16(raw[2:], m.Priority)
	binary.BigEndian.PutUint32(raw[4:], m.ReliabilityParameter)
	binary.BigEndian.PutUint16(raw[8:], uint16(len(label)))
	binary.BigEndian.PutUint16(raw[10:], uint16(len(protocol)))
	copy(raw[openHeaderLength:], label)
	copy(raw[openHeaderLength+len(label):], protocol)

	return raw, nil
}

func parseOpen(raw []byte) (*OpenMessage, error) {
	if len(raw) < openHeaderLength {
		return nil, &ErrMalformedDCEP{Reason: fmt.Sprintf("buffer too short for OPEN header: %d bytes", len(raw))}
	}

	labelLength := binary.BigEndian.Uint16(raw[8:])
	protocolLength := binary.BigEndian.Uint16(raw[10:])

	want := openHeaderLength + int(labelLength) + int(protocolLength)
	if want > len(raw) {
		return nil, &ErrMalformedDCEP{Reason: fmt.Sprintf("header declares %d bytes of label+protocol, buffer has %d", want-openHeaderLength, len(raw)-openHeaderLength)}
	}

	labelBytes := raw[openHeaderLength : openHeaderLength+int(labelLength)]
	protocolBytes := raw[openHeaderLength+int(labelLength) : want]

	if !utf8.Valid(labelBytes) {
		return nil, &ErrMalformedDCEP{Reason: "label is not valid UTF-8"}
	}
	if !utf8.Valid(protocolBytes) {
		return nil, &ErrMalformedDCEP{Reason: "protocol is not valid UTF-8"}
	}

	return &OpenMessage{
		ChannelType:          ChannelType(raw[1]),
		Priority:             binary.BigEndian.Uint16(raw[2:]),
		ReliabilityParameter: binary.BigEndian.Uint32(raw[4:]),
		Label:                string(labelBytes),
		Protocol:             string(protocolBytes),
	}, nil
}
