package dcep

// AckMessage is the single-byte DATA_CHANNEL_ACK message (spec.md §3).
type AckMessage struct{}

// Marshal returns the one-byte ACK wire form.
func (m *AckMessage) Marshal() ([]byte, error) {
	return []byte{byte(MessageTypeAck)}, nil
}
