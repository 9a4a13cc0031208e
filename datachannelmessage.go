package webrtc

// DataChannelMessage represents a message received from a DataChannel.
// IsString distinguishes a UTF-8 PPID (DCEP.String or DCEP.StringEmpty) from
// a binary PPID (DCEP.Binary or DCEP.BinaryEmpty) at the point of receipt; a
// zero-length message is delivered as Data == nil with len(Data) == 0.
type DataChannelMessage struct {
	Data     []byte
	IsString bool
}
