package dcep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMessageMarshal(t *testing.T) {
	msg := OpenMessage{
		ChannelType: ChannelTypeReliable,
		Label:       "foo",
		Protocol:    "bar",
	}

	raw, err := msg.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x03, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x03, 0x00, 0x03,
		0x66, 0x6f, 0x6f, 0x62, 0x61, 0x72,
	}, raw)
}

func TestAckMessageMarshal(t *testing.T) {
	raw, err := (&AckMessage{}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, raw)
}

func TestParseOpen(t *testing.T) {
	raw := []byte{
		0x03, 0x80, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
		0x63, 0x68, 0x61, 0x74, // "chat"
	}

	msg, err := Parse(raw)
	require.NoError(t, err)

	open, ok := msg.(*OpenMessage)
	require.True(t, ok)
	assert.Equal(t, ChannelTypeReliableUnordered, open.ChannelType)
	assert.Equal(t, "chat", open.Label)
	assert.Empty(t, open.Protocol)
	assert.False(t, open.ChannelType.Ordered())
}

func TestParseAck(t *testing.T) {
	msg, err := Parse([]byte{0x02})
	require.NoError(t, err)
	_, ok := msg.(*AckMessage)
	assert.True(t, ok)
}

func TestParseRejectsShortBuffer(t *testing.T) {
	_, err := Parse([]byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
	assert.IsType(t, &ErrMalformedDCEP{}, err)
}

func TestParseRejectsTruncatedLabel(t *testing.T) {
	raw := []byte{
		0x03, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x10, 0x00, 0x00, // claims 16-byte label, none present
	}
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestParseRejectsUnknownMessageType(t *testing.T) {
	_, err := Parse([]byte{0xff})
	require.Error(t, err)
}

func TestParseRejectsEmptyBuffer(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
}

func TestOpenRoundTrip(t *testing.T) {
	msg := &OpenMessage{
		ChannelType:          ChannelTypePartialReliableTimedUnordered,
		Priority:             128,
		ReliabilityParameter: 3000,
		Label:                "data",
		Protocol:             "proto",
	}

	raw, err := msg.Marshal()
	require.NoError(t, err)

	parsedAny, err := Parse(raw)
	require.NoError(t, err)
	parsed, ok := parsedAny.(*OpenMessage)
	require.True(t, ok)
	assert.Equal(t, msg, parsed)

	raw2, err := parsed.Marshal()
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
}

func TestOpenRoundTripEmptyLabelAndProtocol(t *testing.T) {
	msg := &OpenMessage{ChannelType: ChannelTypeReliable}
	raw, err := msg.Marshal()
	require.NoError(t, err)
	assert.Len(t, raw, openHeaderLength)

	parsedAny, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, msg, parsedAny)
}

func TestChannelTypeString(t *testing.T) {
	assert.Equal(t, "reliable-ordered", ChannelTypeReliable.String())
	assert.Equal(t, "reliable-unordered", ChannelTypeReliableUnordered.String())
	assert.Contains(t, ChannelType(0x42).String(), "unknown")
}
