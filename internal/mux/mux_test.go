package mux

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/packetio"
	"github.com/pion/transport/v4/test"
	"github.com/stretchr/testify/require"
)

const testPipeBufferSize = 8192

func TestNoEndpoints(t *testing.T) {
	ca, cb := net.Pipe()
	require.NoError(t, cb.Close())

	m := NewMux(Config{
		Conn:          ca,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	require.NoError(t, m.dispatch(make([]byte, 1)))
	require.NoError(t, m.Close())
	require.NoError(t, ca.Close())
}

func TestEndpointReadDeadline(t *testing.T) {
	lim := test.TimeOut(2 * time.Second)
	defer lim.Stop()

	ca, cb := net.Pipe()
	defer func() {
		_ = ca.Close()
		_ = cb.Close()
	}()

	m := NewMux(Config{
		Conn:          ca,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})

	endpoint := m.NewEndpoint(MatchAll)
	require.NoError(t, endpoint.SetReadDeadline(time.Now().Add(10*time.Millisecond)))

	_, err := endpoint.Read(make([]byte, testPipeBufferSize))
	require.Error(t, err)

	require.NoError(t, m.Close())
}

type muxErrorConnReadResult struct {
	err  error
	data []byte
}

type muxErrorConn struct {
	net.Conn
	readResults []muxErrorConnReadResult
}

func (m *muxErrorConn) Read(b []byte) (n int, err error) {
	err = m.readResults[0].err
	copy(b, m.readResults[0].data)
	n = len(m.readResults[0].data)

	m.readResults = m.readResults[1:]

	return
}

// Don't end the readLoop on a non-fatal read error: only io.EOF (and
// similar hard failures) should close the Mux down.
func TestNonFatalRead(t *testing.T) {
	lim := test.TimeOut(20 * time.Second)
	defer lim.Stop()

	expectedData := []byte("expectedData")

	ca, cb := net.Pipe()
	require.NoError(t, cb.Close())

	conn := &muxErrorConn{ca, []muxErrorConnReadResult{
		{packetio.ErrTimeout, nil},
		{nil, expectedData},
		{io.ErrShortBuffer, nil},
		{nil, expectedData},
		{io.EOF, nil},
	}}

	m := NewMux(Config{
		Conn:          conn,
		BufferSize:    testPipeBufferSize,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})

	e := m.NewEndpoint(MatchAll)

	buf := make([]byte, testPipeBufferSize)
	n, err := e.Read(buf)
	require.NoError(t, err)
	require.Equal(t, expectedData, buf[:n])

	n, err = e.Read(buf)
	require.NoError(t, err)
	require.Equal(t, expectedData, buf[:n])

	<-m.closedCh
	require.NoError(t, m.Close())
	require.NoError(t, ca.Close())
}

// A full endpoint buffer is a non-fatal dispatch error: the Mux keeps
// running and other endpoints are unaffected.
func TestNonFatalDispatch(t *testing.T) {
	in, out := net.Pipe()

	m := NewMux(Config{
		Conn:          out,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
		BufferSize:    1500,
	})

	e := m.NewEndpoint(MatchRTP)
	e.buffer.SetLimitSize(1)

	for i := 0; i <= 25; i++ {
		rtpPacket := []byte{128, 1, 2, 3, 4}
		_, err := in.Write(rtpPacket)
		require.NoError(t, err)
	}

	require.NoError(t, m.Close())
	require.NoError(t, in.Close())
}

func TestPendingQueue(t *testing.T) {
	factory := logging.NewDefaultLoggerFactory()
	factory.DefaultLogLevel = logging.LogLevelDebug
	m := &Mux{
		endpoints: make(map[*Endpoint]MatchFunc),
		log:       factory.NewLogger("mux"),
	}

	require.NoError(t, m.dispatch([]byte{}))
	require.Empty(t, m.pendingPackets)

	inBuffer := []byte{20, 1, 2, 3, 4}
	outBuffer := make([]byte, len(inBuffer))

	require.NoError(t, m.dispatch(inBuffer))

	endpoint := m.NewEndpoint(MatchDTLS)
	require.NotNil(t, endpoint)

	_, err := endpoint.Read(outBuffer)
	require.NoError(t, err)
	require.Equal(t, inBuffer, outBuffer)

	for i := 0; i <= 200; i++ {
		require.NoError(t, m.dispatch([]byte{64, 65, 66}))
	}
	require.Equal(t, maxPendingPackets, len(m.pendingPackets))
}

func TestMatchRanges(t *testing.T) {
	require.True(t, MatchSTUN([]byte{0}))
	require.True(t, MatchSTUN([]byte{1}))
	require.False(t, MatchSTUN([]byte{2}))

	require.False(t, MatchDTLS([]byte{18}))
	require.True(t, MatchDTLS([]byte{19}))
	require.True(t, MatchDTLS([]byte{63}))
	require.False(t, MatchDTLS([]byte{64}))

	require.False(t, MatchRTP([]byte{126}))
	require.True(t, MatchRTP([]byte{127}))
	require.True(t, MatchRTP([]byte{191}))
	require.False(t, MatchRTP([]byte{192}))

	require.False(t, MatchSTUN(nil))
}
