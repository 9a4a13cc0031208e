// Package mux demultiplexes packets arriving on a single UDP socket
// into STUN, DTLS and RTP/RTCP endpoints by inspecting the first byte
// of each datagram.
package mux

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/packetio"
)

const (
	maxBufferSize    = 1000 * 1000 // 1MB
	maxPendingPackets = 128
)

// Config collects the arguments to Mux construction into a single
// structure.
type Config struct {
	Conn          net.Conn
	BufferSize    int
	LoggerFactory logging.LoggerFactory
}

// Mux multiplexes a net.Conn across any number of Endpoints, routing
// each inbound packet to the first Endpoint whose MatchFunc accepts
// it.
type Mux struct {
	lock       sync.Mutex
	nextConn   net.Conn
	endpoints  map[*Endpoint]MatchFunc
	bufferSize int
	closedCh   chan struct{}

	// pendingPackets holds packets that arrived before any matching
	// Endpoint was registered. DTLS and SCTP endpoints are typically
	// created after the Mux starts reading, so without this queue the
	// first few packets of a handshake would be dropped on the floor.
	pendingPackets [][]byte

	log logging.LeveledLogger
}

// NewMux creates a new Mux reading from conn.
func NewMux(config Config) *Mux {
	m := &Mux{
		nextConn:   config.Conn,
		endpoints:  make(map[*Endpoint]MatchFunc),
		bufferSize: config.BufferSize,
		closedCh:   make(chan struct{}),
		log:        config.LoggerFactory.NewLogger("mux"),
	}

	go m.readLoop()

	return m
}

// NewEndpoint creates a new Endpoint whose MatchFunc is f. Any packet
// already queued in pendingPackets that matches f is delivered to the
// new endpoint immediately.
func (m *Mux) NewEndpoint(f MatchFunc) *Endpoint {
	e := &Endpoint{
		mux:    m,
		buffer: packetio.NewBuffer(),
	}
	e.buffer.SetLimitSize(maxBufferSize)

	m.lock.Lock()
	defer m.lock.Unlock()

	m.endpoints[e] = f

	remaining := m.pendingPackets[:0]
	for _, buf := range m.pendingPackets {
		if f(buf) {
			if _, err := e.buffer.Write(buf); err != nil {
				m.log.Warnf("mux: dropping pending packet for new endpoint: %v", err)
			}
			continue
		}
		remaining = append(remaining, buf)
	}
	m.pendingPackets = remaining

	return e
}

// RemoveEndpoint removes an endpoint from the Mux.
func (m *Mux) RemoveEndpoint(e *Endpoint) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.endpoints, e)
}

// Close closes the Mux and all associated Endpoints.
func (m *Mux) Close() error {
	m.lock.Lock()
	for e := range m.endpoints {
		if err := e.close(); err != nil {
			m.lock.Unlock()
			return err
		}
		delete(m.endpoints, e)
	}
	m.lock.Unlock()

	if err := m.nextConn.Close(); err != nil {
		return err
	}

	<-m.closedCh

	return nil
}

func (m *Mux) readLoop() {
	defer close(m.closedCh)

	buf := make([]byte, m.bufferSize)
	for {
		n, err := m.nextConn.Read(buf)
		if err != nil {
			// Non-fatal read conditions don't end the loop: a timeout or a
			// buffer sized too small for this particular datagram just
			// means we missed one packet.
			if errors.Is(err, packetio.ErrTimeout) || errors.Is(err, io.ErrShortBuffer) {
				continue
			}
			return
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])

		if err := m.dispatch(packet); err != nil {
			m.log.Warnf("mux: dispatch error: %v", err)
			return
		}
	}
}

func (m *Mux) dispatch(buf []byte) error {
	if len(buf) == 0 {
		m.log.Warnf("mux: no endpoint for zero length packet")
		return nil
	}

	m.lock.Lock()
	var endpoint *Endpoint
	for e, f := range m.endpoints {
		if f(buf) {
			endpoint = e
			break
		}
	}

	if endpoint == nil {
		m.log.Tracef("mux: no endpoint yet for packet starting with %d, queuing", buf[0])
		if len(m.pendingPackets) >= maxPendingPackets {
			m.pendingPackets = m.pendingPackets[1:]
		}
		m.pendingPackets = append(m.pendingPackets, buf)
		m.lock.Unlock()
		return nil
	}
	m.lock.Unlock()

	if _, err := endpoint.buffer.Write(buf); err != nil {
		if errors.Is(err, packetio.ErrFull) {
			m.log.Warnf("mux: endpoint buffer full, dropping packet")
			return nil
		}
		return err
	}

	return nil
}
