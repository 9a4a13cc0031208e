// +build !js

package webrtc

import (
	"errors"
	"net"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/sctp"
)

// peerAssociation wraps a single pion/sctp.Association: one SCTP
// association running over the DTLS-secured transport, with per-stream
// send/receive exposed to the data channel layer above it.
//
// sctp.Client blocks until the INIT/INIT-ACK/COOKIE-ECHO/COOKIE-ACK
// handshake completes, so by the time peerAssociation exists its
// association is already established; there is no separate callback
// for that event.
type peerAssociation struct {
	lock sync.RWMutex

	sctpAssoc *sctp.Association
	closed    bool

	onDisassociatedHdlr func(error)

	log logging.LeveledLogger
}

// newPeerAssociation runs SCTP SO (simultaneous open) over conn and blocks
// until the association is established.
func newPeerAssociation(conn net.Conn, maxMessageSize uint32, loggerFactory logging.LoggerFactory) (*peerAssociation, error) {
	sctpAssoc, err := sctp.Client(sctp.Config{
		NetConn:        conn,
		LoggerFactory:  loggerFactory,
		MaxMessageSize: maxMessageSize,
	})
	if err != nil {
		return nil, err
	}

	return &peerAssociation{
		sctpAssoc: sctpAssoc,
		log:       loggerFactory.NewLogger("sctp"),
	}, nil
}

// errNotAssociatedYet indicates an operation was attempted before the SCTP
// association moved to its established state.
var errNotAssociatedYet = errors.New("sctp association not yet established")

// acceptStream blocks until the peer opens a new stream (the remote side of
// a DCEP OPEN handshake for a peer-initiated data channel), or returns an
// error once the association is closed.
func (a *peerAssociation) acceptStream() (*sctp.Stream, error) {
	assoc := a.association()
	if assoc == nil {
		return nil, &InvalidStateError{Err: errNotAssociatedYet}
	}
	return assoc.AcceptStream()
}

// openStream opens a locally-initiated stream with the given id, used for
// application-requested data channels.
func (a *peerAssociation) openStream(streamID uint16) (*sctp.Stream, error) {
	assoc := a.association()
	if assoc == nil {
		return nil, &InvalidStateError{Err: ErrNotAssociated}
	}
	return assoc.OpenStream(streamID, sctp.PayloadTypeWebRTCBinary)
}

// sendData queues a DATA chunk on the given stream. Fails with
// NotAssociated if the association has not been established.
func (a *peerAssociation) sendData(stream *sctp.Stream, ppid sctp.PayloadProtocolIdentifier, payload []byte) error {
	if a.association() == nil {
		return &InvalidStateError{Err: ErrNotAssociated}
	}
	_, err := stream.WriteSCTP(payload, ppid)
	return err
}

// allStreams enumerates the stream ids currently open on this association.
func (a *peerAssociation) allStreams() []uint16 {
	assoc := a.association()
	if assoc == nil {
		return nil
	}
	streams := assoc.StreamIdentifiers()
	out := make([]uint16, len(streams))
	copy(out, streams)
	return out
}

// closeStream closes a single stream without tearing down the association.
func (a *peerAssociation) closeStream(stream *sctp.Stream) error {
	return stream.Close()
}

// arwnd exposes the peer's advertised receiver window, used by the adapter
// above to size its own receive buffers.
func (a *peerAssociation) arwnd() uint32 {
	assoc := a.association()
	if assoc == nil {
		return 0
	}
	return assoc.RWND()
}

// maxMessageSize is the largest single message this association will accept,
// negotiated during the handshake.
func (a *peerAssociation) maxMessageSize() uint32 {
	assoc := a.association()
	if assoc == nil {
		return 0
	}
	return assoc.MaxMessageSize()
}

// bufferedAmount is the total amount of data queued for transmission across
// every stream on this association.
func (a *peerAssociation) bufferedAmount() uint64 {
	assoc := a.association()
	if assoc == nil {
		return 0
	}
	return uint64(assoc.BufferedAmount()) //nolint:gosec // G115
}

// OnDisassociated sets a handler invoked when the peer sends SHUTDOWN or
// ABORT, or when close tears down the association locally.
func (a *peerAssociation) OnDisassociated(f func(error)) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.onDisassociatedHdlr = f
}

func (a *peerAssociation) onDisassociated(err error) {
	a.lock.RLock()
	hdlr := a.onDisassociatedHdlr
	a.lock.RUnlock()
	if hdlr != nil {
		go hdlr(err)
	}
}

// close tears down the association. In-flight sends are discarded.
func (a *peerAssociation) close() error {
	a.lock.Lock()
	if a.closed {
		a.lock.Unlock()
		return nil
	}
	a.closed = true
	assoc := a.sctpAssoc
	a.lock.Unlock()

	if assoc == nil {
		return nil
	}
	err := assoc.Close()
	a.onDisassociated(err)
	return err
}

func (a *peerAssociation) association() *sctp.Association {
	a.lock.RLock()
	defer a.lock.RUnlock()
	if a.closed {
		return nil
	}
	return a.sctpAssoc
}
