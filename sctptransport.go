// +build !js

package webrtc

import (
	"errors"
	"sync"

	"github.com/pion/logging"
)

const sctpMaxChannels = uint16(65535)

// SCTPTransport provides details about the SCTP transport and drives the
// peer association's receive activity: accepting peer-opened streams,
// turning the first frame on each into a data channel, and routing the
// result back up to the PeerConnection once the channel has completed its
// DCEP handshake.
type SCTPTransport struct {
	lock sync.RWMutex

	dtlsTransport *DTLSTransport

	state SCTPTransportState

	maxChannels *uint16

	assoc *peerAssociation

	dataChannels *dataChannelCollection

	onDataChannelHdlr       func(*DataChannel)
	onDataChannelOpenedHdlr func(*DataChannel)
	onErrorHdlr             func(error)
	onCloseHdlr             func(error)

	api *API
	log logging.LeveledLogger
}

// NewSCTPTransport creates a new SCTPTransport.
// This constructor is part of the ORTC API. It is not
// meant to be used together with the basic WebRTC API.
func (api *API) NewSCTPTransport(dtls *DTLSTransport) *SCTPTransport {
	res := &SCTPTransport{
		dtlsTransport: dtls,
		state:         SCTPTransportStateConnecting,
		api:           api,
		log:           api.settingEngine.LoggerFactory.NewLogger("sctp"),
		dataChannels:  newDataChannelCollection(),
	}

	res.updateMaxChannels()

	return res
}

// Transport returns the DTLSTransport instance the SCTPTransport is sending over.
func (r *SCTPTransport) Transport() *DTLSTransport {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.dtlsTransport
}

// GetCapabilities returns the SCTPCapabilities of the SCTPTransport.
func (r *SCTPTransport) GetCapabilities() SCTPCapabilities {
	return SCTPCapabilities{
		MaxMessageSize: r.association().maxMessageSize(),
	}
}

// Start the SCTPTransport. Since both local and remote parties must mutually
// create an SCTPTransport, SCTP SO (Simultaneous Open) is used to establish
// a connection over SCTP; the handshake itself (INIT/INIT-ACK/COOKIE-ECHO/
// COOKIE-ACK) and the dedicated receive activity that drives it afterwards
// are owned internally by pion/sctp's Association once it is handed the
// DTLS connection.
func (r *SCTPTransport) Start(remoteCaps SCTPCapabilities) error {
	r.lock.Lock()
	if r.assoc != nil {
		r.lock.Unlock()
		return nil
	}
	if err := r.ensureDTLS(); err != nil {
		r.lock.Unlock()
		return err
	}
	conn := r.dtlsTransport.Conn()
	loggerFactory := r.api.settingEngine.LoggerFactory
	r.lock.Unlock()

	assoc, err := newPeerAssociation(conn, remoteCaps.MaxMessageSize, loggerFactory)
	if err != nil {
		return err
	}

	r.lock.Lock()
	r.assoc = assoc
	r.state = SCTPTransportStateConnected
	r.lock.Unlock()

	assoc.OnDisassociated(func(cause error) {
		r.lock.Lock()
		r.state = SCTPTransportStateClosed
		r.lock.Unlock()
		r.closeAllDataChannels(cause)
		r.onClose(cause)
	})

	r.activatePending()
	go r.acceptLoop(assoc)

	return nil
}

// Stop stops the SCTPTransport.
func (r *SCTPTransport) Stop() error {
	r.lock.Lock()
	assoc := r.assoc
	r.state = SCTPTransportStateClosed
	r.lock.Unlock()

	if assoc == nil {
		return nil
	}
	return assoc.close()
}

func (r *SCTPTransport) ensureDTLS() error {
	if r.dtlsTransport == nil || r.dtlsTransport.Conn() == nil {
		return errors.New("DTLS not established")
	}
	return nil
}

// acceptLoop accepts streams opened by the remote side. Each new stream
// begins with a DCEP OPEN frame (RFC 8832 §5.1); the data channel built
// around it handles that handshake and is handed to onDataChannel once it
// reaches the open state.
func (r *SCTPTransport) acceptLoop(assoc *peerAssociation) {
	for {
		stream, err := assoc.acceptStream()
		if err != nil {
			// The association has ended, by the peer's SHUTDOWN or ABORT or
			// by a local close. close is a no-op after a local close and
			// otherwise fires OnDisassociated.
			_ = assoc.close()
			return
		}

		dc := r.api.newInboundDataChannel(r, stream)

		if err := dc.handleRemoteOpen(); err != nil {
			r.log.Warnf("failed to accept data channel on stream %d: %v", stream.StreamIdentifier(), err)
			_ = stream.Close()
			continue
		}

		if err := r.dataChannels.addActiveWithID(dc, dc.streamID()); err != nil {
			r.log.Warnf("discarding data channel with colliding stream id %d: %v", dc.streamID(), err)
			_ = stream.Close()
			continue
		}
		r.registerLifecycleHooks(dc)

		r.onDataChannel(dc)
		dc.fireOpen()
		r.onDataChannelOpened(dc)

		go dc.readLoop()
	}
}

// registerLifecycleHooks wires the collection's removal-on-close/error
// subscription described in spec.md §4.5.
func (r *SCTPTransport) registerLifecycleHooks(dc *DataChannel) {
	dc.addCloseHook(func() { r.dataChannels.remove(dc.streamID()) })
}

func (r *SCTPTransport) closeAllDataChannels(cause error) {
	for _, dc := range r.dataChannels.snapshot() {
		dc.handleTransportFailure(cause)
	}
}

// OnDataChannel sets an event handler which is invoked when a data channel
// opened by the remote peer arrives.
func (r *SCTPTransport) OnDataChannel(f func(*DataChannel)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.onDataChannelHdlr = f
}

func (r *SCTPTransport) onDataChannel(dc *DataChannel) {
	r.lock.RLock()
	hdlr := r.onDataChannelHdlr
	r.lock.RUnlock()
	if hdlr != nil {
		hdlr(dc)
	}
}

// OnDataChannelOpened sets an event handler invoked once an accepted data
// channel has completed its DCEP handshake.
func (r *SCTPTransport) OnDataChannelOpened(f func(*DataChannel)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.onDataChannelOpenedHdlr = f
}

func (r *SCTPTransport) onDataChannelOpened(dc *DataChannel) {
	r.lock.RLock()
	hdlr := r.onDataChannelOpenedHdlr
	r.lock.RUnlock()
	if hdlr != nil {
		hdlr(dc)
	}
}

// OnError sets an event handler for SCTP association failures. No code
// path in SCTPTransport invokes it; the end of the association and its
// cause are reported through OnClose.
func (r *SCTPTransport) OnError(f func(error)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.onErrorHdlr = f
}

// OnClose sets an event handler invoked when the SCTP association closes.
func (r *SCTPTransport) OnClose(f func(error)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.onCloseHdlr = f
}

func (r *SCTPTransport) onClose(err error) {
	r.lock.RLock()
	hdlr := r.onCloseHdlr
	r.lock.RUnlock()
	if hdlr != nil {
		go hdlr(err)
	}
}

func (r *SCTPTransport) updateMaxChannels() {
	val := sctpMaxChannels
	r.maxChannels = &val
}

// MaxChannels is the maximum number of data channels that can be open
// simultaneously.
func (r *SCTPTransport) MaxChannels() uint16 {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.maxChannels == nil {
		return sctpMaxChannels
	}
	return *r.maxChannels
}

// State returns the current state of the SCTPTransport.
func (r *SCTPTransport) State() SCTPTransportState {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.state
}

func (r *SCTPTransport) association() *peerAssociation {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.assoc
}

// BufferedAmount returns the total amount (in bytes) of currently buffered
// user data across every stream of the association.
func (r *SCTPTransport) BufferedAmount() uint64 {
	return r.association().bufferedAmount()
}

// openDataChannel opens a locally-initiated data channel: the stream id was
// already allocated by the collection when the channel was created, so this
// just opens the SCTP stream and drives the DCEP OPEN handshake.
func (r *SCTPTransport) openDataChannel(dc *DataChannel) error {
	assoc := r.association()
	if assoc == nil {
		return &InvalidStateError{Err: ErrNotAssociated}
	}

	stream, err := assoc.openStream(dc.streamID())
	if err != nil {
		return err
	}

	r.registerLifecycleHooks(dc)
	return dc.handleLocalOpen(stream)
}

// activatePending moves every channel created before the association was
// established onto real SCTP streams, implementing activate_pending from
// spec.md §4.5.
func (r *SCTPTransport) activatePending() {
	for _, dc := range r.dataChannels.activatePending() {
		if err := r.openDataChannel(dc); err != nil {
			r.log.Warnf("failed to activate pending data channel %q: %v", dc.Label(), err)
			dc.handleTransportFailure(err)
			continue
		}
		go dc.readLoop()
	}
}
