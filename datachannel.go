// +build !js

package webrtc

import (
	"errors"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/pion/logging"
	"github.com/pion/sctp"
	"github.com/loopwire/webrtc/internal/dcep"
)

const dataChannelBufferSize = 16384 // Lowest common denominator among browsers

// DataChannel represents a WebRTC DataChannel: a bidirectional stream of
// application data carried over one SCTP stream, bracketed by a DCEP
// OPEN/ACK handshake on PPID 50.
type DataChannel struct {
	mu sync.RWMutex

	label                      string
	ordered                    bool
	maxPacketLifeTime          *uint16
	maxRetransmits             *uint16
	protocol                   string
	negotiated                 bool
	id                         *uint16
	priority                   PriorityType
	readyState                 DataChannelState
	bufferedAmountLowThreshold uint64

	streamSeq uint16

	onMessageHandler           func(DataChannelMessage)
	onOpenHandler              func()
	onCloseHandler             func()
	onErrorHandler             func(error)
	onBufferedAmountLowHandler func()
	closeHooks                 []func()

	// aboveBufferedAmountLowThreshold is the last-observed bucket for
	// onbufferedamountlow's down-crossing edge trigger.
	aboveBufferedAmountLowThreshold bool

	// closeFired guards onClose so it fires exactly once regardless of
	// which of Close, readLoop or handleTransportFailure observes the
	// closed transition first.
	closeFired bool

	sendLock sync.Mutex
	stream   *sctp.Stream

	sctpTransport *SCTPTransport

	api *API
	log logging.LeveledLogger
}

// NewDataChannel creates a new DataChannel.
// This constructor is part of the ORTC API. It is not
// meant to be used together with the basic WebRTC API.
func (api *API) NewDataChannel(transport *SCTPTransport, params *DataChannelParameters) (*DataChannel, error) {
	d, err := api.newDataChannel(params, api.settingEngine.LoggerFactory.NewLogger("ortc"))
	if err != nil {
		return nil, err
	}

	d.sctpTransport = transport
	if transport.association() == nil {
		transport.dataChannels.addPending(d)
		return d, nil
	}

	if err := transport.openDataChannel(d); err != nil {
		return nil, err
	}
	return d, nil
}

// newDataChannel is an internal constructor for the data channel used to
// create the DataChannel object before the networking is set up.
func (api *API) newDataChannel(params *DataChannelParameters, log logging.LeveledLogger) (*DataChannel, error) {
	if len(params.Label) > 65535 {
		return nil, &TypeError{Err: ErrStringSizeLimit}
	}

	id := params.ID

	return &DataChannel{
		label:             params.Label,
		id:                &id,
		ordered:           params.Ordered,
		maxPacketLifeTime: params.MaxPacketLifeTime,
		maxRetransmits:    params.MaxRetransmits,
		readyState:        DataChannelStateConnecting,
		api:               api,
		log:               log,
	}, nil
}

// newUnidentifiedDataChannel builds a locally-created channel that has no
// stream id yet: the high-level CreateDataChannel API lets the data
// channel collection assign one by DTLS-role parity once the SCTP
// transport is ready, rather than requiring the caller to pick one (the
// ORTC NewDataChannel API requires an explicit id instead).
func (api *API) newUnidentifiedDataChannel(params *DataChannelParameters, log logging.LeveledLogger) (*DataChannel, error) {
	if len(params.Label) > 65535 {
		return nil, &TypeError{Err: ErrStringSizeLimit}
	}

	return &DataChannel{
		label:             params.Label,
		ordered:           params.Ordered,
		maxPacketLifeTime: params.MaxPacketLifeTime,
		maxRetransmits:    params.MaxRetransmits,
		readyState:        DataChannelStateConnecting,
		api:               api,
		log:               log,
	}, nil
}

// newInboundDataChannel builds the object half of a peer-initiated
// channel around an already-accepted SCTP stream. It is not yet in the
// open state: handleRemoteOpen completes the handshake.
func (api *API) newInboundDataChannel(transport *SCTPTransport, stream *sctp.Stream) *DataChannel {
	id := stream.StreamIdentifier()
	return &DataChannel{
		id:            &id,
		readyState:    DataChannelStateConnecting,
		sctpTransport: transport,
		stream:        stream,
		api:           api,
		log:           api.settingEngine.LoggerFactory.NewLogger("ortc"),
	}
}

func (d *DataChannel) hasStreamID() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id != nil
}

func (d *DataChannel) setStreamID(id uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = &id
}

func (d *DataChannel) streamID() uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.id == nil {
		return 0
	}
	return *d.id
}

func (d *DataChannel) dtlsRole() DTLSRole {
	d.mu.RLock()
	transport := d.sctpTransport
	d.mu.RUnlock()
	if transport == nil {
		return DTLSRoleClient
	}
	dtls := transport.Transport()
	if dtls == nil {
		return DTLSRoleClient
	}
	return dtls.role()
}

// channelType derives the DCEP channel_type byte and reliability parameter
// from the reliability knobs carried on this channel.
func (d *DataChannel) channelType() (dcep.ChannelType, uint32) {
	switch {
	case d.maxPacketLifeTime == nil && d.maxRetransmits == nil:
		if d.ordered {
			return dcep.ChannelTypeReliable, 0
		}
		return dcep.ChannelTypeReliableUnordered, 0

	case d.maxRetransmits != nil:
		if d.ordered {
			return dcep.ChannelTypePartialReliableRexmit, uint32(*d.maxRetransmits)
		}
		return dcep.ChannelTypePartialReliableRexmitUnordered, uint32(*d.maxRetransmits)

	default:
		if d.ordered {
			return dcep.ChannelTypePartialReliableTimed, uint32(*d.maxPacketLifeTime)
		}
		return dcep.ChannelTypePartialReliableTimedUnordered, uint32(*d.maxPacketLifeTime)
	}
}

// handleLocalOpen drives the local-init side of the handshake: it sends
// the DCEP OPEN on the freshly opened stream and returns. The channel
// stays in connecting until the ACK arrives on readLoop.
func (d *DataChannel) handleLocalOpen(stream *sctp.Stream) error {
	d.mu.Lock()
	d.stream = stream
	channelType, reliability := d.channelType()
	open := &dcep.OpenMessage{
		ChannelType:          channelType,
		Priority:             uint16(d.priority),
		ReliabilityParameter: reliability,
		Label:                d.label,
		Protocol:             d.protocol,
	}
	d.mu.Unlock()

	raw, err := open.Marshal()
	if err != nil {
		return err
	}

	return d.writeControl(raw)
}

// handleRemoteOpen drives the peer-init side of the handshake: read the
// DCEP OPEN already waiting on the stream, configure the channel from it,
// and reply with an ACK. On success the channel is open.
func (d *DataChannel) handleRemoteOpen() error {
	buffer := make([]byte, dataChannelBufferSize)
	n, ppid, err := d.stream.ReadSCTP(buffer)
	if err != nil {
		return err
	}
	if sctp.PayloadProtocolIdentifier(ppid) != sctp.PayloadTypeWebRTCDCEP {
		return errors.New("dcep: expected OPEN on new stream, got data")
	}

	msg, err := dcep.Parse(buffer[:n])
	if err != nil {
		return err
	}
	open, ok := msg.(*dcep.OpenMessage)
	if !ok {
		return errors.New("dcep: expected OPEN on new stream")
	}

	d.mu.Lock()
	d.label = open.Label
	d.protocol = open.Protocol
	d.ordered = open.ChannelType.Ordered()
	d.priority = PriorityType(open.Priority)
	switch open.ChannelType {
	case dcep.ChannelTypePartialReliableRexmit, dcep.ChannelTypePartialReliableRexmitUnordered:
		v := uint16(open.ReliabilityParameter)
		d.maxRetransmits = &v
	case dcep.ChannelTypePartialReliableTimed, dcep.ChannelTypePartialReliableTimedUnordered:
		v := uint16(open.ReliabilityParameter)
		d.maxPacketLifeTime = &v
	}
	d.mu.Unlock()

	ack := &dcep.AckMessage{}
	raw, err := ack.Marshal()
	if err != nil {
		return err
	}
	if err := d.writeControl(raw); err != nil {
		return err
	}

	d.mu.Lock()
	d.readyState = DataChannelStateOpen
	d.mu.Unlock()
	return nil
}

// writeControl sends a DCEP frame and advances stream_seq, serialized
// against application sends on the same channel.
func (d *DataChannel) writeControl(raw []byte) error {
	d.sendLock.Lock()
	defer d.sendLock.Unlock()

	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return &InvalidStateError{Err: ErrNotAssociated}
	}

	if _, err := stream.WriteSCTP(raw, sctp.PayloadTypeWebRTCDCEP); err != nil {
		return err
	}
	d.advanceSeq()
	d.checkBufferedAmountLow()
	return nil
}

func (d *DataChannel) advanceSeq() {
	d.mu.Lock()
	d.streamSeq++
	d.mu.Unlock()
}

// fireOpen fires onopen for an accepted channel, which handleRemoteOpen
// has already moved into open. For locally-initiated channels the
// transition instead happens when the DCEP ACK is observed on readLoop.
func (d *DataChannel) fireOpen() {
	d.onOpen()
}

// Transport returns the SCTPTransport instance the DataChannel is sending over.
func (d *DataChannel) Transport() *SCTPTransport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sctpTransport
}

// OnOpen sets an event handler which is invoked when
// the underlying data transport has been established (or re-established).
func (d *DataChannel) OnOpen(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onOpenHandler = f
}

func (d *DataChannel) onOpen() {
	d.mu.RLock()
	hdlr := d.onOpenHandler
	d.mu.RUnlock()
	if hdlr != nil {
		hdlr()
	}
}

// OnClose sets an event handler which is invoked when
// the underlying data transport has been closed.
func (d *DataChannel) OnClose(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onCloseHandler = f
}

func (d *DataChannel) onClose() {
	d.mu.RLock()
	hdlr := d.onCloseHandler
	hooks := d.closeHooks
	d.mu.RUnlock()

	for _, hook := range hooks {
		hook()
	}
	if hdlr != nil {
		hdlr()
	}
}

// fireCloseOnce runs onClose, and every hook and handler it carries,
// exactly once per DataChannel no matter how many of Close, readLoop and
// handleTransportFailure observe the transition to closed.
func (d *DataChannel) fireCloseOnce() {
	d.mu.Lock()
	if d.closeFired {
		d.mu.Unlock()
		return
	}
	d.closeFired = true
	d.mu.Unlock()

	d.onClose()
}

// OnError sets an event handler invoked when the channel fails fatally.
// onerror always fires before the subsequent onclose.
func (d *DataChannel) OnError(f func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onErrorHandler = f
}

func (d *DataChannel) onError(err error) {
	d.mu.RLock()
	hdlr := d.onErrorHandler
	d.mu.RUnlock()
	if hdlr != nil {
		hdlr(err)
	}
}

// addCloseHook registers a callback invoked when the channel closes,
// regardless of which side initiated the close. Used by the data channel
// collection to deregister itself.
func (d *DataChannel) addCloseHook(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeHooks = append(d.closeHooks, f)
}

// handleTransportFailure forces the channel closed in response to a fatal
// error on the owning SCTP transport: onerror then onclose, per spec.
func (d *DataChannel) handleTransportFailure(err error) {
	d.mu.Lock()
	if d.readyState == DataChannelStateClosed {
		d.mu.Unlock()
		return
	}
	d.readyState = DataChannelStateClosed
	d.mu.Unlock()

	if err != nil {
		d.onError(err)
	}
	d.fireCloseOnce()
}

// OnMessage sets an event handler which is invoked on a message arrival
// over the sctp transport from a remote peer.
func (d *DataChannel) OnMessage(f func(msg DataChannelMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessageHandler = f
}

func (d *DataChannel) onMessage(msg DataChannelMessage) {
	d.mu.RLock()
	hdlr := d.onMessageHandler
	d.mu.RUnlock()
	if hdlr != nil {
		hdlr(msg)
	}
}

// readLoop owns the stream's receive side for its entire lifetime: it
// classifies each inbound SCTP user message by PPID, strips the DCEP layer
// and the empty-message sentinel byte, and dispatches the rest to
// onmessage.
func (d *DataChannel) readLoop() {
	d.mu.RLock()
	stream := d.stream
	d.mu.RUnlock()
	if stream == nil {
		return
	}

	buffer := make([]byte, dataChannelBufferSize)
	for {
		n, ppid, err := stream.ReadSCTP(buffer)
		if err != nil {
			d.mu.Lock()
			closing := d.readyState == DataChannelStateClosing
			d.readyState = DataChannelStateClosed
			d.mu.Unlock()
			if err != io.EOF && !closing {
				d.onError(err)
			}
			d.fireCloseOnce()
			return
		}

		d.checkBufferedAmountLow()

		msg, isControl, err := classifyInbound(sctp.PayloadProtocolIdentifier(ppid), buffer[:n])
		if err != nil {
			d.log.Warnf("dropping malformed data channel frame: %v", err)
			continue
		}
		if isControl {
			d.handleControlMessage(buffer[:n])
			continue
		}

		d.onMessage(msg)
	}
}

// handleControlMessage processes a DCEP frame arriving after the initial
// handshake: the only legal case is an ACK completing a locally-initiated
// open. A stray OPEN on an already-open stream is a protocol violation and
// is dropped.
func (d *DataChannel) handleControlMessage(raw []byte) {
	msg, err := dcep.Parse(raw)
	if err != nil {
		d.log.Warnf("dropping malformed DCEP message: %v", err)
		return
	}

	if _, ok := msg.(*dcep.AckMessage); !ok {
		return
	}

	d.mu.Lock()
	wasConnecting := d.readyState == DataChannelStateConnecting
	if wasConnecting {
		d.readyState = DataChannelStateOpen
	}
	d.mu.Unlock()

	if wasConnecting {
		d.onOpen()
	}
}

// classifyInbound maps a PPID to a delivered message per spec.md §4.6: an
// unrecognized PPID is treated as binary, and the single sentinel byte
// carried by the two empty-message PPIDs is stripped.
func classifyInbound(ppid sctp.PayloadProtocolIdentifier, payload []byte) (DataChannelMessage, bool, error) {
	switch ppid {
	case sctp.PayloadTypeWebRTCDCEP:
		return DataChannelMessage{}, true, nil
	case sctp.PayloadTypeWebRTCString:
		if !utf8.Valid(payload) {
			return DataChannelMessage{}, false, errors.New("data channel: string message is not valid UTF-8")
		}
		return DataChannelMessage{Data: payload, IsString: true}, false, nil
	case sctp.PayloadTypeWebRTCStringEmpty:
		return DataChannelMessage{Data: nil, IsString: true}, false, nil
	case sctp.PayloadTypeWebRTCBinaryEmpty:
		return DataChannelMessage{Data: nil, IsString: false}, false, nil
	case sctp.PayloadTypeWebRTCBinary:
		return DataChannelMessage{Data: payload, IsString: false}, false, nil
	default:
		return DataChannelMessage{Data: payload, IsString: false}, false, nil
	}
}

// Send sends the binary message to the DataChannel peer
func (d *DataChannel) Send(data []byte) error {
	return d.send(data, false)
}

// SendText sends the text message to the DataChannel peer
func (d *DataChannel) SendText(s string) error {
	return d.send([]byte(s), true)
}

func (d *DataChannel) send(data []byte, isString bool) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}

	var ppid sctp.PayloadProtocolIdentifier
	switch {
	case isString && len(data) > 0:
		ppid = sctp.PayloadTypeWebRTCString
	case isString:
		ppid = sctp.PayloadTypeWebRTCStringEmpty
		data = []byte{0}
	case len(data) > 0:
		ppid = sctp.PayloadTypeWebRTCBinary
	default:
		ppid = sctp.PayloadTypeWebRTCBinaryEmpty
		data = []byte{0}
	}

	d.sendLock.Lock()
	defer d.sendLock.Unlock()

	d.mu.RLock()
	stream := d.stream
	d.mu.RUnlock()
	if stream == nil {
		return &InvalidStateError{Err: ErrNotAssociated}
	}

	if _, err := stream.WriteSCTP(data, ppid); err != nil {
		return err
	}
	d.advanceSeq()
	d.checkBufferedAmountLow()
	return nil
}

func (d *DataChannel) ensureOpen() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.readyState != DataChannelStateOpen {
		return &InvalidStateError{Err: ErrDataChannelNotOpen}
	}
	return nil
}

// Close closes the DataChannel. It may be called regardless of whether
// the DataChannel object was created by this peer or the remote peer.
func (d *DataChannel) Close() error {
	d.mu.Lock()
	if d.readyState == DataChannelStateClosing || d.readyState == DataChannelStateClosed {
		d.mu.Unlock()
		return nil
	}
	d.readyState = DataChannelStateClosing
	stream := d.stream
	d.mu.Unlock()

	if stream == nil {
		// Never attached to a stream, so readLoop never ran to own the
		// onclose firing: it falls to us.
		d.mu.Lock()
		d.readyState = DataChannelStateClosed
		d.mu.Unlock()
		d.fireCloseOnce()
		return nil
	}
	err := stream.Close()

	// readLoop's ReadSCTP observes this as io.EOF (or another read error)
	// once stream.Close unblocks it, and fires onclose itself; Close only
	// records the closed state.
	d.mu.Lock()
	d.readyState = DataChannelStateClosed
	d.mu.Unlock()

	return err
}

// Label represents a label that can be used to distinguish this
// DataChannel object from other DataChannel objects. Scripts are
// allowed to create multiple DataChannel objects with the same label.
func (d *DataChannel) Label() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.label
}

// Ordered represents if the DataChannel is ordered, and false if
// out-of-order delivery is allowed.
func (d *DataChannel) Ordered() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ordered
}

// MaxPacketLifeTime represents the length of the time window (msec) during
// which transmissions and retransmissions may occur in unreliable mode.
func (d *DataChannel) MaxPacketLifeTime() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxPacketLifeTime
}

// MaxRetransmits represents the maximum number of retransmissions that are
// attempted in unreliable mode.
func (d *DataChannel) MaxRetransmits() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxRetransmits
}

// Protocol represents the name of the sub-protocol used with this
// DataChannel.
func (d *DataChannel) Protocol() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.protocol
}

// Negotiated represents whether this DataChannel was negotiated by the
// application (true), or not (false).
func (d *DataChannel) Negotiated() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.negotiated
}

// ID represents the ID for this DataChannel. The value is initially
// nil, which is what will be returned if the ID was not provided at
// channel creation time, and the DTLS role of the SCTP transport has not
// yet been negotiated. Otherwise, it will return the ID that was either
// selected by the script or generated. After the ID is set to a non-nil
// value, it will not change.
func (d *DataChannel) ID() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id
}

// Priority represents the priority for this DataChannel. The priority is
// assigned at channel creation time.
func (d *DataChannel) Priority() PriorityType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.priority
}

// ReadyState represents the state of the DataChannel object.
func (d *DataChannel) ReadyState() DataChannelState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readyState
}

// BufferedAmount represents the number of bytes of application data
// that have been queued using Send but not yet transmitted to the
// network. Does not reset to zero once the channel closes.
//
// pion/sctp does not expose a per-stream buffered amount, only the
// association-wide total (SCTPTransport.BufferedAmount), so a peer
// running a single data channel per association sees its own queue
// exactly; one running several shares a figure that still obeys the
// monotonic fill-on-send/drain-on-transport invariant, just aggregated
// across every stream rather than isolated to this one.
func (d *DataChannel) BufferedAmount() uint64 {
	d.mu.RLock()
	transport := d.sctpTransport
	d.mu.RUnlock()
	if transport == nil {
		return 0
	}
	return transport.BufferedAmount()
}

// OnBufferedAmountLow sets an event handler which is invoked when the
// bufferedAmount decreases from above BufferedAmountLowThreshold to equal
// or below it. It never fires while bufferedAmount climbs or idles above
// the threshold, only on the down-crossing itself.
func (d *DataChannel) OnBufferedAmountLow(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onBufferedAmountLowHandler = f
}

func (d *DataChannel) onBufferedAmountLow() {
	d.mu.RLock()
	hdlr := d.onBufferedAmountLowHandler
	d.mu.RUnlock()
	if hdlr != nil {
		hdlr()
	}
}

// checkBufferedAmountLow samples the current bufferedAmount against
// bufferedAmountLowThreshold and fires onbufferedamountlow exactly on a
// strict above-to-at-or-below transition, tracked via the last-observed
// bucket in aboveBufferedAmountLowThreshold. Called after every write
// that can grow the queue and every successful read, which is where a
// background drain becomes observable.
func (d *DataChannel) checkBufferedAmountLow() {
	amount := d.BufferedAmount()

	d.mu.Lock()
	wasAbove := d.aboveBufferedAmountLowThreshold
	nowAbove := amount > d.bufferedAmountLowThreshold
	d.aboveBufferedAmountLowThreshold = nowAbove
	d.mu.Unlock()

	if wasAbove && !nowAbove {
		d.onBufferedAmountLow()
	}
}

// BufferedAmountLowThreshold represents the threshold at which the
// bufferedAmount is considered to be low. When the bufferedAmount decreases
// from above this threshold to equal or below it, the bufferedamountlow
// event fires. BufferedAmountLowThreshold is initially zero on each new
// DataChannel, but the application may change its value at any time.
func (d *DataChannel) BufferedAmountLowThreshold() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bufferedAmountLowThreshold
}

// SetBufferedAmountLowThreshold sets the threshold described by
// BufferedAmountLowThreshold.
func (d *DataChannel) SetBufferedAmountLowThreshold(th uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bufferedAmountLowThreshold = th
}
