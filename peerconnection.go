// +build !js

// Package webrtc implements a data-channel-only subset of the W3C WebRTC
// specification: ICE connectivity, DTLS transport security, and SCTP data
// channels, without the RTP media stack.
package webrtc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/logging"
	"github.com/pion/sdp/v3"

	"github.com/loopwire/webrtc/internal/util"
)

// PeerConnection represents a WebRTC connection that establishes a
// peer-to-peer data channel transport with another PeerConnection instance,
// in a browser or another endpoint implementing the required protocols.
type PeerConnection struct {
	mu sync.RWMutex

	configuration Configuration

	currentLocalDescription  *SessionDescription
	pendingLocalDescription  *SessionDescription
	currentRemoteDescription *SessionDescription
	pendingRemoteDescription *SessionDescription
	signalingState           SignalingState
	iceGatheringState        ICEGatheringState
	iceConnectionState       ICEConnectionState
	dtlsReady                bool
	connectionState          PeerConnectionState

	isClosed bool

	lastOffer  string
	lastAnswer string

	// pendingDataChannels holds channels created via CreateDataChannel
	// before the SCTP transport exists (i.e. before setRemoteDescription).
	// They are handed to the transport's collection once it is created.
	pendingDataChannels []*DataChannel

	onSignalingStateChangeHandler     func(SignalingState)
	onICEConnectionStateChangeHandler func(ICEConnectionState)
	onConnectionStateChangeHandler    func(PeerConnectionState)
	onDataChannelHandler              func(*DataChannel)
	onICECandidateHandler             func(*ICECandidate)
	onICEGatheringStateChangeHandler  func()

	iceGatherer   *ICEGatherer
	iceTransport  *ICETransport
	dtlsTransport *DTLSTransport
	sctpTransport *SCTPTransport

	// ops serializes SetLocalDescription/SetRemoteDescription against each
	// other, mirroring the JSEP requirement that signaling state
	// transitions apply in the order they were issued.
	ops *operations

	// A reference to the associated API state used by this connection
	api *API
	log logging.LeveledLogger
}

// doSync runs f on the operations queue and blocks until it completes,
// returning its error.
func (pc *PeerConnection) doSync(f func() error) error {
	var err error
	done := make(chan struct{})
	pc.ops.Enqueue(func() {
		err = f()
		close(done)
	})
	<-done
	return err
}

// NewPeerConnection creates a PeerConnection with the default API settings.
// See API.NewPeerConnection for details.
func NewPeerConnection(configuration Configuration) (*PeerConnection, error) {
	api := NewAPI()
	return api.NewPeerConnection(configuration)
}

// NewPeerConnection creates a new PeerConnection with the provided configuration against the received API object
func (api *API) NewPeerConnection(configuration Configuration) (*PeerConnection, error) {
	// https://w3c.github.io/webrtc-pc/#constructor (Step #2)
	pc := &PeerConnection{
		configuration: Configuration{
			ICEServers:           []ICEServer{},
			ICETransportPolicy:   ICETransportPolicyAll,
			BundlePolicy:         BundlePolicyBalanced,
			RTCPMuxPolicy:        RTCPMuxPolicyRequire,
			Certificates:         []Certificate{},
			ICECandidatePoolSize: 0,
		},
		signalingState:     SignalingStateStable,
		iceConnectionState: ICEConnectionStateNew,
		iceGatheringState:  ICEGatheringStateNew,
		connectionState:    PeerConnectionStateNew,

		api: api,
		log: api.settingEngine.LoggerFactory.NewLogger("pc"),
	}
	pc.ops = newOperations(&atomicBool{}, func() {})

	if err := pc.initConfiguration(configuration); err != nil {
		return nil, err
	}

	// Eagerly allocate and start the gatherer: this package does not
	// implement trickle ICE, so every candidate must be ready by the time
	// the first offer or answer is produced.
	gatherer, err := pc.createICEGatherer()
	if err != nil {
		return nil, err
	}
	pc.iceGatherer = gatherer

	if err := pc.iceGatherer.Gather(); err != nil {
		return nil, err
	}

	pc.iceTransport = pc.createICETransport()

	dtlsTransport, err := pc.api.NewDTLSTransport(pc.iceTransport, pc.configuration.Certificates)
	if err != nil {
		return nil, err
	}
	pc.dtlsTransport = dtlsTransport

	return pc, nil
}

// initConfiguration validates the supplied Configuration and merges it into
// pc.configuration. Unlike SetConfiguration, this runs before any state
// exists, so it has nothing to check it against.
func (pc *PeerConnection) initConfiguration(configuration Configuration) error {
	if len(configuration.Certificates) > 0 {
		now := time.Now()
		for _, x509Cert := range configuration.Certificates {
			if !x509Cert.Expires().IsZero() && now.After(x509Cert.Expires()) {
				return &InvalidAccessError{Err: ErrCertificateExpired}
			}
			pc.configuration.Certificates = append(pc.configuration.Certificates, x509Cert)
		}
	} else {
		certificate, err := generateDefaultCertificate()
		if err != nil {
			return err
		}
		pc.configuration.Certificates = []Certificate{*certificate}
	}

	if configuration.BundlePolicy != BundlePolicy(Unknown) {
		pc.configuration.BundlePolicy = configuration.BundlePolicy
	}

	if configuration.RTCPMuxPolicy != RTCPMuxPolicy(Unknown) {
		pc.configuration.RTCPMuxPolicy = configuration.RTCPMuxPolicy
	}

	if configuration.ICECandidatePoolSize != 0 {
		pc.configuration.ICECandidatePoolSize = configuration.ICECandidatePoolSize
	}

	if configuration.ICETransportPolicy != ICETransportPolicy(Unknown) {
		pc.configuration.ICETransportPolicy = configuration.ICETransportPolicy
	}

	if len(configuration.ICEServers) > 0 {
		for _, server := range configuration.ICEServers {
			if _, err := server.validate(); err != nil {
				return err
			}
		}
		pc.configuration.ICEServers = configuration.ICEServers
	}

	return nil
}

// OnSignalingStateChange sets an event handler which is invoked when the
// peer connection's signaling state changes
func (pc *PeerConnection) OnSignalingStateChange(f func(SignalingState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onSignalingStateChangeHandler = f
}

func (pc *PeerConnection) onSignalingStateChange(newState SignalingState) {
	pc.mu.RLock()
	hdlr := pc.onSignalingStateChangeHandler
	pc.mu.RUnlock()

	pc.log.Infof("signaling state changed to %s", newState)
	if hdlr != nil {
		go hdlr(newState)
	}
}

// OnDataChannel sets an event handler which is invoked when a data
// channel opened by the remote peer arrives.
func (pc *PeerConnection) OnDataChannel(f func(*DataChannel)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onDataChannelHandler = f
}

// OnICECandidate sets an event handler which is invoked when a new ICE
// candidate is found.
// BUG: trickle ICE is not supported so this event is triggered immediately
// when SetLocalDescription is called. It exists for API compatibility with
// the W3C interface.
func (pc *PeerConnection) OnICECandidate(f func(*ICECandidate)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onICECandidateHandler = f
}

// OnICEGatheringStateChange sets an event handler which is invoked when the
// ICE candidate gathering state has changed.
func (pc *PeerConnection) OnICEGatheringStateChange(f func()) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onICEGatheringStateChangeHandler = f
}

// signalICECandidateGatheringComplete emulates the trickle-ICE event
// sequence for callers that expect it, even though gathering actually
// finished before SetLocalDescription was ever called.
func (pc *PeerConnection) signalICECandidateGatheringComplete() error {
	pc.mu.Lock()
	hdlr := pc.onICECandidateHandler
	gatherStateHdlr := pc.onICEGatheringStateChangeHandler
	pc.iceGatheringState = ICEGatheringStateComplete
	pc.mu.Unlock()

	if hdlr != nil {
		candidates, err := pc.iceGatherer.GetLocalCandidates()
		if err != nil {
			return err
		}
		for i := range candidates {
			go hdlr(&candidates[i])
		}
		go hdlr(nil)
	}

	if gatherStateHdlr != nil {
		go gatherStateHdlr()
	}

	return nil
}

// OnICEConnectionStateChange sets an event handler which is called
// when an ICE connection state is changed.
func (pc *PeerConnection) OnICEConnectionStateChange(f func(ICEConnectionState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onICEConnectionStateChangeHandler = f
}

func (pc *PeerConnection) onICEConnectionStateChange(cs ICEConnectionState) {
	pc.mu.RLock()
	hdlr := pc.onICEConnectionStateChangeHandler
	pc.mu.RUnlock()

	pc.log.Infof("ICE connection state changed: %s", cs)
	if hdlr != nil {
		go hdlr(cs)
	}
}

// OnConnectionStateChange sets an event handler which is called when the
// aggregate connection state (the join of ICE and DTLS readiness) changes.
func (pc *PeerConnection) OnConnectionStateChange(f func(PeerConnectionState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onConnectionStateChangeHandler = f
}

func (pc *PeerConnection) onConnectionStateChange(cs PeerConnectionState) {
	pc.mu.RLock()
	hdlr := pc.onConnectionStateChangeHandler
	pc.mu.RUnlock()

	pc.log.Infof("peer connection state changed: %s", cs)
	if hdlr != nil {
		go hdlr(cs)
	}
}

// SetConfiguration updates the configuration of this PeerConnection object.
func (pc *PeerConnection) SetConfiguration(configuration Configuration) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.isClosed {
		return &InvalidStateError{Err: ErrConnectionClosed}
	}

	if len(configuration.Certificates) > 0 {
		if len(configuration.Certificates) != len(pc.configuration.Certificates) {
			return &InvalidModificationError{Err: ErrModifyingCertificates}
		}
		for i, certificate := range configuration.Certificates {
			if !pc.configuration.Certificates[i].Equals(certificate) {
				return &InvalidModificationError{Err: ErrModifyingCertificates}
			}
		}
		pc.configuration.Certificates = configuration.Certificates
	}

	if configuration.BundlePolicy != BundlePolicy(Unknown) {
		if configuration.BundlePolicy != pc.configuration.BundlePolicy {
			return &InvalidModificationError{Err: ErrModifyingBundlePolicy}
		}
		pc.configuration.BundlePolicy = configuration.BundlePolicy
	}

	if configuration.RTCPMuxPolicy != RTCPMuxPolicy(Unknown) {
		if configuration.RTCPMuxPolicy != pc.configuration.RTCPMuxPolicy {
			return &InvalidModificationError{Err: ErrModifyingRtcpMuxPolicy}
		}
		pc.configuration.RTCPMuxPolicy = configuration.RTCPMuxPolicy
	}

	if configuration.ICECandidatePoolSize != 0 {
		if pc.configuration.ICECandidatePoolSize != configuration.ICECandidatePoolSize &&
			(pc.pendingLocalDescription != nil || pc.currentLocalDescription != nil) {
			return &InvalidModificationError{Err: ErrModifyingIceCandidatePoolSize}
		}
		pc.configuration.ICECandidatePoolSize = configuration.ICECandidatePoolSize
	}

	if configuration.ICETransportPolicy != ICETransportPolicy(Unknown) {
		pc.configuration.ICETransportPolicy = configuration.ICETransportPolicy
	}

	if len(configuration.ICEServers) > 0 {
		for _, server := range configuration.ICEServers {
			if _, err := server.validate(); err != nil {
				return err
			}
		}
		pc.configuration.ICEServers = configuration.ICEServers
	}

	return nil
}

// GetConfiguration returns a copy of the Configuration currently in effect.
// Mutating the result has no effect until SetConfiguration is called with it.
func (pc *PeerConnection) GetConfiguration() Configuration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.configuration
}

func (pc *PeerConnection) createICEGatherer() (*ICEGatherer, error) {
	return pc.api.NewICEGatherer(ICEGatherOptions{ICEServers: pc.configuration.ICEServers})
}

func (pc *PeerConnection) createICETransport() *ICETransport {
	t := pc.api.NewICETransport(pc.iceGatherer)

	t.OnConnectionStateChange(func(state ICETransportState) {
		cs := ICEConnectionStateNew
		switch state {
		case ICETransportStateNew:
			cs = ICEConnectionStateNew
		case ICETransportStateChecking:
			cs = ICEConnectionStateChecking
		case ICETransportStateConnected:
			cs = ICEConnectionStateConnected
		case ICETransportStateCompleted:
			cs = ICEConnectionStateCompleted
		case ICETransportStateFailed:
			cs = ICEConnectionStateFailed
		case ICETransportStateDisconnected:
			cs = ICEConnectionStateDisconnected
		case ICETransportStateClosed:
			cs = ICEConnectionStateClosed
		default:
			pc.log.Warnf("unhandled ICE transport state: %s", state)
			return
		}
		pc.iceStateChange(cs)
	})

	return t
}

// CreateOffer generates a SessionDescription offering the single
// application m-line this package ever produces.
func (pc *PeerConnection) CreateOffer(options *OfferOptions) (SessionDescription, error) {
	pc.mu.RLock()
	closed := pc.isClosed
	pc.mu.RUnlock()
	if closed {
		return SessionDescription{}, &InvalidStateError{Err: ErrConnectionClosed}
	}

	iceParams, err := pc.iceGatherer.GetLocalParameters()
	if err != nil {
		return SessionDescription{}, err
	}
	candidates, err := pc.iceGatherer.GetLocalCandidates()
	if err != nil {
		return SessionDescription{}, err
	}

	d := newJSEPSessionDescription()
	pc.addFingerprint(d)

	if err := populateSDPWithOffer(d, pc, iceParams, candidates); err != nil {
		return SessionDescription{}, err
	}

	raw, err := d.Marshal()
	if err != nil {
		return SessionDescription{}, err
	}

	desc := SessionDescription{Type: SDPTypeOffer, SDP: string(raw)}

	pc.mu.Lock()
	pc.lastOffer = desc.SDP
	pc.mu.Unlock()

	return desc, nil
}

func populateSDPWithOffer(d *sdp.SessionDescription, pc *PeerConnection, iceParams ICEParameters, candidates []ICECandidate) error {
	_, err := populateSDP(d, pc.fingerprints(), sdp.ConnectionRoleActpass, candidates, iceParams, "data", pc.iceGatheringState)
	return err
}

// CreateAnswer generates a SessionDescription answering the current remote
// offer. Fails with NoRemoteDescription if none has been set.
func (pc *PeerConnection) CreateAnswer(options *AnswerOptions) (SessionDescription, error) {
	pc.mu.RLock()
	closed := pc.isClosed
	remote := pc.remoteDescriptionLocked()
	pc.mu.RUnlock()

	if closed {
		return SessionDescription{}, &InvalidStateError{Err: ErrConnectionClosed}
	}
	if remote == nil {
		return SessionDescription{}, &InvalidStateError{Err: ErrNoRemoteDescription}
	}

	iceParams, err := pc.iceGatherer.GetLocalParameters()
	if err != nil {
		return SessionDescription{}, err
	}
	candidates, err := pc.iceGatherer.GetLocalCandidates()
	if err != nil {
		return SessionDescription{}, err
	}

	d := newJSEPSessionDescription()
	pc.addFingerprint(d)

	midValue := "data"
	if remote.parsed != nil && len(remote.parsed.MediaDescriptions) > 0 {
		if mid := getMidValue(remote.parsed.MediaDescriptions[0]); mid != "" {
			midValue = mid
		}
	}

	if err := addDataMediaSection(d, true, pc.fingerprints(), midValue, iceParams, candidates, sdp.ConnectionRoleActive, pc.iceGatheringState); err != nil {
		return SessionDescription{}, err
	}
	d.WithValueAttribute(sdp.AttrKeyGroup, "BUNDLE "+midValue)

	raw, err := d.Marshal()
	if err != nil {
		return SessionDescription{}, err
	}

	desc := SessionDescription{Type: SDPTypeAnswer, SDP: string(raw)}

	pc.mu.Lock()
	pc.lastAnswer = desc.SDP
	pc.mu.Unlock()

	return desc, nil
}

func (pc *PeerConnection) fingerprints() []DTLSFingerprint {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if len(pc.configuration.Certificates) == 0 {
		return nil
	}
	fingerprints, err := pc.configuration.Certificates[0].GetFingerprints()
	if err != nil {
		return nil
	}
	return fingerprints
}

func (pc *PeerConnection) addFingerprint(d *sdp.SessionDescription) {
	for _, fp := range pc.fingerprints() {
		d.WithFingerprint(fp.Algorithm, strings.ToUpper(fp.Value))
	}
}

// setDescription advances the signaling state machine per spec.md §4.7,
// recording the description on success.
func (pc *PeerConnection) setDescription(sd *SessionDescription, op stateChangeOp) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.isClosed {
		return &InvalidStateError{Err: ErrConnectionClosed}
	}

	cur := pc.signalingState
	newSDPDoesNotMatchOffer := &InvalidModificationError{Err: errors.New("new sdp does not match previous offer")}
	newSDPDoesNotMatchAnswer := &InvalidModificationError{Err: errors.New("new sdp does not match previous answer")}

	var nextState SignalingState
	var err error

	switch op {
	case stateChangeOpSetLocal:
		switch sd.Type {
		case SDPTypeOffer:
			if sd.SDP != pc.lastOffer {
				return newSDPDoesNotMatchOffer
			}
			if nextState, err = checkNextSignalingState(cur, SignalingStateHaveLocalOffer, op, sd.Type); err == nil {
				pc.pendingLocalDescription = sd
			}
		case SDPTypeAnswer:
			if sd.SDP != pc.lastAnswer {
				return newSDPDoesNotMatchAnswer
			}
			if nextState, err = checkNextSignalingState(cur, SignalingStateStable, op, sd.Type); err == nil {
				pc.currentLocalDescription = sd
				pc.currentRemoteDescription = pc.pendingRemoteDescription
				pc.pendingRemoteDescription = nil
				pc.pendingLocalDescription = nil
			}
		case SDPTypeRollback:
			if nextState, err = checkNextSignalingState(cur, SignalingStateStable, op, sd.Type); err == nil {
				pc.pendingLocalDescription = nil
			}
		case SDPTypePranswer:
			if sd.SDP != pc.lastAnswer {
				return newSDPDoesNotMatchAnswer
			}
			if nextState, err = checkNextSignalingState(cur, SignalingStateHaveLocalPranswer, op, sd.Type); err == nil {
				pc.pendingLocalDescription = sd
			}
		default:
			return &OperationError{Err: fmt.Errorf("invalid state change op: %s(%s)", op, sd.Type)}
		}
	case stateChangeOpSetRemote:
		switch sd.Type {
		case SDPTypeOffer:
			if nextState, err = checkNextSignalingState(cur, SignalingStateHaveRemoteOffer, op, sd.Type); err == nil {
				pc.pendingRemoteDescription = sd
			}
		case SDPTypeAnswer:
			if nextState, err = checkNextSignalingState(cur, SignalingStateStable, op, sd.Type); err == nil {
				pc.currentRemoteDescription = sd
				pc.currentLocalDescription = pc.pendingLocalDescription
				pc.pendingRemoteDescription = nil
				pc.pendingLocalDescription = nil
			}
		case SDPTypeRollback:
			if nextState, err = checkNextSignalingState(cur, SignalingStateStable, op, sd.Type); err == nil {
				pc.pendingRemoteDescription = nil
			}
		case SDPTypePranswer:
			if nextState, err = checkNextSignalingState(cur, SignalingStateHaveRemotePranswer, op, sd.Type); err == nil {
				pc.pendingRemoteDescription = sd
			}
		default:
			return &OperationError{Err: fmt.Errorf("invalid state change op: %s(%s)", op, sd.Type)}
		}
	default:
		return &OperationError{Err: fmt.Errorf("unhandled state change op: %q", op)}
	}

	if err == nil {
		pc.signalingState = nextState
		go pc.onSignalingStateChange(nextState)
	}
	return err
}

// SetLocalDescription sets the SessionDescription of the local peer.
func (pc *PeerConnection) SetLocalDescription(desc SessionDescription) error {
	return pc.doSync(func() error {
		pc.mu.RLock()
		closed := pc.isClosed
		pc.mu.RUnlock()
		if closed {
			return &InvalidStateError{Err: ErrConnectionClosed}
		}

		if desc.SDP == "" {
			pc.mu.RLock()
			switch desc.Type {
			case SDPTypeAnswer, SDPTypePranswer:
				desc.SDP = pc.lastAnswer
			case SDPTypeOffer:
				desc.SDP = pc.lastOffer
			default:
				pc.mu.RUnlock()
				return &InvalidModificationError{
					Err: fmt.Errorf("invalid SDP type supplied to SetLocalDescription(): %s", desc.Type),
				}
			}
			pc.mu.RUnlock()
		}

		if _, err := desc.Unmarshal(); err != nil {
			return err
		}
		if err := pc.setDescription(&desc, stateChangeOpSetLocal); err != nil {
			return err
		}

		// Trickle ICE is not supported: surface the already-complete gathering
		// state immediately, for API compatibility with callers that wait on it.
		return pc.signalICECandidateGatheringComplete()
	})
}

// LocalDescription returns pendingLocalDescription if set, else
// currentLocalDescription.
func (pc *PeerConnection) LocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.pendingLocalDescription != nil {
		return pc.pendingLocalDescription
	}
	return pc.currentLocalDescription
}

// SetRemoteDescription sets the SessionDescription of the remote peer, and,
// once both a fingerprint and ICE credentials are known, starts ICE, DTLS
// and SCTP negotiation in the background.
func (pc *PeerConnection) SetRemoteDescription(desc SessionDescription) error {
	return pc.doSync(func() error {
		pc.mu.RLock()
		closed := pc.isClosed
		alreadySet := pc.currentRemoteDescription != nil
		pc.mu.RUnlock()

		if alreadySet {
			return errors.New("remoteDescription is already defined, SetRemoteDescription can only be called once")
		}
		if closed {
			return &InvalidStateError{Err: ErrConnectionClosed}
		}

		parsed, err := desc.Unmarshal()
		if err != nil {
			return err
		}
		if !haveApplicationMediaSection(parsed) {
			return &InvalidModificationError{Err: ErrSessionDescriptionNoFingerprint}
		}

		if err := pc.setDescription(&desc, stateChangeOpSetRemote); err != nil {
			return err
		}

		weOffer := desc.Type != SDPTypeOffer

		remoteUfrag, remotePwd, candidates, err := extractICEDetails(parsed)
		if err != nil {
			return err
		}
		fingerprintValue, fingerprintHash, err := extractFingerprint(parsed)
		if err != nil {
			return err
		}

		for _, c := range candidates {
			if err := pc.iceTransport.AddRemoteCandidate(c); err != nil {
				return err
			}
		}

		sctpTransport := pc.api.NewSCTPTransport(pc.dtlsTransport)
		sctpTransport.OnDataChannel(func(d *DataChannel) {
			pc.mu.RLock()
			hdlr := pc.onDataChannelHandler
			pc.mu.RUnlock()
			if hdlr != nil {
				hdlr(d)
			}
		})

		pc.mu.Lock()
		pc.sctpTransport = sctpTransport
		pending := pc.pendingDataChannels
		pc.pendingDataChannels = nil
		pc.mu.Unlock()

		for _, dc := range pending {
			sctpTransport.dataChannels.addPending(dc)
		}

		go pc.negotiate(weOffer, remoteUfrag, remotePwd, fingerprintHash, fingerprintValue)

		return nil
	})
}

// negotiate drives the blocking ICE, DTLS and SCTP handshakes. It is run on
// its own goroutine because each stage blocks until the peer responds.
func (pc *PeerConnection) negotiate(weOffer bool, remoteUfrag, remotePwd, fingerprintHash, fingerprintValue string) {
	iceRole := ICERoleControlled
	if weOffer {
		iceRole = ICERoleControlling
	}

	if err := pc.iceTransport.Start(pc.iceGatherer, ICEParameters{
		UsernameFragment: remoteUfrag,
		Password:         remotePwd,
	}, &iceRole); err != nil {
		pc.log.Warnf("failed to start ICE transport: %s", err)
		pc.transitionConnectionState(PeerConnectionStateFailed)
		return
	}

	if err := pc.dtlsTransport.Start(DTLSParameters{
		Role:         DTLSRoleAuto,
		Fingerprints: []DTLSFingerprint{{Algorithm: fingerprintHash, Value: fingerprintValue}},
	}); err != nil {
		pc.log.Warnf("failed to start DTLS transport: %s", err)
		pc.transitionConnectionState(PeerConnectionStateFailed)
		return
	}

	pc.mu.Lock()
	pc.dtlsReady = true
	pc.mu.Unlock()
	pc.updateConnectionState()

	if err := pc.sctpTransport.Start(SCTPCapabilities{MaxMessageSize: 0}); err != nil {
		pc.log.Warnf("failed to start SCTP transport: %s", err)
		pc.transitionConnectionState(PeerConnectionStateFailed)
		return
	}
}

// RemoteDescription returns pendingRemoteDescription if set, else
// currentRemoteDescription.
func (pc *PeerConnection) RemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.remoteDescriptionLocked()
}

func (pc *PeerConnection) remoteDescriptionLocked() *SessionDescription {
	if pc.pendingRemoteDescription != nil {
		return pc.pendingRemoteDescription
	}
	return pc.currentRemoteDescription
}

// AddICECandidate adds a trickled remote ICE candidate to the pool used for
// connectivity checks. Fails with NoRemoteDescription if no remote
// description has been set yet.
func (pc *PeerConnection) AddICECandidate(candidate ICECandidateInit) error {
	if pc.RemoteDescription() == nil {
		return &InvalidStateError{Err: ErrNoRemoteDescription}
	}

	candidateValue := strings.TrimPrefix(candidate.Candidate, "candidate:")
	iceCandidate, err := candidateFromAttributeValue(candidateValue, candidate.SDPMid, candidate.SDPMLineIndex)
	if err != nil {
		return err
	}

	return pc.iceTransport.AddRemoteCandidate(iceCandidate)
}

func candidateFromAttributeValue(value string, mid *string, mLineIndex *uint16) (ICECandidate, error) {
	c, err := ice.UnmarshalCandidate(value)
	if err != nil {
		return ICECandidate{}, err
	}
	var midValue string
	if mid != nil {
		midValue = *mid
	}
	var lineIndex uint16
	if mLineIndex != nil {
		lineIndex = *mLineIndex
	}
	return newICECandidateFromICE(c, midValue, lineIndex)
}

// ICEConnectionState returns the ICE connection state of the
// PeerConnection instance.
func (pc *PeerConnection) ICEConnectionState() ICEConnectionState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.iceConnectionState
}

// CreateDataChannel creates a new DataChannel with the given label and
// optional DataChannelInit configuring its reliability and identification.
func (pc *PeerConnection) CreateDataChannel(label string, options *DataChannelInit) (*DataChannel, error) {
	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()
		return nil, &InvalidStateError{Err: ErrConnectionClosed}
	}

	params := &DataChannelParameters{Label: label, Ordered: true}
	var explicitID *uint16
	var protocol string
	negotiated := false

	if options != nil {
		if options.Ordered != nil {
			params.Ordered = *options.Ordered
		}
		if options.MaxPacketLifeTime != nil {
			params.MaxPacketLifeTime = options.MaxPacketLifeTime
		}
		if options.MaxRetransmits != nil {
			params.MaxRetransmits = options.MaxRetransmits
		}
		if options.Protocol != nil {
			protocol = *options.Protocol
		}
		if options.Negotiated != nil {
			negotiated = *options.Negotiated
		}
		explicitID = options.ID
	}

	if params.MaxPacketLifeTime != nil && params.MaxRetransmits != nil {
		pc.mu.Unlock()
		return nil, &TypeError{Err: ErrRetransmitsOrPacketLifeTime}
	}
	if negotiated && explicitID == nil {
		pc.mu.Unlock()
		return nil, &TypeError{Err: ErrNegotiatedWithoutID}
	}

	var d *DataChannel
	var err error
	if explicitID != nil {
		params.ID = *explicitID
		d, err = pc.api.newDataChannel(params, pc.log)
	} else {
		d, err = pc.api.newUnidentifiedDataChannel(params, pc.log)
	}
	if err != nil {
		pc.mu.Unlock()
		return nil, err
	}
	d.protocol = protocol
	d.negotiated = negotiated

	sctpTransport := pc.sctpTransport
	pc.mu.Unlock()

	switch {
	case sctpTransport == nil:
		pc.mu.Lock()
		pc.pendingDataChannels = append(pc.pendingDataChannels, d)
		pc.mu.Unlock()
	case sctpTransport.association() == nil:
		sctpTransport.dataChannels.addPending(d)
	default:
		d.sctpTransport = sctpTransport
		if err := sctpTransport.openDataChannel(d); err != nil {
			return nil, err
		}
		go d.readLoop()
	}

	return d, nil
}

// Close ends the PeerConnection: every transport is stopped and every data
// channel fires onerror (if a cause is known) followed by onclose.
func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()
		return nil
	}
	pc.isClosed = true
	pc.signalingState = SignalingStateClosed
	pc.connectionState = PeerConnectionStateClosed
	pc.mu.Unlock()

	var closeErrs []error

	if pc.sctpTransport != nil {
		if err := pc.sctpTransport.Stop(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if pc.dtlsTransport != nil {
		if err := pc.dtlsTransport.Stop(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if pc.iceTransport != nil {
		if err := pc.iceTransport.Stop(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}

	pc.iceStateChange(ICEConnectionStateClosed)

	return util.FlattenErrs(closeErrs)
}

func (pc *PeerConnection) iceStateChange(newState ICEConnectionState) {
	pc.mu.Lock()
	pc.iceConnectionState = newState
	pc.mu.Unlock()

	pc.onICEConnectionStateChange(newState)
	pc.updateConnectionState()
}

// updateConnectionState computes connection_state as the join of ICE
// connection state and DTLS readiness, per spec.md §4.8.
func (pc *PeerConnection) updateConnectionState() {
	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()
		return
	}

	iceState := pc.iceConnectionState
	dtlsReady := pc.dtlsReady

	var next PeerConnectionState
	switch {
	case iceState == ICEConnectionStateFailed:
		next = PeerConnectionStateFailed
	case iceState == ICEConnectionStateDisconnected:
		next = PeerConnectionStateDisconnected
	case iceState == ICEConnectionStateClosed:
		next = PeerConnectionStateClosed
	case (iceState == ICEConnectionStateConnected || iceState == ICEConnectionStateCompleted) && dtlsReady:
		next = PeerConnectionStateConnected
	case iceState == ICEConnectionStateNew && !dtlsReady:
		next = PeerConnectionStateNew
	default:
		next = PeerConnectionStateConnecting
	}

	changed := next != pc.connectionState
	pc.connectionState = next
	pc.mu.Unlock()

	if changed {
		pc.onConnectionStateChange(next)
	}
}

func (pc *PeerConnection) transitionConnectionState(state PeerConnectionState) {
	pc.mu.Lock()
	changed := state != pc.connectionState
	pc.connectionState = state
	pc.mu.Unlock()
	if changed {
		pc.onConnectionStateChange(state)
	}
}

// CurrentLocalDescription represents the local description that was
// successfully negotiated the last time the PeerConnection transitioned
// into the stable state.
func (pc *PeerConnection) CurrentLocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentLocalDescription
}

// PendingLocalDescription represents a local description in the process of
// being negotiated. nil while the PeerConnection is in the stable state.
func (pc *PeerConnection) PendingLocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pendingLocalDescription
}

// CurrentRemoteDescription represents the last remote description that was
// successfully negotiated the last time the PeerConnection transitioned
// into the stable state.
func (pc *PeerConnection) CurrentRemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentRemoteDescription
}

// PendingRemoteDescription represents a remote description in the process
// of being negotiated. nil while the PeerConnection is in the stable state.
func (pc *PeerConnection) PendingRemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pendingRemoteDescription
}

// SignalingState attribute returns the signaling state of the
// PeerConnection instance.
func (pc *PeerConnection) SignalingState() SignalingState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.signalingState
}

// ICEGatheringState attribute returns the ICE gathering state of the
// PeerConnection instance.
func (pc *PeerConnection) ICEGatheringState() ICEGatheringState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.iceGatheringState
}

// ConnectionState attribute returns the connection state of the
// PeerConnection instance.
func (pc *PeerConnection) ConnectionState() PeerConnectionState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.connectionState
}

// SCTPTransport returns the SCTPTransport backing this connection's data
// channels, or nil before setRemoteDescription has been called.
func (pc *PeerConnection) SCTPTransport() *SCTPTransport {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.sctpTransport
}
